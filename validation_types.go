package openai

// Severity indicates how serious a validation warning is
type Severity string

const (
	SeverityInfo    Severity = "info"    // Informational (might be expected)
	SeverityWarning Severity = "warning" // Potentially problematic
	SeverityError   Severity = "error"   // Likely to cause API failure
)

// WarningCode is a machine-readable identifier for validation warnings
type WarningCode string

const (
	// Model warnings
	WarningCodeModelUnknown       WarningCode = "MODEL_UNKNOWN"
	WarningCodeModelWrongEndpoint WarningCode = "MODEL_WRONG_ENDPOINT"
	WarningCodeModelDeprecated    WarningCode = "MODEL_DEPRECATED"

	// Parameter warnings
	WarningCodeTemperatureOutOfRange WarningCode = "TEMPERATURE_OUT_OF_RANGE"
	WarningCodeTopPOutOfRange        WarningCode = "TOP_P_OUT_OF_RANGE"
	WarningCodeSamplingOverlap       WarningCode = "SAMPLING_OVERLAP"
	WarningCodePenaltyOutOfRange     WarningCode = "PENALTY_OUT_OF_RANGE"
	WarningCodeChoiceCountInvalid    WarningCode = "N_INVALID"
	WarningCodeBestOfTooLow          WarningCode = "BEST_OF_TOO_LOW"
	WarningCodeMaxTokensInvalid      WarningCode = "MAX_TOKENS_INVALID"
	WarningCodeMaxTokensExceedsModel WarningCode = "MAX_TOKENS_EXCEEDS_MODEL"
)

// ValidationWarning represents a potential issue that might cause API failure.
// These are informational unless Config.StrictValidation is set.
type ValidationWarning struct {
	Code     WarningCode // Machine-readable code
	Category string      // "model" or "parameter"
	Field    string      // Field that might cause issues
	Value    any         // The potentially problematic value
	Message  string      // Human-readable warning
	Severity Severity    // How serious this warning is
}

// RequestParams is the endpoint-independent view of a request that rules inspect.
// Nil fields were not set by the caller.
type RequestParams struct {
	Endpoint         Endpoint
	Model            string
	Temperature      *float64
	TopP             *float64
	N                *int
	BestOf           *int
	MaxTokens        *int
	PresencePenalty  *float64
	FrequencyPenalty *float64
}

// ValidationRule interface allows adding custom validation logic
type ValidationRule interface {
	// Name returns a human-readable name for this rule
	Name() string

	// Check validates a request and returns warnings
	Check(req *RequestParams) []ValidationWarning
}
