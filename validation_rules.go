package openai

import (
	"fmt"
)

// Parameter ranges accepted by the API.
const (
	temperatureMin = 0.0
	temperatureMax = 2.0
	topPMin        = 0.0
	topPMax        = 1.0
	penaltyMin     = -2.0
	penaltyMax     = 2.0
)

// ModelValidationRule checks the model against the catalog
type ModelValidationRule struct {
	catalog *ModelCatalog
}

func (r *ModelValidationRule) Name() string {
	return "Model Validation"
}

func (r *ModelValidationRule) Check(req *RequestParams) []ValidationWarning {
	var warnings []ValidationWarning

	info, ok := r.catalog.Lookup(req.Model)
	if !ok {
		// Unknown is expected for fine-tunes and new releases.
		return append(warnings, ValidationWarning{
			Code:     WarningCodeModelUnknown,
			Category: "model",
			Field:    "model",
			Value:    req.Model,
			Message:  fmt.Sprintf("Model %s not found in the model catalog (catalog may be outdated)", req.Model),
			Severity: SeverityInfo,
		})
	}

	if req.Endpoint != "" && !info.Serves(req.Endpoint) {
		warnings = append(warnings, ValidationWarning{
			Code:     WarningCodeModelWrongEndpoint,
			Category: "model",
			Field:    "model",
			Value:    req.Model,
			Message:  fmt.Sprintf("Model %s does not serve the %s endpoint (serves %v)", req.Model, req.Endpoint, info.Endpoints),
			Severity: SeverityError,
		})
	}

	if info.Deprecated {
		msg := fmt.Sprintf("Model %s is deprecated", req.Model)
		if info.Replacement != "" {
			msg += fmt.Sprintf("; use %s instead", info.Replacement)
		}
		warnings = append(warnings, ValidationWarning{
			Code:     WarningCodeModelDeprecated,
			Category: "model",
			Field:    "model",
			Value:    req.Model,
			Message:  msg,
			Severity: SeverityWarning,
		})
	}

	return warnings
}

// ParameterValidationRule checks sampling parameters against the API's ranges
type ParameterValidationRule struct {
	catalog *ModelCatalog
}

func (r *ParameterValidationRule) Name() string {
	return "Parameter Validation"
}

func (r *ParameterValidationRule) Check(req *RequestParams) []ValidationWarning {
	var warnings []ValidationWarning

	// Check temperature
	if req.Temperature != nil {
		temp := *req.Temperature
		if temp < temperatureMin || temp > temperatureMax {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeTemperatureOutOfRange,
				Category: "parameter",
				Field:    "temperature",
				Value:    temp,
				Message:  fmt.Sprintf("Temperature %.2f outside range [%.2f, %.2f]", temp, temperatureMin, temperatureMax),
				Severity: SeverityError,
			})
		}
	}

	// Check top_p
	if req.TopP != nil {
		topP := *req.TopP
		if topP < topPMin || topP > topPMax {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeTopPOutOfRange,
				Category: "parameter",
				Field:    "top_p",
				Value:    topP,
				Message:  fmt.Sprintf("TopP %.2f outside range [%.2f, %.2f]", topP, topPMin, topPMax),
				Severity: SeverityError,
			})
		}
		if req.Temperature != nil {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeSamplingOverlap,
				Category: "parameter",
				Field:    "top_p",
				Value:    topP,
				Message:  "Both temperature and top_p are set; altering one of them is recommended",
				Severity: SeverityInfo,
			})
		}
	}

	warnings = append(warnings, checkPenalty("presence_penalty", req.PresencePenalty)...)
	warnings = append(warnings, checkPenalty("frequency_penalty", req.FrequencyPenalty)...)

	n := 1
	if req.N != nil {
		n = *req.N
		if n < 1 {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeChoiceCountInvalid,
				Category: "parameter",
				Field:    "n",
				Value:    n,
				Message:  fmt.Sprintf("N %d must be at least 1", n),
				Severity: SeverityError,
			})
		}
	}

	if req.BestOf != nil && *req.BestOf < n {
		warnings = append(warnings, ValidationWarning{
			Code:     WarningCodeBestOfTooLow,
			Category: "parameter",
			Field:    "best_of",
			Value:    *req.BestOf,
			Message:  fmt.Sprintf("BestOf %d must be greater than or equal to n (%d)", *req.BestOf, n),
			Severity: SeverityError,
		})
	}

	if req.MaxTokens != nil {
		maxTokens := *req.MaxTokens
		if maxTokens < 1 {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeMaxTokensInvalid,
				Category: "parameter",
				Field:    "max_tokens",
				Value:    maxTokens,
				Message:  fmt.Sprintf("MaxTokens %d must be at least 1", maxTokens),
				Severity: SeverityError,
			})
		} else if info, ok := r.catalog.Lookup(req.Model); ok && info.ContextWindow > 0 && maxTokens > info.ContextWindow {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeMaxTokensExceedsModel,
				Category: "parameter",
				Field:    "max_tokens",
				Value:    maxTokens,
				Message:  fmt.Sprintf("MaxTokens %d exceeds the %d token context window of %s", maxTokens, info.ContextWindow, req.Model),
				Severity: SeverityError,
			})
		}
	}

	return warnings
}

func checkPenalty(field string, value *float64) []ValidationWarning {
	if value == nil || (*value >= penaltyMin && *value <= penaltyMax) {
		return nil
	}
	return []ValidationWarning{{
		Code:     WarningCodePenaltyOutOfRange,
		Category: "parameter",
		Field:    field,
		Value:    *value,
		Message:  fmt.Sprintf("%s %.2f outside range [%.2f, %.2f]", field, *value, penaltyMin, penaltyMax),
		Severity: SeverityError,
	}}
}
