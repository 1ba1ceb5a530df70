package openai

import (
	"slices"
	"sync"
)

// ValidationEngine manages validation rules and executes them
type ValidationEngine struct {
	rules []ValidationRule
	mu    sync.RWMutex
}

var (
	globalValidationEngine     *ValidationEngine
	globalValidationEngineOnce sync.Once
)

// GetValidationEngine returns the global validation engine (singleton)
func GetValidationEngine() *ValidationEngine {
	globalValidationEngineOnce.Do(func() {
		globalValidationEngine = NewValidationEngine(GetModelCatalog())
	})
	return globalValidationEngine
}

// NewValidationEngine returns an engine with the built-in rules bound to catalog.
func NewValidationEngine(catalog *ModelCatalog) *ValidationEngine {
	ve := &ValidationEngine{}
	ve.AddRule(&ModelValidationRule{catalog: catalog})
	ve.AddRule(&ParameterValidationRule{catalog: catalog})
	return ve
}

// AddRule adds a validation rule to the engine
func (ve *ValidationEngine) AddRule(rule ValidationRule) {
	ve.mu.Lock()
	defer ve.mu.Unlock()
	ve.rules = append(ve.rules, rule)
}

// RemoveRule drops the first rule called name and reports whether there was one.
func (ve *ValidationEngine) RemoveRule(name string) bool {
	ve.mu.Lock()
	defer ve.mu.Unlock()

	i := slices.IndexFunc(ve.rules, func(r ValidationRule) bool { return r.Name() == name })
	if i < 0 {
		return false
	}
	ve.rules = slices.Delete(ve.rules, i, i+1)
	return true
}

// Validate runs all validation rules and returns warnings
func (ve *ValidationEngine) Validate(req *RequestParams) []ValidationWarning {
	ve.mu.RLock()
	defer ve.mu.RUnlock()

	var warnings []ValidationWarning
	for _, rule := range ve.rules {
		warnings = append(warnings, rule.Check(req)...)
	}
	return warnings
}

// GetValidationWarnings returns potential issues with a request, using the global engine.
// The client runs this before every call and logs the result.
func GetValidationWarnings(req *RequestParams) []ValidationWarning {
	return GetValidationEngine().Validate(req)
}

// FilterWarningsBySeverity keeps the warnings with one of severities, in order.
func FilterWarningsBySeverity(warnings []ValidationWarning, severities ...Severity) []ValidationWarning {
	return filterWarnings(warnings, func(w ValidationWarning) bool { return slices.Contains(severities, w.Severity) })
}

// FilterWarningsByCategory keeps the warnings in one of categories, in order.
func FilterWarningsByCategory(warnings []ValidationWarning, categories ...string) []ValidationWarning {
	return filterWarnings(warnings, func(w ValidationWarning) bool { return slices.Contains(categories, w.Category) })
}

// FilterWarningsByCode keeps the warnings with one of codes, in order.
func FilterWarningsByCode(warnings []ValidationWarning, codes ...WarningCode) []ValidationWarning {
	return filterWarnings(warnings, func(w ValidationWarning) bool { return slices.Contains(codes, w.Code) })
}

func filterWarnings(warnings []ValidationWarning, keep func(ValidationWarning) bool) []ValidationWarning {
	var out []ValidationWarning
	for _, w := range warnings {
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}
