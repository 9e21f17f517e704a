// Package model defines the core domain types for Junshu.
//
// Types use strong typing (UUIDs, time.Time, enums) and avoid
// interface{} except where scenario payloads are genuinely free-form
// (scenario input data and handler detail flags).
package model

import "fmt"

// ScenarioCategory selects the cycle handler used to execute a scenario.
type ScenarioCategory string

const (
	CategoryFunctional  ScenarioCategory = "functional"
	CategoryIntegration ScenarioCategory = "integration"
	CategoryPerformance ScenarioCategory = "performance"
	CategoryResilience  ScenarioCategory = "resilience"
	CategoryGeneric     ScenarioCategory = "generic"
)

// Valid reports whether the category is one of the known handler categories.
func (c ScenarioCategory) Valid() bool {
	switch c {
	case CategoryFunctional, CategoryIntegration, CategoryPerformance,
		CategoryResilience, CategoryGeneric:
		return true
	}
	return false
}

// Scenario priority bounds. Priority 1 is the highest; the catalog's
// selection weight is 1/priority, so priority-1 scenarios are drawn
// five times as often as priority-5 ones.
const (
	PriorityHighest = 1
	PriorityLowest  = 5

	// FundamentalsPriorityCutoff bounds the "fundamentals" candidate pool
	// used when an agent's recent scores are poor.
	FundamentalsPriorityCutoff = 2
)

// TestScenario is a named, parameterized test case with expected outcomes
// and pass/fail criteria. Scenarios are immutable after catalog load; a
// corrected variant (relaxed min_confidence) is derived per retry and
// discarded after use.
type TestScenario struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    ScenarioCategory `json:"category"`
	Priority    int              `json:"priority"`

	// InputData parameterizes the category handler (operation name,
	// content, concurrent_operations, ...).
	InputData map[string]any `json:"input_data"`

	// ExpectedOutcomes names the detail flags that must all be truthy for
	// functional/integration success.
	ExpectedOutcomes []string `json:"expected_outcomes"`

	// ValidationCriteria maps criterion name to threshold or expected
	// value. The naming convention drives comparison semantics:
	// min_* / max_* compare numerically, *_required demands a truthy
	// value, anything else requires exact equality.
	ValidationCriteria map[string]any `json:"validation_criteria"`
}

// Validate checks scenario well-formedness at catalog load time.
func (s TestScenario) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("scenario: id is required")
	}
	if !s.Category.Valid() {
		return fmt.Errorf("scenario %s: unknown category %q", s.ID, s.Category)
	}
	if s.Priority < PriorityHighest || s.Priority > PriorityLowest {
		return fmt.Errorf("scenario %s: priority %d out of range [%d,%d]",
			s.ID, s.Priority, PriorityHighest, PriorityLowest)
	}
	return nil
}

// MinConfidence returns the scenario's min_confidence criterion, or the
// given fallback when the criterion is absent or non-numeric.
func (s TestScenario) MinConfidence(fallback float64) float64 {
	if v, ok := s.ValidationCriteria["min_confidence"]; ok {
		if f, ok := ToFloat(v); ok {
			return f
		}
	}
	return fallback
}

// InputString returns a string-typed input datum, or empty string.
func (s TestScenario) InputString(key string) string {
	v, _ := s.InputData[key].(string)
	return v
}

// InputInt returns a numeric input datum as int, or the fallback.
func (s TestScenario) InputInt(key string, fallback int) int {
	if v, ok := s.InputData[key]; ok {
		if f, ok := ToFloat(v); ok {
			return int(f)
		}
	}
	return fallback
}

// ToFloat coerces the numeric types that survive JSON decoding and
// literal Go maps into a float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	}
	return 0, false
}

// Truthy reports whether a detail value counts as satisfied for a
// *_required criterion or an expected-outcome flag: non-nil, not false,
// not zero, not empty.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		if f, ok := ToFloat(v); ok {
			return f != 0
		}
		return true
	}
}
