package junshu

// Scenario categories for use with WithScenarios. Each category selects
// a different execution handler inside the engine.
const (
	CategoryFunctional  = "functional"
	CategoryIntegration = "integration"
	CategoryPerformance = "performance"
	CategoryResilience  = "resilience"
	CategoryGeneric     = "generic"
)

// Scenario is the public representation of a test scenario supplied via
// WithScenarios. It is a curated view of the internal scenario type with
// no internal package imports — safe to construct from outside the module.
type Scenario struct {
	ID          string
	Name        string
	Description string
	// Category is one of the Category* constants.
	Category string
	// Priority ranges 1 (highest, drawn most often) to 5 (lowest).
	Priority int

	// InputData parameterizes the category handler (operation name,
	// content, concurrent_operations, ...).
	InputData map[string]any

	// ExpectedOutcomes names the result flags that must all be truthy
	// for functional and integration scenarios to pass.
	ExpectedOutcomes []string

	// ValidationCriteria maps criterion name to threshold or expected
	// value. min_* / max_* compare numerically, *_required demands a
	// truthy value, anything else requires exact equality.
	ValidationCriteria map[string]any
}

// VerifyResult is the outcome of verifying one piece of content,
// returned by Verifier implementations.
type VerifyResult struct {
	// IsVerified reports whether the confidence cleared the threshold.
	IsVerified bool
	// ConfidenceScore is the blended confidence [0.0, 1.0].
	ConfidenceScore float64
	// Model names the verification backend for reporting.
	Model string
}
