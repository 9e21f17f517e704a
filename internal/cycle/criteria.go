package cycle

import (
	"reflect"
	"sort"
	"strings"

	"github.com/ashita-ai/junshu/internal/model"
)

// checkCriteria applies every validation criterion whose name also
// appears in the handler details. The criterion name drives the
// comparison: *_required demands a truthy actual value, min_*/max_* are
// numeric >= / <= against the threshold, and anything else is exact
// equality. Criteria with no matching detail are skipped entirely.
//
// Names are processed in sorted order so the check list is deterministic.
func checkCriteria(criteria map[string]any, details map[string]any) []model.VerificationCheck {
	if len(criteria) == 0 || len(details) == 0 {
		return nil
	}

	names := make([]string, 0, len(criteria))
	for name := range criteria {
		if _, ok := details[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	checks := make([]model.VerificationCheck, 0, len(names))
	for _, name := range names {
		expected := criteria[name]
		actual := details[name]
		checks = append(checks, model.VerificationCheck{
			Criterion: name,
			Expected:  expected,
			Actual:    actual,
			Passed:    criterionPassed(name, expected, actual),
		})
	}
	return checks
}

func criterionPassed(name string, expected, actual any) bool {
	switch {
	case strings.HasSuffix(name, "_required"):
		return model.Truthy(actual)

	case strings.HasPrefix(name, "min_"):
		return compareNumeric(expected, actual, func(threshold, val float64) bool {
			return val >= threshold
		})

	case strings.HasPrefix(name, "max_"):
		return compareNumeric(expected, actual, func(threshold, val float64) bool {
			return val <= threshold
		})

	default:
		return equalValues(expected, actual)
	}
}

// compareNumeric coerces both sides to float64; non-numeric values fail
// the check rather than pass it silently.
func compareNumeric(expected, actual any, cmp func(threshold, val float64) bool) bool {
	threshold, ok := model.ToFloat(expected)
	if !ok {
		return false
	}
	val, ok := model.ToFloat(actual)
	if !ok {
		return false
	}
	return cmp(threshold, val)
}

// equalValues is exact equality with numeric tolerance for mixed int and
// float representations of the same value (JSON decodes all numbers to
// float64; Go literals don't).
func equalValues(expected, actual any) bool {
	if ef, ok := model.ToFloat(expected); ok {
		if af, ok := model.ToFloat(actual); ok {
			return ef == af
		}
		return false
	}
	return reflect.DeepEqual(expected, actual)
}
