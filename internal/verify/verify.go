// Package verify implements the mock dual-model content verifier.
//
// Two heuristic "models" score content independently; the blended
// confidence decides pass/fail against a configurable threshold. The
// scores are deterministic for a given content string, so workflow
// cycles are reproducible.
package verify

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"unicode"
)

// Default blend parameters. The primary model carries more weight, the
// way a production setup would weight a stronger verification model.
const (
	DefaultThreshold = 0.7
	primaryWeight    = 0.6
	secondaryWeight  = 0.4
)

// Result is the outcome of verifying one piece of content.
type Result struct {
	IsVerified      bool    `json:"is_verified"`
	ConfidenceScore float64 `json:"confidence_score"`
	PrimaryScore    float64 `json:"primary_score"`
	SecondaryScore  float64 `json:"secondary_score"`
	Model           string  `json:"model"`
}

// Verifier scores content with two heuristic models.
type Verifier struct {
	threshold float64
	logger    *slog.Logger
}

// New creates a verifier. A non-positive threshold falls back to
// DefaultThreshold.
func New(threshold float64, logger *slog.Logger) *Verifier {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Verifier{threshold: threshold, logger: logger}
}

// Threshold returns the pass/fail confidence threshold.
func (v *Verifier) Threshold() float64 {
	return v.threshold
}

// Verify scores content and reports whether the blended confidence
// clears the threshold. Empty content is an error: there is nothing to
// verify.
func (v *Verifier) Verify(ctx context.Context, content, dataType, source, operation string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(content) == "" {
		return Result{}, fmt.Errorf("verify: empty content")
	}

	primary := structuralScore(content)
	secondary := dispersionScore(content)
	confidence := clamp01(primary*primaryWeight + secondary*secondaryWeight)

	res := Result{
		IsVerified:      confidence >= v.threshold,
		ConfidenceScore: confidence,
		PrimaryScore:    primary,
		SecondaryScore:  secondary,
		Model:           "dual-heuristic-v1",
	}

	v.logger.Debug("verify: scored content",
		"data_type", dataType,
		"source", source,
		"operation", operation,
		"confidence", confidence,
		"verified", res.IsVerified)

	return res, nil
}

// structuralScore is the "primary model": it rewards substantive,
// sentence-like content. Short fragments score low, well-formed text
// with punctuation and mixed case scores high.
func structuralScore(content string) float64 {
	trimmed := strings.TrimSpace(content)
	score := 0.3

	switch n := len(trimmed); {
	case n > 200:
		score += 0.3
	case n > 80:
		score += 0.25
	case n > 30:
		score += 0.15
	case n > 10:
		score += 0.05
	}

	if strings.ContainsAny(trimmed, ".!?") {
		score += 0.15
	}
	if words := strings.Fields(trimmed); len(words) >= 5 {
		score += 0.1
	}
	for _, r := range trimmed {
		if unicode.IsUpper(r) {
			score += 0.05
			break
		}
	}

	return clamp01(score)
}

// dispersionScore is the "secondary model": an FNV hash of the content
// mapped into [0.35, 0.95]. It stands in for a second model's independent
// judgment — stable per content, uncorrelated with the primary.
func dispersionScore(content string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(content))
	return 0.35 + 0.6*float64(h.Sum32()%1000)/999.0
}

func clamp01(f float64) float64 {
	return min(1.0, max(0.0, f))
}
