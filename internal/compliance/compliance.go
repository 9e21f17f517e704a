// Package compliance turns a window of recent cycle results into a single
// rolling score in [0, 1]. The weighting is fixed: four sub-scores
// (success, quality, consistency, efficiency) are each position-weighted
// so recent cycles count for more, then combined 0.40/0.30/0.20/0.10.
package compliance

import "github.com/ashita-ai/junshu/internal/model"

// Fixed combination weights. These are policy, not configuration.
const (
	successWeight     = 0.40
	qualityWeight     = 0.30
	consistencyWeight = 0.20
	efficiencyWeight  = 0.10

	// Recent cycles weigh up to 1.5x the oldest in the window.
	positionWeightSpan = 0.5

	// A hot streak over the trailing five cycles earns a boost.
	streakWindow      = 5
	streakSuccessRate = 0.8
	streakBoost       = 1.1
)

// Compute returns the rolling compliance score for the given window of
// cycle results, in original order (oldest first). An empty window is
// defined as 0.0.
func Compute(window []model.CycleResult) float64 {
	n := len(window)
	if n == 0 {
		return 0.0
	}

	var successSum, qualitySum, consistencySum, efficiencySum, weightSum float64
	for i, result := range window {
		w := 1.0 + (float64(i)/float64(n))*positionWeightSpan
		weightSum += w

		switch {
		case result.Success:
			successSum += 1.0 * w
		case result.Score >= 0.8:
			successSum += 0.8 * w
		case result.Score >= 0.6:
			successSum += 0.5 * w
		}

		qualitySum += result.Score * w

		switch {
		case result.Score >= 0.7:
			consistencySum += 1.0 * w
		case result.Score >= 0.5:
			consistencySum += 0.6 * w
		}

		efficiencySum += w * max(0, 1.0-0.1*float64(len(result.CorrectionsMade)))
	}

	score := clip01(successSum/weightSum)*successWeight +
		clip01(qualitySum/weightSum)*qualityWeight +
		clip01(consistencySum/weightSum)*consistencyWeight +
		clip01(efficiencySum/weightSum)*efficiencyWeight

	if streakRate(window) >= streakSuccessRate {
		score = min(1.0, score*streakBoost)
	}
	return clip01(score)
}

// streakRate is the raw success rate over the window's trailing five
// entries, or over the whole window when it is shorter than five.
func streakRate(window []model.CycleResult) float64 {
	tail := window
	if len(tail) > streakWindow {
		tail = tail[len(tail)-streakWindow:]
	}
	successes := 0
	for _, result := range tail {
		if result.Success {
			successes++
		}
	}
	return float64(successes) / float64(len(tail))
}

func clip01(v float64) float64 {
	return min(1.0, max(0.0, v))
}
