package classify

import "math"

// ConfidenceInterval is a two-sided confidence interval for a proportion.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Level float64 `json:"level"`
}

// WilsonScore calculates the Wilson score confidence interval for a
// proportion of successes out of n trials.
//
// The Wilson interval is preferred over the normal approximation for small
// samples and proportions near 0 or 1, both typical in security
// evaluation where few attempts succeed.
func WilsonScore(successes, n int, confidence float64) ConfidenceInterval {
	if n == 0 {
		return ConfidenceInterval{Lower: 0, Upper: 1, Level: confidence}
	}

	z := zScore(confidence)
	z2 := z * z
	p := float64(successes) / float64(n)

	denominator := 1.0 + z2/float64(n)
	center := p + z2/(2*float64(n))
	margin := z * math.Sqrt((p*(1-p)+z2/(4*float64(n)))/float64(n))

	lower := (center - margin) / denominator
	upper := (center + margin) / denominator

	if lower < 0 {
		lower = 0
	}
	if upper > 1 {
		upper = 1
	}

	return ConfidenceInterval{Lower: lower, Upper: upper, Level: confidence}
}

// zScore returns the two-sided z value for common confidence levels,
// falling back to 1.96 (95%) for unrecognized levels.
func zScore(confidence float64) float64 {
	switch confidence {
	case 0.90:
		return 1.645
	case 0.95:
		return 1.960
	case 0.99:
		return 2.576
	default:
		return 1.960
	}
}
