// Package classify maps an image fingerprint to a CT/MRI decision with a
// deterministic weighted-sum model. There is no learned state: the
// weights are fixed constants tuned offline and replaceable through
// configuration.
package classify

import (
	"math"

	"modalityscan/pkg/features"
)

// Label is the predicted modality.
type Label string

const (
	CT  Label = "CT"
	MRI Label = "MRI"
)

// Result carries the decision and both class probabilities. The
// probabilities always sum to 1 and the label always matches the 0.5
// threshold on ProbCT.
type Result struct {
	Label   Label
	ProbCT  float64
	ProbMRI float64
}

// Classify scores a fingerprint with the default weights. It is pure and
// total: any vector yields a result, and a score landing exactly on 0.5
// labels CT by convention.
func Classify(v features.Vector) Result {
	return ClassifyWith(DefaultWeights(), v)
}

// ClassifyWith scores a fingerprint with caller-supplied weights.
func ClassifyWith(w Weights, v features.Vector) Result {
	score := w.Bias
	for i, f := range v {
		score += w.Coefficients[i] * f
	}

	probCT := sigmoid(score)
	res := Result{
		Label:   MRI,
		ProbCT:  probCT,
		ProbMRI: 1 - probCT,
	}
	if probCT >= 0.5 {
		res.Label = CT
	}
	return res
}

// sigmoid is the standard logistic function, split on the sign of x so
// the exponential never overflows.
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
