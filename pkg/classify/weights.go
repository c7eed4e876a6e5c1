package classify

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"modalityscan/pkg/features"
)

// Weights parameterize the linear model. Coefficients line up with the
// feature order in package features; the positional contract is what
// makes a weights file portable between runs.
type Weights struct {
	Bias         float64                  `yaml:"bias"`
	Coefficients [features.Count]float64 `yaml:"coefficients,flow"`
}

// DefaultWeights returns the built-in model, tuned offline against
// reference CT and MRI series. The intuition behind the signs: CT slices
// show more uniform air background, sharper bone/air boundaries, and a
// more peaked histogram than the smooth soft-tissue gradients of MRI.
func DefaultWeights() Weights {
	return Weights{
		Bias: -2.6,
		Coefficients: [features.Count]float64{
			features.IdxMean:        -1.8,
			features.IdxStdDev:      1.2,
			features.IdxEntropy:     1.6,
			features.IdxEdgeDensity: 5.5,
			features.IdxBackground:  3.8,
			features.IdxSymmetry:    0.3,
		},
	}
}

// Validate rejects weights that would break the classifier's totality.
func (w Weights) Validate() error {
	if math.IsNaN(w.Bias) || math.IsInf(w.Bias, 0) {
		return fmt.Errorf("classify: bias is not finite")
	}
	for i, c := range w.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("classify: coefficient %d is not finite", i)
		}
	}
	return nil
}

// LoadWeights reads a YAML weights file, for swapping in a retuned model
// without a rebuild.
func LoadWeights(path string) (Weights, error) {
	var w Weights

	data, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("error reading weights file: %w", err)
	}
	if err := yaml.Unmarshal(data, &w); err != nil {
		return w, fmt.Errorf("error parsing weights file: %w", err)
	}
	if err := w.Validate(); err != nil {
		return w, err
	}
	return w, nil
}

// SaveWeights writes weights to a YAML file in the format LoadWeights
// reads.
func SaveWeights(w Weights, path string) error {
	data, err := yaml.Marshal(w)
	if err != nil {
		return fmt.Errorf("error marshaling weights: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing weights file: %w", err)
	}
	return nil
}
