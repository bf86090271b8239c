package units

import (
	"math"
	"strconv"
)

const kilosPerPound = 0.45359237

// Provider carries the user's unit preference. Engine values are unit-agnostic numbers;
// this is only used when rendering them.
type Provider struct {
	Metric bool
}

func NewProvider(metric bool) Provider {
	return Provider{Metric: metric}
}

func (p Provider) Label() string {
	if p.Metric {
		return "kg"
	}
	return "lb"
}

// FormatWeight renders a weight with at most two decimals and the unit label, e.g. "102.5 kg".
func (p Provider) FormatWeight(weight float64) string {
	return strconv.FormatFloat(math.Round(weight*100)/100, 'f', -1, 64) + " " + p.Label()
}

// ToKilos converts a displayed weight into kilos, for comparing across unit settings.
func (p Provider) ToKilos(weight float64) float64 {
	if p.Metric {
		return weight
	}
	return weight * kilosPerPound
}
