// Package model defines the show's data model: cues, their tagged-variant
// parameters, easing curves, and the settings that travel with a show file.
package model

import "math"

// Easing is the closed set of fade curves a Cue's fade parameters may use.
// Intensity 1 means linear; higher values are steeper.
type Easing struct {
	Kind      EasingKind `json:"type"`
	IntensityI int32     `json:"intensityI,omitempty"`
	IntensityF float64   `json:"intensityF,omitempty"`
}

// EasingKind discriminates the Easing tagged union.
type EasingKind string

const (
	EasingLinear  EasingKind = "linear"
	EasingInPowi  EasingKind = "inPowi"
	EasingOutPowi EasingKind = "outPowi"
	EasingInOutPowi EasingKind = "inOutPowi"
	EasingInPowf  EasingKind = "inPowf"
	EasingOutPowf EasingKind = "outPowf"
	EasingInOutPowf EasingKind = "inOutPowf"
)

// Linear returns the Linear easing.
func Linear() Easing { return Easing{Kind: EasingLinear} }

// InPowi returns an In{Powi(n)} easing.
func InPowi(n int32) Easing { return Easing{Kind: EasingInPowi, IntensityI: n} }

// OutPowi returns an Out{Powi(n)} easing.
func OutPowi(n int32) Easing { return Easing{Kind: EasingOutPowi, IntensityI: n} }

// InOutPowi returns an InOut{Powi(n)} easing.
func InOutPowi(n int32) Easing { return Easing{Kind: EasingInOutPowi, IntensityI: n} }

// InPowf returns an In{Powf(x)} easing.
func InPowf(x float64) Easing { return Easing{Kind: EasingInPowf, IntensityF: x} }

// OutPowf returns an Out{Powf(x)} easing.
func OutPowf(x float64) Easing { return Easing{Kind: EasingOutPowf, IntensityF: x} }

// InOutPowf returns an InOut{Powf(x)} easing.
func InOutPowf(x float64) Easing { return Easing{Kind: EasingInOutPowf, IntensityF: x} }

// Apply maps a progress value in [0,1] through the easing curve.
func (e Easing) Apply(progress float64) float64 {
	switch e.Kind {
	case EasingLinear, "":
		return progress
	case EasingInPowi:
		return powi(progress, e.IntensityI)
	case EasingOutPowi:
		return 1 - powi(1-progress, e.IntensityI)
	case EasingInOutPowi:
		if progress < 0.5 {
			return powi(2*progress, e.IntensityI) / 2
		}
		return 1 - powi(2*(1-progress), e.IntensityI)/2
	case EasingInPowf:
		return math.Pow(progress, powfExponent(e.IntensityF))
	case EasingOutPowf:
		return 1 - math.Pow(1-progress, powfExponent(e.IntensityF))
	case EasingInOutPowf:
		n := powfExponent(e.IntensityF)
		if progress < 0.5 {
			return math.Pow(2*progress, n) / 2
		}
		return 1 - math.Pow(2*(1-progress), n)/2
	default:
		return progress
	}
}

// powi raises progress to an integer power, defaulting the exponent to 1
// (linear) when the cue was authored with a non-positive intensity.
func powi(progress float64, n int32) float64 {
	if n < 1 {
		n = 1
	}
	result := 1.0
	for i := int32(0); i < n; i++ {
		result *= progress
	}
	return result
}

func powfExponent(x float64) float64 {
	if x <= 0 {
		return 1
	}
	return x
}

// Interpolate computes the eased value between start and end at progress.
func Interpolate(start, end, progress float64, easing Easing) float64 {
	return start + (end-start)*easing.Apply(progress)
}
