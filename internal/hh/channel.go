package hh

import "math"

// Channel holds maximal conductance densities in mS/cm^2 and reversal
// potentials in mV. The passive variant is a Channel with the active
// conductances zeroed, so one engine handles both.
type Channel struct {
	GNa float64
	GK  float64
	GL  float64
	ENa float64
	EK  float64
	EL  float64
}

// DefaultChannel returns the canonical Hodgkin-Huxley 1952 squid constants
// with the resting potential shifted to -65 mV.
func DefaultChannel() Channel {
	return Channel{
		GNa: 120.0,
		GK:  36.0,
		GL:  0.3,
		ENa: 50.0,
		EK:  -77.0,
		EL:  -54.387,
	}
}

// PassiveChannel returns a leak-only membrane.
func PassiveChannel(gl, el float64) Channel {
	return Channel{GL: gl, EL: el}
}

// Active reports whether the channel carries voltage-gated conductances.
func (ch Channel) Active() bool {
	return ch.GNa != 0 || ch.GK != 0
}

// Ionic returns the total ionic current density in uA/cm^2 at voltage v
// for gating state m, h, n. Positive is outward.
func (ch Channel) Ionic(v, m, h, n float64) float64 {
	iNa := ch.GNa * m * m * m * h * (v - ch.ENa)
	iK := ch.GK * n * n * n * n * (v - ch.EK)
	iL := ch.GL * (v - ch.EL)
	return iNa + iK + iL
}

// vtrap evaluates x/(exp(x/y)-1) with the removable singularity at x=0
// filled by its Taylor expansion.
func vtrap(x, y float64) float64 {
	if math.Abs(x/y) < 1e-6 {
		return y * (1 - x/y/2)
	}
	return x / (math.Exp(x/y) - 1)
}

// Rate constants in 1/ms as functions of membrane voltage in mV, canonical
// 1952 formulas in the -65 mV resting convention.

func AlphaM(v float64) float64 { return 0.1 * vtrap(-(v+40), 10) }

func BetaM(v float64) float64 { return 4 * math.Exp(-(v+65)/18) }

func AlphaH(v float64) float64 { return 0.07 * math.Exp(-(v+65)/20) }

func BetaH(v float64) float64 { return 1 / (1 + math.Exp(-(v+35)/10)) }

func AlphaN(v float64) float64 { return 0.01 * vtrap(-(v+55), 10) }

func BetaN(v float64) float64 { return 0.125 * math.Exp(-(v+65)/80) }

// SteadyState returns the equilibrium value alpha/(alpha+beta).
func SteadyState(alpha, beta float64) float64 {
	return alpha / (alpha + beta)
}

// TimeConstant returns 1/(alpha+beta) in ms.
func TimeConstant(alpha, beta float64) float64 {
	return 1 / (alpha + beta)
}
