package skill

import "math"

// Standard normal helpers and the truncated-Gaussian correction functions
// used by the TrueSkill family of updates.

const minDenominator = 2.222758749e-162

func pdf(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

func cdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func ppf(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

// vWin is the additive mean correction for a win with performance difference x and margin t.
func vWin(x, t float64) float64 {
	xt := x - t
	denom := cdf(xt)
	if denom < minDenominator {
		return -xt
	}
	return pdf(xt) / denom
}

// wWin is the multiplicative variance correction for a win.
func wWin(x, t float64) float64 {
	xt := x - t
	denom := cdf(xt)
	if denom < minDenominator {
		if x < 0 {
			return 1
		}
		return 0
	}
	v := vWin(x, t)
	return v * (v + xt)
}

// vDraw is the mean correction for a draw.
func vDraw(x, t float64) float64 {
	ax := math.Abs(x)
	b := cdf(t-ax) - cdf(-t-ax)
	if b < 1e-5 {
		if x < 0 {
			return -x - t
		}
		return -x + t
	}
	a := pdf(-t-ax) - pdf(t-ax)
	if x < 0 {
		return -a / b
	}
	return a / b
}

// wDraw is the variance correction for a draw.
func wDraw(x, t float64) float64 {
	ax := math.Abs(x)
	b := cdf(t-ax) - cdf(-t-ax)
	if b < minDenominator {
		return 1
	}
	v := vDraw(x, t)
	return ((t-ax)*pdf(t-ax)+(t+ax)*pdf(-t-ax))/b + v*v
}
