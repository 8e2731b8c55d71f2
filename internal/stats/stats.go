// Package stats provides the statistical primitives behind the association
// engine: correlation, significance testing, and the simplified Bayesian
// update that converts a p-value into a posterior probability.
//
// The engine never reports certainty: posteriors are clamped to at most
// MaxPosterior and likelihood ratios to [MinLikelihoodRatio, MaxLikelihoodRatio],
// so a single extreme sample cannot escape as an absolute verdict.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// MaxPosterior caps every posterior probability below certainty.
	MaxPosterior = 0.99

	// MinLikelihoodRatio and MaxLikelihoodRatio bound the evidence strength
	// derived from any single test.
	MinLikelihoodRatio = 0.01
	MaxLikelihoodRatio = 1000.0

	// minPValue protects the p-to-likelihood conversion from dividing by an
	// underflowed p-value.
	minPValue = 1e-10
)

// Confidence levels derived from a posterior probability.
const (
	ConfidenceAlmostCertain = "almost_certain"
	ConfidenceHighlyLikely  = "highly_likely"
	ConfidenceLikely        = "likely"
	ConfidencePossible      = "possible"
	ConfidenceUnlikely      = "unlikely"
)

// Probability scale labels derived from a posterior probability.
const (
	ScaleVeryHigh   = "very_high"
	ScaleHigh       = "high"
	ScaleModerate   = "moderate"
	ScaleLow        = "low"
	ScaleNegligible = "negligible"
)

// Pearson returns the Pearson correlation coefficient of two equal-length
// samples. It returns 0 when the samples are shorter than two points, lengths
// differ, or either sample has zero variance.
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// MeanStdDev returns the sample mean and standard deviation.
func MeanStdDev(x []float64) (mean, std float64) {
	if len(x) == 0 {
		return 0, 0
	}
	mean, std = stat.MeanStdDev(x, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}

// Mean returns the arithmetic mean, or 0 for an empty sample.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// NormalCDF returns the standard normal cumulative distribution at z.
func NormalCDF(z float64) float64 {
	return distuv.UnitNormal.CDF(z)
}

// TwoTailedP converts a z statistic into a two-tailed p-value.
func TwoTailedP(z float64) float64 {
	p := 2 * (1 - NormalCDF(math.Abs(z)))
	return clamp(p, minPValue, 1)
}

// FisherZTest runs a Fisher Z-transform significance test on a Pearson
// correlation coefficient r over n paired samples. It returns the z statistic
// and the two-tailed p-value. Samples of three or fewer carry no information
// and yield (0, 1).
func FisherZTest(r float64, n int) (z, p float64) {
	if n <= 3 {
		return 0, 1
	}
	// atanh diverges at |r| == 1; back away slightly so identical series
	// still produce a finite, very significant statistic.
	r = clamp(r, -0.999999, 0.999999)
	z = math.Atanh(r) * math.Sqrt(float64(n-3))
	return z, TwoTailedP(z)
}

// PValueToLikelihoodRatio converts a p-value into an approximate likelihood
// ratio for the alternative hypothesis. Smaller p-values produce larger
// ratios; p-values near 1 produce ratios near MinLikelihoodRatio.
func PValueToLikelihoodRatio(p float64) float64 {
	p = clamp(p, minPValue, 1)
	return clamp((1-p)/p, MinLikelihoodRatio, MaxLikelihoodRatio)
}

// Posterior performs the simplified Bayesian update: prior odds multiplied by
// the likelihood ratio, converted back to a probability. The result is
// clamped to [0, MaxPosterior] so the engine never declares certainty.
func Posterior(prior, likelihoodRatio float64) float64 {
	prior = clamp(prior, 1e-6, 0.999999)
	lr := clamp(likelihoodRatio, MinLikelihoodRatio, MaxLikelihoodRatio)

	odds := prior / (1 - prior) * lr
	post := odds / (1 + odds)
	if math.IsNaN(post) || math.IsInf(post, 0) {
		return 0
	}
	return clamp(post, 0, MaxPosterior)
}

// ConfidenceLevel buckets a posterior probability into the discrete
// confidence vocabulary carried on every piece of statistical evidence.
func ConfidenceLevel(posterior float64) string {
	switch {
	case posterior >= 0.95:
		return ConfidenceAlmostCertain
	case posterior >= 0.80:
		return ConfidenceHighlyLikely
	case posterior >= 0.60:
		return ConfidenceLikely
	case posterior >= 0.35:
		return ConfidencePossible
	}
	return ConfidenceUnlikely
}

// ProbabilityScale buckets a posterior probability into the coarse
// probability vocabulary reported alongside the confidence level.
func ProbabilityScale(posterior float64) string {
	switch {
	case posterior >= 0.90:
		return ScaleVeryHigh
	case posterior >= 0.70:
		return ScaleHigh
	case posterior >= 0.45:
		return ScaleModerate
	case posterior >= 0.20:
		return ScaleLow
	}
	return ScaleNegligible
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
