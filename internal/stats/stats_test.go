package stats

import (
	"math"
	"testing"
)

func TestPearsonPerfectCorrelation(t *testing.T) {
	x := []float64{-70, -65, -60, -55, -50, -45}
	y := []float64{-72, -67, -62, -57, -52, -47}

	r := Pearson(x, y)
	if math.Abs(r-1.0) > 1e-9 {
		t.Errorf("Pearson = %v, want 1.0 for shifted identical series", r)
	}
}

func TestPearsonAntiCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{10, 8, 6, 4, 2}

	r := Pearson(x, y)
	if math.Abs(r+1.0) > 1e-9 {
		t.Errorf("Pearson = %v, want -1.0", r)
	}
}

func TestPearsonDegenerateInputs(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
	}{
		{"mismatched lengths", []float64{1, 2, 3}, []float64{1, 2}},
		{"single point", []float64{1}, []float64{1}},
		{"empty", nil, nil},
		{"zero variance", []float64{5, 5, 5, 5}, []float64{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r := Pearson(tt.x, tt.y); r != 0 {
				t.Errorf("Pearson = %v, want 0", r)
			}
		})
	}
}

func TestNormalCDF(t *testing.T) {
	tests := []struct {
		z    float64
		want float64
	}{
		{0, 0.5},
		{1.96, 0.975},
		{-1.96, 0.025},
	}

	for _, tt := range tests {
		if got := NormalCDF(tt.z); math.Abs(got-tt.want) > 0.001 {
			t.Errorf("NormalCDF(%v) = %v, want %v", tt.z, got, tt.want)
		}
	}
}

func TestTwoTailedP(t *testing.T) {
	// z = 1.96 corresponds to p ≈ 0.05 two-tailed.
	if p := TwoTailedP(1.96); math.Abs(p-0.05) > 0.001 {
		t.Errorf("TwoTailedP(1.96) = %v, want ~0.05", p)
	}
	// Symmetric in z.
	if TwoTailedP(2.5) != TwoTailedP(-2.5) {
		t.Error("TwoTailedP should be symmetric in z")
	}
	// Never exactly zero.
	if p := TwoTailedP(50); p <= 0 {
		t.Errorf("TwoTailedP(50) = %v, want > 0", p)
	}
}

func TestFisherZTest(t *testing.T) {
	// Strong correlation over a reasonable sample should be significant.
	z, p := FisherZTest(0.9, 20)
	if z <= 0 {
		t.Errorf("z = %v, want positive for positive r", z)
	}
	if p >= 0.01 {
		t.Errorf("p = %v, want < 0.01 for r=0.9 n=20", p)
	}

	// Weak correlation over a tiny sample should not be.
	_, p = FisherZTest(0.3, 6)
	if p < 0.1 {
		t.Errorf("p = %v, want >= 0.1 for r=0.3 n=6", p)
	}
}

func TestFisherZTestDegenerate(t *testing.T) {
	if z, p := FisherZTest(0.99, 3); z != 0 || p != 1 {
		t.Errorf("FisherZTest with n<=3 = (%v, %v), want (0, 1)", z, p)
	}
	// |r| of exactly 1 must not produce Inf.
	z, p := FisherZTest(1.0, 30)
	if math.IsInf(z, 0) || math.IsNaN(z) {
		t.Errorf("z = %v, want finite", z)
	}
	if p <= 0 {
		t.Errorf("p = %v, want > 0", p)
	}
}

func TestPValueToLikelihoodRatio(t *testing.T) {
	if lr := PValueToLikelihoodRatio(0.5); math.Abs(lr-1.0) > 1e-9 {
		t.Errorf("LR(0.5) = %v, want 1.0", lr)
	}
	if lr := PValueToLikelihoodRatio(0.01); math.Abs(lr-99) > 0.1 {
		t.Errorf("LR(0.01) = %v, want ~99", lr)
	}
	// Capped at the maximum for vanishing p-values.
	if lr := PValueToLikelihoodRatio(1e-15); lr != MaxLikelihoodRatio {
		t.Errorf("LR(1e-15) = %v, want %v", lr, MaxLikelihoodRatio)
	}
	// Bounded below.
	if lr := PValueToLikelihoodRatio(1); lr < MinLikelihoodRatio {
		t.Errorf("LR(1) = %v, want >= %v", lr, MinLikelihoodRatio)
	}
}

func TestPosteriorClamped(t *testing.T) {
	// Overwhelming evidence must still stay below certainty.
	if post := Posterior(0.5, MaxLikelihoodRatio); post > MaxPosterior {
		t.Errorf("posterior %v exceeds cap %v", post, MaxPosterior)
	}
	// The update must be monotonic in the likelihood ratio.
	weak := Posterior(0.05, 2)
	strong := Posterior(0.05, 50)
	if strong <= weak {
		t.Errorf("posterior not monotonic: lr=2 -> %v, lr=50 -> %v", weak, strong)
	}
	// Neutral evidence leaves the prior nearly unchanged.
	if post := Posterior(0.05, 1); math.Abs(post-0.05) > 1e-9 {
		t.Errorf("Posterior(0.05, 1) = %v, want 0.05", post)
	}
}

func TestPosteriorRange(t *testing.T) {
	priors := []float64{0, 0.01, 0.05, 0.5, 0.99, 1}
	lrs := []float64{0, 0.5, 1, 10, 1e6, math.Inf(1)}

	for _, prior := range priors {
		for _, lr := range lrs {
			post := Posterior(prior, lr)
			if post < 0 || post > MaxPosterior || math.IsNaN(post) {
				t.Errorf("Posterior(%v, %v) = %v out of range", prior, lr, post)
			}
		}
	}
}

func TestConfidenceLevelBuckets(t *testing.T) {
	tests := []struct {
		posterior float64
		want      string
	}{
		{0.99, ConfidenceAlmostCertain},
		{0.85, ConfidenceHighlyLikely},
		{0.65, ConfidenceLikely},
		{0.40, ConfidencePossible},
		{0.10, ConfidenceUnlikely},
	}

	for _, tt := range tests {
		if got := ConfidenceLevel(tt.posterior); got != tt.want {
			t.Errorf("ConfidenceLevel(%v) = %q, want %q", tt.posterior, got, tt.want)
		}
	}
}

func TestProbabilityScaleBuckets(t *testing.T) {
	tests := []struct {
		posterior float64
		want      string
	}{
		{0.95, ScaleVeryHigh},
		{0.75, ScaleHigh},
		{0.50, ScaleModerate},
		{0.25, ScaleLow},
		{0.05, ScaleNegligible},
	}

	for _, tt := range tests {
		if got := ProbabilityScale(tt.posterior); got != tt.want {
			t.Errorf("ProbabilityScale(%v) = %q, want %q", tt.posterior, got, tt.want)
		}
	}
}

func TestMeanStdDev(t *testing.T) {
	mean, std := MeanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(mean-5) > 1e-9 {
		t.Errorf("mean = %v, want 5", mean)
	}
	if std <= 0 {
		t.Errorf("std = %v, want > 0", std)
	}

	if mean, std := MeanStdDev(nil); mean != 0 || std != 0 {
		t.Errorf("MeanStdDev(nil) = (%v, %v), want zeros", mean, std)
	}
}
