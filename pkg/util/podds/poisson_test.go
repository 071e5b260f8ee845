package podds

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoissonPMF(t *testing.T) {
	assert.InDelta(t, math.Exp(-1.5)*1.5*1.5/2, PoissonPMF(2, 1.5), 1e-14)
	assert.InDelta(t, math.Exp(-0.25), PoissonPMF(0, 0.25), 1e-14)
	assert.Equal(t, 0.0, PoissonPMF(-1, 1.5))
	assert.Equal(t, 1.0, PoissonPMF(0, 0))
	assert.Equal(t, 0.0, PoissonPMF(3, 0))

	sum := 0.0
	for k := 0; k <= 60; k++ {
		sum += PoissonPMF(k, 3.2)
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.InDelta(t, sum, PoissonCDF(60, 3.2), 1e-12)
}

func TestChooseGridCutoff(t *testing.T) {
	// low scoring games stop at the minimum
	assert.Equal(t, 5, ChooseGridCutoff(0.25, 0.25, 5, 10, 0.985))
	// very high lambdas are capped
	assert.Equal(t, 10, ChooseGridCutoff(8, 8, 5, 10, 0.985))

	c := ChooseGridCutoff(3.2, 3.2, 5, 10, 0.985)
	assert.GreaterOrEqual(t, CapturedMass(3.2, 3.2, c), 0.985)
	assert.Less(t, CapturedMass(3.2, 3.2, c-1), 0.985)
}

func TestGridCutoffIsMonotone(t *testing.T) {
	prevSymmetric, prevFixed := 0, 0
	for l := 0.25; l <= 6.0; l += 0.05 {
		symmetric := ChooseGridCutoff(l, l, 5, 10, 0.985)
		fixed := ChooseGridCutoff(l, 1.2, 5, 10, 0.985)
		assert.GreaterOrEqual(t, symmetric, prevSymmetric, "lambda %f", l)
		assert.GreaterOrEqual(t, fixed, prevFixed, "lambda %f", l)
		prevSymmetric, prevFixed = symmetric, fixed
	}
}

func TestDistributionSumsToOne(t *testing.T) {
	config := DefaultPoddsConfig()
	pairs := [][2]float64{
		{0.25, 0.25}, {0.25, 3.2}, {3.2, 3.2}, {1.45, 1.15}, {2.7, 0.4}, {6, 6},
	}
	for _, rho := range []float64{0, -0.1} {
		config.DixonColesRho = rho
		for _, p := range pairs {
			d := BuildDistribution(p[0], p[1], config)
			total := 0.0
			for h := range d.Cells {
				assert.Len(t, d.Cells[h], d.Cutoff+1)
				for a := range d.Cells[h] {
					total += d.Cells[h][a]
				}
			}
			assert.InDelta(t, 1.0, total, 1e-9, "lambdas %v", p)
			assert.InDelta(t, 1.0, d.HomeWin+d.Draw+d.AwayWin, 1e-9, "lambdas %v", p)
			assert.LessOrEqual(t, d.CapturedMass, 1.0)
			assert.Less(t, d.Over2p5, d.Over1p5)
		}
	}
}

func TestDistributionShape(t *testing.T) {
	d := BuildDistribution(2.0, 0.6, DefaultPoddsConfig())
	assert.Greater(t, d.HomeWin, d.AwayWin)
	assert.Equal(t, HomeWin, OutcomeOf(2, 1))
	assert.Equal(t, Draw, OutcomeOf(1, 1))
	assert.Equal(t, AwayWin, OutcomeOf(0, 3))
	assert.Equal(t, d.Draw, d.OutcomeProbability(Draw))

	under := d.Cells[0][0] + d.Cells[0][1] + d.Cells[1][0]
	assert.InDelta(t, 1-under, d.Over1p5, 1e-12)
}

func TestDixonColesWithZeroRhoIsIndependentPoisson(t *testing.T) {
	config := DefaultPoddsConfig()
	config.DixonColesRho = 0
	lh, la := 1.4, 1.1
	d := BuildDistribution(lh, la, config)

	mass := CapturedMass(lh, la, d.Cutoff)
	assert.InDelta(t, mass, d.CapturedMass, 1e-15)
	for h := range d.Cells {
		for a := range d.Cells[h] {
			assert.InDelta(t, PoissonPMF(h, lh)*PoissonPMF(a, la)/mass, d.Cells[h][a], 1e-12)
		}
	}

	// a negative rho moves mass onto 0-0 and 1-1
	config.DixonColesRho = -0.1
	corrected := BuildDistribution(lh, la, config)
	assert.Greater(t, corrected.Cells[0][0], d.Cells[0][0])
	assert.Greater(t, corrected.Cells[1][1], d.Cells[1][1])
	assert.Less(t, corrected.Cells[1][0], d.Cells[1][0])
	assert.Greater(t, corrected.Draw, d.Draw)
}

func TestCalculateTau(t *testing.T) {
	assert.InDelta(t, 1-1.5*1.2*-0.1, calculateTau(0, 0, 1.5, 1.2, -0.1), 1e-12)
	assert.InDelta(t, 1+1.5*-0.1, calculateTau(0, 1, 1.5, 1.2, -0.1), 1e-12)
	assert.InDelta(t, 1+1.2*-0.1, calculateTau(1, 0, 1.5, 1.2, -0.1), 1e-12)
	assert.InDelta(t, 1.1, calculateTau(1, 1, 1.5, 1.2, -0.1), 1e-12)
	assert.Equal(t, 1.0, calculateTau(2, 1, 1.5, 1.2, -0.1))
}
