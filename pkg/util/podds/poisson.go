package podds

import (
	"math"
)

// Outcome is a quiniela result sign
type Outcome string

const (
	HomeWin Outcome = "1"
	Draw    Outcome = "X"
	AwayWin Outcome = "2"
)

// outcomes in tie-break order
var outcomeOrder = [3]Outcome{HomeWin, Draw, AwayWin}

// OutcomeOf returns the sign of a scoreline
func OutcomeOf(homeGoals, awayGoals int) Outcome {
	switch {
	case homeGoals > awayGoals:
		return HomeWin
	case homeGoals == awayGoals:
		return Draw
	default:
		return AwayWin
	}
}

// ScorelineDistribution is the normalized joint probability of every scoreline up to Cutoff goals per side
type ScorelineDistribution struct {
	LambdaHome float64 `json:"lambdaHome"`
	LambdaAway float64 `json:"lambdaAway"`
	Cutoff     int     `json:"cutoff"`
	// mass of the independent grid before renormalization
	CapturedMass float64 `json:"capturedMass"`
	// Cells[h][a], sums to 1
	Cells [][]float64 `json:"cells"`

	HomeWin float64 `json:"homeWin"`
	Draw    float64 `json:"draw"`
	AwayWin float64 `json:"awayWin"`
	Over1p5 float64 `json:"over1p5"`
	Over2p5 float64 `json:"over2p5"`
}

// OutcomeProbability returns the aggregate probability of an outcome
func (d *ScorelineDistribution) OutcomeProbability(o Outcome) float64 {
	switch o {
	case HomeWin:
		return d.HomeWin
	case Draw:
		return d.Draw
	default:
		return d.AwayWin
	}
}

// PoissonPMF returns P(X = k) for X ~ Poisson(lambda), computed in log space
func PoissonPMF(k int, lambda float64) float64 {
	if k < 0 {
		return 0
	}
	if lambda <= 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	lg, _ := math.Lgamma(float64(k) + 1)
	return math.Exp(float64(k)*math.Log(lambda) - lambda - lg)
}

// PoissonCDF returns P(X <= k)
func PoissonCDF(k int, lambda float64) float64 {
	sum := 0.0
	for i := 0; i <= k; i++ {
		sum += PoissonPMF(i, lambda)
	}
	return sum
}

// CapturedMass is the independent-Poisson mass of the square grid 0..cutoff for both sides
func CapturedMass(lambdaHome, lambdaAway float64, cutoff int) float64 {
	return PoissonCDF(cutoff, lambdaHome) * PoissonCDF(cutoff, lambdaAway)
}

// ChooseGridCutoff returns the smallest cutoff in [minGoals, maxGoals] whose grid captures
// at least target mass, or maxGoals when none does
func ChooseGridCutoff(lambdaHome, lambdaAway float64, minGoals, maxGoals int, target float64) int {
	for g := minGoals; g <= maxGoals; g++ {
		if CapturedMass(lambdaHome, lambdaAway, g) >= target {
			return g
		}
	}
	return maxGoals
}

// createProbabilityMatrix creates the outer product of the two marginal distributions
func createProbabilityMatrix(homeProbs, awayProbs []float64) [][]float64 {
	matrix := make([][]float64, len(homeProbs))
	for i := range homeProbs {
		matrix[i] = make([]float64, len(awayProbs))
		for j := range awayProbs {
			matrix[i][j] = homeProbs[i] * awayProbs[j]
		}
	}
	return matrix
}

// dixonColesCorrection multiplies the four low-scoring cells by tau
func dixonColesCorrection(matrix [][]float64, lambdaHome, lambdaAway, rho float64) {
	if rho == 0 || len(matrix) < 2 || len(matrix[0]) < 2 {
		return
	}
	for h := 0; h <= 1; h++ {
		for a := 0; a <= 1; a++ {
			matrix[h][a] *= calculateTau(h, a, lambdaHome, lambdaAway, rho)
		}
	}
}

// calculateTau computes the Dixon-Coles correction factor for specific scorelines
func calculateTau(homeGoals, awayGoals int, lambdaHome, lambdaAway, rho float64) float64 {
	switch {
	case homeGoals == 0 && awayGoals == 0:
		return 1 - lambdaHome*lambdaAway*rho
	case homeGoals == 0 && awayGoals == 1:
		return 1 + lambdaHome*rho
	case homeGoals == 1 && awayGoals == 0:
		return 1 + lambdaAway*rho
	case homeGoals == 1 && awayGoals == 1:
		return 1 - rho
	}
	return 1.0
}

// renormalizeMatrix scales the matrix to sum to 1 and returns the mass before scaling
func renormalizeMatrix(matrix [][]float64) float64 {
	total := 0.0
	for i := range matrix {
		for j := range matrix[i] {
			total += matrix[i][j]
		}
	}
	if total > 0 {
		for i := range matrix {
			for j := range matrix[i] {
				matrix[i][j] /= total
			}
		}
	}
	return total
}

// calculateMatchOutcomeProbabilities sums the lower triangle, diagonal and upper triangle
func calculateMatchOutcomeProbabilities(matrix [][]float64) (homeWin, draw, awayWin float64) {
	for h := range matrix {
		for a := range matrix[h] {
			switch OutcomeOf(h, a) {
			case HomeWin:
				homeWin += matrix[h][a]
			case Draw:
				draw += matrix[h][a]
			default:
				awayWin += matrix[h][a]
			}
		}
	}
	return homeWin, draw, awayWin
}

// calculateOverGoalsProbability sums the cells whose total goals exceed threshold
func calculateOverGoalsProbability(matrix [][]float64, threshold float64) float64 {
	sum := 0.0
	for h := range matrix {
		for a := range matrix[h] {
			if float64(h+a) > threshold {
				sum += matrix[h][a]
			}
		}
	}
	return sum
}

// BuildDistribution builds the adaptive grid for the given lambdas.
// Cells and outcome buckets are renormalized by the captured mass so they sum to 1.
func BuildDistribution(lambdaHome, lambdaAway float64, config *PoddsConfig) *ScorelineDistribution {
	cutoff := ChooseGridCutoff(lambdaHome, lambdaAway, config.GridMinGoals, config.GridMaxGoals, config.GridTargetMass)

	homeProbs := make([]float64, cutoff+1)
	awayProbs := make([]float64, cutoff+1)
	for g := 0; g <= cutoff; g++ {
		homeProbs[g] = PoissonPMF(g, lambdaHome)
		awayProbs[g] = PoissonPMF(g, lambdaAway)
	}

	matrix := createProbabilityMatrix(homeProbs, awayProbs)
	captured := CapturedMass(lambdaHome, lambdaAway, cutoff)
	dixonColesCorrection(matrix, lambdaHome, lambdaAway, config.DixonColesRho)
	renormalizeMatrix(matrix)

	d := &ScorelineDistribution{
		LambdaHome:   lambdaHome,
		LambdaAway:   lambdaAway,
		Cutoff:       cutoff,
		CapturedMass: captured,
		Cells:        matrix,
	}
	d.HomeWin, d.Draw, d.AwayWin = calculateMatchOutcomeProbabilities(matrix)
	d.Over1p5 = calculateOverGoalsProbability(matrix, config.Over1p5GoalsThreshold)
	d.Over2p5 = calculateOverGoalsProbability(matrix, config.Over2p5GoalsThreshold)
	return d
}
