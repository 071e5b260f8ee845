package podds

import (
	"fmt"
	"sort"
)

// number of scorelines exposed in each top list
const topScorelines = 5

// Scoreline is one grid cell with its quiniela expected value
type Scoreline struct {
	Home    int     `json:"home"`
	Away    int     `json:"away"`
	Prob    float64 `json:"prob"`
	EV      float64 `json:"ev"`
	Outcome Outcome `json:"outcome"`
}

func (s Scoreline) String() string {
	return fmt.Sprintf("%d-%d", s.Home, s.Away)
}

// OutcomeCandidate is the best exact score of one outcome.
// EV is P(score) * 2 points plus P(outcome only) * 1 point, i.e. P(score) + P(outcome).
type OutcomeCandidate struct {
	Outcome     Outcome   `json:"outcome"`
	OutcomeProb float64   `json:"outcomeProb"`
	Best        Scoreline `json:"best"`
	EV          float64   `json:"ev"`
}

// QuinielaPick is the selected exact score and outcome for a fixture
type QuinielaPick struct {
	Score      Scoreline           `json:"score"`
	Outcome    Outcome             `json:"outcome"`
	EV         float64             `json:"ev"`
	Gap        float64             `json:"gap"`
	RunnerUp   Outcome             `json:"runnerUp"`
	Candidates [3]OutcomeCandidate `json:"candidates"`
	TopByProb  []Scoreline         `json:"topByProb"`
	TopByEV    []Scoreline         `json:"topByEv"`
	Cutoff     int                 `json:"cutoff"`
	// grid mass before renormalization
	CapturedMass float64 `json:"capturedMass"`
}

// scorelines lists every cell with its EV
func scorelines(d *ScorelineDistribution) []Scoreline {
	ret := make([]Scoreline, 0, len(d.Cells)*len(d.Cells))
	for h := range d.Cells {
		for a := range d.Cells[h] {
			o := OutcomeOf(h, a)
			p := d.Cells[h][a]
			ret = append(ret, Scoreline{Home: h, Away: a, Prob: p, EV: p + d.OutcomeProbability(o), Outcome: o})
		}
	}
	return ret
}

// fewerGoals orders equal-valued cells by total goals, then home goals
func fewerGoals(a, b Scoreline) bool {
	if a.Home+a.Away != b.Home+b.Away {
		return a.Home+a.Away < b.Home+b.Away
	}
	return a.Home < b.Home
}

func topN(cells []Scoreline, n int, value func(Scoreline) float64) []Scoreline {
	sorted := append([]Scoreline(nil), cells...)
	sort.SliceStable(sorted, func(i, j int) bool {
		vi, vj := value(sorted[i]), value(sorted[j])
		if vi != vj {
			return vi > vj
		}
		return fewerGoals(sorted[i], sorted[j])
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// OptimizePick selects the quiniela pick in two stages: the most likely exact score of each
// outcome first, then the outcome whose candidate has the highest EV.
// Ties between outcomes resolve home, draw, away.
func OptimizePick(d *ScorelineDistribution) *QuinielaPick {
	cells := scorelines(d)

	var candidates [3]OutcomeCandidate
	found := [3]bool{}
	for i, o := range outcomeOrder {
		candidates[i] = OutcomeCandidate{Outcome: o, OutcomeProb: d.OutcomeProbability(o)}
		for _, c := range cells {
			if c.Outcome != o {
				continue
			}
			if !found[i] || c.Prob > candidates[i].Best.Prob ||
				(c.Prob == candidates[i].Best.Prob && fewerGoals(c, candidates[i].Best)) {
				candidates[i].Best = c
				found[i] = true
			}
		}
		candidates[i].EV = candidates[i].Best.Prob + candidates[i].OutcomeProb
	}

	best, second := 0, -1
	for i := 1; i < len(candidates); i++ {
		if candidates[i].EV > candidates[best].EV {
			second = best
			best = i
		} else if second < 0 || candidates[i].EV > candidates[second].EV {
			second = i
		}
	}

	return &QuinielaPick{
		Score:        candidates[best].Best,
		Outcome:      candidates[best].Outcome,
		EV:           candidates[best].EV,
		Gap:          candidates[best].EV - candidates[second].EV,
		RunnerUp:     candidates[second].Outcome,
		Candidates:   candidates,
		TopByProb:    topN(cells, topScorelines, func(s Scoreline) float64 { return s.Prob }),
		TopByEV:      topN(cells, topScorelines, func(s Scoreline) float64 { return s.EV }),
		Cutoff:       d.Cutoff,
		CapturedMass: d.CapturedMass,
	}
}
