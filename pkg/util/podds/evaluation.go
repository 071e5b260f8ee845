package podds

import (
	"fmt"
	"sort"

	"github.com/Chango93/Predicciones/internal/logger"
)

// HighConfidenceThreshold is the home win probability above which a pick counts as high confidence
const HighConfidenceThreshold = 0.55

// EvaluatedPick is one stored prediction compared with the played result
type EvaluatedPick struct {
	HomeTeam      string  `json:"homeTeam"`
	AwayTeam      string  `json:"awayTeam"`
	Jornada       int     `json:"jornada,omitempty"`
	Predicted     string  `json:"predicted"`
	Outcome       Outcome `json:"outcome"`
	Actual        string  `json:"actual"`
	ActualOutcome Outcome `json:"actualOutcome"`
	HomeWinProb   float64 `json:"homeWinProb"`
	ExactHit      bool    `json:"exactHit"`
	OutcomeHit    bool    `json:"outcomeHit"`
	// quiniela points: 2 for the exact score, 1 for the outcome only
	Points int `json:"points"`
}

// RunEvaluation scores a stored run against the results that have since been played
type RunEvaluation struct {
	RunID       string `json:"runId"`
	Predictions int    `json:"predictions"`
	Matched     int    `json:"matched"`
	// home vs away of stored rows without a played result
	Unmatched []string `json:"unmatched,omitempty"`

	OutcomeHits    int     `json:"outcomeHits"`
	ExactHits      int     `json:"exactHits"`
	Points         int     `json:"points"`
	MaxPoints      int     `json:"maxPoints"`
	OutcomeHitRate float64 `json:"outcomeHitRate"`
	ExactHitRate   float64 `json:"exactHitRate"`

	HighConfidencePicks     int     `json:"highConfidencePicks"`
	HighConfidenceHits      int     `json:"highConfidenceHits"`
	HighConfidencePrecision float64 `json:"highConfidencePrecision"`
	// "overconfident" when high confidence home wins land less often than the threshold,
	// "calibrated" otherwise, "" when there were none
	Verdict string `json:"verdict,omitempty"`

	Picks []EvaluatedPick `json:"picks"`
}

type fixtureKey struct {
	home, away string
}

// playedResults indexes the matches of season by canonical pairing.
// A pairing played more than once keeps every match, oldest first.
func playedResults(records []*MatchRecord, season string, canon *Canonicalizer) map[fixtureKey][]*MatchRecord {
	ret := make(map[fixtureKey][]*MatchRecord)
	for _, m := range records {
		if season != "" && !IsSameSeason(m.Season, season) {
			continue
		}
		k := fixtureKey{canon.Canonical(m.HomeTeam), canon.Canonical(m.AwayTeam)}
		ret[k] = append(ret[k], m)
	}
	for _, ms := range ret {
		sort.SliceStable(ms, func(i, j int) bool { return ms[i].Date.Before(ms[j].Date) })
	}
	return ret
}

// resultFor picks the played match for a stored row: the one on the predicted date when
// the row has a date, otherwise the most recent one
func resultFor(candidates []*MatchRecord, date string) *MatchRecord {
	if len(candidates) == 0 {
		return nil
	}
	if date != "" {
		if d, err := ParseMatchDate(date); err == nil {
			for _, m := range candidates {
				y1, m1, d1 := m.Date.Date()
				y2, m2, d2 := d.Date()
				if y1 == y2 && m1 == m2 && d1 == d2 {
					return m
				}
			}
		}
	}
	return candidates[len(candidates)-1]
}

// EvaluateRun loads a stored run and compares each pick with its played result.
// Rows are joined to the history on canonical team names within the row's season.
func EvaluateRun(store *Store, runID string, records []*MatchRecord, canon *Canonicalizer) (*RunEvaluation, error) {
	rows, err := LoadPredictions(store, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no stored predictions for run %s", runID)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Jornada != rows[j].Jornada {
			return rows[i].Jornada < rows[j].Jornada
		}
		return rows[i].HomeTeam < rows[j].HomeTeam
	})

	ret := &RunEvaluation{RunID: runID, Predictions: len(rows)}
	bySeason := make(map[string]map[fixtureKey][]*MatchRecord)
	for _, r := range rows {
		results, ok := bySeason[r.Season]
		if !ok {
			results = playedResults(records, r.Season, canon)
			bySeason[r.Season] = results
		}
		home, away := canon.Canonical(r.HomeTeam), canon.Canonical(r.AwayTeam)
		m := resultFor(results[fixtureKey{home, away}], r.Date)
		if m == nil {
			ret.Unmatched = append(ret.Unmatched, home+" vs "+away)
			continue
		}

		pick := EvaluatedPick{
			HomeTeam:      home,
			AwayTeam:      away,
			Jornada:       r.Jornada,
			Predicted:     fmt.Sprintf("%d-%d", r.PredictedHomeGoals, r.PredictedAwayGoals),
			Outcome:       Outcome(r.Outcome),
			Actual:        fmt.Sprintf("%d-%d", m.HomeGoals, m.AwayGoals),
			ActualOutcome: OutcomeOf(m.HomeGoals, m.AwayGoals),
			HomeWinProb:   r.HomeWinProbability,
		}
		pick.ExactHit = r.PredictedHomeGoals == m.HomeGoals && r.PredictedAwayGoals == m.AwayGoals
		pick.OutcomeHit = pick.Outcome == pick.ActualOutcome
		switch {
		case pick.ExactHit:
			pick.Points = 2
		case pick.OutcomeHit:
			pick.Points = 1
		}

		ret.Matched++
		ret.Points += pick.Points
		if pick.ExactHit {
			ret.ExactHits++
		}
		if pick.OutcomeHit {
			ret.OutcomeHits++
		}
		if pick.HomeWinProb > HighConfidenceThreshold {
			ret.HighConfidencePicks++
			if pick.ActualOutcome == HomeWin {
				ret.HighConfidenceHits++
			}
		}
		ret.Picks = append(ret.Picks, pick)
	}

	ret.MaxPoints = 2 * ret.Matched
	if ret.Matched > 0 {
		ret.OutcomeHitRate = float64(ret.OutcomeHits) / float64(ret.Matched)
		ret.ExactHitRate = float64(ret.ExactHits) / float64(ret.Matched)
	}
	if ret.HighConfidencePicks > 0 {
		ret.HighConfidencePrecision = float64(ret.HighConfidenceHits) / float64(ret.HighConfidencePicks)
		ret.Verdict = "calibrated"
		if ret.HighConfidencePrecision < HighConfidenceThreshold {
			ret.Verdict = "overconfident"
		}
	}

	if len(ret.Unmatched) > 0 {
		logger.Warn("Stored picks without a played result", ret.Unmatched)
	}
	logger.Info("Evaluated run", runID, ret.Matched, "of", ret.Predictions, "matched,", ret.Points, "points")
	return ret, nil
}
