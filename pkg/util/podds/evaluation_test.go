package podds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedPick(runID, home, away string, hg, ag int, homeWin float64) *PredictionRecord {
	return &PredictionRecord{
		RunID:              runID,
		HomeTeam:           home,
		AwayTeam:           away,
		Season:             currentSeason,
		PredictedHomeGoals: hg,
		PredictedAwayGoals: ag,
		Outcome:            string(OutcomeOf(hg, ag)),
		HomeWinProbability: homeWin,
	}
}

func saveRun(t *testing.T, store *Store, rows ...*PredictionRecord) {
	t.Helper()
	require.NoError(t, store.CreateTable(&PredictionRecord{}))
	objs := make([]Persistable, len(rows))
	for i, r := range rows {
		objs[i] = r
	}
	require.NoError(t, store.BulkSave(objs))
}

func TestEvaluateRun(t *testing.T) {
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	runID := NewRunID()
	saveRun(t, store,
		storedPick(runID, "america", "necaxa", 2, 0, 0.70), // played 2-0
		storedPick(runID, "tigres", "america", 1, 1, 0.30), // played 0-1
		storedPick(runID, "america", "pumas", 1, 0, 0.60),  // played 3-1
		storedPick(runID, "tigres", "necaxa", 0, 0, 0.56),  // played 1-0
		storedPick(runID, "pumas", "tigres", 2, 1, 0.58),   // played 2-2
		storedPick(runID, "necaxa", "tigres", 0, 1, 0.20),  // only played last season
	)

	eval, err := EvaluateRun(store, runID, leagueHistory(), NewCanonicalizer(nil))
	require.NoError(t, err)

	assert.Equal(t, 6, eval.Predictions)
	assert.Equal(t, 5, eval.Matched)
	assert.Equal(t, []string{"necaxa vs tigres"}, eval.Unmatched)

	assert.Equal(t, 1, eval.ExactHits)
	assert.Equal(t, 2, eval.OutcomeHits)
	assert.Equal(t, 3, eval.Points)
	assert.Equal(t, 10, eval.MaxPoints)
	assert.InDelta(t, 0.4, eval.OutcomeHitRate, 1e-12)
	assert.InDelta(t, 0.2, eval.ExactHitRate, 1e-12)

	// a high confidence pick is judged on whether the home side won
	assert.Equal(t, 4, eval.HighConfidencePicks)
	assert.Equal(t, 3, eval.HighConfidenceHits)
	assert.InDelta(t, 0.75, eval.HighConfidencePrecision, 1e-12)
	assert.Equal(t, "calibrated", eval.Verdict)

	byHome := map[string]EvaluatedPick{}
	for _, p := range eval.Picks {
		byHome[p.HomeTeam+"-"+p.AwayTeam] = p
	}
	exact := byHome["america-necaxa"]
	assert.True(t, exact.ExactHit)
	assert.Equal(t, 2, exact.Points)
	assert.Equal(t, "2-0", exact.Actual)

	outcomeOnly := byHome["america-pumas"]
	assert.False(t, outcomeOnly.ExactHit)
	assert.True(t, outcomeOnly.OutcomeHit)
	assert.Equal(t, 1, outcomeOnly.Points)
	assert.Equal(t, "3-1", outcomeOnly.Actual)

	miss := byHome["pumas-tigres"]
	assert.Equal(t, Draw, miss.ActualOutcome)
	assert.Equal(t, 0, miss.Points)
}

func TestEvaluateRunVerdicts(t *testing.T) {
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	overconfident := NewRunID()
	noConfidence := NewRunID()
	saveRun(t, store,
		storedPick(overconfident, "pumas", "tigres", 1, 0, 0.90),
		storedPick(noConfidence, "tigres", "america", 0, 1, 0.20),
	)

	eval, err := EvaluateRun(store, overconfident, leagueHistory(), NewCanonicalizer(nil))
	require.NoError(t, err)
	assert.Equal(t, 0.0, eval.HighConfidencePrecision)
	assert.Equal(t, "overconfident", eval.Verdict)

	eval, err = EvaluateRun(store, noConfidence, leagueHistory(), NewCanonicalizer(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, eval.HighConfidencePicks)
	assert.Empty(t, eval.Verdict)
	assert.Equal(t, 2, eval.Points)

	_, err = EvaluateRun(store, NewRunID(), leagueHistory(), NewCanonicalizer(nil))
	assert.Error(t, err)
}

func TestEvaluateSavedPredictions(t *testing.T) {
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	p, err := NewPredictor(testConfig(), leagueHistory(), nil)
	require.NoError(t, err)
	preds, err := p.PredictAll([]Fixture{
		{Home: "Club América", Away: "Necaxa", Round: "Clausura 2026 - J1"},
		{Home: "Tigres", Away: "America", Round: "Clausura 2026 - J2"},
	})
	require.NoError(t, err)
	runID, err := SavePredictions(store, "", currentSeason, preds)
	require.NoError(t, err)

	eval, err := EvaluateRun(store, runID, leagueHistory(), NewCanonicalizer(nil))
	require.NoError(t, err)
	assert.Equal(t, 2, eval.Matched)
	require.Len(t, eval.Picks, 2)
	// ordered by matchday
	assert.Equal(t, 1, eval.Picks[0].Jornada)
	assert.Equal(t, "america", eval.Picks[0].HomeTeam)
	assert.Equal(t, 2, eval.Picks[1].Jornada)
	assert.Equal(t, eval.Points, eval.Picks[0].Points+eval.Picks[1].Points)
}

func TestResultForPrefersPredictedDate(t *testing.T) {
	first := played(currentSeason, "America", "Pumas", 1, 0, 190)
	second := played(currentSeason, "America", "Pumas", 0, 2, 220)
	candidates := []*MatchRecord{first, second}

	assert.Same(t, first, resultFor(candidates, first.Date.Format("2006-01-02")))
	assert.Same(t, second, resultFor(candidates, ""))
	assert.Same(t, second, resultFor(candidates, "not a date"))
	assert.Nil(t, resultFor(nil, ""))
}
