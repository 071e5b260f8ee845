package podds

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	priorSeason   = "Apertura 2025"
	currentSeason = "Clausura 2026"
)

var historyStart = time.Date(2025, 7, 1, 19, 0, 0, 0, time.UTC)

func played(season, home, away string, hg, ag int, day int) *MatchRecord {
	return &MatchRecord{
		Date:      historyStart.AddDate(0, 0, day),
		HomeTeam:  home,
		AwayTeam:  away,
		HomeGoals: hg,
		AwayGoals: ag,
		Season:    season,
	}
}

// leagueHistory is a small double round robin per season.
// America is strong, Necaxa weak, Pumas and Tigres in between.
func leagueHistory() []*MatchRecord {
	return []*MatchRecord{
		played(priorSeason, "Club América", "Necaxa", 3, 0, 0),
		played(priorSeason, "Pumas UNAM", "Tigres UANL", 1, 1, 0),
		played(priorSeason, "Necaxa", "Pumas", 0, 2, 7),
		played(priorSeason, "Tigres", "América", 1, 2, 7),
		played(priorSeason, "América", "Pumas", 2, 1, 14),
		played(priorSeason, "Tigres", "Necaxa", 2, 0, 14),
		played(priorSeason, "Necaxa", "America", 1, 3, 21),
		played(priorSeason, "Tigres", "Pumas", 1, 0, 21),
		played(priorSeason, "Pumas", "Necaxa", 2, 1, 28),
		played(priorSeason, "America", "Tigres", 2, 1, 28),
		played(priorSeason, "Pumas", "America", 0, 1, 35),
		played(priorSeason, "Necaxa", "Tigres", 1, 2, 35),

		played(currentSeason, "América", "Necaxa", 2, 0, 190),
		played(currentSeason, "Pumas", "Tigres", 2, 2, 190),
		played(currentSeason, "Necaxa", "Pumas", 1, 1, 197),
		played(currentSeason, "Tigres", "America", 0, 1, 197),
		played(currentSeason, "América", "Pumas", 3, 1, 204),
		played(currentSeason, "Tigres", "Necaxa", 1, 0, 204),
	}
}

func testConfig() *PoddsConfig {
	config := DefaultPoddsConfig()
	config.CacheDir = ""
	config.PriorTournaments = []PriorTournament{
		{Season: "Clausura 2025", Weight: 0.5},
		{Season: priorSeason, Weight: 1.0},
	}
	return config
}

// countingCache records how often the wrapped cache is used
type countingCache struct {
	PriorCache
	gets, puts int
}

func (c *countingCache) Get(key string) (map[string]*BlendedPrior, bool, error) {
	c.gets++
	return c.PriorCache.Get(key)
}

func (c *countingCache) Put(key string, priors map[string]*BlendedPrior) error {
	c.puts++
	return c.PriorCache.Put(key, priors)
}

func TestPredictorEndToEnd(t *testing.T) {
	p, err := NewPredictor(testConfig(), leagueHistory(), NewMemoryPriorCache())
	require.NoError(t, err)

	assert.Equal(t, currentSeason, p.Snapshot().Season)
	assert.Equal(t, []string{"america", "necaxa", "pumas", "tigres"}, p.Snapshot().TeamNames())
	assert.Len(t, p.Priors(), 4)
	assert.NotEmpty(t, p.CacheKey())

	pred, err := p.Predict(Fixture{Home: "Club América", Away: "Necaxa"})
	require.NoError(t, err)

	c := pred.Components
	assert.Equal(t, "america", c.Home.Team)
	assert.Equal(t, "necaxa", c.Away.Team)
	assert.Greater(t, c.LambdaHome, c.LambdaAway)
	assert.InDelta(t, 1.0, pred.Distribution.HomeWin+pred.Distribution.Draw+pred.Distribution.AwayWin, 1e-9)
	assert.Equal(t, HomeWin, pred.Pick.Outcome)
	assert.Nil(t, pred.HomeForm)
}

func TestPredictorReusesCachedPriors(t *testing.T) {
	cache := &countingCache{PriorCache: NewMemoryPriorCache()}

	first, err := NewPredictor(testConfig(), leagueHistory(), cache)
	require.NoError(t, err)
	second, err := NewPredictor(testConfig(), leagueHistory(), cache)
	require.NoError(t, err)

	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, first.CacheKey(), second.CacheKey())
	assert.Equal(t, first.Priors(), second.Priors())

	changed := testConfig()
	changed.PriorTournaments[1].Weight = 0.8
	_, err = NewPredictor(changed, leagueHistory(), cache)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.puts)
}

func TestPredictorFailsFast(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		config := testConfig()
		config.BlendK = 0
		_, err := NewPredictor(config, leagueHistory(), nil)
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})

	t.Run("no current season", func(t *testing.T) {
		config := testConfig()
		config.CurrentSeason = "Apertura 2026"
		_, err := NewPredictor(config, leagueHistory(), nil)
		assert.True(t, errors.Is(err, ErrNoMatchesForSeason))
	})

	t.Run("unknown team stops the batch", func(t *testing.T) {
		p, err := NewPredictor(testConfig(), leagueHistory(), nil)
		require.NoError(t, err)
		preds, err := p.PredictAll([]Fixture{
			{Home: "America", Away: "Pumas"},
			{Home: "Toluca", Away: "Tigres"},
		})
		assert.Nil(t, preds)
		assert.True(t, errors.Is(err, ErrUnknownTeam))
		assert.Contains(t, err.Error(), "fixture 2")
	})
}

func TestPredictorRecentForm(t *testing.T) {
	config := testConfig()
	config.UseRecentForm = true
	p, err := NewPredictor(config, leagueHistory(), nil)
	require.NoError(t, err)

	// America won its last five, Necaxa has one draw in its last five
	pred, err := p.Predict(Fixture{Home: "America", Away: "Necaxa", Date: "2026-02-01"})
	require.NoError(t, err)
	require.NotNil(t, pred.HomeForm)
	require.NotNil(t, pred.AwayForm)
	assert.InDelta(t, 1.05, pred.HomeForm.Multiplier, 1e-9)
	assert.Less(t, pred.AwayForm.Multiplier, 1.0)
	assert.InDelta(t, pred.HomeForm.Multiplier, pred.Components.Adjustments.HomeFormMult, 1e-12)

	// a caller supplied multiplier wins
	pred, err = p.Predict(Fixture{Home: "America", Away: "Necaxa", Date: "2026-02-01",
		Adjustments: Adjustments{HomeFormMult: 0.9}})
	require.NoError(t, err)
	assert.Nil(t, pred.HomeForm)
	assert.Equal(t, 0.9, pred.Components.Adjustments.HomeFormMult)

	// no date, no form
	pred, err = p.Predict(Fixture{Home: "America", Away: "Necaxa"})
	require.NoError(t, err)
	assert.Nil(t, pred.HomeForm)
	assert.Equal(t, 1.0, pred.Components.Adjustments.HomeFormMult)
}

func TestSavePredictions(t *testing.T) {
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	p, err := NewPredictor(testConfig(), leagueHistory(), nil)
	require.NoError(t, err)
	preds, err := p.PredictAll([]Fixture{
		{Home: "America", Away: "Pumas", Date: "2026-02-01"},
		{Home: "Necaxa", Away: "Tigres", Rivalry: true},
	})
	require.NoError(t, err)

	runID, err := SavePredictions(store, "", currentSeason, preds)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	rows, err := LoadPredictions(store, runID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byHome := map[string]*PredictionRecord{}
	for _, r := range rows {
		byHome[r.HomeTeam] = r
	}
	r := byHome["america"]
	require.NotNil(t, r)
	assert.Equal(t, "pumas", r.AwayTeam)
	assert.Equal(t, currentSeason, r.Season)
	assert.Equal(t, "2026-02-01", r.Date)
	assert.InDelta(t, preds[0].Components.LambdaHome, r.LambdaHome, 1e-12)
	assert.Equal(t, string(preds[0].Pick.Outcome), r.Outcome)
	assert.Equal(t, preds[0].Pick.Score.Home, r.PredictedHomeGoals)
	assert.NotEmpty(t, r.CreatedAt)
	assert.True(t, byHome["necaxa"].Rivalry)

	other, err := LoadPredictions(store, NewRunID())
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSaveSeasonStats(t *testing.T) {
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	snapshot, err := AggregateSeason(leagueHistory(), currentSeason, NewCanonicalizer(nil))
	require.NoError(t, err)
	require.NoError(t, SaveSeasonStats(store, snapshot))
	// saving twice updates in place
	require.NoError(t, SaveSeasonStats(store, snapshot))

	rows, err := FindWhere[TeamSeasonStats](store, "season = ?", currentSeason)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}
