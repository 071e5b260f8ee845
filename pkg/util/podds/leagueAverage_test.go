package podds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeagueWeight(t *testing.T) {
	assert.Equal(t, 0.0, LeagueWeight(0, 30))
	assert.Equal(t, 0.0, LeagueWeight(-2, 30))
	assert.InDelta(t, 0.5, LeagueWeight(30, 30), 1e-12)
	assert.Less(t, LeagueWeight(10, 30), LeagueWeight(11, 30))
	assert.Less(t, LeagueWeight(10000, 30), 1.0)
}

func TestSmoothLeagueAverages(t *testing.T) {
	observed := &LeagueAverages{Matches: 30, Home: 2.0, Away: 1.0}
	s := SmoothLeagueAverages(observed, 1.45, 1.15, 30)

	assert.InDelta(t, 0.5, s.Weight, 1e-12)
	assert.InDelta(t, 1.725, s.Home, 1e-12)
	assert.InDelta(t, 1.075, s.Away, 1e-12)
	assert.Equal(t, 2.0, s.ObservedHome)
	assert.Equal(t, 1.45, s.BaselineHome)

	// no matches yet: the baseline alone
	empty := SmoothLeagueAverages(&LeagueAverages{}, 1.45, 1.15, 30)
	assert.Equal(t, 1.45, empty.Home)
	assert.Equal(t, 1.15, empty.Away)
}

func TestHomeAdvantageAppliesToHomeAverageOnly(t *testing.T) {
	s := &SmoothedLeagueAverages{Home: 1.5, Away: 1.1}

	home, away := s.ForHomeTeam(1.1)
	assert.InDelta(t, 1.65, home, 1e-12)
	assert.Equal(t, 1.1, away)

	home, away = s.ForHomeTeam(0)
	assert.Equal(t, 1.5, home)
	assert.Equal(t, 1.1, away)
}

func TestWeightedLeagueAverages(t *testing.T) {
	canon := NewCanonicalizer(nil)
	records := leagueHistory()

	prior, err := AggregateSeason(records, priorSeason, canon)
	require.NoError(t, err)
	current, err := AggregateSeason(records, currentSeason, canon)
	require.NoError(t, err)
	p, c := SeasonLeagueAverages(prior), SeasonLeagueAverages(current)

	avg, ok := WeightedLeagueAverages(records, []PriorTournament{
		{Season: priorSeason, Weight: 0.25},
		{Season: currentSeason, Weight: 0.75},
		{Season: "Clausura 2019", Weight: 5},
	}, canon)
	require.True(t, ok)
	assert.InDelta(t, 0.25*p.Home+0.75*c.Home, avg.Home, 1e-12)
	assert.InDelta(t, 0.25*p.Away+0.75*c.Away, avg.Away, 1e-12)
	assert.Equal(t, 18, avg.Matches)

	_, ok = WeightedLeagueAverages(records, []PriorTournament{{Season: "Clausura 2019", Weight: 1}}, canon)
	assert.False(t, ok)
}

func TestLeagueBaseline(t *testing.T) {
	canon := NewCanonicalizer(nil)
	config := testConfig()

	home, away := LeagueBaseline(config, leagueHistory(), canon)
	assert.Equal(t, config.GenericPriorHome, home)
	assert.Equal(t, config.GenericPriorAway, away)

	config.UseWeightedBaseline = true
	home, away = LeagueBaseline(config, leagueHistory(), canon)
	// only the prior season is present: 16 home and 14 away goals in 12 matches
	assert.InDelta(t, 16.0/12, home, 1e-12)
	assert.InDelta(t, 14.0/12, away, 1e-12)

	config.PriorTournaments = nil
	home, _ = LeagueBaseline(config, leagueHistory(), canon)
	assert.Equal(t, config.GenericPriorHome, home)
}
