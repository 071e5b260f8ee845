package podds

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const historyTSV = "\ufeffDate\tHome_Team\tAway_Team\tHome_Goals\tAway_Goals\tTournament\n" +
	"10/01/2026\tClub América\tNecaxa\t2\t0\tClausura 2026 - J1\n" +
	"2026-01-11\tPumas UNAM\tTigres UANL\t1\t1\tclausura-2026\n" +
	"17/01/2026\tNecaxa\tPumas\t\t\tClausura 2026 - J2\n"

func TestParseMatchHistory(t *testing.T) {
	records, err := ParseMatchHistory(strings.NewReader(historyTSV), '\t')
	require.NoError(t, err)
	// the unplayed match is skipped
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "Club América", first.HomeTeam)
	assert.Equal(t, "Necaxa", first.AwayTeam)
	assert.Equal(t, 2, first.HomeGoals)
	assert.Equal(t, 0, first.AwayGoals)
	assert.Equal(t, "Clausura 2026", first.Season)
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), first.Date)

	assert.Equal(t, "Clausura 2026", records[1].Season)
	assert.Equal(t, time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC), records[1].Date)
}

func TestParseMatchHistoryErrors(t *testing.T) {
	_, err := ParseMatchHistory(strings.NewReader("home_team,away_team,home_goals,away_goals\nA,B,1,0\n"), ',')
	assert.ErrorContains(t, err, "tournament")

	_, err = ParseMatchHistory(strings.NewReader(
		"home_team,away_team,home_goals,away_goals,tournament\nA,B,1,0,Clausura 2026\nA,B,x,0,Clausura 2026\n"), ',')
	assert.ErrorContains(t, err, "row 3")

	_, err = ParseMatchHistory(strings.NewReader(
		"date,home_team,away_team,home_goals,away_goals,tournament\n31/31/2026,A,B,1,0,Clausura 2026\n"), ',')
	assert.ErrorContains(t, err, "could not parse date")

	records, err := ParseMatchHistory(strings.NewReader(""), ',')
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadMatchHistory(t *testing.T) {
	dir := t.TempDir()

	tsv := filepath.Join(dir, "history.tsv")
	require.NoError(t, os.WriteFile(tsv, []byte(historyTSV), 0644))
	records, err := LoadMatchHistory(tsv)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	csv := filepath.Join(dir, "history.csv")
	require.NoError(t, os.WriteFile(csv, []byte(strings.ReplaceAll(historyTSV, "\t", ",")), 0644))
	records, err = LoadMatchHistory(csv)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = LoadMatchHistory(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestParseFixtures(t *testing.T) {
	data := []byte(`{"matches":[
		{"home":"América","away":"Pumas","date":"2026-02-01","rivalry":true,
		 "adjustments":{"home_attack_mult":1.1,"away_defense_mult":0.95}},
		{"home":"Necaxa","away":"Tigres"}
	]}`)
	fixtures, err := ParseFixtures(data)
	require.NoError(t, err)
	require.Len(t, fixtures, 2)

	f := fixtures[0]
	assert.True(t, f.Rivalry)
	assert.Equal(t, "2026-02-01", f.Date)
	adj := f.Adjustments.Normalized()
	assert.Equal(t, 1.1, adj.HomeAttackMult)
	assert.Equal(t, 0.95, adj.AwayDefenseMult)
	assert.Equal(t, 1.0, adj.HomeDefenseMult)
	assert.Equal(t, 1.0, adj.AwayFormMult)

	assert.False(t, fixtures[1].Rivalry)
	assert.Equal(t, Adjustments{1, 1, 1, 1, 1, 1}, fixtures[1].Adjustments.Normalized())

	_, err = ParseFixtures([]byte(`{"matches":[{"home":"America","away":" "}]}`))
	assert.ErrorContains(t, err, "missing a team name")

	_, err = ParseFixtures([]byte(`not json`))
	assert.Error(t, err)
}

func TestLoadFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"matches":[{"home":"Atlas","away":"Toluca"}]}`), 0644))

	fixtures, err := LoadFixtures(path)
	require.NoError(t, err)
	require.Len(t, fixtures, 1)
	assert.Equal(t, "Atlas", fixtures[0].Home)
}

func TestMatchPoints(t *testing.T) {
	win := &MatchRecord{HomeGoals: 2, AwayGoals: 1}
	draw := &MatchRecord{HomeGoals: 1, AwayGoals: 1}

	assert.Equal(t, 3, win.Points(true))
	assert.Equal(t, 0, win.Points(false))
	assert.Equal(t, 1, draw.Points(true))
	assert.Equal(t, 1, draw.Points(false))
}

func TestFilterSeason(t *testing.T) {
	records := leagueHistory()
	assert.Len(t, FilterSeason(records, "clausura 2026"), 6)
	assert.Len(t, FilterSeason(records, "AP 2025"), 12)
	assert.Empty(t, FilterSeason(records, "Apertura 2026"))
}
