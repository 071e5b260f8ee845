package podds

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Chango93/Predicciones/internal/logger"
	"github.com/Chango93/Predicciones/pkg/util"
)

// ErrNoMatchesForSeason is returned when a season required for a computation has no played matches
var ErrNoMatchesForSeason = errors.New("no matches for season")

// Compile-time check to ensure TeamSeasonStats implements Persistable interface
var _ Persistable = (*TeamSeasonStats)(nil)

// TeamSeasonStats represents one team's counts for one season, split home/away
type TeamSeasonStats struct {
	// Compound primary key fields
	Team   string `json:"team" column:"team" dbtype:"TEXT NOT NULL" primary:"true" index:"true"`
	Season string `json:"season" column:"season" dbtype:"TEXT NOT NULL" primary:"true" index:"true"`

	PJHome  int `json:"pjHome" column:"pj_home" dbtype:"INTEGER DEFAULT 0"`
	PJAway  int `json:"pjAway" column:"pj_away" dbtype:"INTEGER DEFAULT 0"`
	PJTotal int `json:"pjTotal" column:"pj_total" dbtype:"INTEGER DEFAULT 0"`

	GFHome  int `json:"gfHome" column:"gf_home" dbtype:"INTEGER DEFAULT 0"`
	GFAway  int `json:"gfAway" column:"gf_away" dbtype:"INTEGER DEFAULT 0"`
	GFTotal int `json:"gfTotal" column:"gf_total" dbtype:"INTEGER DEFAULT 0"`

	GCHome  int `json:"gcHome" column:"gc_home" dbtype:"INTEGER DEFAULT 0"`
	GCAway  int `json:"gcAway" column:"gc_away" dbtype:"INTEGER DEFAULT 0"`
	GCTotal int `json:"gcTotal" column:"gc_total" dbtype:"INTEGER DEFAULT 0"`

	Wins   int `json:"wins" column:"wins" dbtype:"INTEGER DEFAULT 0"`
	Draws  int `json:"draws" column:"draws" dbtype:"INTEGER DEFAULT 0"`
	Losses int `json:"losses" column:"losses" dbtype:"INTEGER DEFAULT 0"`
	Points int `json:"points" column:"points" dbtype:"INTEGER DEFAULT 0"`
}

/////////////////////////////////////////////////////////////////////////
////// Persistable Interface Implementation
/////////////////////////////////////////////////////////////////////////

func (ts *TeamSeasonStats) GetPrimaryKey() map[string]any {
	return map[string]any{
		"team":   ts.Team,
		"season": ts.Season,
	}
}

func (ts *TeamSeasonStats) SetPrimaryKey(pk map[string]any) error {
	team, err := util.GetAsString(pk["team"])
	if err != nil {
		return fmt.Errorf("invalid team in primary key: %w", err)
	}
	season, err := util.GetAsString(pk["season"])
	if err != nil {
		return fmt.Errorf("invalid season in primary key: %w", err)
	}
	ts.Team = team
	ts.Season = season
	return nil
}

func (ts *TeamSeasonStats) GetTableName() string {
	return "team_season_stats"
}

func (ts *TeamSeasonStats) BeforeSave() error {
	if ts.Team == "" || ts.Season == "" {
		return fmt.Errorf("team and season are required")
	}
	if ts.PJTotal != ts.PJHome+ts.PJAway {
		return fmt.Errorf("inconsistent matches played for %s: %d != %d + %d", ts.Team, ts.PJTotal, ts.PJHome, ts.PJAway)
	}
	return nil
}

func (ts *TeamSeasonStats) AfterSave() error {
	return nil
}

func (ts *TeamSeasonStats) BeforeDelete() error {
	return nil
}

func (ts *TeamSeasonStats) AfterDelete() error {
	return nil
}

/////////////////////////////////////////////////////////////////////////
////// Season Aggregation
/////////////////////////////////////////////////////////////////////////

// SeasonSnapshot is the immutable per-team aggregation of one season
type SeasonSnapshot struct {
	Season string
	Teams  map[string]*TeamSeasonStats
	// canonical name -> distinct raw spellings folded into it, sorted
	Fusions   map[string][]string
	Matches   int
	HomeGoals int
	AwayGoals int
}

// Team returns the stats for an already canonical team name
func (s *SeasonSnapshot) Team(name string) (*TeamSeasonStats, bool) {
	ts, ok := s.Teams[name]
	return ts, ok
}

// TeamNames returns the canonical team names in the snapshot, sorted
func (s *SeasonSnapshot) TeamNames() []string {
	ret := make([]string, 0, len(s.Teams))
	for name := range s.Teams {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// AggregateSeason folds the played matches of one season into per-team counters keyed by canonical name
func AggregateSeason(records []*MatchRecord, season string, canon *Canonicalizer) (*SeasonSnapshot, error) {
	season = NormalizeSeason(season)
	matches := FilterSeason(records, season)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatchesForSeason, season)
	}

	snapshot := &SeasonSnapshot{
		Season:  season,
		Teams:   make(map[string]*TeamSeasonStats),
		Fusions: make(map[string][]string),
	}
	fusions := make(map[string]map[string]bool)
	track := func(raw, canonical string) {
		if fusions[canonical] == nil {
			fusions[canonical] = make(map[string]bool)
		}
		fusions[canonical][raw] = true
	}
	get := func(name string) *TeamSeasonStats {
		ts, ok := snapshot.Teams[name]
		if !ok {
			ts = &TeamSeasonStats{Team: name, Season: season}
			snapshot.Teams[name] = ts
		}
		return ts
	}

	for _, m := range matches {
		home := canon.Canonical(m.HomeTeam)
		away := canon.Canonical(m.AwayTeam)
		if home == "" || away == "" {
			logger.Warn("Skipping match with an empty team name", m.HomeTeam, m.AwayTeam)
			continue
		}
		track(m.HomeTeam, home)
		track(m.AwayTeam, away)

		h := get(home)
		h.PJHome++
		h.PJTotal++
		h.GFHome += m.HomeGoals
		h.GFTotal += m.HomeGoals
		h.GCHome += m.AwayGoals
		h.GCTotal += m.AwayGoals
		h.addResult(m.Points(true))

		a := get(away)
		a.PJAway++
		a.PJTotal++
		a.GFAway += m.AwayGoals
		a.GFTotal += m.AwayGoals
		a.GCAway += m.HomeGoals
		a.GCTotal += m.HomeGoals
		a.addResult(m.Points(false))

		snapshot.Matches++
		snapshot.HomeGoals += m.HomeGoals
		snapshot.AwayGoals += m.AwayGoals
	}
	if snapshot.Matches == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatchesForSeason, season)
	}

	for canonical, raws := range fusions {
		if len(raws) < 2 {
			continue
		}
		names := make([]string, 0, len(raws))
		for raw := range raws {
			names = append(names, raw)
		}
		sort.Strings(names)
		snapshot.Fusions[canonical] = names
		logger.Info("Fused team names into", canonical, names)
	}

	logger.Debug("Aggregated season", season, snapshot.Matches, "matches", len(snapshot.Teams), "teams")
	return snapshot, nil
}

func (ts *TeamSeasonStats) addResult(points int) {
	ts.Points += points
	switch points {
	case 3:
		ts.Wins++
	case 1:
		ts.Draws++
	default:
		ts.Losses++
	}
}
