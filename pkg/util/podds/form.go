package podds

import (
	"sort"
	"strings"
	"time"
)

// minimum matches before recent form moves the multiplier
const minFormGames = 3

// RecentForm summarises a team's last matches before a date
type RecentForm struct {
	Team       string  `json:"team"`
	Games      int     `json:"games"`
	Points     int     `json:"points"`
	MaxPoints  int     `json:"maxPoints"`
	Pct        float64 `json:"pct"`
	Multiplier float64 `json:"multiplier"`
	// most recent first, e.g. "WWDLW"
	Results      string `json:"results"`
	Insufficient bool   `json:"insufficient,omitempty"`
}

// RecentFormMultiplier looks at the last n matches of team (any season) strictly before the given date
// and maps the share of points won to a small multiplier:
// at or above 60% scales up to 1+boostMax, at or below 30% scales down to 1-penaltyMax, else 1.0
func RecentFormMultiplier(records []*MatchRecord, canon *Canonicalizer, team string, before time.Time, n int, boostMax, penaltyMax float64) *RecentForm {
	team = canon.Canonical(team)
	type played struct {
		m    *MatchRecord
		home bool
	}
	var matches []played
	for _, m := range records {
		if m.Date.IsZero() || !m.Date.Before(before) {
			continue
		}
		switch team {
		case canon.Canonical(m.HomeTeam):
			matches = append(matches, played{m, true})
		case canon.Canonical(m.AwayTeam):
			matches = append(matches, played{m, false})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].m.Date.After(matches[j].m.Date)
	})
	if len(matches) > n {
		matches = matches[:n]
	}

	ret := &RecentForm{Team: team, Games: len(matches), Multiplier: 1.0, Pct: 0.5}
	if len(matches) < minFormGames {
		ret.Insufficient = true
		return ret
	}

	var results strings.Builder
	for _, p := range matches {
		pts := p.m.Points(p.home)
		ret.Points += pts
		switch pts {
		case 3:
			results.WriteByte('W')
		case 1:
			results.WriteByte('D')
		default:
			results.WriteByte('L')
		}
	}
	ret.Results = results.String()
	ret.MaxPoints = 3 * len(matches)
	ret.Pct = float64(ret.Points) / float64(ret.MaxPoints)

	switch {
	case ret.Pct >= 0.60:
		ret.Multiplier = 1.0 + (ret.Pct-0.60)/0.40*boostMax
	case ret.Pct <= 0.30:
		ret.Multiplier = 1.0 - (0.30-ret.Pct)/0.30*penaltyMax
	}
	return ret
}
