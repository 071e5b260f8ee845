package podds

import (
	"sort"
)

// RelativeStrength holds one team's smoothed rates for one season and their ratio to the league mean.
// A relative of 1.0 is league average.
type RelativeStrength struct {
	Team   string `json:"team"`
	Season string `json:"season"`

	AttHome float64 `json:"attHome"`
	AttAway float64 `json:"attAway"`
	DefHome float64 `json:"defHome"`
	DefAway float64 `json:"defAway"`

	RateAttHome float64 `json:"rateAttHome"`
	RateAttAway float64 `json:"rateAttAway"`
	RateDefHome float64 `json:"rateDefHome"`
	RateDefAway float64 `json:"rateDefAway"`

	PJHome  int `json:"pjHome"`
	PJAway  int `json:"pjAway"`
	PJTotal int `json:"pjTotal"`
}

// smoothRate shrinks observed/played toward mean with k pseudo matches and returns
// the smoothed rate and its ratio to mean
func smoothRate(observed, played int, mean, k float64) (rate, rel float64) {
	rate = (float64(observed) + k*mean) / (float64(played) + k)
	if mean <= 0 {
		return rate, 1.0
	}
	return rate, rate / mean
}

// RelativeStrengths computes every team's relative strengths for the snapshot's season with pseudo-count k.
// Home defense faces away attackers so it is compared with the away mean, and vice versa.
func RelativeStrengths(snapshot *SeasonSnapshot, k float64) map[string]*RelativeStrength {
	avg := SeasonLeagueAverages(snapshot)

	muAttHome := avg.Home
	muAttAway := avg.Away
	muDefHome := avg.Away
	muDefAway := avg.Home

	ret := make(map[string]*RelativeStrength, len(snapshot.Teams))
	for name, ts := range snapshot.Teams {
		rs := &RelativeStrength{
			Team:    name,
			Season:  snapshot.Season,
			PJHome:  ts.PJHome,
			PJAway:  ts.PJAway,
			PJTotal: ts.PJTotal,
		}
		rs.RateAttHome, rs.AttHome = smoothRate(ts.GFHome, ts.PJHome, muAttHome, k)
		rs.RateAttAway, rs.AttAway = smoothRate(ts.GFAway, ts.PJAway, muAttAway, k)
		rs.RateDefHome, rs.DefHome = smoothRate(ts.GCHome, ts.PJHome, muDefHome, k)
		rs.RateDefAway, rs.DefAway = smoothRate(ts.GCAway, ts.PJAway, muDefAway, k)
		ret[name] = rs
	}
	return ret
}

// TournamentRelatives aggregates one season from the raw history and returns its relative strengths.
// The error wraps ErrNoMatchesForSeason when the season has no matches.
func TournamentRelatives(records []*MatchRecord, season string, k float64, canon *Canonicalizer) (map[string]*RelativeStrength, *LeagueAverages, error) {
	snapshot, err := AggregateSeason(records, season, canon)
	if err != nil {
		return nil, nil, err
	}
	return RelativeStrengths(snapshot, k), SeasonLeagueAverages(snapshot), nil
}

// sortedTeams returns the keys of a relatives map in a stable order
func sortedTeams[T any](m map[string]T) []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
