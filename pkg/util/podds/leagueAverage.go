package podds

import (
	"github.com/Chango93/Predicciones/internal/logger"
)

// LeagueAverages represents the mean goals per match for one season
type LeagueAverages struct {
	Season  string  `json:"season"`
	Matches int     `json:"matches"`
	Home    float64 `json:"home"`
	Away    float64 `json:"away"`
	Total   float64 `json:"total"`
}

// SmoothedLeagueAverages is the current league average shrunk toward a baseline by sample size
type SmoothedLeagueAverages struct {
	ObservedHome float64 `json:"observedHome"`
	ObservedAway float64 `json:"observedAway"`
	BaselineHome float64 `json:"baselineHome"`
	BaselineAway float64 `json:"baselineAway"`
	Matches      int     `json:"matches"`
	Weight       float64 `json:"weight"`
	Home         float64 `json:"home"`
	Away         float64 `json:"away"`
}

// SeasonLeagueAverages calculates the mean home, away and total goals per match of a season
func SeasonLeagueAverages(snapshot *SeasonSnapshot) *LeagueAverages {
	ret := &LeagueAverages{Season: snapshot.Season, Matches: snapshot.Matches}
	if snapshot.Matches == 0 {
		return ret
	}
	n := float64(snapshot.Matches)
	ret.Home = float64(snapshot.HomeGoals) / n
	ret.Away = float64(snapshot.AwayGoals) / n
	ret.Total = float64(snapshot.HomeGoals+snapshot.AwayGoals) / n
	return ret
}

// LeagueWeight is the sample-size weight m/(m+k) given to the current league average
func LeagueWeight(matches int, k float64) float64 {
	if matches <= 0 {
		return 0
	}
	m := float64(matches)
	return m / (m + k)
}

// SmoothLeagueAverages shrinks the observed averages toward the baseline:
// w*observed + (1-w)*baseline with w = matches/(matches+k)
func SmoothLeagueAverages(observed *LeagueAverages, baselineHome, baselineAway, k float64) *SmoothedLeagueAverages {
	w := LeagueWeight(observed.Matches, k)
	return &SmoothedLeagueAverages{
		ObservedHome: observed.Home,
		ObservedAway: observed.Away,
		BaselineHome: baselineHome,
		BaselineAway: baselineAway,
		Matches:      observed.Matches,
		Weight:       w,
		Home:         w*observed.Home + (1-w)*baselineHome,
		Away:         w*observed.Away + (1-w)*baselineAway,
	}
}

// ForHomeTeam applies a home advantage multiplier to the home average only
func (s *SmoothedLeagueAverages) ForHomeTeam(homeAdvantage float64) (home, away float64) {
	if homeAdvantage <= 0 {
		homeAdvantage = 1.0
	}
	return s.Home * homeAdvantage, s.Away
}

// WeightedLeagueAverages blends the league averages of the configured prior seasons by weight.
// Seasons absent from the history are skipped with a warning. ok is false when none were found.
func WeightedLeagueAverages(records []*MatchRecord, tournaments []PriorTournament, canon *Canonicalizer) (avg *LeagueAverages, ok bool) {
	var homeSum, awaySum, weightSum float64
	matches := 0
	for _, pt := range tournaments {
		snapshot, err := AggregateSeason(records, pt.Season, canon)
		if err != nil {
			logger.Warn("Skipping league average of prior season", pt.Season, err)
			continue
		}
		a := SeasonLeagueAverages(snapshot)
		homeSum += a.Home * pt.Weight
		awaySum += a.Away * pt.Weight
		weightSum += pt.Weight
		matches += a.Matches
	}
	if weightSum <= 0 {
		return nil, false
	}
	return &LeagueAverages{
		Season:  "weighted prior",
		Matches: matches,
		Home:    homeSum / weightSum,
		Away:    awaySum / weightSum,
		Total:   (homeSum + awaySum) / weightSum,
	}, true
}

// LeagueBaseline returns the averages the current season is shrunk toward
func LeagueBaseline(config *PoddsConfig, records []*MatchRecord, canon *Canonicalizer) (home, away float64) {
	if config.UseWeightedBaseline {
		if avg, ok := WeightedLeagueAverages(records, config.PriorTournaments, canon); ok {
			return avg.Home, avg.Away
		}
		logger.Warn("No prior season available for the weighted baseline, using generic averages")
	}
	return config.GenericPriorHome, config.GenericPriorAway
}
