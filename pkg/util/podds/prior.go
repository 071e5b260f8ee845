package podds

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/Chango93/Predicciones/internal/logger"
)

// BlendedPrior is one team's weighted combination of relative strengths across the prior seasons
type BlendedPrior struct {
	Team string `json:"team"`

	AttHome float64 `json:"attHome"`
	AttAway float64 `json:"attAway"`
	DefHome float64 `json:"defHome"`
	DefAway float64 `json:"defAway"`

	RateAttHome float64 `json:"rateAttHome"`
	RateAttAway float64 `json:"rateAttAway"`
	RateDefHome float64 `json:"rateDefHome"`
	RateDefAway float64 `json:"rateDefAway"`

	// summed over every prior season the team appeared in, for audit only
	PJTotal   int      `json:"pjTotal"`
	WeightSum float64  `json:"weightSum"`
	Seasons   []string `json:"seasons"`
}

// NeutralPrior is used for teams with no history in any prior season
func NeutralPrior(team string) *BlendedPrior {
	return &BlendedPrior{
		Team:    team,
		AttHome: 1.0,
		AttAway: 1.0,
		DefHome: 1.0,
		DefAway: 1.0,
	}
}

// OrderedPriorTournaments returns a copy of the schedule oldest season first.
// Labels that do not parse keep their relative order after the parsed ones.
func OrderedPriorTournaments(tournaments []PriorTournament) []PriorTournament {
	ret := append([]PriorTournament(nil), tournaments...)
	sort.SliceStable(ret, func(i, j int) bool {
		si, erri := ParseSeason(ret[i].Season)
		sj, errj := ParseSeason(ret[j].Season)
		switch {
		case erri != nil:
			return false
		case errj != nil:
			return true
		}
		return si.Before(sj)
	})
	return ret
}

// BuildBlendedPriors weights every configured prior season's relative strengths into one prior per team.
// Each team's sums are divided by the total weight of the seasons it appeared in.
// Seasons absent from the history are skipped with a warning.
func BuildBlendedPriors(records []*MatchRecord, config *PoddsConfig, canon *Canonicalizer) map[string]*BlendedPrior {
	priors := make(map[string]*BlendedPrior)

	for _, pt := range OrderedPriorTournaments(config.PriorTournaments) {
		if pt.Weight == 0 {
			logger.Debug("Prior season has zero weight, skipping", pt.Season)
			continue
		}
		relatives, _, err := TournamentRelatives(records, pt.Season, config.BayesK, canon)
		if err != nil {
			logger.Warn("Prior season missing from history, skipping", pt.Season, err)
			continue
		}

		for _, team := range sortedTeams(relatives) {
			rs := relatives[team]
			bp, ok := priors[team]
			if !ok {
				bp = &BlendedPrior{Team: team}
				priors[team] = bp
			}
			w := pt.Weight
			bp.AttHome += rs.AttHome * w
			bp.AttAway += rs.AttAway * w
			bp.DefHome += rs.DefHome * w
			bp.DefAway += rs.DefAway * w
			bp.RateAttHome += rs.RateAttHome * w
			bp.RateAttAway += rs.RateAttAway * w
			bp.RateDefHome += rs.RateDefHome * w
			bp.RateDefAway += rs.RateDefAway * w
			bp.PJTotal += rs.PJTotal
			bp.WeightSum += w
			bp.Seasons = append(bp.Seasons, NormalizeSeason(pt.Season))
		}
	}

	for _, bp := range priors {
		w := bp.WeightSum
		bp.AttHome /= w
		bp.AttAway /= w
		bp.DefHome /= w
		bp.DefAway /= w
		bp.RateAttHome /= w
		bp.RateAttAway /= w
		bp.RateDefHome /= w
		bp.RateDefAway /= w
	}

	logger.Info("Built blended priors", len(priors), "teams")
	return priors
}

// priorKeyFields is every input that affects BuildBlendedPriors and the values derived from it
type priorKeyFields struct {
	BayesK           float64           `json:"BAYES_K"`
	BlendK           float64           `json:"BLEND_K"`
	LeagueAvgK       float64           `json:"LEAGUE_AVG_K"`
	ClampRelMin      float64           `json:"CLAMP_REL_MIN"`
	ClampRelMax      float64           `json:"CLAMP_REL_MAX"`
	PriorTournaments []PriorTournament `json:"PRIOR_TOURNAMENTS"`
	Aliases          map[string]string `json:"ALIASES"`
	History          string            `json:"HISTORY"`
}

// PriorCacheKey hashes the configuration fields and the prior-season history that determine the blended prior.
// Any change to the weight schedule, smoothing constants, aliases or the underlying matches changes the key.
func PriorCacheKey(config *PoddsConfig, records []*MatchRecord, canon *Canonicalizer) string {
	tournaments := OrderedPriorTournaments(config.PriorTournaments)
	for i, pt := range tournaments {
		tournaments[i].Season = NormalizeSeason(pt.Season)
	}
	fields := priorKeyFields{
		BayesK:           config.BayesK,
		BlendK:           config.BlendK,
		LeagueAvgK:       config.LeagueAvgK,
		ClampRelMin:      config.ClampRelMin,
		ClampRelMax:      config.ClampRelMax,
		PriorTournaments: tournaments,
		Aliases:          canon.Aliases(),
		History:          historyDigest(records, tournaments),
	}
	// encoding/json writes map keys sorted so the encoding is canonical
	data, err := json.Marshal(fields)
	if err != nil {
		// every field is a plain value, this cannot happen
		panic(fmt.Sprintf("failed to encode prior cache key: %v", err))
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// historyDigest fingerprints the matches of the given seasons independently of row order
func historyDigest(records []*MatchRecord, tournaments []PriorTournament) string {
	wanted := make(map[string]bool, len(tournaments))
	for _, pt := range tournaments {
		wanted[pt.Season] = true
	}
	var rows []string
	for _, m := range records {
		season := NormalizeSeason(m.Season)
		if !wanted[season] {
			continue
		}
		rows = append(rows, season+"|"+m.Date.Format("2006-01-02")+"|"+m.HomeTeam+"|"+m.AwayTeam+"|"+
			strconv.Itoa(m.HomeGoals)+"|"+strconv.Itoa(m.AwayGoals))
	}
	sort.Strings(rows)
	d := xxhash.New()
	for _, r := range rows {
		_, _ = d.WriteString(r)
		_, _ = d.WriteString("\n")
	}
	return fmt.Sprintf("%d:%016x", len(rows), d.Sum64())
}

// LoadOrBuildPriors returns the blended priors from cache when the key is present,
// otherwise builds them and stores them under the key
func LoadOrBuildPriors(cache PriorCache, key string, build func() map[string]*BlendedPrior) (map[string]*BlendedPrior, error) {
	if cache != nil {
		priors, ok, err := cache.Get(key)
		if err != nil {
			return nil, fmt.Errorf("failed to read prior cache %s: %w", key, err)
		}
		if ok {
			logger.Info("Prior cache hit", key)
			return priors, nil
		}
		logger.Info("Prior cache miss, building", key)
	}

	priors := build()
	if cache != nil {
		if err := cache.Put(key, priors); err != nil {
			return nil, fmt.Errorf("failed to write prior cache %s: %w", key, err)
		}
	}
	return priors, nil
}
