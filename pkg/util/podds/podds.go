package podds

/**
* Podds estimates expected goals for league fixtures and picks the quiniela
* score with the best expected points
 */

import (
	"fmt"

	"github.com/Chango93/Predicciones/internal/logger"
)

// Prediction is everything computed for one fixture
type Prediction struct {
	Fixture      Fixture                `json:"fixture"`
	HomeForm     *RecentForm            `json:"homeForm,omitempty"`
	AwayForm     *RecentForm            `json:"awayForm,omitempty"`
	Components   *LambdaComponents      `json:"components"`
	Distribution *ScorelineDistribution `json:"distribution"`
	Pick         *QuinielaPick          `json:"pick"`
}

// Predictor holds the season state shared by every fixture of a run.
// It is read-only after NewPredictor so Predict may be called from several goroutines.
type Predictor struct {
	config   *PoddsConfig
	canon    *Canonicalizer
	records  []*MatchRecord
	snapshot *SeasonSnapshot
	league   *SmoothedLeagueAverages
	priors   map[string]*BlendedPrior
	engine   *LambdaEngine
	cacheKey string
}

// NewPredictor aggregates the current season and loads or builds the blended priors.
// cache may be nil, in which case priors are always rebuilt.
func NewPredictor(config *PoddsConfig, records []*MatchRecord, cache PriorCache) (*Predictor, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	canon := NewCanonicalizer(config.Aliases)

	snapshot, err := AggregateSeason(records, config.CurrentSeason, canon)
	if err != nil {
		return nil, err
	}

	baseHome, baseAway := LeagueBaseline(config, records, canon)
	league := SmoothLeagueAverages(SeasonLeagueAverages(snapshot), baseHome, baseAway, config.LeagueAvgK)
	logger.Info("League averages", snapshot.Season, league.Home, league.Away, "weight", league.Weight)

	key := PriorCacheKey(config, records, canon)
	priors, err := LoadOrBuildPriors(cache, key, func() map[string]*BlendedPrior {
		return BuildBlendedPriors(records, config, canon)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load priors: %w", err)
	}

	return &Predictor{
		config:   config,
		canon:    canon,
		records:  records,
		snapshot: snapshot,
		league:   league,
		priors:   priors,
		engine:   NewLambdaEngine(config, canon, snapshot, priors, league),
		cacheKey: key,
	}, nil
}

// Snapshot returns the aggregated current season
func (p *Predictor) Snapshot() *SeasonSnapshot {
	return p.snapshot
}

// League returns the smoothed league averages
func (p *Predictor) League() *SmoothedLeagueAverages {
	return p.league
}

// Priors returns the blended priors in use
func (p *Predictor) Priors() map[string]*BlendedPrior {
	return p.priors
}

// CacheKey returns the key the priors were loaded or built under
func (p *Predictor) CacheKey() string {
	return p.cacheKey
}

// applyForm fills unset form multipliers from recent results when enabled
func (p *Predictor) applyForm(fixture *Fixture) (home, away *RecentForm) {
	if !p.config.UseRecentForm || fixture.Date == "" {
		return nil, nil
	}
	date, err := ParseMatchDate(fixture.Date)
	if err != nil {
		logger.Warn("Ignoring recent form, unparseable fixture date", fixture.Date)
		return nil, nil
	}
	if fixture.Adjustments.HomeFormMult == 0 {
		home = RecentFormMultiplier(p.records, p.canon, fixture.Home, date, p.config.FormGames, p.config.FormBoostMax, p.config.FormPenaltyMax)
		fixture.Adjustments.HomeFormMult = home.Multiplier
	}
	if fixture.Adjustments.AwayFormMult == 0 {
		away = RecentFormMultiplier(p.records, p.canon, fixture.Away, date, p.config.FormGames, p.config.FormBoostMax, p.config.FormPenaltyMax)
		fixture.Adjustments.AwayFormMult = away.Multiplier
	}
	return home, away
}

// Predict computes lambdas, the scoreline distribution and the pick for one fixture
func (p *Predictor) Predict(fixture Fixture) (*Prediction, error) {
	homeForm, awayForm := p.applyForm(&fixture)

	components, err := p.engine.Compute(fixture)
	if err != nil {
		return nil, err
	}
	dist := BuildDistribution(components.LambdaHome, components.LambdaAway, p.config)
	pick := OptimizePick(dist)

	logger.Debug("Prediction", components.Home.Team, "vs", components.Away.Team, pick.Score.String(), string(pick.Outcome), pick.EV)
	return &Prediction{
		Fixture:      fixture,
		HomeForm:     homeForm,
		AwayForm:     awayForm,
		Components:   components,
		Distribution: dist,
		Pick:         pick,
	}, nil
}

// PredictAll predicts fixtures in order and stops at the first error
func (p *Predictor) PredictAll(fixtures []Fixture) ([]*Prediction, error) {
	ret := make([]*Prediction, 0, len(fixtures))
	for i, f := range fixtures {
		pred, err := p.Predict(f)
		if err != nil {
			return nil, fmt.Errorf("fixture %d (%s vs %s): %w", i+1, f.Home, f.Away, err)
		}
		ret = append(ret, pred)
	}
	logger.Info("Predicted", len(ret), "fixtures")
	return ret, nil
}
