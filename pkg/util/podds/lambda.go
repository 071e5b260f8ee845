package podds

import (
	"errors"
	"fmt"

	"github.com/Chango93/Predicciones/internal/logger"
	"github.com/Chango93/Predicciones/pkg/util"
)

// ErrUnknownTeam is returned when a fixture names a team absent from the current season
var ErrUnknownTeam = errors.New("unknown team")

// SideComponents is the audit trail of one side's relative strengths for a fixture.
// The home side uses its home split, the away side its away split.
type SideComponents struct {
	Team        string  `json:"team"`
	PJ          int     `json:"pj"`
	BlendWeight float64 `json:"blendWeight"`

	CurrentAtt float64 `json:"currentAtt"`
	CurrentDef float64 `json:"currentDef"`
	PriorAtt   float64 `json:"priorAtt"`
	PriorDef   float64 `json:"priorDef"`
	HasPrior   bool    `json:"hasPrior"`

	// blended before the relative strength clamp
	RawAtt float64 `json:"rawAtt"`
	RawDef float64 `json:"rawDef"`
	Att    float64 `json:"att"`
	Def    float64 `json:"def"`

	AttClamped bool `json:"attClamped"`
	DefClamped bool `json:"defClamped"`
}

// LambdaComponents is every intermediate value of one fixture's expected goals
type LambdaComponents struct {
	Home SideComponents `json:"home"`
	Away SideComponents `json:"away"`

	LeagueWeight  float64 `json:"leagueWeight"`
	HomeAdvantage float64 `json:"homeAdvantage"`
	LeagueHome    float64 `json:"leagueHome"`
	LeagueAway    float64 `json:"leagueAway"`

	BaseHome float64 `json:"baseHome"`
	BaseAway float64 `json:"baseAway"`

	Adjustments    Adjustments `json:"adjustments"`
	HomeAdjustment float64     `json:"homeAdjustment"`
	AwayAdjustment float64     `json:"awayAdjustment"`

	Rivalry       bool    `json:"rivalry"`
	RivalryFactor float64 `json:"rivalryFactor"`

	PreClampHome float64 `json:"preClampHome"`
	PreClampAway float64 `json:"preClampAway"`
	LambdaHome   float64 `json:"lambdaHome"`
	LambdaAway   float64 `json:"lambdaAway"`
	HomeClamped  bool    `json:"homeClamped"`
	AwayClamped  bool    `json:"awayClamped"`
}

// AnyClamped reports whether any relative strength or lambda was moved by a clamp
func (c *LambdaComponents) AnyClamped() bool {
	return c.Home.AttClamped || c.Home.DefClamped || c.Away.AttClamped || c.Away.DefClamped ||
		c.HomeClamped || c.AwayClamped
}

// BlendWeight is the trust given to the current season: pj/(pj+k) capped at ceiling
func BlendWeight(pj int, k, ceiling float64) float64 {
	if pj <= 0 {
		return 0
	}
	w := float64(pj) / (float64(pj) + k)
	if w > ceiling {
		return ceiling
	}
	return w
}

// clamp bounds v into [lo, hi] and reports whether it moved
func clamp(v, lo, hi float64) (float64, bool) {
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
}

// LambdaEngine turns current-season strengths, blended priors and league averages into expected goals.
// It holds no mutable state after construction.
type LambdaEngine struct {
	config   *PoddsConfig
	canon    *Canonicalizer
	snapshot *SeasonSnapshot
	current  map[string]*RelativeStrength
	priors   map[string]*BlendedPrior
	league   *SmoothedLeagueAverages

	// home advantage keyed by canonical team name
	homeAdvantage map[string]float64
}

// NewLambdaEngine computes the current-season relative strengths once for every fixture
func NewLambdaEngine(config *PoddsConfig, canon *Canonicalizer, snapshot *SeasonSnapshot, priors map[string]*BlendedPrior, league *SmoothedLeagueAverages) *LambdaEngine {
	if priors == nil {
		priors = map[string]*BlendedPrior{}
	}
	homeAdvantage := make(map[string]float64, len(config.HomeAdvantageFactor))
	for team, f := range config.HomeAdvantageFactor {
		homeAdvantage[canon.Canonical(team)] = f
	}
	return &LambdaEngine{
		config:        config,
		canon:         canon,
		snapshot:      snapshot,
		current:       RelativeStrengths(snapshot, config.BayesK),
		priors:        priors,
		league:        league,
		homeAdvantage: homeAdvantage,
	}
}

func (e *LambdaEngine) lookup(raw string) (string, *RelativeStrength, error) {
	name := e.canon.Canonical(raw)
	rs, ok := e.current[name]
	if !ok {
		err := fmt.Errorf("%w: %q (canonical %q) has no matches in %s", ErrUnknownTeam, raw, name, e.snapshot.Season)
		// a near miss is usually a missing alias
		if suggestion := util.ClosestMatch(name, e.snapshot.TeamNames()); name != "" && suggestion != "" && util.IsFuzzyMatch(name, suggestion) {
			err = fmt.Errorf("%w, did you mean %q?", err, suggestion)
		}
		return "", nil, err
	}
	return name, rs, nil
}

func (e *LambdaEngine) prior(team string) (*BlendedPrior, bool) {
	if bp, ok := e.priors[team]; ok {
		return bp, true
	}
	return NeutralPrior(team), false
}

// side blends current and prior relatives for one side and clamps them
func (e *LambdaEngine) side(team string, pj int, currentAtt, currentDef, priorAtt, priorDef float64, hasPrior bool) SideComponents {
	w := BlendWeight(pj, e.config.BlendK, e.config.BlendMax)
	sc := SideComponents{
		Team:        team,
		PJ:          pj,
		BlendWeight: w,
		CurrentAtt:  currentAtt,
		CurrentDef:  currentDef,
		PriorAtt:    priorAtt,
		PriorDef:    priorDef,
		HasPrior:    hasPrior,
		RawAtt:      w*currentAtt + (1-w)*priorAtt,
		RawDef:      w*currentDef + (1-w)*priorDef,
	}
	sc.Att, sc.AttClamped = clamp(sc.RawAtt, e.config.ClampRelMin, e.config.ClampRelMax)
	sc.Def, sc.DefClamped = clamp(sc.RawDef, e.config.ClampRelMin, e.config.ClampRelMax)
	return sc
}

// Compute returns the lambda components for one fixture.
// The error wraps ErrUnknownTeam when either team has no current-season matches.
func (e *LambdaEngine) Compute(fixture Fixture) (*LambdaComponents, error) {
	homeName, homeRel, err := e.lookup(fixture.Home)
	if err != nil {
		return nil, err
	}
	awayName, awayRel, err := e.lookup(fixture.Away)
	if err != nil {
		return nil, err
	}

	homePrior, homeHasPrior := e.prior(homeName)
	awayPrior, awayHasPrior := e.prior(awayName)

	c := &LambdaComponents{
		Home: e.side(homeName, homeRel.PJHome, homeRel.AttHome, homeRel.DefHome, homePrior.AttHome, homePrior.DefHome, homeHasPrior),
		Away: e.side(awayName, awayRel.PJAway, awayRel.AttAway, awayRel.DefAway, awayPrior.AttAway, awayPrior.DefAway, awayHasPrior),
	}

	c.HomeAdvantage = 1.0
	if f, ok := e.homeAdvantage[homeName]; ok {
		c.HomeAdvantage = f
	}
	c.LeagueWeight = e.league.Weight
	c.LeagueHome, c.LeagueAway = e.league.ForHomeTeam(c.HomeAdvantage)

	c.BaseHome = c.Home.Att * c.Away.Def * c.LeagueHome
	c.BaseAway = c.Away.Att * c.Home.Def * c.LeagueAway

	adj := fixture.Adjustments.Normalized()
	c.Adjustments = adj
	c.HomeAdjustment = adj.HomeAttackMult * adj.AwayDefenseMult * adj.HomeFormMult
	c.AwayAdjustment = adj.AwayAttackMult * adj.HomeDefenseMult * adj.AwayFormMult

	c.RivalryFactor = 1.0
	if fixture.Rivalry {
		c.Rivalry = true
		c.RivalryFactor = e.config.RivalryLambdaFactor
	}

	c.PreClampHome = c.BaseHome * c.HomeAdjustment * c.RivalryFactor
	c.PreClampAway = c.BaseAway * c.AwayAdjustment * c.RivalryFactor
	c.LambdaHome, c.HomeClamped = clamp(c.PreClampHome, e.config.ClampLambdaMin, e.config.ClampLambdaMax)
	c.LambdaAway, c.AwayClamped = clamp(c.PreClampAway, e.config.ClampLambdaMin, e.config.ClampLambdaMax)

	if c.AnyClamped() {
		logger.Debug("Clamp applied for", homeName, "vs", awayName)
	}
	logger.Debug("Lambdas", homeName, awayName, c.LambdaHome, c.LambdaAway)
	return c, nil
}
