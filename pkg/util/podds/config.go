package podds

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Chango93/Predicciones/internal/logger"
	"github.com/Chango93/Predicciones/pkg/util"
)

// ErrInvalidConfig is wrapped by every ValidateConfig failure
var ErrInvalidConfig = errors.New("invalid podds configuration")

// PriorTournament is one historical season and the weight it carries in the blended prior
type PriorTournament struct {
	Season string  `yaml:"season" json:"season"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// PoddsConfig contains all configurable parameters that influence prediction outcomes
// This centralizes all magic numbers and constants for easy adjustment
type PoddsConfig struct {
	// Storage
	DbPath   string `yaml:"db_path"`   // sqlite database for the prior cache and predictions ("" disables)
	CacheDir string `yaml:"cache_dir"` // directory for the JSON prior cache when no database is used

	// === SEASONS ===
	CurrentSeason    string            `yaml:"current_season"`    // season being predicted, e.g. "Clausura 2026"
	PriorTournaments []PriorTournament `yaml:"prior_tournaments"` // historical seasons and weights (need not sum to 1)

	// === EMPIRICAL BAYES SMOOTHING ===
	BayesK     float64 `yaml:"bayes_k"`      // pseudo-count for per-season rate smoothing (default: 3)
	BlendK     float64 `yaml:"blend_k"`      // matches needed to trust the current season half way (default: 6)
	BlendMax   float64 `yaml:"w_curr_max"`   // ceiling for the current-season blend weight (default: 0.85)
	LeagueAvgK float64 `yaml:"league_avg_k"` // matches needed to trust the current league average half way (default: 30)

	// Generic historical league averages the current one is shrunk toward
	GenericPriorHome    float64 `yaml:"generic_prior_home"`    // default: 1.45
	GenericPriorAway    float64 `yaml:"generic_prior_away"`    // default: 1.15
	UseWeightedBaseline bool    `yaml:"use_weighted_baseline"` // shrink toward the weighted prior-season averages instead

	// === GUARDRAILS ===
	ClampRelMin    float64 `yaml:"clamp_rel_min"`    // default: 0.60
	ClampRelMax    float64 `yaml:"clamp_rel_max"`    // default: 1.60
	ClampLambdaMin float64 `yaml:"clamp_lambda_min"` // default: 0.25
	ClampLambdaMax float64 `yaml:"clamp_lambda_max"` // default: 3.20

	// === CONTEXT ===
	HomeAdvantageFactor map[string]float64 `yaml:"home_advantage_factor"` // per team multiplier on the home league average
	RivalryLambdaFactor float64            `yaml:"rivalry_lambda_factor"` // dampening on both lambdas for rivalry fixtures (default: 0.88)
	Aliases             map[string]string  `yaml:"aliases"`               // extra team name aliases on top of DefaultAliases

	// === RECENT FORM ===
	UseRecentForm  bool    `yaml:"use_recent_form"`  // derive form multipliers from the last matches of each team
	FormGames      int     `yaml:"form_games"`       // default: 5
	FormBoostMax   float64 `yaml:"form_boost_max"`   // default: 0.05
	FormPenaltyMax float64 `yaml:"form_penalty_max"` // default: 0.05

	// === SCORELINE GRID ===
	GridMinGoals   int     `yaml:"grid_min_goals"`   // default: 5
	GridMaxGoals   int     `yaml:"grid_max_goals"`   // default: 10
	GridTargetMass float64 `yaml:"grid_target_mass"` // default: 0.985

	// Dixon-Coles correlation parameter for low-scoring games (0 disables)
	DixonColesRho float64 `yaml:"dixon_coles_rho"`

	// === OVER/UNDER GOALS THRESHOLDS ===
	Over1p5GoalsThreshold float64 `yaml:"over_1p5_threshold"`
	Over2p5GoalsThreshold float64 `yaml:"over_2p5_threshold"`
}

// DefaultPoddsConfig returns the default configuration with all standard values
func DefaultPoddsConfig() *PoddsConfig {
	return &PoddsConfig{
		DbPath:   "",
		CacheDir: "data/processed",

		CurrentSeason: "Clausura 2026",
		PriorTournaments: []PriorTournament{
			{Season: "Clausura 2024", Weight: 0.10},
			{Season: "Apertura 2024", Weight: 0.15},
			{Season: "Clausura 2025", Weight: 0.25},
			{Season: "Apertura 2025", Weight: 0.50},
		},

		BayesK:     3.0,
		BlendK:     6.0,
		BlendMax:   0.85,
		LeagueAvgK: 30.0,

		GenericPriorHome: 1.45,
		GenericPriorAway: 1.15,

		ClampRelMin:    0.60,
		ClampRelMax:    1.60,
		ClampLambdaMin: 0.25,
		ClampLambdaMax: 3.20,

		HomeAdvantageFactor: map[string]float64{},
		RivalryLambdaFactor: 0.88,
		Aliases:             map[string]string{},

		UseRecentForm:  false,
		FormGames:      5,
		FormBoostMax:   0.05,
		FormPenaltyMax: 0.05,

		GridMinGoals:   5,
		GridMaxGoals:   10,
		GridTargetMass: 0.985,

		DixonColesRho: 0.0,

		Over1p5GoalsThreshold: 1.5,
		Over2p5GoalsThreshold: 2.5,
	}
}

// LoadConfig builds a configuration from the defaults, then the YAML file at path (if any),
// then environment variables (a .env file in the working directory is honoured)
func LoadConfig(path string) (*PoddsConfig, error) {
	config := DefaultPoddsConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		logger.Info("Loaded configuration from", path)
	}

	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded environment from .env")
	}
	if err := applyEnv(config); err != nil {
		return nil, err
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv overrides config values from PODDS_* environment variables
func applyEnv(config *PoddsConfig) error {
	if v := os.Getenv("PODDS_CURRENT_SEASON"); v != "" {
		config.CurrentSeason = v
	}
	if v := os.Getenv("PODDS_DB_PATH"); v != "" {
		config.DbPath = v
	}
	if v := os.Getenv("PODDS_CACHE_DIR"); v != "" {
		config.CacheDir = v
	}

	floats := map[string]*float64{
		"PODDS_BAYES_K":      &config.BayesK,
		"PODDS_BLEND_K":      &config.BlendK,
		"PODDS_LEAGUE_AVG_K": &config.LeagueAvgK,
	}
	for name, target := range floats {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		f, err := util.GetAsFloat(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, name, v)
		}
		*target = f
	}
	return nil
}

// === CONFIGURATION VALIDATION ===

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// nonFinite returns the name of the first NaN or infinite float setting
func nonFinite(config *PoddsConfig) (string, bool) {
	floats := []struct {
		name  string
		value float64
	}{
		{"bayes_k", config.BayesK},
		{"blend_k", config.BlendK},
		{"w_curr_max", config.BlendMax},
		{"league_avg_k", config.LeagueAvgK},
		{"generic_prior_home", config.GenericPriorHome},
		{"generic_prior_away", config.GenericPriorAway},
		{"clamp_rel_min", config.ClampRelMin},
		{"clamp_rel_max", config.ClampRelMax},
		{"clamp_lambda_min", config.ClampLambdaMin},
		{"clamp_lambda_max", config.ClampLambdaMax},
		{"rivalry_lambda_factor", config.RivalryLambdaFactor},
		{"form_boost_max", config.FormBoostMax},
		{"form_penalty_max", config.FormPenaltyMax},
		{"grid_target_mass", config.GridTargetMass},
		{"dixon_coles_rho", config.DixonColesRho},
		{"over_1p5_threshold", config.Over1p5GoalsThreshold},
		{"over_2p5_threshold", config.Over2p5GoalsThreshold},
	}
	for _, f := range floats {
		if !isFinite(f.value) {
			return f.name, true
		}
	}
	for _, pt := range config.PriorTournaments {
		if !isFinite(pt.Weight) {
			return "prior_tournaments weight of " + pt.Season, true
		}
	}
	for _, team := range sortedTeams(config.HomeAdvantageFactor) {
		if !isFinite(config.HomeAdvantageFactor[team]) {
			return "home_advantage_factor of " + team, true
		}
	}
	return "", false
}

// ValidateConfig ensures all configuration values are within reasonable ranges
func ValidateConfig(config *PoddsConfig) error {
	if config == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if NormalizeSeason(config.CurrentSeason) == "" {
		return fmt.Errorf("%w: CurrentSeason must be set", ErrInvalidConfig)
	}
	// every comparison with NaN is false, so non-finite values must be rejected before the range checks
	if name, ok := nonFinite(config); ok {
		return fmt.Errorf("%w: %s must be a finite number", ErrInvalidConfig, name)
	}
	if config.BayesK <= 0 || config.BlendK <= 0 || config.LeagueAvgK <= 0 {
		return fmt.Errorf("%w: BayesK, BlendK and LeagueAvgK must be positive, got %f %f %f",
			ErrInvalidConfig, config.BayesK, config.BlendK, config.LeagueAvgK)
	}
	if config.BlendMax <= 0 || config.BlendMax > 1 {
		return fmt.Errorf("%w: BlendMax must be in (0, 1], got %f", ErrInvalidConfig, config.BlendMax)
	}
	if config.GenericPriorHome <= 0 || config.GenericPriorAway <= 0 {
		return fmt.Errorf("%w: generic league averages must be positive", ErrInvalidConfig)
	}
	if config.ClampRelMin <= 0 || config.ClampRelMin > config.ClampRelMax {
		return fmt.Errorf("%w: relative strength band [%f, %f] is invalid", ErrInvalidConfig, config.ClampRelMin, config.ClampRelMax)
	}
	if config.ClampLambdaMin <= 0 || config.ClampLambdaMin > config.ClampLambdaMax {
		return fmt.Errorf("%w: lambda band [%f, %f] is invalid", ErrInvalidConfig, config.ClampLambdaMin, config.ClampLambdaMax)
	}
	for _, pt := range config.PriorTournaments {
		if pt.Weight < 0 {
			return fmt.Errorf("%w: prior tournament %s has negative weight %f", ErrInvalidConfig, pt.Season, pt.Weight)
		}
	}
	for team, factor := range config.HomeAdvantageFactor {
		if factor <= 0 {
			return fmt.Errorf("%w: home advantage for %s must be positive, got %f", ErrInvalidConfig, team, factor)
		}
	}
	if config.RivalryLambdaFactor <= 0 || config.RivalryLambdaFactor > 1.5 {
		return fmt.Errorf("%w: RivalryLambdaFactor should be in (0, 1.5], got %f", ErrInvalidConfig, config.RivalryLambdaFactor)
	}
	if config.FormGames < 1 || config.FormBoostMax < 0 || config.FormPenaltyMax < 0 || config.FormPenaltyMax >= 1 {
		return fmt.Errorf("%w: recent form settings are out of range", ErrInvalidConfig)
	}
	if config.GridMinGoals < 1 || config.GridMinGoals > config.GridMaxGoals {
		return fmt.Errorf("%w: grid bounds [%d, %d] are invalid", ErrInvalidConfig, config.GridMinGoals, config.GridMaxGoals)
	}
	if config.GridTargetMass <= 0 || config.GridTargetMass >= 1 {
		return fmt.Errorf("%w: GridTargetMass must be in (0, 1), got %f", ErrInvalidConfig, config.GridTargetMass)
	}
	if config.DixonColesRho > 0 || config.DixonColesRho < -0.2 {
		return fmt.Errorf("%w: DixonColesRho should be between -0.2 and 0, got %f", ErrInvalidConfig, config.DixonColesRho)
	}
	return nil
}
