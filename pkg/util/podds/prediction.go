package podds

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Chango93/Predicciones/internal/logger"
)

// Compile-time check to ensure PredictionRecord implements Persistable interface
var _ Persistable = (*PredictionRecord)(nil)

// PredictionRecord is one predicted fixture of a run
type PredictionRecord struct {
	RunID    string `json:"runId" column:"run_id" dbtype:"TEXT NOT NULL" primary:"true" index:"true"`
	HomeTeam string `json:"homeTeam" column:"home_team" dbtype:"TEXT NOT NULL" primary:"true"`
	AwayTeam string `json:"awayTeam" column:"away_team" dbtype:"TEXT NOT NULL" primary:"true"`
	Season   string `json:"season" column:"season" dbtype:"TEXT" index:"true"`
	Date     string `json:"date" column:"match_date" dbtype:"TEXT"`
	Jornada  int    `json:"jornada" column:"jornada" dbtype:"INTEGER DEFAULT 0"`
	Rivalry  bool   `json:"rivalry" column:"rivalry" dbtype:"BOOLEAN DEFAULT 0"`

	// Goal expectancy
	LambdaHome float64 `json:"lambdaHome" column:"lambda_home" dbtype:"REAL DEFAULT -1.0"`
	LambdaAway float64 `json:"lambdaAway" column:"lambda_away" dbtype:"REAL DEFAULT -1.0"`
	Clamped    bool    `json:"clamped" column:"clamped" dbtype:"BOOLEAN DEFAULT 0"`

	HomeWinProbability float64 `json:"homeWinProbability" column:"home_win_prob" dbtype:"REAL DEFAULT -1.0"`
	DrawProbability    float64 `json:"drawProbability" column:"draw_prob" dbtype:"REAL DEFAULT -1.0"`
	AwayWinProbability float64 `json:"awayWinProbability" column:"away_win_prob" dbtype:"REAL DEFAULT -1.0"`
	Over1p5Goals       float64 `json:"over1p5Goals" column:"over_1p5_goals" dbtype:"REAL DEFAULT -1.0"`
	Over2p5Goals       float64 `json:"over2p5Goals" column:"over_2p5_goals" dbtype:"REAL DEFAULT -1.0"`

	// Pick
	PredictedHomeGoals int     `json:"predictedHomeGoals" column:"predicted_home_goals" dbtype:"INTEGER DEFAULT -1"`
	PredictedAwayGoals int     `json:"predictedAwayGoals" column:"predicted_away_goals" dbtype:"INTEGER DEFAULT -1"`
	Outcome            string  `json:"outcome" column:"outcome" dbtype:"TEXT"`
	ExpectedValue      float64 `json:"expectedValue" column:"expected_value" dbtype:"REAL DEFAULT 0.0"`
	Gap                float64 `json:"gap" column:"gap" dbtype:"REAL DEFAULT 0.0"`
	Cutoff             int     `json:"cutoff" column:"cutoff" dbtype:"INTEGER DEFAULT 0"`
	CapturedMass       float64 `json:"capturedMass" column:"captured_mass" dbtype:"REAL DEFAULT 0.0"`

	CreatedAt string `json:"createdAt" column:"created_at" dbtype:"TEXT"`
}

func (r *PredictionRecord) GetTableName() string {
	return "predictions"
}

func (r *PredictionRecord) GetPrimaryKey() map[string]any {
	return map[string]any{
		"run_id":    r.RunID,
		"home_team": r.HomeTeam,
		"away_team": r.AwayTeam,
	}
}

func (r *PredictionRecord) SetPrimaryKey(pk map[string]any) error {
	runID, ok := pk["run_id"].(string)
	if !ok {
		return fmt.Errorf("invalid run_id in primary key")
	}
	home, ok := pk["home_team"].(string)
	if !ok {
		return fmt.Errorf("invalid home_team in primary key")
	}
	away, ok := pk["away_team"].(string)
	if !ok {
		return fmt.Errorf("invalid away_team in primary key")
	}
	r.RunID, r.HomeTeam, r.AwayTeam = runID, home, away
	return nil
}

func (r *PredictionRecord) BeforeSave() error {
	if r.RunID == "" || r.HomeTeam == "" || r.AwayTeam == "" {
		return fmt.Errorf("run id and both teams are required")
	}
	if r.CreatedAt == "" {
		r.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return nil
}

func (r *PredictionRecord) AfterSave() error {
	return nil
}

func (r *PredictionRecord) BeforeDelete() error {
	return nil
}

func (r *PredictionRecord) AfterDelete() error {
	return nil
}

// NewPredictionRecord flattens a prediction for storage
func NewPredictionRecord(runID, season string, p *Prediction) *PredictionRecord {
	c, d, pick := p.Components, p.Distribution, p.Pick
	return &PredictionRecord{
		RunID:              runID,
		HomeTeam:           c.Home.Team,
		AwayTeam:           c.Away.Team,
		Season:             season,
		Date:               p.Fixture.Date,
		Jornada:            fixtureJornada(p.Fixture),
		Rivalry:            c.Rivalry,
		LambdaHome:         c.LambdaHome,
		LambdaAway:         c.LambdaAway,
		Clamped:            c.AnyClamped(),
		HomeWinProbability: d.HomeWin,
		DrawProbability:    d.Draw,
		AwayWinProbability: d.AwayWin,
		Over1p5Goals:       d.Over1p5,
		Over2p5Goals:       d.Over2p5,
		PredictedHomeGoals: pick.Score.Home,
		PredictedAwayGoals: pick.Score.Away,
		Outcome:            string(pick.Outcome),
		ExpectedValue:      pick.EV,
		Gap:                pick.Gap,
		Cutoff:             pick.Cutoff,
		CapturedMass:       pick.CapturedMass,
	}
}

// fixtureJornada is the matchday of the fixture's round label, 0 when it has none
func fixtureJornada(f Fixture) int {
	if f.Round == "" {
		return 0
	}
	if j := ParseJornada(f.Round); j != 99 {
		return j
	}
	return 0
}

// NewRunID returns a fresh identifier for a batch of predictions
func NewRunID() string {
	return uuid.NewString()
}

// SavePredictions stores a run's predictions in one transaction.
// An empty runID is replaced by a new one; the run id used is returned.
func SavePredictions(store *Store, runID, season string, preds []*Prediction) (string, error) {
	if runID == "" {
		runID = NewRunID()
	}
	if err := store.CreateTable(&PredictionRecord{}); err != nil {
		return "", err
	}
	objs := make([]Persistable, 0, len(preds))
	for _, p := range preds {
		objs = append(objs, NewPredictionRecord(runID, season, p))
	}
	if err := store.BulkSave(objs); err != nil {
		return "", fmt.Errorf("failed to save predictions: %w", err)
	}
	logger.Info("Saved predictions", runID, len(preds))
	return runID, nil
}

// LoadPredictions returns the stored predictions of one run
func LoadPredictions(store *Store, runID string) ([]*PredictionRecord, error) {
	if err := store.CreateTable(&PredictionRecord{}); err != nil {
		return nil, err
	}
	return FindWhere[PredictionRecord](store, "run_id = ?", runID)
}

// SaveSeasonStats stores every team row of a season snapshot
func SaveSeasonStats(store *Store, snapshot *SeasonSnapshot) error {
	if err := store.CreateTable(&TeamSeasonStats{}); err != nil {
		return err
	}
	objs := make([]Persistable, 0, len(snapshot.Teams))
	for _, team := range snapshot.TeamNames() {
		ts, _ := snapshot.Team(team)
		objs = append(objs, ts)
	}
	if err := store.BulkSave(objs); err != nil {
		return fmt.Errorf("failed to save season stats: %w", err)
	}
	logger.Info("Saved season stats", snapshot.Season, len(objs), "teams")
	return nil
}
