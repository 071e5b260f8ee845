package podds

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Chango93/Predicciones/internal/logger"
	"github.com/Chango93/Predicciones/pkg/util"
)

// MatchRecord is one played match from the history file
type MatchRecord struct {
	Date      time.Time `json:"date"`
	HomeTeam  string    `json:"homeTeam"`
	AwayTeam  string    `json:"awayTeam"`
	HomeGoals int       `json:"homeGoals"`
	AwayGoals int       `json:"awayGoals"`
	Season    string    `json:"season"`
}

// Points returns the league points the given side earned from this match
func (m *MatchRecord) Points(home bool) int {
	gf, ga := m.HomeGoals, m.AwayGoals
	if !home {
		gf, ga = ga, gf
	}
	switch {
	case gf > ga:
		return 3
	case gf == ga:
		return 1
	default:
		return 0
	}
}

// Adjustments is the externally computed multiplicative adjustment vector for one fixture.
// A zero value means "unset" and is read as 1.0.
type Adjustments struct {
	HomeAttackMult  float64 `json:"home_attack_mult,omitempty"`
	HomeDefenseMult float64 `json:"home_defense_mult,omitempty"`
	AwayAttackMult  float64 `json:"away_attack_mult,omitempty"`
	AwayDefenseMult float64 `json:"away_defense_mult,omitempty"`
	HomeFormMult    float64 `json:"home_form_mult,omitempty"`
	AwayFormMult    float64 `json:"away_form_mult,omitempty"`
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1.0
	}
	return v
}

// Normalized returns a copy with every unset multiplier replaced by 1.0
func (a Adjustments) Normalized() Adjustments {
	return Adjustments{
		HomeAttackMult:  orOne(a.HomeAttackMult),
		HomeDefenseMult: orOne(a.HomeDefenseMult),
		AwayAttackMult:  orOne(a.AwayAttackMult),
		AwayDefenseMult: orOne(a.AwayDefenseMult),
		HomeFormMult:    orOne(a.HomeFormMult),
		AwayFormMult:    orOne(a.AwayFormMult),
	}
}

// Fixture is a match to be predicted
type Fixture struct {
	Home        string      `json:"home"`
	Away        string      `json:"away"`
	Date        string      `json:"date,omitempty"`
	Rivalry     bool        `json:"rivalry,omitempty"`
	// matchday label such as "Clausura 2026 - J6"
	Round       string      `json:"round,omitempty"`
	Adjustments Adjustments `json:"adjustments"`
}

// fixtureFile is the on-disk layout of a fixtures JSON document
type fixtureFile struct {
	Matches []Fixture `json:"matches"`
}

// history file columns
const (
	colDate       = "date"
	colHomeTeam   = "home_team"
	colAwayTeam   = "away_team"
	colHomeGoals  = "home_goals"
	colAwayGoals  = "away_goals"
	colTournament = "tournament"
)

var requiredColumns = []string{colHomeTeam, colAwayTeam, colHomeGoals, colAwayGoals, colTournament}

// LoadMatchHistory reads a TSV (.tsv, .txt) or CSV history file
func LoadMatchHistory(path string) ([]*MatchRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open match history %s: %w", path, err)
	}
	defer f.Close()

	delimiter := ','
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt":
		delimiter = '\t'
	}
	records, err := ParseMatchHistory(f, delimiter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse match history %s: %w", path, err)
	}
	logger.Info("Loaded match history", path, len(records))
	return records, nil
}

// ParseMatchHistory parses a delimited history with a header row.
// Rows without goals (unplayed matches) are skipped.
func ParseMatchHistory(r io.Reader, delimiter rune) ([]*MatchRecord, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return []*MatchRecord{}, nil
	}

	headers := rows[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff") // Remove BOM
	}
	for i := range headers {
		headers[i] = strings.ToLower(strings.TrimSpace(headers[i]))
	}
	for _, c := range requiredColumns {
		if !slices.Contains(headers, c) {
			return nil, fmt.Errorf("missing required column %q", c)
		}
	}

	var ret []*MatchRecord
	for i, record := range rows[1:] {
		row := make(map[string]string, len(headers))
		for j, value := range record {
			if j < len(headers) {
				row[headers[j]] = strings.TrimSpace(value)
			}
		}
		if row[colHomeTeam] == "" || row[colAwayTeam] == "" {
			continue
		}
		if row[colHomeGoals] == "" || row[colAwayGoals] == "" {
			logger.Debug("Skipping unplayed match at row", i+2, row[colHomeTeam], row[colAwayTeam])
			continue
		}

		m, err := parseHistoryRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		ret = append(ret, m)
	}
	return ret, nil
}

func parseHistoryRow(row map[string]string) (*MatchRecord, error) {
	hg, err := util.GetAsInteger(row[colHomeGoals])
	if err != nil {
		return nil, fmt.Errorf("invalid home goals: %w", err)
	}
	ag, err := util.GetAsInteger(row[colAwayGoals])
	if err != nil {
		return nil, fmt.Errorf("invalid away goals: %w", err)
	}
	if hg < 0 || ag < 0 {
		return nil, fmt.Errorf("negative goals %d-%d", hg, ag)
	}
	m := &MatchRecord{
		HomeTeam:  row[colHomeTeam],
		AwayTeam:  row[colAwayTeam],
		HomeGoals: hg,
		AwayGoals: ag,
		Season:    NormalizeSeason(row[colTournament]),
	}
	if d := row[colDate]; d != "" {
		t, err := ParseMatchDate(d)
		if err != nil {
			return nil, err
		}
		m.Date = t
	}
	return m, nil
}

// ParseMatchDate accepts day-first dates and ISO dates, with or without a time
func ParseMatchDate(s string) (time.Time, error) {
	formats := []string{
		"02/01/2006",
		"02/01/06",
		"2006-01-02",
		"02/01/2006 15:04",
		"2006-01-02 15:04:05",
		time.RFC3339,
	}
	s = strings.TrimSpace(s)
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse date %q", s)
}

// LoadFixtures reads the fixtures JSON document at path
func LoadFixtures(path string) ([]Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures %s: %w", path, err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes {"matches": [...]}
func ParseFixtures(data []byte) ([]Fixture, error) {
	var ff fixtureFile
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	for i, f := range ff.Matches {
		if strings.TrimSpace(f.Home) == "" || strings.TrimSpace(f.Away) == "" {
			return nil, fmt.Errorf("fixture %d is missing a team name", i)
		}
	}
	return ff.Matches, nil
}

// FilterSeason returns the records belonging to season
func FilterSeason(records []*MatchRecord, season string) []*MatchRecord {
	want := NormalizeSeason(season)
	var ret []*MatchRecord
	for _, m := range records {
		if NormalizeSeason(m.Season) == want {
			ret = append(ret, m)
		}
	}
	return ret
}
