package podds

import (
	"fmt"
	"strings"

	"github.com/Chango93/Predicciones/pkg/util"
)

// Season phases of the short tournament calendar
const (
	Apertura = "Apertura"
	Clausura = "Clausura"
)

// Season is a parsed tournament label such as "Clausura 2026"
type Season struct {
	Phase string
	Year  int
}

func (s Season) String() string {
	return fmt.Sprintf("%s %d", s.Phase, s.Year)
}

// Before reports whether s was played before o.
// Clausura runs in the first half of the calendar year, Apertura in the second.
func (s Season) Before(o Season) bool {
	if s.Year != o.Year {
		return s.Year < o.Year
	}
	return s.Phase == Clausura && o.Phase == Apertura
}

// ParseSeason accepts labels of the form "Clausura 2026", "clausura-2026", "2026 Apertura"
// and the matchday form "Clausura 2026 - J4" (the jornada suffix is ignored)
func ParseSeason(season any) (Season, error) {
	if season == nil {
		return Season{}, fmt.Errorf("must pass a season")
	}
	ss, err := util.GetAsString(season)
	if err != nil {
		return Season{}, err
	}
	if i := strings.Index(strings.ToUpper(ss), " - J"); i >= 0 {
		ss = ss[:i]
	}
	ss = strings.NewReplacer("-", " ", "_", " ", "/", " ").Replace(ss)
	tokens := strings.Fields(strings.ToLower(ss))
	if len(tokens) != 2 {
		return Season{}, fmt.Errorf("invalid season format: %v", season)
	}

	phase, year := tokens[0], tokens[1]
	if _, err := util.GetAsInteger(phase); err == nil {
		phase, year = year, phase
	}

	ret := Season{}
	switch phase {
	case "apertura", "ap":
		ret.Phase = Apertura
	case "clausura", "cl":
		ret.Phase = Clausura
	default:
		return Season{}, fmt.Errorf("invalid season phase %q in %v", phase, season)
	}
	y, err := util.GetAsInteger(year)
	if err != nil {
		return Season{}, fmt.Errorf("invalid season year in %v: %w", season, err)
	}
	// two digit years are assumed to be this century
	if y < 100 {
		y += 2000
	}
	ret.Year = y
	return ret, nil
}

// NormalizeSeason returns the canonical form of a season label.
// Labels that do not parse are returned trimmed with collapsed whitespace so that
// free-form tournament names still compare consistently.
func NormalizeSeason(season string) string {
	if s, err := ParseSeason(season); err == nil {
		return s.String()
	}
	return strings.Join(strings.Fields(season), " ")
}

/**
* Returns true if the given two labels represent the same tournament
 */
func IsSameSeason(s1, s2 string) bool {
	return NormalizeSeason(s1) == NormalizeSeason(s2)
}

// ParseJornada extracts the matchday number from labels such as "Clausura 2026 - J4".
// Returns 99 when the label carries no matchday so that such rows sort last.
func ParseJornada(label string) int {
	i := strings.LastIndex(strings.ToUpper(label), "J")
	if i < 0 || i == len(label)-1 {
		return 99
	}
	n, err := util.GetAsInteger(label[i+1:])
	if err != nil {
		return 99
	}
	return n
}
