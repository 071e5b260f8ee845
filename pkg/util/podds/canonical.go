package podds

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Chango93/Predicciones/internal/logger"
)

// legal-entity tokens that carry no identity
var noiseTokens = regexp.MustCompile(`\b(fc|cf|club|deportivo)\b`)

// DefaultAliases are the league's known irregular team names.
// Keys and values are canonicalized by NewCanonicalizer so they may be written loosely.
func DefaultAliases() map[string]string {
	return map[string]string{
		"américa":            "america",
		"club america":       "america",
		"cf america":         "america",
		"pumas unam":         "pumas",
		"pumas de la unam":   "pumas",
		"unam":               "pumas",
		"querétaro fc":       "queretaro",
		"club queretaro":     "queretaro",
		"gallos blancos":     "queretaro",
		"tigres uanl":        "tigres",
		"tigres de la uanl":  "tigres",
		"uanl":               "tigres",
		"cd guadalajara":     "guadalajara",
		"club guadalajara":   "guadalajara",
		"chivas":             "guadalajara",
		"fc juarez":          "juarez",
		"bravos de juarez":   "juarez",
		"atletico san luis":  "atletico de san luis",
		"san luis":           "atletico de san luis",
		"santos":             "santos laguna",
		"mazatlan fc":        "mazatlan",
		"atlas fc":           "atlas",
		"tuzos":              "pachuca",
		"rayados":            "monterrey",
		"cf monterrey":       "monterrey",
		"xolos":              "tijuana",
		"club tijuana":       "tijuana",
		"la franja":          "puebla",
		"diablos rojos":      "toluca",
	}
}

// Canonicalizer maps free-text team names to one stable identifier.
// It is immutable once constructed and safe for concurrent use.
type Canonicalizer struct {
	aliases map[string]string
}

// NewCanonicalizer builds a canonicalizer from the default aliases plus extra ones.
// Extra aliases win over defaults with the same key; an extra alias mapping a name to
// itself removes the default.
func NewCanonicalizer(extra map[string]string) *Canonicalizer {
	aliases := make(map[string]string)
	add := func(src map[string]string) {
		for _, k := range sortedTeams(src) {
			key, value := normalizeName(k), normalizeName(src[k])
			if key == "" {
				continue
			}
			if value == "" || key == value {
				delete(aliases, key)
				continue
			}
			aliases[key] = value
		}
	}
	add(DefaultAliases())
	add(extra)

	// resolve chains so a single lookup always lands on a name that is not itself an alias
	resolved := make(map[string]string, len(aliases))
	for _, k := range sortedTeams(aliases) {
		target, ok := resolveAlias(aliases, k)
		if !ok {
			logger.Warn("Dropping cyclic team alias", k)
			continue
		}
		resolved[k] = target
	}
	return &Canonicalizer{aliases: resolved}
}

func resolveAlias(aliases map[string]string, name string) (string, bool) {
	seen := map[string]bool{name: true}
	current := aliases[name]
	for {
		next, ok := aliases[current]
		if !ok {
			return current, true
		}
		if seen[current] {
			return "", false
		}
		seen[current] = true
		current = next
	}
}

// Canonical returns the canonical identifier for name, "" for an empty name.
// Canonical(Canonical(x)) == Canonical(x) for every input.
func (c *Canonicalizer) Canonical(name string) string {
	n := normalizeName(name)
	if alias, ok := c.aliases[n]; ok {
		return alias
	}
	return n
}

// Aliases returns a copy of the resolved alias table
func (c *Canonicalizer) Aliases() map[string]string {
	ret := make(map[string]string, len(c.aliases))
	for k, v := range c.aliases {
		ret[k] = v
	}
	return ret
}

// normalizeName applies every rule except the alias lookup
func normalizeName(name string) string {
	if name == "" {
		return ""
	}
	name = removeAccents(strings.ToLower(strings.TrimSpace(name)))
	name = strings.ReplaceAll(name, ".", "")
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.Join(strings.Fields(name), " ")
	name = noiseTokens.ReplaceAllString(name, "")
	return strings.Join(strings.Fields(name), " ")
}

// removeAccents strips diacritics: querétaro -> queretaro
func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
