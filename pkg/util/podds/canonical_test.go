package podds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	canon := NewCanonicalizer(nil)
	tests := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"Club América", "america"},
		{"AMERICA", "america"},
		{"  Querétaro F.C. ", "queretaro"},
		{"Pumas UNAM", "pumas"},
		{"Tigres-UANL", "tigres"},
		{"Atlético de San Luis", "atletico de san luis"},
		{"San Luis", "atletico de san luis"},
		{"Chivas", "guadalajara"},
		{"Deportivo Toluca FC", "toluca"},
		{"Santos", "santos laguna"},
		{"Mazatlán FC", "mazatlan"},
		{"León", "leon"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, canon.Canonical(tt.raw), "canonical of %q", tt.raw)
	}
}

func TestCanonicalIsIdempotent(t *testing.T) {
	canon := NewCanonicalizer(map[string]string{"La Máquina": "Cruz Azul"})
	inputs := []string{
		"", "FC", "club", "Club América", "Querétaro F.C.", "ÑÑ -- ..", "La Máquina",
		"  tigres   uanl ", "Atlético San Luis", "x-y.z", "Cruz Azul", "123", "ÀÉÎÕÜ fc club",
	}
	for _, in := range inputs {
		once := canon.Canonical(in)
		assert.Equal(t, once, canon.Canonical(once), "input %q", in)
	}
}

func TestCanonicalizerExtraAliases(t *testing.T) {
	canon := NewCanonicalizer(map[string]string{
		"La Máquina": "Cruz Azul",
		// overrides a default
		"Santos": "Santos FC",
		// chain
		"Los Rayos": "Rayos del Necaxa",
		"Rayos del Necaxa": "Necaxa",
		// cycle, dropped
		"alpha team": "beta team",
		"beta team":  "alpha team",
	})

	assert.Equal(t, "cruz azul", canon.Canonical("la maquina"))
	assert.Equal(t, "santos", canon.Canonical("Santos"))
	assert.Equal(t, "necaxa", canon.Canonical("Los Rayos"))
	assert.Equal(t, "necaxa", canon.Canonical("Rayos del Necaxa"))
	assert.Equal(t, "alpha team", canon.Canonical("Alpha Team"))
	assert.Equal(t, "beta team", canon.Canonical("Beta Team"))
}

func TestCanonicalizerAliasesIsACopy(t *testing.T) {
	canon := NewCanonicalizer(nil)
	aliases := canon.Aliases()
	assert.Equal(t, "pumas", aliases["unam"])

	aliases["unam"] = "somebody else"
	assert.Equal(t, "pumas", canon.Canonical("UNAM"))
}
