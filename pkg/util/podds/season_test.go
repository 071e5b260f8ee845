package podds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeason(t *testing.T) {
	tests := []struct {
		in   any
		want Season
	}{
		{"Clausura 2026", Season{Clausura, 2026}},
		{"clausura-2026", Season{Clausura, 2026}},
		{"2025 Apertura", Season{Apertura, 2025}},
		{"AP_25", Season{Apertura, 2025}},
		{"Cl/2024", Season{Clausura, 2024}},
		{"Clausura 2026 - J4", Season{Clausura, 2026}},
	}
	for _, tt := range tests {
		got, err := ParseSeason(tt.in)
		require.NoError(t, err, "input %v", tt.in)
		assert.Equal(t, tt.want, got, "input %v", tt.in)
	}

	for _, bad := range []any{nil, "", "2026", "Verano 2026", "Clausura dos mil"} {
		_, err := ParseSeason(bad)
		assert.Error(t, err, "input %v", bad)
	}
}

func TestNormalizeSeason(t *testing.T) {
	assert.Equal(t, "Clausura 2026", NormalizeSeason(" clausura_2026 "))
	assert.Equal(t, "Apertura 2025", NormalizeSeason("Apertura 2025 - J17"))
	assert.Equal(t, "Liga MX Copa", NormalizeSeason("  Liga   MX  Copa "))
	assert.True(t, IsSameSeason("CL 26", "Clausura 2026"))
	assert.False(t, IsSameSeason("Apertura 2026", "Clausura 2026"))
}

func TestSeasonBefore(t *testing.T) {
	cl25 := Season{Clausura, 2025}
	ap25 := Season{Apertura, 2025}
	cl26 := Season{Clausura, 2026}

	assert.True(t, cl25.Before(ap25))
	assert.True(t, ap25.Before(cl26))
	assert.False(t, ap25.Before(cl25))
	assert.False(t, cl25.Before(cl25))
	assert.Equal(t, "Apertura 2025", ap25.String())
}

func TestParseJornada(t *testing.T) {
	assert.Equal(t, 4, ParseJornada("Clausura 2026 - J4"))
	assert.Equal(t, 17, ParseJornada("Apertura 2025 - j17"))
	assert.Equal(t, 99, ParseJornada("Clausura 2026"))
	assert.Equal(t, 99, ParseJornada("Clausura 2026 - J"))
}
