package offline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Buchhalter", "accountant"},
		{"compound wins over part", "Softwareentwickler (m/w/d)", "software developer (m/w/d)"},
		{"multiple morphemes", "Projektleiter Vertrieb", "project manager sales"},
		{"english passthrough", "Senior Backend Engineer", "senior Backend Engineer"},
		{"case insensitive", "TEILZEIT Koch", "part-time cook"},
		{"no partial-word hits", "Untermalerei", "Untermalerei"},
		{"umlaut morpheme", "Mitarbeiter Außendienst", "employee field sales"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TranslateTitle(tt.in))
		})
	}
}

func TestTranslateTitlesPreservesLengthAndOrder(t *testing.T) {
	in := []string{"Koch", "Fahrer", "Office Manager"}
	out := TranslateTitles(in)
	require.Len(t, out, len(in))
	assert.Equal(t, "cook", out[0])
	assert.Equal(t, "driver", out[1])
	assert.Equal(t, "Office Manager", out[2])
}

func TestValidTranslation(t *testing.T) {
	in := []string{"Koch", "Fahrer"}

	assert.NoError(t, ValidTranslation(in, []string{"cook", "driver"}))
	assert.Error(t, ValidTranslation(in, []string{"cook"}), "count mismatch")
	assert.Error(t, ValidTranslation(in, []string{"cook", "  "}), "empty entry")
	assert.Error(t, ValidTranslation(in, []string{"cook", "…"}), "ellipsis placeholder")
	assert.Error(t, ValidTranslation(in, []string{"cook", "dri\x00ver"}), "non-printable")
	assert.Error(t, ValidTranslation(in, []string{"cook", `{"error":"rate limited"}`}), "error object")
}
