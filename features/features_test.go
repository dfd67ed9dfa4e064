package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"langclass/ml"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("  Mr President, there's a GERMAN proverb -- 42 ")
	assert.Equal(t, []string{"mr", "president", "theres", "a", "german", "proverb"}, got)
}

func TestTokenizeKeepsAccentedLetters(t *testing.T) {
	got := Tokenize("Één café, DAT is ÉÉN")
	assert.Equal(t, []string{"één", "café", "dat", "is", "één"}, got)
}

func TestNamesOrder(t *testing.T) {
	names := Names()
	require.Len(t, names, ml.NumFeatures)
	assert.Equal(t, "has_een", names[0])
	assert.Equal(t, "no_en_be", names[9])
}

func TestExtractEnglish(t *testing.T) {
	v := Extract("Mr President, there is a German proverb that says good things are worth waiting for.")
	want := ml.FeatureVector{false, false, false, false, false, false, false, false, false, false}
	assert.Equal(t, want, v)
}

func TestExtractDutch(t *testing.T) {
	v := Extract("werd het dienstgebouw opgetrokken, dat zich eveneens onder een schilddak bevindt, langs de straatzijde verspringend")
	want := ml.FeatureVector{true, true, false, false, false, true, true, true, true, true}
	assert.Equal(t, want, v)
}

func TestExtractLength(t *testing.T) {
	assert.NoError(t, Extract("").Validate())
	assert.Equal(t, ml.FeatureVector{false, false, false, false, false, false, true, true, true, true}, Extract(""))
}

func TestParseLabeledLine(t *testing.T) {
	ex, err := ParseLabeledLine("NL|Hij woont bij de rivier van het dorp | maar niet hier")
	require.NoError(t, err)
	assert.Equal(t, ml.Dutch, ex.Label)
	assert.Equal(t, ml.FeatureVector{false, true, true, true, true, true, true, true, true, true}, ex.Features)
}

func TestParseLabeledLineErrors(t *testing.T) {
	_, err := ParseLabeledLine("no separator here")
	assert.ErrorIs(t, err, ml.ErrMalformedInput)

	_, err = ParseLabeledLine("fr|bonjour")
	assert.ErrorIs(t, err, ml.ErrMalformedInput)
}
