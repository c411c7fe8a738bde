package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title           string  `json:"title"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

func TestExtractObject_Plain(t *testing.T) {
	var out sample
	err := ExtractObject(`{"title":"Sonata","confidenceScore":92}`, &out)
	require.NoError(t, err)
	assert.Equal(t, "Sonata", out.Title)
	assert.Equal(t, 92.0, out.ConfidenceScore)
}

func TestExtractObject_FencedWithPreamble(t *testing.T) {
	raw := "Here is the metadata:\n```json\n{\"title\": \"Sonata\", \"confidenceScore\": 97}\n```\nLet me know if you need anything else."
	var out sample
	require.NoError(t, ExtractObject(raw, &out))
	assert.Equal(t, "Sonata", out.Title)
}

func TestExtractObject_TrailingComma(t *testing.T) {
	var out sample
	require.NoError(t, ExtractObject(`{"title":"Sonata","confidenceScore":92,}`, &out))
	assert.Equal(t, "Sonata", out.Title)
}

func TestExtractObject_NestedBraces(t *testing.T) {
	raw := `prefix text { "title": "Trio", "confidenceScore": 80, "nested": {"a": 1} } suffix`
	var out sample
	require.NoError(t, ExtractObject(raw, &out))
	assert.Equal(t, "Trio", out.Title)
}

func TestExtractObject_NoObject(t *testing.T) {
	var out sample
	err := ExtractObject("no json here at all", &out)
	assert.ErrorIs(t, err, ErrNoObject)
}

func TestExtractObject_UnrepairableGarbage(t *testing.T) {
	var out sample
	err := ExtractObject(`{"title": "Sonata, "confidenceScore": }`, &out)
	assert.Error(t, err)
}

func TestNormalizeConfidence(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.9, 90},
		{90, 90},
		{0, 0},
		{1, 1},
		{0.5, 50},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeConfidence(c.in))
	}
}
