package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence("  {\"a\":1}  "))
	assert.Equal(t, "", StripCodeFence(""))
}

func TestQuoteJSONKeys(t *testing.T) {
	assert.Equal(t, `{"name": "rice", "group": "STARCH_CARB"}`, QuoteJSONKeys(`{name: "rice", "group": "STARCH_CARB"}`))
	assert.Equal(t, `{"a": [{"b": 1}]}`, QuoteJSONKeys(`{a: [{b: 1}]}`))
}

func TestParseModelJSON(t *testing.T) {
	var out struct {
		Group      string  `json:"group"`
		Confidence float64 `json:"confidence"`
	}

	err := ParseModelJSON("```json\n{group: \"NEUTRAL\", confidence: 0.8}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, "NEUTRAL", out.Group)
	assert.InDelta(t, 0.8, out.Confidence, 1e-9)
}

func TestParseModelJSONUnparsable(t *testing.T) {
	var out map[string]interface{}

	err := ParseModelJSON("Sorry, I cannot answer that.", &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnparsableOutput)

	assert.ErrorIs(t, ParseModelJSON("", &out), ErrUnparsableOutput)
}

func TestParseJSONStrict(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}

	require.NoError(t, ParseJSONStrict(`{"name": "pasta"}`, &out))
	assert.Equal(t, "pasta", out.Name)

	assert.Error(t, ParseJSONStrict(`{"name": "pasta", "extra": true}`, &out))
}

func TestParseJSONRejectsTrailingData(t *testing.T) {
	var out map[string]interface{}
	assert.Error(t, ParseJSON(`{"a": 1} {"b": 2}`, &out))
}

func TestToJSON(t *testing.T) {
	s, err := ToJSON(map[string]int{"count": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"count": 3}`, s)
}

func TestStringSliceToString(t *testing.T) {
	assert.Equal(t, "", StringSliceToString(nil))
	assert.Equal(t, "rice", StringSliceToString([]string{"rice"}))
	assert.Equal(t, "rice, beans", StringSliceToString([]string{"rice", "beans"}))
}

func TestNormalizeSpace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeSpace("  a \t b\n c "))
}
