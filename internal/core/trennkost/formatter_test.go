package trennkost

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFixDirections(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "dinner", "rice", "chicken"))
	require.Equal(t, VerdictNotOK, result.Verdict)

	directions := GenerateFixDirections(result)
	require.Len(t, directions, 2)

	joined := strings.Join(directions, "\n")
	assert.Contains(t, joined, "Keep carbohydrates (rice)")
	assert.Contains(t, joined, "Keep protein (chicken)")
	assert.Contains(t, joined, "low-starch vegetables")
}

func TestGenerateFixDirectionsSkipsNeutral(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "dinner", "rice", "chicken", "broccoli"))
	directions := GenerateFixDirections(result)

	for _, d := range directions {
		assert.NotContains(t, d, "broccoli")
	}
}

func TestGenerateFixDirectionsOnlyForNotOK(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "smoothie", "banana", "spinach"))
	assert.Empty(t, GenerateFixDirections(result))
}

func TestFormatForExplanationLayer(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "dinner", "rice", "chicken", "broccoli"))
	out := FormatForExplanationLayer([]Result{result}, false)

	assert.Contains(t, out, "-- dinner --")
	assert.Contains(t, out, "Verdict: NOT OK")
	assert.Contains(t, out, "[R001]")
	assert.Contains(t, out, "MUST NOT be changed")
	assert.Contains(t, out, "NO OPEN QUESTIONS")
	assert.Contains(t, out, "Ask NO follow-up questions")
	assert.Contains(t, out, "COMPLIANT ALTERNATIVES")
}

func TestFormatForExplanationLayerWithQuestions(t *testing.T) {
	ont, eng := newTestEngine(t)

	analysis := analysisFromNames(t, ont, "mystery", "rice")
	analysis.Items = append(analysis.Items, FoodItem{RawName: "xylothium", Group: GroupUnknown})
	analysis.UnknownItems = []string{"xylothium"}

	out := FormatForExplanationLayer([]Result{eng.Evaluate(analysis)}, false)

	assert.Contains(t, out, "Open questions")
	assert.Contains(t, out, "xylothium")
	assert.NotContains(t, out, "Ask NO follow-up questions")
}

func TestFormatForExplanationLayerBreakfast(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "breakfast plate", "oats", "butter"))
	out := FormatForExplanationLayer([]Result{result}, true)

	assert.Contains(t, out, "BREAKFAST NOTE")
	assert.Contains(t, out, "FAT-RICH ITEMS IN THIS MEAL")
	assert.Contains(t, out, "butter")
}

func TestBuildReferenceQuery(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "snack", "apple", "rice"))
	query := BuildReferenceQuery([]Result{result}, false)

	assert.Contains(t, query, "food combination rules")
	assert.Contains(t, query, "fruit alone empty stomach")
	assert.Contains(t, query, "carbohydrates grains")
	// R007 的說明提到發酵
	assert.Contains(t, query, "fermentation")
	assert.NotContains(t, query, "breakfast")
}

func TestBuildReferenceQueryBreakfast(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "porridge", "oats"))
	query := BuildReferenceQuery([]Result{result}, true)

	assert.Contains(t, query, "breakfast optimal")
}

func TestVerdictDisplay(t *testing.T) {
	assert.Equal(t, "OK", verdictDisplay(VerdictOK))
	assert.Equal(t, "NOT OK", verdictDisplay(VerdictNotOK))
	assert.Equal(t, "CONDITIONAL", verdictDisplay(VerdictConditional))
	assert.Equal(t, "UNKNOWN", verdictDisplay(VerdictUnknown))
}

func TestFormatSequentialNote(t *testing.T) {
	out := FormatSequentialNote(SequentialEating{
		FirstFoods:  []string{"apple"},
		SecondFoods: []string{"lunch"},
		WaitMinutes: 30,
		HasWait:     true,
	})

	assert.Contains(t, out, "apple")
	assert.Contains(t, out, "30 minutes")
	assert.Contains(t, out, "assessed differently")
}
