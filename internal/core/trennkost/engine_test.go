package trennkost

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Ontology, *Engine) {
	t.Helper()
	ont := loadTestOntology(t)
	eng, err := NewEngine(ont, "")
	require.NoError(t, err)
	return ont, eng
}

func analysisFromNames(t *testing.T, ont *Ontology, dishName string, names ...string) DishAnalysis {
	t.Helper()
	analysis := DishAnalysis{DishName: dishName, HasExplicitItems: true}
	for _, name := range names {
		fi := ont.LookupToFoodItem(name, StatusConfirmed, "")
		require.NotEqual(t, GroupUnknown, fi.Group, "test item %q must resolve", name)
		analysis.Items = append(analysis.Items, fi)
	}
	return analysis
}

func problemIDs(result Result) []string {
	ids := make([]string, 0, len(result.Problems))
	for _, p := range result.Problems {
		ids = append(ids, p.RuleID)
	}
	return ids
}

func TestEvaluateStarchWithAnimalProtein(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "dinner plate", "rice", "chicken", "broccoli"))

	assert.Equal(t, VerdictNotOK, result.Verdict)
	assert.Contains(t, problemIDs(result), "R001")
	assert.Empty(t, result.RequiredQuestions)
	assert.Contains(t, result.Summary, "NOT OK")
	assert.Len(t, result.GroupsFound, 3)
}

func TestEvaluateOnlyNeutralItems(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "salad", "lettuce", "cucumber", "broccoli"))

	assert.Equal(t, VerdictOK, result.Verdict)
	assert.Empty(t, result.Problems)
	assert.Empty(t, result.RequiredQuestions)
}

func TestEvaluateTwoStarchSources(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "carb plate", "rice", "pasta"))

	assert.Equal(t, VerdictOK, result.Verdict)
	assert.Empty(t, result.Problems)
	assert.NotEmpty(t, result.OKCombinations)
}

func TestEvaluateGreenSmoothieException(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "green smoothie", "banana", "spinach"))

	assert.Equal(t, VerdictOK, result.Verdict)
	assert.Empty(t, result.Problems)
	assert.NotEmpty(t, result.OKCombinations)
}

func TestEvaluateFruitWithOtherVegetable(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "snack", "apple", "bell pepper"))

	assert.Equal(t, VerdictConditional, result.Verdict)
	require.Len(t, result.Problems, 1)
	assert.Equal(t, "R013", result.Problems[0].RuleID)
	assert.Equal(t, SeverityWarning, result.Problems[0].Severity)
}

func TestEvaluateFruitWithMixedNeutral(t *testing.T) {
	ont, eng := newTestEngine(t)

	// 葉菜加上非葉菜，綠拿鐵例外不適用
	result := eng.Evaluate(analysisFromNames(t, ont, "bowl", "banana", "spinach", "carrot"))

	assert.Equal(t, VerdictConditional, result.Verdict)
	assert.Contains(t, problemIDs(result), "R013")
}

func TestEvaluateProteinWithDairy(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "breakfast", "egg", "cheese"))

	assert.Equal(t, VerdictNotOK, result.Verdict)
	assert.Contains(t, problemIDs(result), "R006")
}

func TestEvaluateMixedProteinSources(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "surf and turf", "salmon", "beef"))

	assert.Equal(t, VerdictNotOK, result.Verdict)
	require.Contains(t, problemIDs(result), "R018")
	for _, p := range result.Problems {
		if p.RuleID == "R018" {
			assert.Equal(t, SeverityCritical, p.Severity)
			assert.Len(t, p.AffectedItems, 2)
		}
	}
}

func TestEvaluateSingleProteinSourceNoMixingRule(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "plate", "chicken", "turkey"))
	assert.NotContains(t, problemIDs(result), "R018")
}

func TestEvaluateRefinedSugarAdvisory(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "sweet rice", "rice", "sugar"))

	require.Contains(t, problemIDs(result), "H001")
	for _, p := range result.Problems {
		if p.RuleID == "H001" {
			assert.Equal(t, SeverityInfo, p.Severity)
		}
	}
	// 純資訊性提示不改變判定
	assert.Equal(t, VerdictOK, result.Verdict)
}

func TestEvaluateDriedFruitWithStarch(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "date rice", "dates", "rice"))

	assert.Equal(t, VerdictOK, result.Verdict)
	assert.Empty(t, result.Problems)
	// R011 與 R019 都是 OK 備註
	assert.Len(t, result.OKCombinations, 2)
}

func TestEvaluateUnknownItems(t *testing.T) {
	ont, eng := newTestEngine(t)

	analysis := analysisFromNames(t, ont, "mystery", "rice")
	analysis.Items = append(analysis.Items, FoodItem{RawName: "xylothium", Group: GroupUnknown})
	analysis.UnknownItems = []string{"xylothium"}

	result := eng.Evaluate(analysis)

	assert.Equal(t, VerdictConditional, result.Verdict)
	assert.Contains(t, problemIDs(result), "R016")
	require.NotEmpty(t, result.RequiredQuestions)
	assert.Contains(t, result.RequiredQuestions[0].Question, "xylothium")
}

func TestEvaluateFatQuantityQuestion(t *testing.T) {
	ont, eng := newTestEngine(t)

	// 油脂與其他濃縮群組共存才需要問份量
	result := eng.Evaluate(analysisFromNames(t, ont, "fried rice", "rice", "olive oil"))
	require.Len(t, result.RequiredQuestions, 1)
	assert.Contains(t, result.RequiredQuestions[0].Question, "How much fat")
	assert.Equal(t, VerdictConditional, result.Verdict)

	// 油脂配沙拉不用問
	result = eng.Evaluate(analysisFromNames(t, ont, "salad", "lettuce", "olive oil"))
	assert.Empty(t, result.RequiredQuestions)
	assert.Equal(t, VerdictOK, result.Verdict)
}

func TestEvaluateAmbiguousItemQuestion(t *testing.T) {
	ont, eng := newTestEngine(t)

	result := eng.Evaluate(analysisFromNames(t, ont, "beans dish", "beans", "broccoli"))

	assert.Equal(t, VerdictConditional, result.Verdict)
	require.NotEmpty(t, result.RequiredQuestions)
	assert.Contains(t, result.RequiredQuestions[0].Question, "ambiguous")
}

func TestEvaluateCompoundClarification(t *testing.T) {
	ont, eng := newTestEngine(t)

	analysis := analysisFromNames(t, ont, "burger", "burger bun", "lettuce")
	analysis.HasExplicitItems = false
	result := eng.Evaluate(analysis)
	require.NotEmpty(t, result.RequiredQuestions)
	assert.Contains(t, result.RequiredQuestions[0].Question, "patty")

	// 使用者已明確列出食材時不再追問
	analysis.HasExplicitItems = true
	result = eng.Evaluate(analysis)
	assert.Empty(t, result.RequiredQuestions)
}

func TestEvaluatePairClaimedOnce(t *testing.T) {
	ont, eng := newTestEngine(t)

	// 綠拿鐵例外認領配對後，一般的水果加蔬菜規則不再觸發
	result := eng.Evaluate(analysisFromNames(t, ont, "smoothie", "banana", "spinach", "kale"))
	assert.NotContains(t, problemIDs(result), "R013")
	assert.Equal(t, VerdictOK, result.Verdict)
}

func TestEvaluateDeterministic(t *testing.T) {
	ont, eng := newTestEngine(t)

	analysis := analysisFromNames(t, ont, "plate", "rice", "chicken", "broccoli", "olive oil")
	first := eng.Evaluate(analysis)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, eng.Evaluate(analysis))
	}
}

func TestNewEngineRejectsBadPriority(t *testing.T) {
	ont := loadTestOntology(t)

	dir := t.TempDir()
	path := dir + "/rules.yaml"
	rules := `rules:
  - rule_id: R001
    description: test
    condition:
      pair: [STARCH_CARB, ANIMAL_PROTEIN]
    verdict: NOT_OK
    severity: CRITICAL
    source_ref: x
    explanation: y
rule_priority: [R001, R999]
`
	require.NoError(t, os.WriteFile(path, []byte(rules), 0644))

	_, err := NewEngine(ont, path)
	assert.Error(t, err)
}
