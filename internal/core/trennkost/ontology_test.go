package trennkost

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestOntology(t *testing.T) *Ontology {
	t.Helper()
	ont, err := LoadOntology("", "", "")
	require.NoError(t, err)
	return ont
}

func TestLoadOntologyDefaults(t *testing.T) {
	ont := loadTestOntology(t)
	assert.NotEmpty(t, ont.Entries())
	assert.NotEmpty(t, ont.Compounds())
}

func TestLookupExact(t *testing.T) {
	ont := loadTestOntology(t)

	entry := ont.Lookup("rice")
	require.NotNil(t, entry)
	assert.Equal(t, "rice", entry.Canonical)
	assert.Equal(t, GroupStarchCarb, entry.Group)
	assert.Equal(t, SubGrain, entry.Subgroup)
}

func TestLookupCaseInsensitive(t *testing.T) {
	ont := loadTestOntology(t)

	entry := ont.Lookup("Broccoli")
	require.NotNil(t, entry)
	assert.Equal(t, "broccoli", entry.Canonical)
	assert.Equal(t, GroupNeutral, entry.Group)
}

func TestLookupSynonym(t *testing.T) {
	ont := loadTestOntology(t)

	entry := ont.Lookup("spaghetti")
	require.NotNil(t, entry)
	assert.Equal(t, "pasta", entry.Canonical)

	entry = ont.Lookup("parmesan")
	require.NotNil(t, entry)
	assert.Equal(t, "cheese", entry.Canonical)
	assert.Equal(t, GroupDairy, entry.Group)
}

func TestLookupSubstringWithModifier(t *testing.T) {
	ont := loadTestOntology(t)

	entry := ont.Lookup("grilled chicken")
	require.NotNil(t, entry)
	assert.Equal(t, "chicken", entry.Canonical)
	assert.Equal(t, SubMeat, entry.Subgroup)
}

func TestLookupReverseSubstring(t *testing.T) {
	ont := loadTestOntology(t)

	// 原始名稱是較長同義詞的一部分
	entry := ont.Lookup("basmati")
	require.NotNil(t, entry)
	assert.Equal(t, "rice", entry.Canonical)
}

func TestLookupExactBeatsSubstring(t *testing.T) {
	ont := loadTestOntology(t)

	// "green beans" 是精確同義詞條目，不能被 "beans" 的子字串比對搶走
	entry := ont.Lookup("green beans")
	require.NotNil(t, entry)
	assert.Equal(t, GroupNeutral, entry.Group)

	entry = ont.Lookup("beans")
	require.NotNil(t, entry)
	assert.Equal(t, GroupLegume, entry.Group)
	assert.True(t, entry.AmbiguityFlag)
}

func TestLookupUnknown(t *testing.T) {
	ont := loadTestOntology(t)
	assert.Nil(t, ont.Lookup("xylothium"))
	assert.Nil(t, ont.Lookup(""))
}

func TestLookupToFoodItem(t *testing.T) {
	ont := loadTestOntology(t)

	fi := ont.LookupToFoodItem("Rice", StatusConfirmed, "")
	assert.Equal(t, "rice", fi.Canonical)
	assert.Equal(t, GroupStarchCarb, fi.Group)
	assert.Equal(t, 1.0, fi.Confidence)

	// 多義條目信心降級
	fi = ont.LookupToFoodItem("milk", StatusConfirmed, "")
	assert.Equal(t, GroupDairy, fi.Group)
	assert.Equal(t, 0.7, fi.Confidence)

	// 未知條目保持 UNKNOWN、信心 0
	fi = ont.LookupToFoodItem("xylothium", StatusConfirmed, "")
	assert.Equal(t, GroupUnknown, fi.Group)
	assert.Empty(t, fi.Canonical)
	assert.Zero(t, fi.Confidence)
}

func TestUnknownSideLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "unknown.log")
	ont, err := LoadOntology("", "", logPath)
	require.NoError(t, err)

	ont.LookupToFoodItem("xylothium", StatusConfirmed, "")
	ont.LookupToFoodItem("blorvak", StatusConfirmed, "")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "xylothium\n")
	assert.Contains(t, string(data), "blorvak\n")
}

func TestGetCompound(t *testing.T) {
	ont := loadTestOntology(t)

	comp := ont.GetCompound("burger")
	require.NotNil(t, comp)
	assert.Contains(t, comp.BaseItems, "burger bun")
	assert.Contains(t, comp.OptionalItems, "cheese")
	assert.NotEmpty(t, comp.Clarification)

	// 大小寫不敏感
	assert.NotNil(t, ont.GetCompound("Burger"))
	assert.Nil(t, ont.GetCompound("lasagna al forno"))
}

func TestAmbiguousEntries(t *testing.T) {
	ont := loadTestOntology(t)

	items := []FoodItem{
		ont.LookupToFoodItem("beans", StatusConfirmed, ""),
		ont.LookupToFoodItem("rice", StatusConfirmed, ""),
	}
	ambiguous := ont.AmbiguousEntries(items)
	require.Len(t, ambiguous, 1)
	assert.Equal(t, "beans", ambiguous[0].Item.RawName)
	assert.NotEmpty(t, ambiguous[0].Note)
}

func TestLoadOntologyRejectsBadData(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "ontology.csv")
	csv := "canonical,synonyms,group,subgroup,ambiguity_flag,ambiguity_note,notes\n" +
		"weird item,,NO_SUCH_GROUP,,false,,\n"
	require.NoError(t, os.WriteFile(bad, []byte(csv), 0644))

	_, err := LoadOntology(bad, "", "")
	assert.Error(t, err)
}

func TestLoadCompoundsRejectsUnknownItem(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "compounds.yaml")
	yaml := "compounds:\n  - name: mystery plate\n    base_items: [xylothium]\n"
	require.NoError(t, os.WriteFile(bad, []byte(yaml), 0644))

	_, err := LoadOntology("", bad, "")
	assert.Error(t, err)
}
