package trennkost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T) *HeuristicParser {
	t.Helper()
	return NewHeuristicParser(loadTestOntology(t))
}

func TestParseIngredientList(t *testing.T) {
	p := newTestParser(t)

	dishes := p.Parse("rice, chicken and broccoli")

	require.Len(t, dishes, 1)
	assert.Equal(t, "rice + chicken + broccoli", dishes[0].Name)
	assert.Equal(t, []string{"rice", "chicken", "broccoli"}, dishes[0].Items)
}

func TestParseCompoundName(t *testing.T) {
	p := newTestParser(t)

	dishes := p.Parse("spaghetti carbonara")

	require.Len(t, dishes, 1)
	assert.Equal(t, "spaghetti carbonara", dishes[0].Name)
	assert.Nil(t, dishes[0].Items)
}

func TestParseQuestionWithCompoundAndExplicitItems(t *testing.T) {
	p := newTestParser(t)

	dishes := p.Parse("Is a burger with tempeh, lettuce and cucumber okay?")

	require.Len(t, dishes, 1)
	assert.Equal(t, "burger", dishes[0].Name)
	assert.ElementsMatch(t, []string{"tempeh", "lettuce", "cucumber"}, dishes[0].Items)
}

func TestParseQuestionWithItems(t *testing.T) {
	p := newTestParser(t)

	dishes := p.Parse("Is grilled chicken with rice ok?")

	require.Len(t, dishes, 1)
	assert.ElementsMatch(t, []string{"chicken", "rice"}, dishes[0].Items)
}

func TestParsePastedRecipe(t *testing.T) {
	p := newTestParser(t)

	text := "Is this breakfast ok?\n" +
		"Oats: 60g\n" +
		"Banana: ½ piece\n" +
		"Almond butter: 1 tsp\n" +
		"Preparation: soak the oats overnight\n"

	dishes := p.Parse(text)

	require.Len(t, dishes, 1)
	assert.NotEmpty(t, dishes[0].Name)
	assert.Equal(t, []string{"Oats", "Banana", "Almond butter"}, dishes[0].Items)
}

func TestParseCompoundWithTrailingItems(t *testing.T) {
	p := newTestParser(t)

	dishes := p.Parse("burger with tempeh and lettuce")

	require.Len(t, dishes, 1)
	assert.Equal(t, "burger", dishes[0].Name)
	assert.Equal(t, []string{"tempeh", "lettuce"}, dishes[0].Items)
}

func TestParseNumberedDishes(t *testing.T) {
	p := newTestParser(t)

	dishes := p.Parse("1. spaghetti carbonara 2. green smoothie")

	require.Len(t, dishes, 2)
	assert.Equal(t, "spaghetti carbonara", dishes[0].Name)
	assert.Equal(t, "green smoothie", dishes[1].Name)
}

func TestParseSingleItem(t *testing.T) {
	p := newTestParser(t)

	dishes := p.Parse("porridge")

	require.Len(t, dishes, 1)
	assert.Equal(t, "porridge", dishes[0].Name)
	assert.Nil(t, dishes[0].Items)
}

func TestParseStripsAdjectives(t *testing.T) {
	p := newTestParser(t)

	dishes := p.Parse("fresh, banana and spinach")

	require.Len(t, dishes, 1)
	assert.Equal(t, []string{"banana", "spinach"}, dishes[0].Items)
}

func TestInferDishName(t *testing.T) {
	assert.Equal(t, "a + b", inferDishName([]string{"a", "b"}))
	assert.Equal(t, "a + b + 2 more", inferDishName([]string{"a", "b", "c", "d"}))
}
