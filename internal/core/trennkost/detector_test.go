package trennkost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	return NewDetector(loadTestOntology(t))
}

func TestIsFoodCombinationQueryKeyword(t *testing.T) {
	d := newTestDetector(t)

	assert.True(t, d.IsFoodCombinationQuery("Can I eat rice together with chicken?"))
	assert.True(t, d.IsFoodCombinationQuery("Is this combination allowed?"))
}

func TestIsFoodCombinationQueryMultipleFoods(t *testing.T) {
	d := newTestDetector(t)

	assert.True(t, d.IsFoodCombinationQuery("rice, chicken, broccoli"))
	assert.True(t, d.IsFoodCombinationQuery("banana with spinach"))
}

func TestIsFoodCombinationQueryCompoundName(t *testing.T) {
	d := newTestDetector(t)
	assert.True(t, d.IsFoodCombinationQuery("spaghetti carbonara"))
}

func TestIsFoodCombinationQueryRecipeRequestExcluded(t *testing.T) {
	d := newTestDetector(t)

	// 推薦類問題即使提到食物也不是分析問題
	assert.False(t, d.IsFoodCombinationQuery("What should I cook today?"))
	assert.False(t, d.IsFoodCombinationQuery("Can you suggest something with rice and chicken?"))
	assert.False(t, d.IsFoodCombinationQuery("Do you have a dish with salmon?"))
}

func TestIsFoodCombinationQueryUnrelatedText(t *testing.T) {
	d := newTestDetector(t)

	assert.False(t, d.IsFoodCombinationQuery("How is the weather today?"))
	assert.False(t, d.IsFoodCombinationQuery("banana"))
}

func TestDetectBreakfastContext(t *testing.T) {
	d := newTestDetector(t)

	assert.True(t, d.DetectBreakfastContext("What can I have for breakfast?"))
	assert.True(t, d.DetectBreakfastContext("porridge with banana"))
	assert.True(t, d.DetectBreakfastContext("overnight oats"))
	assert.False(t, d.DetectBreakfastContext("rice with chicken for dinner"))
}

func TestDetectSequentialEatingWithWait(t *testing.T) {
	d := newTestDetector(t)

	seq := d.DetectSequentialEating("apple 30 minutes before lunch")
	require.NotNil(t, seq)
	assert.True(t, seq.HasWait)
	assert.Equal(t, 30, seq.WaitMinutes)
	assert.Equal(t, []string{"apple"}, seq.FirstFoods)
	assert.Equal(t, []string{"lunch"}, seq.SecondFoods)
}

func TestDetectSequentialEatingFirstThen(t *testing.T) {
	d := newTestDetector(t)

	seq := d.DetectSequentialEating("first banana, then rice")
	require.NotNil(t, seq)
	assert.False(t, seq.HasWait)
	assert.Equal(t, []string{"banana"}, seq.FirstFoods)
	assert.Equal(t, []string{"rice"}, seq.SecondFoods)
}

func TestDetectSequentialEatingNone(t *testing.T) {
	d := newTestDetector(t)

	assert.Nil(t, d.DetectSequentialEating("rice with chicken and broccoli"))
	assert.Nil(t, d.DetectSequentialEating(""))
}
