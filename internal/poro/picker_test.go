package poro

import (
	mrand "math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T, raw string) *Registry {
	t.Helper()
	reg, err := ParseRegistry([]byte(raw))
	require.NoError(t, err)
	return reg
}

func TestPickIdRespectsWeights(t *testing.T) {
	reg := testRegistry(t, testCatalog)
	p := NewPicker(reg, mrand.New(mrand.NewSource(1)))

	counts := map[PoroId]int{}
	for i := 0; i < 10_000; i++ {
		counts[p.PickId()]++
	}

	// 60:2 weighting; the common poro should dominate.
	assert.Greater(t, counts[0], 9_000)
	assert.Greater(t, counts[1], 0)
}

func TestPickIdUniformWhenAllWeightsZero(t *testing.T) {
	reg := testRegistry(t, `[
	  {"id":0,"key":"a","name":"A","rarity":"common","weight":0,"baseCatch":0.5,"fixedStats":{}},
	  {"id":1,"key":"b","name":"B","rarity":"common","weight":0,"baseCatch":0.5,"fixedStats":{}}
	]`)
	p := NewPicker(reg, mrand.New(mrand.NewSource(2)))

	counts := map[PoroId]int{}
	for i := 0; i < 2_000; i++ {
		counts[p.PickId()]++
	}
	assert.Greater(t, counts[0], 700)
	assert.Greater(t, counts[1], 700)
}

func TestRollStats(t *testing.T) {
	reg := testRegistry(t, testCatalog)
	p := NewPicker(reg, mrand.New(mrand.NewSource(3)))

	for i := 0; i < 500; i++ {
		s := p.RollStats(0)
		assert.GreaterOrEqual(t, s.Size, 1)
		assert.LessOrEqual(t, s.Size, 10)
		assert.GreaterOrEqual(t, s.Weight, 1)
		assert.LessOrEqual(t, s.Weight, 20)
		assert.GreaterOrEqual(t, s.Hunger, 0)
		assert.LessOrEqual(t, s.Hunger, 5)
	}

	fixed := p.RollStats(1)
	assert.Equal(t, Stats{Size: 7, Weight: 7, ThrowDistance: 7, Fluffiness: 10, Hunger: 0}, fixed)
}
