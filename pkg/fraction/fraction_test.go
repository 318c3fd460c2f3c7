package fraction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-engine/pkg/fraction"
)

func TestMake(t *testing.T) {
	t.Run("valid fraction", func(t *testing.T) {
		f, err := fraction.Make(3, 4)
		require.NoError(t, err)
		assert.Equal(t, "3/4", f.String())
	})

	t.Run("zero denominator", func(t *testing.T) {
		_, err := fraction.Make(1, 0)
		require.Error(t, err)
	})

	t.Run("numerator exceeds denominator", func(t *testing.T) {
		_, err := fraction.Make(5, 4)
		require.Error(t, err)
	})

	t.Run("negative values", func(t *testing.T) {
		_, err := fraction.Make(-1, 4)
		require.Error(t, err)
	})

	t.Run("boundary values are valid", func(t *testing.T) {
		zero, err := fraction.Make(0, 1)
		require.NoError(t, err)
		assert.True(t, zero.Valid())

		one, err := fraction.Make(1, 1)
		require.NoError(t, err)
		assert.True(t, one.Valid())
	})
}

func TestComparisons(t *testing.T) {
	threeQuarters, _ := fraction.Make(3, 4)
	nineTenths, _ := fraction.Make(9, 10)
	sameAsThreeQuarters, _ := fraction.Make(6, 8)

	assert.True(t, fraction.LT(threeQuarters, nineTenths))
	assert.True(t, fraction.GT(nineTenths, threeQuarters))
	assert.True(t, fraction.GE(nineTenths, threeQuarters))
	assert.True(t, fraction.LE(threeQuarters, nineTenths))
	assert.True(t, fraction.Equal(threeQuarters, sameAsThreeQuarters))
	assert.False(t, fraction.Equal(threeQuarters, nineTenths))
}

func TestMultiply(t *testing.T) {
	nineTenths, _ := fraction.Make(9, 10)
	result := fraction.Multiply(nineTenths, nineTenths)
	expected, _ := fraction.Make(81, 100)
	assert.True(t, fraction.Equal(result, expected))
	assert.True(t, result.Valid())
}

func TestMultiplyChainMatchesScenarioS2(t *testing.T) {
	p, _ := fraction.Make(9, 10)
	acc := p
	acc = fraction.Multiply(acc, p) // 81/100
	acc = fraction.Multiply(acc, p) // 729/1000

	threeQuarters, _ := fraction.Make(3, 4)
	assert.True(t, fraction.LT(acc, threeQuarters), "729/1000 should be below 3/4")
}

func TestMinCombine(t *testing.T) {
	high, _ := fraction.Make(99, 100)
	low, _ := fraction.Make(80, 100)

	combined := fraction.MinCombine(high, low)
	assert.True(t, fraction.Equal(combined, low))

	// MinCombine is commutative in the value it picks.
	combinedReversed := fraction.MinCombine(low, high)
	assert.True(t, fraction.Equal(combinedReversed, low))
}
