package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_DefaultsOnEmptyInput(t *testing.T) {
	params, err := Parse("", "")

	assert.NoError(t, err)
	assert.Equal(t, DefaultLimit, params.Limit)
	assert.Equal(t, 0, params.Offset)
}

func TestParse_PassesThroughValidValues(t *testing.T) {
	params, err := Parse("25", "100")

	assert.NoError(t, err)
	assert.Equal(t, 25, params.Limit)
	assert.Equal(t, 100, params.Offset)
}

func TestParse_CapsOversizedLimit(t *testing.T) {
	params, err := Parse("500", "")

	assert.NoError(t, err)
	assert.Equal(t, MaxLimit, params.Limit)
}

func TestParse_RaisesUndersizedLimit(t *testing.T) {
	for _, limitStr := range []string{"0", "-3"} {
		params, err := Parse(limitStr, "")

		assert.NoError(t, err)
		assert.Equal(t, MinLimit, params.Limit)
	}
}

func TestParse_RejectsNonNumericLimit(t *testing.T) {
	params, err := Parse("fifty", "")

	assert.Error(t, err)
	assert.Nil(t, params)
}

func TestParse_RejectsNonNumericOffset(t *testing.T) {
	params, err := Parse("", "later")

	assert.Error(t, err)
	assert.Nil(t, params)
}

func TestParse_NegativeOffsetBecomesZero(t *testing.T) {
	params, err := Parse("", "-10")

	assert.NoError(t, err)
	assert.Equal(t, 0, params.Offset)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, DefaultLimit, Clamp(0))
	assert.Equal(t, DefaultLimit, Clamp(-1))
	assert.Equal(t, MaxLimit, Clamp(500))
	assert.Equal(t, 25, Clamp(25))
}
