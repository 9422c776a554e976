package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cookiegate/pkg/domain-errors"
)

type sample struct {
	Category string `json:"category" validate:"required,oneof=analytics marketing"`
	Version  string `json:"version" validate:"notblank"`
	Nested   nested `json:"nested"`
}

type nested struct {
	Country string `json:"country" validate:"omitempty,len=2"`
}

func TestValidate(t *testing.T) {
	t.Run("valid struct passes", func(t *testing.T) {
		require.NoError(t, Validate(&sample{Category: "analytics", Version: "1.0.0"}))
	})

	t.Run("failures carry json field paths", func(t *testing.T) {
		err := Validate(&sample{Category: "tracking", Version: "  ", Nested: nested{Country: "DEU"}})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		fields := dErrors.FieldsOf(err)
		assert.Equal(t, "category must be one of [analytics marketing]", fields["category"])
		assert.Equal(t, "version must not be blank", fields["version"])
		assert.Equal(t, "country must have length 2", fields["nested.country"])
	})

	t.Run("missing required field", func(t *testing.T) {
		err := Validate(&sample{Version: "1"})
		require.Error(t, err)
		assert.Equal(t, "category is required", err.Error())
	})
}

func TestErrorMessageFallback(t *testing.T) {
	assert.Equal(t, "invalid request body", ErrorMessage(assert.AnError))
	assert.Nil(t, FieldErrors(assert.AnError))
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("eu", "oneof=eu uk"))
	assert.Error(t, Var("mars", "oneof=eu uk"))
}

func TestCheckStringLength(t *testing.T) {
	assert.NoError(t, CheckStringLength("ipHash", "abcd", 4))

	err := CheckStringLength("ipHash", "abcde", 4)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Contains(t, dErrors.FieldsOf(err), "ipHash")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Mozi", Truncate("Mozilla/5.0", 4))
	assert.Equal(t, "short", Truncate("short", 10))
}
