package validation

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	StartTime string `json:"start_time" validate:"required"`
	Reason    string `json:"reason,omitempty" validate:"max=3"`
	Internal  string `validate:"required"`
}

func TestMessagesUseJSONNames(t *testing.T) {
	err := New().Struct(sample{Reason: "too long"})
	require.Error(t, err)

	fields, ok := Messages(err)
	require.True(t, ok)
	assert.Equal(t, "start_time is a required field", fields["start_time"])
	assert.Equal(t, "Internal is a required field", fields["Internal"])
	assert.Contains(t, fields["reason"], "reason must be a maximum of 3")
}

func TestMessagesFallBackForUntranslatedValidators(t *testing.T) {
	err := validator.New().Struct(sample{Reason: "ok"})
	require.Error(t, err)

	fields, ok := Messages(err)
	require.True(t, ok)
	assert.Equal(t, "StartTime is required", fields["StartTime"])
}

func TestMessagesIgnoresOtherErrors(t *testing.T) {
	_, ok := Messages(errors.New("unexpected EOF"))
	assert.False(t, ok)
}
