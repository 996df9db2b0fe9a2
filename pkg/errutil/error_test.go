package errutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsStatusThroughWrapping(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("open: %w", Unavailable("database connection failed", cause))

	require.True(t, IsStatus(err, StatusUnavailable))
	require.False(t, IsStatus(err, StatusInternal))
	require.ErrorIs(t, err, cause)
}

func TestErrorIncludesDetails(t *testing.T) {
	err := ValidationFailed("invalid rules", nil, WithDetails(
		Detail{Field: "CAMPAIGN.START", Message: "required"},
	))

	require.Equal(t, "[validation_failed] invalid rules; CAMPAIGN.START: required", err.Error())
	require.False(t, IsStatus(errors.New("plain"), StatusValidationFailed))
}
