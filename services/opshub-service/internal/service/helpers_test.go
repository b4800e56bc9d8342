package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/opshub/gomicro/apperror"
)

func requireAppError(t *testing.T, err error, status int, message string) {
	t.Helper()
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected *apperror.Error, got %v", err)
	assert.Equal(t, status, appErr.Status)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}
