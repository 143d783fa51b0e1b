package gateways

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExecRunner_Success(t *testing.T) {
	result := NewExecRunner(time.Minute).Run(context.Background(), "echo", "Hello, World!")

	assert.True(t, result.Success, "error: %v", result.Error)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "Hello, World!\n", result.Stdout)
	assert.NoError(t, result.Err())
}

func TestExecRunner_ExitCode(t *testing.T) {
	result := NewExecRunner(time.Minute).Run(context.Background(), "sh", "-c", "echo oops >&2; exit 42")

	assert.False(t, result.Success)
	assert.Equal(t, 42, result.ExitCode)
	assert.ErrorContains(t, result.Err(), "oops")
}

func TestExecRunner_MissingBinary(t *testing.T) {
	result := NewExecRunner(time.Minute).Run(context.Background(), "definitely-not-a-real-tool-xyz")

	assert.False(t, result.Success)
	assert.Equal(t, -1, result.ExitCode)
	assert.Error(t, result.Err())
}

func TestExecRunner_Timeout(t *testing.T) {
	result := NewExecRunner(50*time.Millisecond).Run(context.Background(), "sleep", "5")

	assert.False(t, result.Success)
	assert.Equal(t, -1, result.ExitCode)
	assert.ErrorContains(t, result.Error, "timed out")
}
