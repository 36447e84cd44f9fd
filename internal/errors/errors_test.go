package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	evoerrors "github.com/mrz1836/evo/internal/errors"
)

type testError struct {
	msg string
}

func (e testError) Error() string {
	return e.msg
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		evoerrors.ErrTaskNotFound,
		evoerrors.ErrBlueprintNotFound,
		evoerrors.ErrTemplateVariableMissing,
		evoerrors.ErrAgentInvocation,
		evoerrors.ErrDiffApplication,
		evoerrors.ErrEvaluator,
		evoerrors.ErrPRCreation,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.NotErrorIs(t, a, b)
		}
	}
}

func TestWrap(t *testing.T) {
	t.Run("preserves chain", func(t *testing.T) {
		err := evoerrors.Wrap(evoerrors.ErrTaskNotFound, "get status")
		require.ErrorIs(t, err, evoerrors.ErrTaskNotFound)
		assert.Equal(t, "get status: task not found", err.Error())
	})

	t.Run("nil stays nil", func(t *testing.T) {
		require.NoError(t, evoerrors.Wrap(nil, "ignored"))
		require.NoError(t, evoerrors.Wrapf(nil, "ignored %d", 1))
	})

	t.Run("formatted", func(t *testing.T) {
		err := evoerrors.Wrapf(evoerrors.ErrBlueprintNotFound, "load %q", "algo")
		require.ErrorIs(t, err, evoerrors.ErrBlueprintNotFound)
		assert.Equal(t, `load "algo": blueprint not found`, err.Error())
	})
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		notFound    bool
		recoverable bool
	}{
		{"task not found", fmt.Errorf("%w: abc", evoerrors.ErrTaskNotFound), true, false},
		{"blueprint not found", evoerrors.ErrBlueprintNotFound, true, false},
		{"diff failure", fmt.Errorf("%w: no match", evoerrors.ErrDiffApplication), false, true},
		{"no diff", evoerrors.ErrNoDiff, false, true},
		{"evaluator", evoerrors.ErrEvaluator, false, true},
		{"template", evoerrors.ErrTemplateVariableMissing, false, false},
		{"agent", evoerrors.ErrAgentInvocation, false, false},
		{"unknown", testError{msg: "boom"}, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.notFound, evoerrors.IsNotFound(tc.err))
			assert.Equal(t, tc.recoverable, evoerrors.IsRecoverable(tc.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	t.Run("wrapped sentinel", func(t *testing.T) {
		err := fmt.Errorf("start: %w", evoerrors.ErrBlueprintNotFound)
		assert.Equal(t, "The requested blueprint is not registered.", evoerrors.UserMessage(err))
	})

	t.Run("unknown error falls back to its text", func(t *testing.T) {
		assert.Equal(t, "boom", evoerrors.UserMessage(testError{msg: "boom"}))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Empty(t, evoerrors.UserMessage(nil))
		msg, action := evoerrors.Actionable(nil)
		assert.Empty(t, msg)
		assert.Empty(t, action)
	})

	t.Run("actionable", func(t *testing.T) {
		msg, action := evoerrors.Actionable(evoerrors.ErrCLINotFound)
		assert.NotEmpty(t, msg)
		assert.Contains(t, action, "Install")
	})
}

func TestExitCode2Error(t *testing.T) {
	inner := fmt.Errorf("%w: yaml", evoerrors.ErrInvalidOutputFormat)
	err := fmt.Errorf("run: %w", evoerrors.NewExitCode2Error(inner))

	assert.True(t, evoerrors.IsExitCode2Error(err))
	require.ErrorIs(t, err, evoerrors.ErrInvalidOutputFormat)
	assert.False(t, evoerrors.IsExitCode2Error(inner))
	assert.False(t, evoerrors.IsExitCode2Error(nil))
}
