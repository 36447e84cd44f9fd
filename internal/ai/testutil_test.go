package ai

import (
	"context"
	"io"
	"os/exec"
	"sync"
	"testing"
	"time"
)

// mockExecutor records commands and replays scripted outputs in order.
type mockExecutor struct {
	mu      sync.Mutex
	outputs []mockOutput
	calls   []*exec.Cmd
	stdins  []string
}

type mockOutput struct {
	stdout string
	stderr string
	err    error
}

func (m *mockExecutor) next(cmd *exec.Cmd) mockOutput {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, cmd)
	if cmd.Stdin != nil {
		b, _ := io.ReadAll(cmd.Stdin)
		m.stdins = append(m.stdins, string(b))
	}
	if len(m.outputs) == 0 {
		return mockOutput{}
	}
	out := m.outputs[0]
	if len(m.outputs) > 1 {
		m.outputs = m.outputs[1:]
	}
	return out
}

func (m *mockExecutor) Execute(_ context.Context, cmd *exec.Cmd) ([]byte, []byte, error) {
	out := m.next(cmd)
	return []byte(out.stdout), []byte(out.stderr), out.err
}

func (m *mockExecutor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// noBackoff makes retry loops run without sleeping for the duration of a test.
func noBackoff(t *testing.T) {
	t.Helper()
	orig := timeAfter
	timeAfter = func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
	t.Cleanup(func() { timeAfter = orig })
}
