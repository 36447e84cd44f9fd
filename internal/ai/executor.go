package ai

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
)

// maxLineSize bounds a single streamed stdout line.
const maxLineSize = 1024 * 1024

// CommandExecutor runs a prepared command. Tests replace it to avoid spawning processes.
type CommandExecutor interface {
	Execute(ctx context.Context, cmd *exec.Cmd) (stdout, stderr []byte, err error)
}

// StreamingCommandExecutor additionally delivers stdout line by line while the
// command runs.
type StreamingCommandExecutor interface {
	CommandExecutor
	ExecuteStreaming(ctx context.Context, cmd *exec.Cmd, onLine ChunkFunc) (stdout, stderr []byte, err error)
}

// DefaultExecutor runs commands as OS processes.
type DefaultExecutor struct{}

var _ StreamingCommandExecutor = (*DefaultExecutor)(nil)

// Execute runs cmd and captures its output.
func (e *DefaultExecutor) Execute(_ context.Context, cmd *exec.Cmd) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// ExecuteStreaming runs cmd, passing each stdout line (newline included) to
// onLine as it arrives, and returns the full captured output.
func (e *DefaultExecutor) ExecuteStreaming(_ context.Context, cmd *exec.Cmd, onLine ChunkFunc) ([]byte, []byte, error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	var (
		stdout  bytes.Buffer
		emitErr error
	)
	scanner := bufio.NewScanner(stdoutPipe)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text() + "\n"
		stdout.WriteString(line)
		if emitErr == nil && onLine != nil {
			emitErr = onLine(line)
		}
	}
	// Drain so the child never blocks on a full pipe after a scan error.
	_, _ = io.Copy(io.Discard, stdoutPipe)

	if err := cmd.Wait(); err != nil {
		return stdout.Bytes(), stderr.Bytes(), err
	}
	return stdout.Bytes(), stderr.Bytes(), emitErr
}
