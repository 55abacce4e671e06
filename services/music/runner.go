// Package music searches for tracks and resolves direct audio streams through
// the yt-dlp media extractor.
package music

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"heimdall/services/fallback"
)

//go:generate mockgen -source=runner.go -destination=mock_runner_test.go -package=music

// Runner executes the extractor with args and returns its stdout.
type Runner interface {
	Run(ctx context.Context, args []string) ([]byte, error)
}

// DefaultBinary is tried first; the bare name is looked up on PATH.
const DefaultBinary = "/usr/local/bin/yt-dlp"

// ExecRunner runs the yt-dlp binary as a subprocess.
type ExecRunner struct {
	Binary string
}

// NewExecRunner returns a runner for binary, or the default location when empty.
func NewExecRunner(binary string) *ExecRunner {
	return &ExecRunner{Binary: binary}
}

func (r *ExecRunner) resolve() (string, error) {
	candidates := []string{DefaultBinary, "yt-dlp"}
	if r.Binary != "" {
		candidates = []string{r.Binary}
	}
	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		}
	}
	return "", fallback.ConfigErrorf("yt-dlp not found in system")
}

// Run implements Runner. A non-zero exit with output on stdout is returned
// with both values so callers can still use partial results.
func (r *ExecRunner) Run(ctx context.Context, args []string) ([]byte, error) {
	path, err := r.resolve()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), fmt.Errorf("yt-dlp exited with %d: %s", exitErr.ExitCode(), lastLine(stderr.String()))
		}
		return nil, fmt.Errorf("run yt-dlp: %w", err)
	}
	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
