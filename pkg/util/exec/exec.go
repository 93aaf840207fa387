package exec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	osexec "os/exec"
	"strings"

	"github.com/pkg/errors"
)

// MissingBinaryError reports an external tool that cannot be found in $PATH.
type MissingBinaryError struct {
	Binary string
}

func (e *MissingBinaryError) Error() string {
	return fmt.Sprintf("required executable %q not found in $PATH", e.Binary)
}

// ToolError reports an external tool that exited unsuccessfully.
type ToolError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%q exited with code %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

var lookPath = osexec.LookPath

// RequireBinaries checks that every binary is resolvable before a phase starts.
func RequireBinaries(binaries ...string) error {
	for _, b := range binaries {
		p, err := lookPath(b)
		if err != nil {
			return errors.WithStack(&MissingBinaryError{Binary: b})
		}
		slog.Debug("Found executable", "name", b, "path", p)
	}
	return nil
}

// Runner runs one external command to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// CommandRunner runs commands through os/exec. Stdout is discarded unless set. Stderr is captured
// for the error message and copied to Stderr when set.
type CommandRunner struct {
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

func (r CommandRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := osexec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Stdout = r.Stdout

	var stderr bytes.Buffer
	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, r.Stderr)
	} else {
		cmd.Stderr = &stderr
	}

	slog.Debug("Run", "command", cmd.String())
	if err := cmd.Run(); err != nil {
		te := &ToolError{
			Args:     append([]string{name}, args...),
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var ee *osexec.ExitError
		if errors.As(err, &ee) {
			te.ExitCode = ee.ExitCode()
		}
		return errors.WithStack(te)
	}
	return nil
}
