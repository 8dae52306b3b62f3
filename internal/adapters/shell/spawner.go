// Package shell provides the process spawner adapter.
package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.trai.ch/sw/internal/core/domain"
	"go.trai.ch/sw/internal/core/ports"
	"go.trai.ch/zerr"
)

// killGrace is how long a timed-out child gets between SIGTERM and SIGKILL.
const killGrace = 10 * time.Second

var _ ports.Spawner = (*Spawner)(nil)

// Spawner implements ports.Spawner using os/exec, with one implementation
// per command kind.
type Spawner struct {
	logger ports.Logger

	dispatch map[domain.Kind]func(context.Context, *domain.Command, time.Duration) (ports.SpawnReport, error)
}

// NewSpawner creates a new Spawner.
func NewSpawner(logger ports.Logger) *Spawner {
	s := &Spawner{logger: logger}
	s.dispatch = map[domain.Kind]func(context.Context, *domain.Command, time.Duration) (ports.SpawnReport, error){
		domain.KindProcess:  s.runProcess,
		domain.KindCapture:  s.runCapture,
		domain.KindCopyFile: s.runCopyFile,
	}
	return s
}

// Spawn executes the command according to its kind.
func (s *Spawner) Spawn(ctx context.Context, cmd *domain.Command, deadline time.Duration) (ports.SpawnReport, error) {
	if err := removeStaleOutputs(cmd); err != nil {
		return ports.SpawnReport{}, err
	}
	return s.dispatch[cmd.Kind](ctx, cmd, deadline)
}

func (s *Spawner) runProcess(ctx context.Context, cmd *domain.Command, deadline time.Duration) (ports.SpawnReport, error) {
	return s.run(ctx, cmd, deadline, nil)
}

// runCapture spawns the program with stdout wired to the first output.
func (s *Spawner) runCapture(ctx context.Context, cmd *domain.Command, deadline time.Duration) (ports.SpawnReport, error) {
	out, err := createRedirect(cmd.Outputs[0])
	if err != nil {
		return ports.SpawnReport{}, err
	}
	defer out.Close() //nolint:errcheck // Best effort close in defer
	return s.run(ctx, cmd, deadline, out)
}

// runCopyFile copies the first input to the first output without spawning.
func (s *Spawner) runCopyFile(_ context.Context, cmd *domain.Command, _ time.Duration) (ports.SpawnReport, error) {
	report := ports.SpawnReport{Start: time.Now()}

	src, err := os.Open(cmd.Inputs[0]) //nolint:gosec // Declared command input
	if err != nil {
		return report, zerr.With(zerr.Wrap(err, domain.ErrSpawnFailed.Error()), "path", cmd.Inputs[0])
	}
	defer src.Close() //nolint:errcheck // Best effort close in defer

	dst, err := createRedirect(cmd.Outputs[0])
	if err != nil {
		return report, err
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return report, zerr.With(zerr.Wrap(err, "copy failed"), "path", cmd.Outputs[0])
	}
	if err := dst.Close(); err != nil {
		return report, zerr.With(zerr.Wrap(err, "copy failed"), "path", cmd.Outputs[0])
	}

	report.End = time.Now()
	return report, nil
}

func (s *Spawner) run(ctx context.Context, cmd *domain.Command, deadline time.Duration, stdout io.Writer) (ports.SpawnReport, error) {
	var report ports.SpawnReport

	if deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	//nolint:gosec // Program and args come from the prepared command
	proc := exec.CommandContext(ctx, cmd.Program, cmd.FinalArgs()...)
	proc.Dir = cmd.Cwd
	proc.Env = mergeEnvironment(os.Environ(), cmd.Env)

	// Escalating termination: SIGTERM on deadline, SIGKILL after the grace
	// period via WaitDelay.
	proc.Cancel = func() error {
		return proc.Process.Signal(syscall.SIGTERM)
	}
	proc.WaitDelay = killGrace

	stderrTail := newTailBuffer()
	opened, err := s.wireStdio(proc, cmd, stdout, stderrTail)
	if err != nil {
		closeAll(opened)
		return report, err
	}
	defer closeAll(opened)

	report.Start = time.Now()
	if err := proc.Start(); err != nil {
		return report, zerr.With(zerr.Wrap(domain.ErrSpawnFailed, err.Error()), "program", cmd.Program)
	}
	report.Pid = proc.Process.Pid

	err = proc.Wait()
	report.End = time.Now()
	report.StderrTail = stderrTail.String()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			report.ExitCode = exitErr.ExitCode()
		} else {
			report.ExitCode = -1
		}

		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return report, zerr.With(zerr.With(zerr.Wrap(domain.ErrTimeout, err.Error()), "program", cmd.Program), "deadline", deadline.String())
		}

		failErr := zerr.With(zerr.Wrap(domain.ErrNonZeroExit, err.Error()), "program", cmd.Program)
		return report, zerr.With(failErr, "exit_code", report.ExitCode)
	}

	return report, nil
}

// wireStdio applies the declared redirections; stdout and stderr not
// redirected to files stream through the logger, line by line, except the
// stdout of a silent command, which is discarded. The caller closes the
// returned files once the child has exited.
func (s *Spawner) wireStdio(proc *exec.Cmd, cmd *domain.Command, stdout io.Writer, stderrTail *tailBuffer) ([]io.Closer, error) {
	var opened []io.Closer

	if cmd.StdinRedirect != "" {
		in, err := os.Open(cmd.StdinRedirect) //nolint:gosec // Declared redirection
		if err != nil {
			return opened, zerr.With(zerr.Wrap(err, "failed to open stdin redirect"), "path", cmd.StdinRedirect)
		}
		opened = append(opened, in)
		proc.Stdin = in
	}

	switch {
	case stdout != nil:
		proc.Stdout = stdout
	case cmd.StdoutRedirect != "":
		out, err := createRedirect(cmd.StdoutRedirect)
		if err != nil {
			return opened, err
		}
		opened = append(opened, out)
		proc.Stdout = out
	case cmd.Silent:
		proc.Stdout = io.Discard
	default:
		proc.Stdout = &logWriter{logger: s.logger, level: "info"}
	}

	if cmd.StderrRedirect != "" {
		out, err := createRedirect(cmd.StderrRedirect)
		if err != nil {
			return opened, err
		}
		opened = append(opened, out)
		proc.Stderr = io.MultiWriter(out, stderrTail)
	} else {
		proc.Stderr = io.MultiWriter(&logWriter{logger: s.logger, level: "error"}, stderrTail)
	}

	return opened, nil
}

func closeAll(files []io.Closer) {
	for _, f := range files {
		_ = f.Close()
	}
}

// createRedirect opens path for writing, creating parent directories.
func createRedirect(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to create redirect directory"), "path", path)
		}
	}
	f, err := os.Create(path) //nolint:gosec // Declared redirection
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create redirect file"), "path", path)
	}
	return f, nil
}

func removeStaleOutputs(cmd *domain.Command) error {
	if !cmd.RemoveOutputsBeforeExecution {
		return nil
	}
	for _, out := range cmd.Outputs {
		if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
			return zerr.With(zerr.Wrap(err, "failed to remove stale output"), "path", out)
		}
	}
	return nil
}

// mergeEnvironment assembles inherited plus declared variables; declared
// wins on conflict.
func mergeEnvironment(inherited []string, declared map[string]string) []string {
	envMap := make(map[string]string, len(inherited)+len(declared))
	for _, entry := range inherited {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range declared {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}

type logWriter struct {
	logger ports.Logger
	level  string
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	lines := strings.Split(strings.TrimSuffix(string(p), "\n"), "\n")
	for _, line := range lines {
		if w.level == "info" {
			w.logger.Info(line)
		} else {
			w.logger.Error(zerr.New(line))
		}
	}
	return len(p), nil
}

// tailBuffer keeps the last tailSize bytes written, for failure reports.
const tailSize = 4096

type tailBuffer struct {
	buf []byte
}

func newTailBuffer() *tailBuffer {
	return &tailBuffer{}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > tailSize {
		t.buf = t.buf[len(t.buf)-tailSize:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
