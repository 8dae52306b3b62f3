// Package domain contains the core domain model for the command graph:
// commands, plans, resource pools and file signatures.
package domain

import (
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Kind selects how a command is carried out. Dispatch over kinds replaces
// subclassing: the spawner adapter owns one implementation per kind.
type Kind int

const (
	// KindProcess spawns the program and waits for it.
	KindProcess Kind = iota
	// KindCapture spawns the program and writes its stdout to the first
	// declared output.
	KindCapture
	// KindCopyFile copies the first input to the first output without
	// spawning anything.
	KindCopyFile
)

// ResponseFilePolicy controls whether arguments are routed through a
// response file instead of the command line.
type ResponseFilePolicy int

const (
	// ResponseFileNever keeps all arguments on the command line.
	ResponseFileNever ResponseFilePolicy = iota
	// ResponseFileIfTooLong uses a response file only when the command
	// line exceeds the platform limit.
	ResponseFileIfTooLong
	// ResponseFileAlways always uses a response file.
	ResponseFileAlways
)

// MaybeUnused marks commands whose non-execution is non-fatal to dependents.
// Used when an upstream may legitimately not produce outputs.
type MaybeUnused int

const (
	// MUFalse: a failed upstream blocks its dependents.
	MUFalse MaybeUnused = iota
	// MUTrue: a failed upstream does not block a dependent whose own
	// declared inputs all exist.
	MUTrue
	// MUAlways: a failed upstream never blocks dependents.
	MUAlways
)

// responseFileThreshold returns the platform command-line length limit
// beyond which ResponseFileIfTooLong switches to a response file.
func responseFileThreshold() int {
	if runtime.GOOS == "windows" {
		return 8000
	}
	return 32000
}

// Command is a single unit of externally observable work: a program with
// arguments, environment and declared file sets. Commands are created by
// the caller, mutated only during prepare, and immutable afterwards.
type Command struct {
	Name InternedString

	Kind Kind

	// Program is the executable. Bare names are resolved against PATH and
	// names containing a path separator against the working directory
	// during prepare; after prepare it is absolute.
	Program string
	Args    []string
	Env     map[string]string
	Cwd     string

	Inputs []string
	// Intermediates are byproducts: created as a side effect, cleaned
	// after success, never tracked for outdatedness.
	Intermediates []string
	Outputs       []string

	StdinRedirect  string
	StdoutRedirect string
	StderrRedirect string

	ResponseFiles ResponseFilePolicy

	// StrictOrder is a serialization barrier, not a dependency edge: no
	// command with a higher rank begins until every lower rank is terminal.
	StrictOrder int

	// Pool is the name of the resource pool this command must hold while
	// running, if any.
	Pool string

	AlwaysRun                    bool
	Silent                       bool
	RecordInputsMtime            bool
	RemoveOutputsBeforeExecution bool
	Unused                       MaybeUnused

	Dependencies []InternedString

	// State below is written during prepare and execution.

	prepared    bool
	fingerprint uint64

	// finalArgs is the argv tail actually passed to the program; when a
	// response file is in use it is the single @file argument.
	finalArgs []string
	// rspArgs holds the arguments routed through the response file.
	rspArgs []string
	// rspPath is the response file location, registered as an intermediate.
	rspPath string

	Executed bool
	TBegin   time.Time
	TEnd     time.Time
	ExitCode int
	Pid      int
}

// Prepared reports whether prepare has completed for this command.
func (c *Command) Prepared() bool { return c.prepared }

// Fingerprint returns the sealed 64-bit digest. Zero before prepare.
func (c *Command) Fingerprint() uint64 { return c.fingerprint }

// Seal marks the command prepared and records its fingerprint. A second
// call is a no-op.
func (c *Command) Seal(fingerprint uint64) {
	if c.prepared {
		return
	}
	c.prepared = true
	c.fingerprint = fingerprint
}

// OrderingRank is the deterministic tie-break key for the ready queue.
func (c *Command) OrderingRank() (int, uint64) {
	return c.StrictOrder, c.fingerprint
}

// EffectiveAlwaysRun reports whether the command bypasses the outdatedness
// check. A command with no declared outputs has nothing to compare against,
// so it always runs.
func (c *Command) EffectiveAlwaysRun() bool {
	return c.AlwaysRun || len(c.Outputs) == 0
}

// NeedsResponseFile reports whether the policy routes arguments through a
// response file, given the final command line.
func (c *Command) NeedsResponseFile() bool {
	switch c.ResponseFiles {
	case ResponseFileAlways:
		return true
	case ResponseFileNever:
		return false
	default:
		return c.commandLineLength() > responseFileThreshold()
	}
}

func (c *Command) commandLineLength() int {
	n := len(c.Program)
	for _, a := range c.Args {
		n += 1 + len(a)
	}
	return n
}

// ResponseFileContents returns the newline-joined argument subset routed
// through the response file: every argument except argv[0].
func (c *Command) ResponseFileContents() string {
	args := c.rspArgs
	if args == nil {
		args = c.Args
	}
	var b strings.Builder
	for _, a := range args {
		b.WriteString(a)
		b.WriteByte('\n')
	}
	return b.String()
}

// ResponseFilePath returns where prepare writes the response file. The file
// lives next to the first output, or next to nothing for output-less
// commands, in which case it is named after the command inside cwd.
func (c *Command) ResponseFilePath() string {
	if len(c.Outputs) > 0 {
		return c.Outputs[0] + ".rsp"
	}
	return filepath.Join(c.Cwd, c.Name.String()+".rsp")
}

// SetResponseFile records the response-file split computed during prepare:
// args move into the response file and the argv tail collapses to @path.
func (c *Command) SetResponseFile(path string) {
	c.rspArgs = c.Args
	c.rspPath = path
	c.finalArgs = []string{"@" + path}
}

// FinalArgs returns the argv tail to pass to the program. Before prepare,
// or when no response file is used, this is Args.
func (c *Command) FinalArgs() []string {
	if c.finalArgs != nil {
		return c.finalArgs
	}
	return c.Args
}

// NormalizePath canonicalizes an output path for fingerprinting: lexical
// cleaning, then case folding on case-insensitive filesystems.
func NormalizePath(p string) string {
	p = filepath.Clean(p)
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		p = strings.ToLower(p)
	}
	return p
}
