package domain

import "go.trai.ch/zerr"

// Plan construction errors. These surface from Builder.Finalize before any
// command has executed.
var (
	// ErrCommandAlreadyExists is returned when two commands share a name.
	ErrCommandAlreadyExists = zerr.New("command already exists")

	// ErrMissingDependency is returned when a command references a
	// dependency that is not part of the plan.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCyclicPlan is returned when the dependency graph contains a cycle.
	ErrCyclicPlan = zerr.New("cycle detected")

	// ErrDuplicateOutput is returned when two commands declare the same
	// output path.
	ErrDuplicateOutput = zerr.New("duplicate output")

	// ErrOverlappingFileSets is returned when a command's inputs, outputs
	// and intermediates are not pairwise disjoint.
	ErrOverlappingFileSets = zerr.New("overlapping file sets")

	// ErrStrictOrderConflict is returned when a command depends on a
	// command of a higher strict-order rank: the barrier would keep the
	// dependency from ever starting.
	ErrStrictOrderConflict = zerr.New("dependency has higher strict order than dependent")

	// ErrIncompleteCommand is returned when a command kind lacks the file
	// sets it operates on (capture needs an output, copy needs both).
	ErrIncompleteCommand = zerr.New("command kind requires inputs/outputs")
)

// Prepare errors. Per-command; the node is marked failed without execution.
var (
	// ErrProgramNotFound is returned when the program path cannot be
	// resolved during prepare.
	ErrProgramNotFound = zerr.New("program not found")

	// ErrResponseFileIO is returned when the response file cannot be
	// written during prepare.
	ErrResponseFileIO = zerr.New("response file write failed")

	// ErrNotPrepared is returned when execution is requested for a command
	// that has not completed prepare.
	ErrNotPrepared = zerr.New("command not prepared")
)

// Runtime errors.
var (
	// ErrSpawnFailed is returned when the child process cannot be started.
	ErrSpawnFailed = zerr.New("spawn failed")

	// ErrNonZeroExit is returned when the child process exits non-zero.
	ErrNonZeroExit = zerr.New("command exited non-zero")

	// ErrTimeout is returned when the child process exceeds its deadline.
	ErrTimeout = zerr.New("command timed out")

	// ErrCancelled is returned when execution is aborted by cancellation.
	ErrCancelled = zerr.New("execution cancelled")

	// ErrOutputMissing is returned when a declared output does not exist
	// after a zero exit code.
	ErrOutputMissing = zerr.New("declared output missing after execution")

	// ErrExecutionFailed wraps the joined per-command failures of a run.
	ErrExecutionFailed = zerr.New("execution failed")
)

// Store errors. The store is best effort; loading falls back to empty.
var (
	// ErrStoreIO is returned when the signature store file cannot be read
	// or written.
	ErrStoreIO = zerr.New("signature store io error")

	// ErrStoreVersionMismatch is returned when the on-disk schema version
	// differs from the supported one.
	ErrStoreVersionMismatch = zerr.New("signature store version mismatch")

	// ErrStoreCorrupt is returned when the store file cannot be decoded.
	ErrStoreCorrupt = zerr.New("signature store corrupt")
)
