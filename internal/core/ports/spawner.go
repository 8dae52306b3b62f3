// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"time"

	"go.trai.ch/sw/internal/core/domain"
)

// SpawnReport is the observable outcome of one spawned command.
type SpawnReport struct {
	Pid      int
	ExitCode int
	Start    time.Time
	End      time.Time
	// StderrTail holds the captured tail of the child's stderr, included
	// in the stable failure report.
	StderrTail string
}

// Spawner executes a prepared command's external process.
//
//go:generate go run go.uber.org/mock/mockgen -source=spawner.go -destination=mocks/mock_spawner.go -package=mocks
type Spawner interface {
	// Spawn runs the command with its redirections applied and the
	// environment assembled as inherited plus declared, declared winning.
	//
	// The deadline, when non-zero, bounds the child's runtime: on expiry
	// the child is terminated (SIGTERM, then SIGKILL after a grace
	// period). A report is returned even on failure when the process
	// started.
	Spawn(ctx context.Context, cmd *domain.Command, deadline time.Duration) (SpawnReport, error)
}
