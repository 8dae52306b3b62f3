// Package app implements the application layer.
package app

import (
	"context"
	"fmt"
	"time"

	"go.trai.ch/sw/internal/core/ports"
	"go.trai.ch/sw/internal/engine/executor"
	"go.trai.ch/zerr"
)

// RunOptions configure one build invocation.
type RunOptions struct {
	PlanPath     string
	Parallelism  int
	KeepGoing    bool
	KillOnCancel bool
	Timeout      time.Duration
}

// App wires the plan loader, executor and signature store into the build
// entry point.
type App struct {
	loader   ports.PlanLoader
	executor *executor.Executor
	store    ports.SignatureStore
	logger   ports.Logger
}

// New creates a new App instance.
func New(loader ports.PlanLoader, exec *executor.Executor, store ports.SignatureStore, logger ports.Logger) *App {
	return &App{
		loader:   loader,
		executor: exec,
		store:    store,
		logger:   logger,
	}
}

// Run loads the plan file, executes it and persists the signature store.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	plan, err := a.loader.Load(opts.PlanPath)
	if err != nil {
		return zerr.Wrap(err, "failed to load plan")
	}

	timeouts := make(map[string]time.Duration)
	if opts.Timeout > 0 {
		for c := range plan.Commands() {
			timeouts[c.Name.String()] = opts.Timeout
		}
	}

	res, runErr := a.executor.Run(ctx, plan, executor.Options{
		Parallelism:  opts.Parallelism,
		KeepGoing:    opts.KeepGoing,
		KillOnCancel: opts.KillOnCancel,
		Timeouts:     timeouts,
	})

	if err := a.store.Save(); err != nil {
		// The store is best effort; a failed save costs a rebuild, not
		// the build result.
		a.logger.Warn("failed to persist signature store: " + err.Error())
	}

	a.logger.Info(fmt.Sprintf("%d succeeded, %d failed, %d skipped (%d up to date) in %s",
		len(res.Succeeded), len(res.Failed), len(res.Skipped), res.SkippedUpToDate(), res.WallTime.Round(time.Millisecond)))

	if runErr != nil {
		return zerr.Wrap(runErr, "build failed")
	}
	return nil
}
