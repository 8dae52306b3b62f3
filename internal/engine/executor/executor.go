// Package executor implements the command graph executor: it owns the
// ready queue, dispatches commands onto a bounded worker set, applies
// strict-order barriers and resource pools, and propagates failures.
package executor

import (
	"context"
	"errors"
	"math"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"go.trai.ch/sw/internal/core/domain"
	"go.trai.ch/sw/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Status represents the scheduling state of a command.
type Status string

const (
	// StatusWaiting indicates unfinished dependencies remain.
	StatusWaiting Status = "Waiting"
	// StatusReady indicates the command is enqueued for dispatch.
	StatusReady Status = "Ready"
	// StatusRunning indicates the command is currently executing.
	StatusRunning Status = "Running"
	// StatusSucceeded indicates the command finished successfully.
	StatusSucceeded Status = "Succeeded"
	// StatusFailed indicates the command failed.
	StatusFailed Status = "Failed"
	// StatusSkipped indicates the command did not run: it was up to date,
	// an upstream failed, or the run drained.
	StatusSkipped Status = "Skipped"
)

// Options configure one executor run.
type Options struct {
	// Parallelism bounds concurrently running commands; zero means
	// hardware concurrency.
	Parallelism int

	// KeepGoing keeps dispatching commands whose transitive failure set
	// is empty instead of draining on the first failure.
	KeepGoing bool

	// KillOnCancel terminates running children on cancellation. Off by
	// default: killing mid-write can corrupt outputs.
	KillOnCancel bool

	// Timeouts maps command name to its deadline.
	Timeouts map[string]time.Duration
}

// Executor runs plans. It is the single orchestrator: all shared state is
// owned by the coordinator loop, workers communicate through the results
// channel.
type Executor struct {
	spawner  ports.Spawner
	store    ports.SignatureStore
	resolver ports.ProgramResolver
	logger   ports.Logger
	tracer   ports.Tracer

	oracle   oracle
	preparer preparer

	mu     sync.RWMutex
	status map[domain.InternedString]Status
}

// New creates an Executor with the given collaborators.
func New(
	spawner ports.Spawner,
	store ports.SignatureStore,
	resolver ports.ProgramResolver,
	logger ports.Logger,
	tracer ports.Tracer,
) *Executor {
	return &Executor{
		spawner:  spawner,
		store:    store,
		resolver: resolver,
		logger:   logger,
		tracer:   tracer,
		oracle:   oracle{store: store},
		preparer: preparer{resolver: resolver, store: store},
		status:   make(map[domain.InternedString]Status),
	}
}

// Status returns the scheduling state of a command.
func (e *Executor) Status(name domain.InternedString) Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status[name]
}

func (e *Executor) setStatus(name domain.InternedString, s Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status[name] = s
}

// Run executes the plan and returns the per-command outcome. The returned
// error joins per-command failures with any cancellation error; the Result
// is populated either way.
func (e *Executor) Run(ctx context.Context, plan *domain.Plan, opts Options) (*domain.Result, error) {
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.NumCPU()
	}

	start := time.Now()

	names := make([]string, 0, plan.Len())
	for c := range plan.Commands() {
		names = append(names, c.Name.String())
		e.setStatus(c.Name, StatusWaiting)
	}
	sort.Strings(names)
	e.tracer.EmitPlan(ctx, names)

	prepFailures := e.prepareAll(ctx, plan, opts.Parallelism)

	st := e.newRunState(ctx, plan, opts)

	for name, err := range prepFailures {
		st.fail(name, err, ports.SpawnReport{})
	}
	st.enqueueInitial()

	st.loop()

	res := st.buildResult(time.Since(start))

	var runErr error
	for _, f := range res.Failed {
		runErr = errors.Join(runErr, zerr.With(zerr.Wrap(f.Err, domain.ErrExecutionFailed.Error()), "command", f.Name.String()))
	}
	if st.cancelled {
		runErr = errors.Join(runErr, zerr.Wrap(ctx.Err(), domain.ErrCancelled.Error()))
	}
	return res, runErr
}

// prepareAll runs the prepare phase over the whole plan with bounded
// parallelism. Prepare failures are per-command and reported back, not
// fatal to the run.
func (e *Executor) prepareAll(ctx context.Context, plan *domain.Plan, parallelism int) map[domain.InternedString]error {
	var mu sync.Mutex
	failures := make(map[domain.InternedString]error)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for c := range plan.Commands() {
		g.Go(func() error {
			if err := e.preparer.prepare(c); err != nil {
				mu.Lock()
				failures[c.Name] = err
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return failures
}

type result struct {
	name    domain.InternedString
	err     error
	skipped bool
	report  ports.SpawnReport
}

type runState struct {
	s    *Executor
	plan *domain.Plan
	opts Options
	ctx  context.Context

	inDegree   map[domain.InternedString]int
	skipReason map[domain.InternedString]domain.SkipReason
	failures   map[domain.InternedString]error

	ready  *readyQueue
	parked map[string][]*domain.Command

	// rankLeft counts non-terminal commands per strict-order rank; the
	// barrier opens rank k once every lower rank drains to zero.
	rankLeft map[int]int
	ranks    []int
	rankIdx  int

	active    int
	draining  bool
	cancelled bool
	resultsCh chan result
}

func (e *Executor) newRunState(ctx context.Context, plan *domain.Plan, opts Options) *runState {
	st := &runState{
		s:          e,
		plan:       plan,
		opts:       opts,
		ctx:        ctx,
		inDegree:   make(map[domain.InternedString]int, plan.Len()),
		skipReason: make(map[domain.InternedString]domain.SkipReason),
		failures:   make(map[domain.InternedString]error),
		ready:      newReadyQueue(),
		parked:     make(map[string][]*domain.Command),
		rankLeft:   make(map[int]int),
		ranks:      plan.Ranks(),
		resultsCh:  make(chan result, opts.Parallelism),
	}

	for c := range plan.Commands() {
		st.inDegree[c.Name] = plan.InDegree(c.Name)
	}
	for _, r := range st.ranks {
		st.rankLeft[r] = plan.RankCount(r)
	}

	return st
}

func (st *runState) enqueueInitial() {
	for c := range st.plan.Commands() {
		if st.inDegree[c.Name] == 0 && st.s.Status(c.Name) == StatusWaiting {
			st.enqueue(c)
		}
	}
}

func (st *runState) enqueue(c *domain.Command) {
	st.s.setStatus(c.Name, StatusReady)
	st.ready.push(c)
}

func (st *runState) loop() {
	for !st.isDone() {
		st.dispatch()

		if st.isDone() {
			break
		}

		if st.draining {
			if st.active == 0 {
				break
			}
			st.handleResult(<-st.resultsCh)
			continue
		}

		select {
		case res := <-st.resultsCh:
			st.handleResult(res)
		case <-st.ctx.Done():
			st.draining = true
			st.cancelled = true
		}
	}
}

func (st *runState) isDone() bool {
	if st.active > 0 {
		return false
	}
	if st.draining {
		return true
	}
	return st.ready.Len() == 0 && len(st.parkedCommands()) == 0
}

func (st *runState) parkedCommands() []*domain.Command {
	var all []*domain.Command
	for _, cmds := range st.parked {
		all = append(all, cmds...)
	}
	return all
}

// openRank returns the lowest strict-order rank with non-terminal
// commands; commands above it must wait at the barrier.
func (st *runState) openRank() int {
	for st.rankIdx < len(st.ranks) && st.rankLeft[st.ranks[st.rankIdx]] == 0 {
		st.rankIdx++
	}
	if st.rankIdx >= len(st.ranks) {
		return math.MaxInt
	}
	return st.ranks[st.rankIdx]
}

func (st *runState) dispatch() {
	for !st.draining && st.active < st.opts.Parallelism {
		top := st.ready.peek()
		if top == nil {
			return
		}
		// The queue is rank-ordered: if the top waits at the barrier,
		// everything below does too.
		if top.StrictOrder > st.openRank() {
			return
		}

		c := st.ready.pop()

		// A full pool parks the command instead of pinning a worker on
		// the acquisition.
		if pool := st.plan.Pool(c.Pool); pool != nil && !pool.TryAcquire() {
			st.parked[c.Pool] = append(st.parked[c.Pool], c)
			continue
		}

		st.active++
		st.s.setStatus(c.Name, StatusRunning)
		go st.executeCommand(c)
	}
}

// unpark requeues every command parked on the named pool; dispatch retries
// their acquisition in priority order.
func (st *runState) unpark(poolName string) {
	cmds := st.parked[poolName]
	if len(cmds) == 0 {
		return
	}
	delete(st.parked, poolName)
	for _, c := range cmds {
		st.ready.push(c)
	}
}

func (st *runState) executeCommand(c *domain.Command) {
	// The span ends before the result is sent so recordings are complete
	// by the time the coordinator observes the terminal state.
	res := func() result {
		ctx, span := st.s.tracer.Start(st.ctx, c.Name.String())
		defer span.End()

		if !c.Prepared() {
			span.RecordError(domain.ErrNotPrepared)
			return result{name: c.Name, err: domain.ErrNotPrepared}
		}

		if !st.s.oracle.isOutdated(c) {
			span.SetAttribute("sw.cached", true)
			return result{name: c.Name, skipped: true}
		}

		spawnCtx := ctx
		if !st.opts.KillOnCancel {
			spawnCtx = context.WithoutCancel(ctx)
		}

		report, err := st.s.spawner.Spawn(spawnCtx, c, st.opts.Timeouts[c.Name.String()])

		c.TBegin = report.Start
		c.TEnd = report.End
		c.Pid = report.Pid
		c.ExitCode = report.ExitCode
		c.Executed = true

		if err != nil {
			span.RecordError(err)
			return result{name: c.Name, err: err, report: report}
		}

		if err := verifyOutputs(c); err != nil {
			span.RecordError(err)
			return result{name: c.Name, err: err, report: report}
		}

		st.cleanIntermediates(c)

		// Output signatures refresh before the result is sent: the
		// refresh happens-before every dependent's outdatedness check.
		for _, out := range c.Outputs {
			if err := st.s.store.Refresh(out, c.Fingerprint()); err != nil {
				st.s.logger.Warn("failed to refresh output signature: " + err.Error())
			}
		}

		return result{name: c.Name, report: report}
	}()

	st.resultsCh <- res
}

func verifyOutputs(c *domain.Command) error {
	for _, out := range c.Outputs {
		if _, err := os.Stat(out); err != nil {
			return zerr.With(zerr.With(zerr.Wrap(domain.ErrOutputMissing, "output check failed"), "command", c.Name.String()), "path", out)
		}
	}
	return nil
}

func (st *runState) cleanIntermediates(c *domain.Command) {
	for _, p := range c.Intermediates {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			st.s.logger.Warn("failed to clean intermediate: " + err.Error())
		}
	}
}

func (st *runState) handleResult(res result) {
	st.active--

	c, _ := st.plan.Get(res.name)
	if pool := st.plan.Pool(c.Pool); pool != nil {
		pool.Release()
		st.unpark(c.Pool)
	}

	if res.err != nil {
		st.fail(res.name, res.err, res.report)
		return
	}
	st.succeed(res.name, res.skipped)
}

// fail marks a command failed, prints the stable failure report, drains
// unless keep-going, and cascades to dependents.
func (st *runState) fail(name domain.InternedString, err error, report ports.SpawnReport) {
	c, _ := st.plan.Get(name)

	st.s.setStatus(name, StatusFailed)
	st.failures[name] = err
	st.rankDone(c.StrictOrder)

	reportErr := zerr.Wrap(err, "command failed")
	reportErr = zerr.With(reportErr, "command", name.String())
	reportErr = zerr.With(reportErr, "program", c.Program)
	reportErr = zerr.With(reportErr, "args", strings.Join(c.Args, " "))
	reportErr = zerr.With(reportErr, "exit_code", report.ExitCode)
	reportErr = zerr.With(reportErr, "stderr", report.StderrTail)
	st.s.logger.Error(reportErr)

	if !st.opts.KeepGoing {
		st.draining = true
	}

	st.cascadeFailure(c)
}

// cascadeFailure applies the maybe-unused policy to each waiting
// dependent: MUAlways never blocks, MUTrue blocks only dependents whose
// own inputs are missing, MUFalse blocks unconditionally.
func (st *runState) cascadeFailure(upstream *domain.Command) {
	for _, depName := range st.plan.Dependents(upstream.Name) {
		if st.s.Status(depName) != StatusWaiting {
			continue
		}
		dep, _ := st.plan.Get(depName)

		switch upstream.Unused {
		case domain.MUAlways:
			st.satisfyDependency(dep)
		case domain.MUTrue:
			if inputsExist(dep) {
				st.satisfyDependency(dep)
			} else {
				st.skipUpstream(dep)
			}
		default:
			st.skipUpstream(dep)
		}
	}
}

func inputsExist(c *domain.Command) bool {
	for _, in := range c.Inputs {
		if _, err := os.Stat(in); err != nil {
			return false
		}
	}
	return true
}

func (st *runState) satisfyDependency(dep *domain.Command) {
	st.inDegree[dep.Name]--
	if st.inDegree[dep.Name] == 0 {
		st.enqueue(dep)
	}
}

func (st *runState) skipUpstream(dep *domain.Command) {
	st.s.setStatus(dep.Name, StatusSkipped)
	st.skipReason[dep.Name] = domain.SkipUpstreamFailure
	st.rankDone(dep.StrictOrder)
	st.cascadeFailure(dep)
}

func (st *runState) succeed(name domain.InternedString, upToDate bool) {
	c, _ := st.plan.Get(name)

	if upToDate {
		st.s.setStatus(name, StatusSkipped)
		st.skipReason[name] = domain.SkipUpToDate
	} else {
		st.s.setStatus(name, StatusSucceeded)
	}
	st.rankDone(c.StrictOrder)

	for _, depName := range st.plan.Dependents(name) {
		if st.s.Status(depName) != StatusWaiting {
			continue
		}
		dep, _ := st.plan.Get(depName)
		st.satisfyDependency(dep)
	}
}

func (st *runState) rankDone(rank int) {
	st.rankLeft[rank]--
}

// buildResult collects terminal states; anything still waiting or ready
// after a drain is reported as skipped.
func (st *runState) buildResult(elapsed time.Duration) *domain.Result {
	res := &domain.Result{WallTime: elapsed}

	var names []domain.InternedString
	for c := range st.plan.Commands() {
		names = append(names, c.Name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].String() < names[j].String() })

	for _, name := range names {
		switch st.s.Status(name) {
		case StatusSucceeded:
			res.Succeeded = append(res.Succeeded, name)
		case StatusFailed:
			res.Failed = append(res.Failed, domain.Failure{Name: name, Err: st.failures[name]})
		case StatusSkipped:
			res.Skipped = append(res.Skipped, domain.Skip{Name: name, Reason: st.skipReason[name]})
		default:
			res.Skipped = append(res.Skipped, domain.Skip{Name: name, Reason: domain.SkipDrained})
		}
	}

	return res
}
