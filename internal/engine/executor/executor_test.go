package executor_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sw/internal/adapters/fs"
	"go.trai.ch/sw/internal/adapters/sigstore"
	"go.trai.ch/sw/internal/adapters/telemetry"
	"go.trai.ch/sw/internal/core/domain"
	"go.trai.ch/sw/internal/core/ports"
	"go.trai.ch/sw/internal/core/ports/mocks"
	"go.trai.ch/sw/internal/engine/executor"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	t       *testing.T
	dir     string
	spawner *mocks.MockSpawner
	store   *sigstore.Store
	exec    *executor.Executor

	mu     sync.Mutex
	events []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fixture uses POSIX executable bits")
	}

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	dir := t.TempDir()
	toolPath := filepath.Join(dir, "tool")
	require.NoError(t, os.WriteFile(toolPath, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	store, err := sigstore.New(filepath.Join(dir, "signatures.bin"), fs.NewHasher())
	require.NoError(t, err)

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()

	spawner := mocks.NewMockSpawner(ctrl)

	f := &fixture{
		t:       t,
		dir:     dir,
		spawner: spawner,
		store:   store,
	}
	f.exec = executor.New(spawner, store, fs.NewResolver(dir), log, telemetry.NewNoOpTracer())
	return f
}

// reload swaps in a fresh executor over a store reloaded from disk, as a
// second build invocation would see it.
func (f *fixture) reload() {
	require.NoError(f.t, f.store.Save())

	ctrl := gomock.NewController(f.t)
	f.t.Cleanup(ctrl.Finish)

	store, err := sigstore.New(filepath.Join(f.dir, "signatures.bin"), fs.NewHasher())
	require.NoError(f.t, err)

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()

	f.spawner = mocks.NewMockSpawner(ctrl)
	f.store = store
	f.exec = executor.New(f.spawner, store, fs.NewResolver(f.dir), log, telemetry.NewNoOpTracer())
}

func (f *fixture) cmd(name string, deps ...string) *domain.Command {
	c := &domain.Command{
		Name:    domain.NewInternedString(name),
		Program: "tool",
		Args:    []string{name},
		Outputs: []string{filepath.Join(f.dir, name+".out")},
	}
	for _, d := range deps {
		c.Dependencies = append(c.Dependencies, domain.NewInternedString(d))
	}
	return c
}

func (f *fixture) plan(cmds ...*domain.Command) *domain.Plan {
	b := domain.NewBuilder()
	for _, c := range cmds {
		require.NoError(f.t, b.Add(c))
	}
	p, err := b.Finalize()
	require.NoError(f.t, err)
	return p
}

func (f *fixture) planWithPool(pool *domain.ResourcePool, cmds ...*domain.Command) *domain.Plan {
	b := domain.NewBuilder()
	b.AddPool(pool)
	for _, c := range cmds {
		require.NoError(f.t, b.Add(c))
	}
	p, err := b.Finalize()
	require.NoError(f.t, err)
	return p
}

func (f *fixture) record(name string) {
	f.mu.Lock()
	f.events = append(f.events, name)
	f.mu.Unlock()
}

func (f *fixture) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

// expectSpawns makes the spawner write every declared output and record the
// execution order.
func (f *fixture) expectSpawns() {
	f.spawner.EXPECT().Spawn(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Command, _ time.Duration) (ports.SpawnReport, error) {
			f.record(c.Name.String())
			for _, out := range c.Outputs {
				require.NoError(f.t, os.WriteFile(out, []byte(c.Name.String()), 0o644))
			}
			return ports.SpawnReport{Start: time.Now(), End: time.Now(), Pid: 1}, nil
		}).AnyTimes()
}

func names(list []domain.InternedString) []string {
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = n.String()
	}
	return out
}

func TestExecutor_IndependentCommandsBothRun(t *testing.T) {
	f := newFixture(t)
	f.expectSpawns()

	p := f.plan(f.cmd("c1"), f.cmd("c2"))
	res, err := f.exec.Run(context.Background(), p, executor.Options{Parallelism: 2})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"c1", "c2"}, names(res.Succeeded))
	assert.Empty(t, res.Failed)
	assert.Empty(t, res.Skipped)
}

func TestExecutor_DiamondRespectsDependencies(t *testing.T) {
	f := newFixture(t)
	f.expectSpawns()

	// a is the root; b and c depend on a; d depends on b and c.
	p := f.plan(
		f.cmd("a"),
		f.cmd("b", "a"),
		f.cmd("c", "a"),
		f.cmd("d", "b", "c"),
	)

	res, err := f.exec.Run(context.Background(), p, executor.Options{Parallelism: 2})
	require.NoError(t, err)
	assert.Len(t, res.Succeeded, 4)

	order := f.recorded()
	require.Len(t, order, 4)
	assert.Equal(t, "a", order[0])
	assert.Equal(t, "d", order[3])
}

func TestExecutor_SecondRunSkipsEverything(t *testing.T) {
	f := newFixture(t)
	f.expectSpawns()

	build := func() *domain.Plan {
		return f.plan(
			f.cmd("a"),
			f.cmd("b", "a"),
			f.cmd("c", "a"),
			f.cmd("d", "b", "c"),
		)
	}

	_, err := f.exec.Run(context.Background(), build(), executor.Options{Parallelism: 2})
	require.NoError(t, err)

	f.reload()
	// No Spawn expectation: any dispatch is a test failure.

	res, err := f.exec.Run(context.Background(), build(), executor.Options{Parallelism: 2})
	require.NoError(t, err)

	assert.Empty(t, res.Succeeded)
	assert.Len(t, res.Skipped, 4)
	for _, s := range res.Skipped {
		assert.Equal(t, domain.SkipUpToDate, s.Reason)
	}
}

func TestExecutor_FingerprintChangeReruns(t *testing.T) {
	f := newFixture(t)
	f.expectSpawns()

	c := f.cmd("echo")
	c.Args = []string{"x"}
	_, err := f.exec.Run(context.Background(), f.plan(c), executor.Options{})
	require.NoError(t, err)

	f.reload()
	f.expectSpawns()

	c2 := f.cmd("echo")
	c2.Args = []string{"y"}
	res, err := f.exec.Run(context.Background(), f.plan(c2), executor.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"echo"}, names(res.Succeeded), "changed args must re-execute")
}

func TestExecutor_AlwaysRunNeverSkips(t *testing.T) {
	f := newFixture(t)
	f.expectSpawns()

	build := func() *domain.Plan {
		c := f.cmd("gen")
		c.AlwaysRun = true
		return f.plan(c)
	}

	_, err := f.exec.Run(context.Background(), build(), executor.Options{})
	require.NoError(t, err)

	f.reload()
	f.expectSpawns()

	res, err := f.exec.Run(context.Background(), build(), executor.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"gen"}, names(res.Succeeded))
}

func TestExecutor_StrictOrderBarrier(t *testing.T) {
	f := newFixture(t)

	proceed := make(chan struct{})
	started := make(chan string, 3)

	f.spawner.EXPECT().Spawn(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Command, _ time.Duration) (ports.SpawnReport, error) {
			started <- c.Name.String()
			if c.StrictOrder == 0 {
				<-proceed
			}
			for _, out := range c.Outputs {
				require.NoError(t, os.WriteFile(out, []byte("x"), 0o644))
			}
			return ports.SpawnReport{}, nil
		}).AnyTimes()

	c1 := f.cmd("c1")
	c2 := f.cmd("c2")
	c3 := f.cmd("c3")
	c3.StrictOrder = 1

	p := f.plan(c1, c2, c3)

	errCh := make(chan error, 1)
	go func() {
		_, err := f.exec.Run(context.Background(), p, executor.Options{Parallelism: 3})
		errCh <- err
	}()

	first := <-started
	second := <-started
	assert.ElementsMatch(t, []string{"c1", "c2"}, []string{first, second})

	select {
	case name := <-started:
		t.Fatalf("%s started before rank 0 drained", name)
	case <-time.After(100 * time.Millisecond):
	}

	close(proceed)
	assert.Equal(t, "c3", <-started)
	require.NoError(t, <-errCh)
}

func TestExecutor_PoolSerializesAndOrdersByPriority(t *testing.T) {
	f := newFixture(t)

	var running, maxRunning int64
	f.spawner.EXPECT().Spawn(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Command, _ time.Duration) (ports.SpawnReport, error) {
			cur := atomic.AddInt64(&running, 1)
			for {
				prev := atomic.LoadInt64(&maxRunning)
				if cur <= prev || atomic.CompareAndSwapInt64(&maxRunning, prev, cur) {
					break
				}
			}
			f.record(c.Name.String())
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&running, -1)
			for _, out := range c.Outputs {
				require.NoError(t, os.WriteFile(out, []byte("x"), 0o644))
			}
			return ports.SpawnReport{}, nil
		}).AnyTimes()

	pool := domain.NewResourcePool("heavy", 1)
	cmds := make([]*domain.Command, 5)
	for i, name := range []string{"p1", "p2", "p3", "p4", "p5"} {
		cmds[i] = f.cmd(name)
		cmds[i].Pool = "heavy"
	}

	p := f.planWithPool(pool, cmds...)
	res, err := f.exec.Run(context.Background(), p, executor.Options{Parallelism: 4})
	require.NoError(t, err)
	require.Len(t, res.Succeeded, 5)

	assert.Equal(t, int64(1), atomic.LoadInt64(&maxRunning), "pool of one admits one command at a time")

	// Dequeue order follows the (strict_order, fingerprint) priority key.
	byFingerprint := make([]*domain.Command, len(cmds))
	copy(byFingerprint, cmds)
	for i := 0; i < len(byFingerprint); i++ {
		for j := i + 1; j < len(byFingerprint); j++ {
			if byFingerprint[j].Fingerprint() < byFingerprint[i].Fingerprint() {
				byFingerprint[i], byFingerprint[j] = byFingerprint[j], byFingerprint[i]
			}
		}
	}
	want := make([]string, len(byFingerprint))
	for i, c := range byFingerprint {
		want[i] = c.Name.String()
	}
	assert.Equal(t, want, f.recorded())
}

func TestExecutor_PoolBoundHolds(t *testing.T) {
	f := newFixture(t)

	var running, maxRunning int64
	f.spawner.EXPECT().Spawn(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Command, _ time.Duration) (ports.SpawnReport, error) {
			cur := atomic.AddInt64(&running, 1)
			for {
				prev := atomic.LoadInt64(&maxRunning)
				if cur <= prev || atomic.CompareAndSwapInt64(&maxRunning, prev, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&running, -1)
			for _, out := range c.Outputs {
				require.NoError(t, os.WriteFile(out, []byte("x"), 0o644))
			}
			return ports.SpawnReport{}, nil
		}).AnyTimes()

	pool := domain.NewResourcePool("mid", 2)
	var cmds []*domain.Command
	for _, name := range []string{"q1", "q2", "q3", "q4", "q5", "q6"} {
		c := f.cmd(name)
		c.Pool = "mid"
		cmds = append(cmds, c)
	}

	_, err := f.exec.Run(context.Background(), f.planWithPool(pool, cmds...), executor.Options{Parallelism: 4})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt64(&maxRunning), int64(2))
}

func TestExecutor_UpstreamFailureKeepGoing(t *testing.T) {
	f := newFixture(t)

	f.spawner.EXPECT().Spawn(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Command, _ time.Duration) (ports.SpawnReport, error) {
			if c.Name.String() == "a" {
				return ports.SpawnReport{ExitCode: 1}, zerr.With(zerr.Wrap(domain.ErrNonZeroExit, "exit status 1"), "exit_code", 1)
			}
			for _, out := range c.Outputs {
				require.NoError(t, os.WriteFile(out, []byte("x"), 0o644))
			}
			return ports.SpawnReport{}, nil
		}).AnyTimes()

	p := f.plan(f.cmd("a"), f.cmd("b", "a"), f.cmd("c"))

	res, err := f.exec.Run(context.Background(), p, executor.Options{Parallelism: 2, KeepGoing: true})
	require.Error(t, err)

	assert.Equal(t, []string{"c"}, names(res.Succeeded))
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "a", res.Failed[0].Name.String())
	assert.ErrorIs(t, res.Failed[0].Err, domain.ErrNonZeroExit)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "b", res.Skipped[0].Name.String())
	assert.Equal(t, domain.SkipUpstreamFailure, res.Skipped[0].Reason)
}

func TestExecutor_DefaultDrainsOnFailure(t *testing.T) {
	f := newFixture(t)

	f.spawner.EXPECT().Spawn(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Command, _ time.Duration) (ports.SpawnReport, error) {
			return ports.SpawnReport{ExitCode: 2}, zerr.With(domain.ErrNonZeroExit, "exit_code", 2)
		}).Times(1)

	a := f.cmd("a")
	late := f.cmd("late")
	late.StrictOrder = 1 // guarantees a is dispatched first and alone

	res, err := f.exec.Run(context.Background(), f.plan(a, late), executor.Options{Parallelism: 2})
	require.Error(t, err)

	require.Len(t, res.Failed, 1)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "late", res.Skipped[0].Name.String())
	assert.Equal(t, domain.SkipDrained, res.Skipped[0].Reason)
}

func TestExecutor_MaybeUnusedAlwaysDoesNotBlock(t *testing.T) {
	f := newFixture(t)

	f.spawner.EXPECT().Spawn(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Command, _ time.Duration) (ports.SpawnReport, error) {
			if c.Name.String() == "a" {
				return ports.SpawnReport{ExitCode: 1}, zerr.With(domain.ErrNonZeroExit, "exit_code", 1)
			}
			for _, out := range c.Outputs {
				require.NoError(t, os.WriteFile(out, []byte("x"), 0o644))
			}
			return ports.SpawnReport{}, nil
		}).AnyTimes()

	a := f.cmd("a")
	a.Unused = domain.MUAlways

	p := f.plan(a, f.cmd("b", "a"))
	res, err := f.exec.Run(context.Background(), p, executor.Options{Parallelism: 2, KeepGoing: true})
	require.Error(t, err)

	assert.Equal(t, []string{"b"}, names(res.Succeeded))
	require.Len(t, res.Failed, 1)
	assert.Empty(t, res.Skipped)
}

func TestExecutor_MaybeUnusedTrueChecksInputs(t *testing.T) {
	cases := []struct {
		name        string
		inputExists bool
		wantRun     bool
	}{
		{"input present", true, true},
		{"input missing", false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)

			f.spawner.EXPECT().Spawn(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, c *domain.Command, _ time.Duration) (ports.SpawnReport, error) {
					if c.Name.String() == "a" {
						return ports.SpawnReport{ExitCode: 1}, zerr.With(domain.ErrNonZeroExit, "exit_code", 1)
					}
					for _, out := range c.Outputs {
						require.NoError(t, os.WriteFile(out, []byte("x"), 0o644))
					}
					return ports.SpawnReport{}, nil
				}).AnyTimes()

			input := filepath.Join(f.dir, "b.in")
			if tc.inputExists {
				require.NoError(t, os.WriteFile(input, []byte("seed"), 0o644))
			}

			a := f.cmd("a")
			a.Unused = domain.MUTrue
			b := f.cmd("b", "a")
			b.Inputs = []string{input}

			res, err := f.exec.Run(context.Background(), f.plan(a, b), executor.Options{Parallelism: 2, KeepGoing: true})
			require.Error(t, err)

			if tc.wantRun {
				assert.Equal(t, []string{"b"}, names(res.Succeeded))
				assert.Empty(t, res.Skipped)
			} else {
				assert.Empty(t, res.Succeeded)
				require.Len(t, res.Skipped, 1)
				assert.Equal(t, domain.SkipUpstreamFailure, res.Skipped[0].Reason)
			}
		})
	}
}

func TestExecutor_OutputMissingAfterSuccessIsFailure(t *testing.T) {
	f := newFixture(t)

	// The spawner reports success but never writes the declared output.
	f.spawner.EXPECT().Spawn(gomock.Any(), gomock.Any(), gomock.Any()).Return(ports.SpawnReport{}, nil).Times(1)

	res, err := f.exec.Run(context.Background(), f.plan(f.cmd("liar")), executor.Options{})
	require.Error(t, err)

	require.Len(t, res.Failed, 1)
	assert.ErrorIs(t, res.Failed[0].Err, domain.ErrOutputMissing)
}

func TestExecutor_PrepareFailurePropagates(t *testing.T) {
	f := newFixture(t)
	// No Spawn expectation: nothing may execute.

	a := f.cmd("a")
	a.Program = "no-such-tool"
	b := f.cmd("b", "a")

	res, err := f.exec.Run(context.Background(), f.plan(a, b), executor.Options{Parallelism: 2})
	require.Error(t, err)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, "a", res.Failed[0].Name.String())
	assert.ErrorIs(t, res.Failed[0].Err, domain.ErrProgramNotFound)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, domain.SkipUpstreamFailure, res.Skipped[0].Reason)
}

func TestExecutor_CancellationDrains(t *testing.T) {
	f := newFixture(t)

	started := make(chan struct{})
	release := make(chan struct{})

	f.spawner.EXPECT().Spawn(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Command, _ time.Duration) (ports.SpawnReport, error) {
			close(started)
			<-release
			for _, out := range c.Outputs {
				require.NoError(t, os.WriteFile(out, []byte("x"), 0o644))
			}
			return ports.SpawnReport{}, nil
		}).Times(1)

	slow := f.cmd("slow")
	pending := f.cmd("pending")
	pending.StrictOrder = 1

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	resCh := make(chan *domain.Result, 1)
	go func() {
		res, err := f.exec.Run(ctx, f.plan(slow, pending), executor.Options{Parallelism: 1})
		resCh <- res
		errCh <- err
	}()

	<-started
	cancel()
	// The in-flight command is not killed; it finishes after the cancel.
	close(release)

	res := <-resCh
	err := <-errCh
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{"slow"}, names(res.Succeeded), "in-flight commands drain to completion")
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "pending", res.Skipped[0].Name.String())
	assert.Equal(t, domain.SkipDrained, res.Skipped[0].Reason)
}

func TestExecutor_IntermediatesCleanedAfterSuccess(t *testing.T) {
	f := newFixture(t)

	intermediate := filepath.Join(f.dir, "scratch.tmp")

	f.spawner.EXPECT().Spawn(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Command, _ time.Duration) (ports.SpawnReport, error) {
			require.NoError(t, os.WriteFile(intermediate, []byte("tmp"), 0o644))
			for _, out := range c.Outputs {
				require.NoError(t, os.WriteFile(out, []byte("x"), 0o644))
			}
			return ports.SpawnReport{}, nil
		}).Times(1)

	c := f.cmd("gen")
	c.Intermediates = []string{intermediate}

	_, err := f.exec.Run(context.Background(), f.plan(c), executor.Options{})
	require.NoError(t, err)

	_, statErr := os.Stat(intermediate)
	assert.True(t, os.IsNotExist(statErr), "byproducts are cleaned after success")
}
