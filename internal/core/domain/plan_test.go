package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sw/internal/core/domain"
)

func cmd(name string, outputs []string, deps ...string) *domain.Command {
	c := &domain.Command{
		Name:    domain.NewInternedString(name),
		Program: "/bin/true",
		Outputs: outputs,
	}
	for _, d := range deps {
		c.Dependencies = append(c.Dependencies, domain.NewInternedString(d))
	}
	return c
}

func TestBuilder_DuplicateName(t *testing.T) {
	b := domain.NewBuilder()
	require.NoError(t, b.Add(cmd("a", []string{"x"})))

	err := b.Add(cmd("a", []string{"y"}))
	assert.ErrorIs(t, err, domain.ErrCommandAlreadyExists)
}

func TestBuilder_CycleDetectionWithPath(t *testing.T) {
	b := domain.NewBuilder()
	require.NoError(t, b.Add(cmd("a", []string{"ao"}, "b")))
	require.NoError(t, b.Add(cmd("b", []string{"bo"}, "c")))
	require.NoError(t, b.Add(cmd("c", []string{"co"}, "a")))

	_, err := b.Finalize()
	require.ErrorIs(t, err, domain.ErrCyclicPlan)
	assert.Contains(t, err.Error(), "cycle")
}

func TestBuilder_MissingDependency(t *testing.T) {
	b := domain.NewBuilder()
	require.NoError(t, b.Add(cmd("a", []string{"ao"}, "ghost")))

	_, err := b.Finalize()
	assert.ErrorIs(t, err, domain.ErrMissingDependency)
}

func TestBuilder_DuplicateOutput(t *testing.T) {
	b := domain.NewBuilder()
	require.NoError(t, b.Add(cmd("a", []string{"same.o"})))
	require.NoError(t, b.Add(cmd("b", []string{"same.o"})))

	_, err := b.Finalize()
	assert.ErrorIs(t, err, domain.ErrDuplicateOutput)
}

func TestBuilder_DuplicateOutputAfterNormalization(t *testing.T) {
	b := domain.NewBuilder()
	require.NoError(t, b.Add(cmd("a", []string{"out/obj.o"})))
	require.NoError(t, b.Add(cmd("b", []string{"out/../out/obj.o"})))

	_, err := b.Finalize()
	assert.ErrorIs(t, err, domain.ErrDuplicateOutput)
}

func TestBuilder_OverlappingFileSets(t *testing.T) {
	b := domain.NewBuilder()
	c := cmd("a", []string{"shared"})
	c.Inputs = []string{"shared"}
	require.NoError(t, b.Add(c))

	_, err := b.Finalize()
	assert.ErrorIs(t, err, domain.ErrOverlappingFileSets)
}

func TestBuilder_StrictOrderConflict(t *testing.T) {
	b := domain.NewBuilder()
	dep := cmd("late", []string{"lo"})
	dep.StrictOrder = 1
	require.NoError(t, b.Add(dep))

	early := cmd("early", []string{"eo"}, "late")
	early.StrictOrder = 0
	require.NoError(t, b.Add(early))

	_, err := b.Finalize()
	assert.ErrorIs(t, err, domain.ErrStrictOrderConflict)
}

func TestBuilder_ClosureFromRoots(t *testing.T) {
	b := domain.NewBuilder()
	require.NoError(t, b.Add(cmd("leaf", []string{"lo"})))
	require.NoError(t, b.Add(cmd("unreachable", []string{"uo"})))
	require.NoError(t, b.AddRoot(cmd("root", []string{"ro"}, "leaf")))

	p, err := b.Finalize()
	require.NoError(t, err)

	assert.Equal(t, 2, p.Len())
	_, ok := p.Get(domain.NewInternedString("unreachable"))
	assert.False(t, ok, "commands outside the root closure are excluded")
}

func TestPlan_AdjacencyAndInDegree(t *testing.T) {
	// Diamond: d -> b, c; b, c -> a
	b := domain.NewBuilder()
	require.NoError(t, b.Add(cmd("a", []string{"ao"})))
	require.NoError(t, b.Add(cmd("b", []string{"bo"}, "a")))
	require.NoError(t, b.Add(cmd("c", []string{"co"}, "a")))
	require.NoError(t, b.Add(cmd("d", []string{"do"}, "b", "c")))

	p, err := b.Finalize()
	require.NoError(t, err)

	assert.Equal(t, 0, p.InDegree(domain.NewInternedString("a")))
	assert.Equal(t, 1, p.InDegree(domain.NewInternedString("b")))
	assert.Equal(t, 2, p.InDegree(domain.NewInternedString("d")))

	deps := p.Dependents(domain.NewInternedString("a"))
	require.Len(t, deps, 2)
	assert.Equal(t, "b", deps[0].String())
	assert.Equal(t, "c", deps[1].String())
}

func TestPlan_RankTable(t *testing.T) {
	b := domain.NewBuilder()
	c1 := cmd("c1", []string{"o1"})
	c2 := cmd("c2", []string{"o2"})
	c3 := cmd("c3", []string{"o3"})
	c3.StrictOrder = 1
	require.NoError(t, b.Add(c1))
	require.NoError(t, b.Add(c2))
	require.NoError(t, b.Add(c3))

	p, err := b.Finalize()
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, p.Ranks())
	assert.Equal(t, 2, p.RankCount(0))
	assert.Equal(t, 1, p.RankCount(1))
}

func TestPlan_PoolLookup(t *testing.T) {
	b := domain.NewBuilder()
	b.AddPool(domain.NewResourcePool("link", 2))
	require.NoError(t, b.Add(cmd("a", []string{"ao"})))

	p, err := b.Finalize()
	require.NoError(t, err)

	require.NotNil(t, p.Pool("link"))
	assert.Equal(t, 2, p.Pool("link").Capacity())
	assert.Nil(t, p.Pool(""))
	assert.Nil(t, p.Pool("ghost"))
}
