package domain

import (
	"iter"
	"sort"

	"go.trai.ch/zerr"
)

// Builder accumulates commands and resource pools and freezes them into a
// Plan. Construction errors (cycles, duplicate outputs, overlapping file
// sets, missing dependencies) surface from Finalize before anything runs.
type Builder struct {
	commands map[InternedString]*Command
	pools    map[string]*ResourcePool
	roots    []InternedString
}

// NewBuilder creates an empty plan builder.
func NewBuilder() *Builder {
	return &Builder{
		commands: make(map[InternedString]*Command),
		pools:    make(map[string]*ResourcePool),
	}
}

// AddPool registers a resource pool commands may reference by name.
func (b *Builder) AddPool(p *ResourcePool) {
	b.pools[p.Name()] = p
}

// Add registers a command without marking it as a root. Dependencies are
// referenced by name; ownership stays flat in the builder's map.
func (b *Builder) Add(c *Command) error {
	if _, exists := b.commands[c.Name]; exists {
		return zerr.With(zerr.Wrap(ErrCommandAlreadyExists, "failed to add command"), "command", c.Name.String())
	}
	b.commands[c.Name] = c
	return nil
}

// AddRoot registers a command and marks it as a root of the plan.
func (b *Builder) AddRoot(c *Command) error {
	if err := b.Add(c); err != nil {
		return err
	}
	b.roots = append(b.roots, c.Name)
	return nil
}

// Finalize computes the transitive closure of the roots, validates it and
// returns the frozen Plan. When no roots were declared every registered
// command is a root.
func (b *Builder) Finalize() (*Plan, error) {
	roots := b.roots
	if len(roots) == 0 {
		roots = make([]InternedString, 0, len(b.commands))
		for name := range b.commands {
			roots = append(roots, name)
		}
		sort.Slice(roots, func(i, j int) bool { return roots[i].String() < roots[j].String() })
	}

	closure, err := b.collectClosure(roots)
	if err != nil {
		return nil, err
	}

	p := &Plan{
		commands:   make(map[InternedString]*Command, len(closure)),
		dependents: make(map[InternedString][]InternedString),
		inDegree:   make(map[InternedString]int, len(closure)),
		pools:      b.pools,
		roots:      roots,
	}

	for _, name := range closure {
		c := b.commands[name]
		if err := validateFileSets(c); err != nil {
			return nil, err
		}
		if err := validateKind(c); err != nil {
			return nil, err
		}
		p.commands[name] = c
	}

	if err := p.checkDuplicateOutputs(); err != nil {
		return nil, err
	}
	if err := p.checkStrictOrder(); err != nil {
		return nil, err
	}

	p.buildAdjacency()
	p.buildRankTable()

	return p, nil
}

// collectClosure walks the dependency graph from the roots using three-color
// DFS, returning every reachable command and failing on the first cycle with
// the cycle path in the error metadata.
func (b *Builder) collectClosure(roots []InternedString) ([]InternedString, error) {
	const (
		white = 0
		grey  = 1
		black = 2
	)

	color := make(map[InternedString]int, len(b.commands))
	var order []InternedString
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		cmd, exists := b.commands[u]
		if !exists {
			return zerr.With(zerr.Wrap(ErrMissingDependency, "unknown dependency"), "dependency", u.String())
		}

		color[u] = grey
		path = append(path, u)

		for _, dep := range cmd.Dependencies {
			switch color[dep] {
			case grey:
				return cyclePathError(path, dep)
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		color[u] = black
		path = path[:len(path)-1]
		order = append(order, u)
		return nil
	}

	for _, root := range roots {
		if color[root] == white {
			if err := visit(root); err != nil {
				return nil, err
			}
		}
	}

	return order, nil
}

func cyclePathError(path []InternedString, dep InternedString) error {
	start := 0
	for i, node := range path {
		if node == dep {
			start = i
			break
		}
	}

	cycle := ""
	for i := start; i < len(path); i++ {
		cycle += path[i].String() + " -> "
	}
	cycle += dep.String()
	return zerr.With(zerr.Wrap(ErrCyclicPlan, "plan contains a cycle"), "cycle", cycle)
}

// validateFileSets checks that inputs, intermediates and outputs are
// pairwise disjoint within one command.
func validateFileSets(c *Command) error {
	seen := make(map[string]string)

	check := func(paths []string, role string) error {
		for _, p := range paths {
			n := NormalizePath(p)
			if prev, ok := seen[n]; ok && prev != role {
				err := zerr.With(zerr.Wrap(ErrOverlappingFileSets, "path declared in two roles"), "command", c.Name.String())
				err = zerr.With(err, "path", p)
				return zerr.With(err, "roles", prev+"+"+role)
			}
			seen[n] = role
		}
		return nil
	}

	if err := check(c.Inputs, "input"); err != nil {
		return err
	}
	if err := check(c.Outputs, "output"); err != nil {
		return err
	}
	return check(c.Intermediates, "intermediate")
}

// validateKind checks that a command kind has the file sets it operates on.
func validateKind(c *Command) error {
	switch c.Kind {
	case KindCapture:
		if len(c.Outputs) == 0 {
			return zerr.With(zerr.With(zerr.Wrap(ErrIncompleteCommand, "incomplete command"), "command", c.Name.String()), "kind", "capture")
		}
	case KindCopyFile:
		if len(c.Inputs) == 0 || len(c.Outputs) == 0 {
			return zerr.With(zerr.With(zerr.Wrap(ErrIncompleteCommand, "incomplete command"), "command", c.Name.String()), "kind", "copy")
		}
	}
	return nil
}

// Plan is the frozen set of commands to execute, with flat adjacency maps
// keyed by command name instead of cross-linked pointers.
type Plan struct {
	commands   map[InternedString]*Command
	dependents map[InternedString][]InternedString
	inDegree   map[InternedString]int
	pools      map[string]*ResourcePool
	roots      []InternedString

	// ranks holds the distinct strict-order ranks present, ascending;
	// rankCount the number of commands at each rank.
	ranks     []int
	rankCount map[int]int
}

func (p *Plan) checkDuplicateOutputs() error {
	owner := make(map[string]InternedString)
	for name, c := range p.commands {
		for _, out := range c.Outputs {
			n := NormalizePath(out)
			if prev, ok := owner[n]; ok {
				err := zerr.With(zerr.Wrap(ErrDuplicateOutput, "output declared twice"), "path", out)
				return zerr.With(err, "commands", prev.String()+"+"+name.String())
			}
			owner[n] = name
		}
	}
	return nil
}

// checkStrictOrder rejects plans where a dependency carries a higher rank
// than its dependent: the rank barrier would block the dependency behind
// the dependent's rank forever.
func (p *Plan) checkStrictOrder() error {
	for name, c := range p.commands {
		for _, depName := range c.Dependencies {
			dep, ok := p.commands[depName]
			if !ok {
				continue
			}
			if dep.StrictOrder > c.StrictOrder {
				err := zerr.With(zerr.Wrap(ErrStrictOrderConflict, "strict order conflict"), "command", name.String())
				return zerr.With(err, "dependency", depName.String())
			}
		}
	}
	return nil
}

func (p *Plan) buildAdjacency() {
	for name, c := range p.commands {
		degree := 0
		for _, dep := range c.Dependencies {
			if _, ok := p.commands[dep]; ok {
				degree++
				p.dependents[dep] = append(p.dependents[dep], name)
			}
		}
		p.inDegree[name] = degree
	}

	// Deterministic dependent order keeps failure cascades reproducible.
	for dep := range p.dependents {
		list := p.dependents[dep]
		sort.Slice(list, func(i, j int) bool { return list[i].String() < list[j].String() })
	}
}

func (p *Plan) buildRankTable() {
	p.rankCount = make(map[int]int)
	for _, c := range p.commands {
		p.rankCount[c.StrictOrder]++
	}
	p.ranks = make([]int, 0, len(p.rankCount))
	for r := range p.rankCount {
		p.ranks = append(p.ranks, r)
	}
	sort.Ints(p.ranks)
}

// Len returns the number of commands in the plan.
func (p *Plan) Len() int { return len(p.commands) }

// Get returns the command with the given name.
func (p *Plan) Get(name InternedString) (*Command, bool) {
	c, ok := p.commands[name]
	return c, ok
}

// Dependents returns the commands depending on name, sorted by name.
func (p *Plan) Dependents(name InternedString) []InternedString {
	return p.dependents[name]
}

// InDegree returns the number of in-plan dependencies of name.
func (p *Plan) InDegree(name InternedString) int {
	return p.inDegree[name]
}

// Roots returns the declared root set.
func (p *Plan) Roots() []InternedString { return p.roots }

// Pool resolves a pool name declared on a command; nil when the command is
// not pooled or the pool is unknown.
func (p *Plan) Pool(name string) *ResourcePool {
	if name == "" {
		return nil
	}
	return p.pools[name]
}

// Ranks returns the distinct strict-order ranks present, ascending.
func (p *Plan) Ranks() []int { return p.ranks }

// RankCount returns the number of commands at the given rank.
func (p *Plan) RankCount(rank int) int { return p.rankCount[rank] }

// Commands returns an iterator over the plan's commands in unspecified
// order.
func (p *Plan) Commands() iter.Seq[*Command] {
	return func(yield func(*Command) bool) {
		for _, c := range p.commands {
			if !yield(c) {
				return
			}
		}
	}
}
