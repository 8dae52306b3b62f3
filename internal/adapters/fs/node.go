package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sw/internal/core/ports"
)

const (
	// HasherNodeID is the unique identifier for the hasher Graft node.
	HasherNodeID graft.ID = "adapter.hasher"
	// ResolverNodeID is the unique identifier for the resolver Graft node.
	ResolverNodeID graft.ID = "adapter.resolver"
)

func init() {
	graft.Register(graft.Node[ports.StrongHasher]{
		ID:        HasherNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.StrongHasher, error) {
			return NewHasher(), nil
		},
	})

	graft.Register(graft.Node[ports.ProgramResolver]{
		ID:        ResolverNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ProgramResolver, error) {
			return NewResolver(""), nil
		},
	})
}
