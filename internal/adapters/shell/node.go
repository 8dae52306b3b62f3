package shell

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sw/internal/adapters/logger" //nolint:depguard // Wired in adapter wiring
	"go.trai.ch/sw/internal/core/ports"
)

// NodeID is the unique identifier for the spawner Graft node.
const NodeID graft.ID = "adapter.spawner"

func init() {
	graft.Register(graft.Node[ports.Spawner]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.Spawner, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewSpawner(log), nil
		},
	})
}
