package config

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sw/internal/core/ports"
)

// NodeID is the unique identifier for the plan loader Graft node.
const NodeID graft.ID = "adapter.plan_loader"

func init() {
	graft.Register(graft.Node[ports.PlanLoader]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.PlanLoader, error) {
			return &FileLoader{}, nil
		},
	})
}
