package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sw/internal/adapters/config"   //nolint:depguard // Wired in app layer
	"go.trai.ch/sw/internal/adapters/logger"   //nolint:depguard // Wired in app layer
	"go.trai.ch/sw/internal/adapters/sigstore" //nolint:depguard // Wired in app layer
	"go.trai.ch/sw/internal/core/ports"
	"go.trai.ch/sw/internal/engine/executor"
)

// NodeID is the unique identifier for the main App Graft node.
const NodeID graft.ID = "app.main"

func init() {
	graft.Register(graft.Node[*App]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			executor.NodeID,
			sigstore.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			loader, err := graft.Dep[ports.PlanLoader](ctx)
			if err != nil {
				return nil, err
			}

			exec, err := graft.Dep[*executor.Executor](ctx)
			if err != nil {
				return nil, err
			}

			store, err := graft.Dep[ports.SignatureStore](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(loader, exec, store, log), nil
		},
	})
}
