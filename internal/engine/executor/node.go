package executor

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sw/internal/adapters/fs"        //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sw/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sw/internal/adapters/shell"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sw/internal/adapters/sigstore"  //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sw/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sw/internal/core/ports"
)

// NodeID is the unique identifier for the executor Graft node.
const NodeID graft.ID = "engine.executor"

func init() {
	graft.Register(graft.Node[*Executor]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			shell.NodeID,
			sigstore.NodeID,
			fs.ResolverNodeID,
			logger.NodeID,
			telemetry.TracerNodeID,
		},
		Run: func(ctx context.Context) (*Executor, error) {
			spawner, err := graft.Dep[ports.Spawner](ctx)
			if err != nil {
				return nil, err
			}

			store, err := graft.Dep[ports.SignatureStore](ctx)
			if err != nil {
				return nil, err
			}

			resolver, err := graft.Dep[ports.ProgramResolver](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			return New(spawner, store, resolver, log, tracer), nil
		},
	})
}
