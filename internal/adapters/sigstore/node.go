package sigstore

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sw/internal/adapters/fs"     //nolint:depguard // Wired in adapter wiring
	"go.trai.ch/sw/internal/adapters/logger" //nolint:depguard // Wired in adapter wiring
	"go.trai.ch/sw/internal/core/ports"
)

// NodeID is the unique identifier for the signature store Graft node.
const NodeID graft.ID = "adapter.signature_store"

// DefaultPath is where the store persists between runs.
const DefaultPath = ".sw/signatures.bin"

func init() {
	graft.Register(graft.Node[ports.SignatureStore]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.HasherNodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.SignatureStore, error) {
			hasher, err := graft.Dep[ports.StrongHasher](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			store, loadErr := New(DefaultPath, hasher)
			if loadErr != nil {
				// Best effort: a broken store file degrades to a full
				// rebuild, never a failed run.
				log.Warn("signature store unreadable, starting empty: " + loadErr.Error())
			}
			return store, nil
		},
	})
}
