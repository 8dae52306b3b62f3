// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/sw/internal/adapters/config"
	_ "go.trai.ch/sw/internal/adapters/fs"
	_ "go.trai.ch/sw/internal/adapters/logger"
	_ "go.trai.ch/sw/internal/adapters/shell"
	_ "go.trai.ch/sw/internal/adapters/sigstore"
	_ "go.trai.ch/sw/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/sw/internal/app"
	_ "go.trai.ch/sw/internal/engine/executor"
)
