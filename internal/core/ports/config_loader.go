package ports

import "go.trai.ch/sw/internal/core/domain"

// PlanLoader loads a build plan description into a frozen Plan.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type PlanLoader interface {
	// Load reads the plan file at the given path.
	Load(path string) (*domain.Plan, error)
}
