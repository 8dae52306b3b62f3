// Package config provides the YAML plan-file loader.
package config

import (
	"os"

	"go.trai.ch/sw/internal/core/domain"
	"go.trai.ch/sw/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.PlanLoader = (*FileLoader)(nil)

// FileLoader implements ports.PlanLoader using a YAML file.
type FileLoader struct{}

// Load reads the plan file at the given path.
func (l *FileLoader) Load(path string) (*domain.Plan, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read plan file")
	}
	return Parse(data)
}

// Parse decodes a plan file and freezes it into a Plan.
func Parse(data []byte) (*domain.Plan, error) {
	var file Swfile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.Wrap(err, "failed to parse plan file")
	}

	b := domain.NewBuilder()

	for name, capacity := range file.Pools {
		b.AddPool(domain.NewResourcePool(name, capacity))
	}

	for name, dto := range file.Commands {
		cmd, err := commandFromDTO(name, dto)
		if err != nil {
			return nil, err
		}
		if err := b.Add(cmd); err != nil {
			return nil, err
		}
	}

	return b.Finalize()
}

func commandFromDTO(name string, dto CommandDTO) (*domain.Command, error) {
	kind, err := parseKind(dto.Kind)
	if err != nil {
		return nil, zerr.With(err, "command", name)
	}
	unused, err := parseMaybeUnused(dto.MaybeUnused)
	if err != nil {
		return nil, zerr.With(err, "command", name)
	}
	rsp, err := parseResponseFiles(dto.ResponseFiles)
	if err != nil {
		return nil, zerr.With(err, "command", name)
	}

	deps := make([]domain.InternedString, len(dto.DependsOn))
	for i, dep := range dto.DependsOn {
		deps[i] = domain.NewInternedString(dep)
	}

	return &domain.Command{
		Name:                         domain.NewInternedString(name),
		Kind:                         kind,
		Program:                      dto.Program,
		Args:                         dto.Args,
		Env:                          dto.Env,
		Cwd:                          dto.Cwd,
		Inputs:                       dto.Inputs,
		Intermediates:                dto.Intermediates,
		Outputs:                      dto.Outputs,
		StdinRedirect:                dto.Stdin,
		StdoutRedirect:               dto.Stdout,
		StderrRedirect:               dto.Stderr,
		ResponseFiles:                rsp,
		StrictOrder:                  dto.StrictOrder,
		Pool:                         dto.Pool,
		AlwaysRun:                    dto.Always,
		Silent:                       dto.Silent,
		RecordInputsMtime:            dto.RecordMtimes,
		RemoveOutputsBeforeExecution: dto.CleanOutputs,
		Unused:                       unused,
		Dependencies:                 deps,
	}, nil
}

func parseKind(s string) (domain.Kind, error) {
	switch s {
	case "", "process":
		return domain.KindProcess, nil
	case "capture":
		return domain.KindCapture, nil
	case "copy":
		return domain.KindCopyFile, nil
	default:
		return 0, zerr.With(zerr.New("unknown command kind"), "kind", s)
	}
}

func parseMaybeUnused(s string) (domain.MaybeUnused, error) {
	switch s {
	case "", "never":
		return domain.MUFalse, nil
	case "if-inputs-exist":
		return domain.MUTrue, nil
	case "always":
		return domain.MUAlways, nil
	default:
		return 0, zerr.With(zerr.New("unknown maybeUnused value"), "maybeUnused", s)
	}
}

func parseResponseFiles(s string) (domain.ResponseFilePolicy, error) {
	switch s {
	case "", "never":
		return domain.ResponseFileNever, nil
	case "auto":
		return domain.ResponseFileIfTooLong, nil
	case "always":
		return domain.ResponseFileAlways, nil
	default:
		return 0, zerr.With(zerr.New("unknown responseFiles value"), "responseFiles", s)
	}
}
