package fs

import (
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/sw/internal/core/domain"
	"go.trai.ch/sw/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ProgramResolver = (*Resolver)(nil)

// Resolver resolves program names against an explicit PATH-like search
// list, so resolution does not depend on process-global state.
type Resolver struct {
	path string
}

// NewResolver creates a Resolver searching the given PATH string. An empty
// string falls back to the process environment's PATH.
func NewResolver(path string) *Resolver {
	if path == "" {
		path = os.Getenv("PATH")
	}
	return &Resolver{path: path}
}

// ResolveProgram returns the absolute path of the executable.
func (r *Resolver) ResolveProgram(name string) (string, error) {
	if filepath.IsAbs(name) {
		if err := findExecutable(name); err != nil {
			return "", zerr.With(zerr.Wrap(domain.ErrProgramNotFound, err.Error()), "program", name)
		}
		return name, nil
	}

	// Names with a path separator resolve relative to the working
	// directory, like a shell would.
	if strings.ContainsRune(name, os.PathSeparator) {
		abs, err := filepath.Abs(name)
		if err != nil {
			return "", zerr.With(zerr.Wrap(domain.ErrProgramNotFound, err.Error()), "program", name)
		}
		if err := findExecutable(abs); err != nil {
			return "", zerr.With(zerr.Wrap(domain.ErrProgramNotFound, err.Error()), "program", name)
		}
		return abs, nil
	}

	for _, dir := range filepath.SplitList(r.path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		if err := findExecutable(candidate); err == nil {
			return filepath.Clean(candidate), nil
		}
	}

	return "", zerr.With(zerr.Wrap(domain.ErrProgramNotFound, "not found on search path"), "program", name)
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
