package executor

import (
	"os"
	"path/filepath"

	"go.trai.ch/sw/internal/core/domain"
	"go.trai.ch/sw/internal/core/ports"
	"go.trai.ch/zerr"
)

// preparer runs the per-command prepare phase: program resolution,
// directory materialization, response-file generation and fingerprint
// sealing. Prepare is idempotent; a sealed command passes through.
type preparer struct {
	resolver ports.ProgramResolver
	store    ports.SignatureStore
}

func (p *preparer) prepare(c *domain.Command) error {
	if c.Prepared() {
		return nil
	}

	in := domain.FingerprintInputs{}

	if c.Kind != domain.KindCopyFile {
		program, err := p.resolver.ResolveProgram(c.Program)
		if err != nil {
			return err
		}
		c.Program = program

		hash, err := p.store.StrongHash(program)
		if err != nil {
			return zerr.Wrap(err, "failed to hash program")
		}
		in.ProgramHash = hash
	}

	if err := materializeDirs(c); err != nil {
		return err
	}

	if c.Kind != domain.KindCopyFile && c.NeedsResponseFile() {
		contents := c.ResponseFileContents()
		path := c.ResponseFilePath()
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil { //nolint:gosec // Build artifact
			return zerr.With(zerr.Wrap(err, domain.ErrResponseFileIO.Error()), "path", path)
		}
		c.SetResponseFile(path)
		c.Intermediates = append(c.Intermediates, path)
		in.ResponseFileContents = contents
	}

	if c.RecordInputsMtime {
		in.InputMtimes = make(map[string]int64, len(c.Inputs))
		for _, input := range c.Inputs {
			if sig, ok := p.store.Probe(input); ok {
				in.InputMtimes[input] = sig.MTime
			}
		}
	}

	c.Seal(domain.ComputeFingerprint(c, in))
	return nil
}

// materializeDirs creates the parent directories of everything the command
// will write, so the child process never fails on a missing directory.
func materializeDirs(c *domain.Command) error {
	var paths []string
	paths = append(paths, c.Outputs...)
	paths = append(paths, c.Intermediates...)
	if c.StdoutRedirect != "" {
		paths = append(paths, c.StdoutRedirect)
	}
	if c.StderrRedirect != "" {
		paths = append(paths, c.StderrRedirect)
	}

	for _, path := range paths {
		dir := filepath.Dir(path)
		if dir == "." || dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", dir)
		}
	}
	return nil
}
