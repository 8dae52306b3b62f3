package domain

import (
	"encoding/binary"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// FingerprintInputs carries the prepare-time observations that feed the
// digest but live outside the command definition itself.
type FingerprintInputs struct {
	// ProgramHash is the strong hash of the resolved program binary, so a
	// toolchain swap at the same path invalidates the command.
	ProgramHash uint64

	// InputMtimes maps input path to mtime (nanoseconds since the Unix
	// epoch). Only consulted when the command records input mtimes.
	InputMtimes map[string]int64

	// ResponseFileContents is hashed instead of the raw argv tail when a
	// response file is in use, so the digest follows the bytes the program
	// actually reads.
	ResponseFileContents string
}

// ComputeFingerprint derives the stable 64-bit digest of a command's
// semantics. Two commands built from the same specification hash equal
// across processes: map-ordered fields are sorted byte-wise and every
// field is NUL-terminated so adjacent fields cannot alias.
func ComputeFingerprint(c *Command, in FingerprintInputs) uint64 {
	d := xxhash.New()

	writeField(d, c.Program)

	if in.ResponseFileContents != "" {
		writeField(d, in.ResponseFileContents)
	} else {
		for _, a := range c.Args {
			writeField(d, a)
		}
	}
	section(d)

	writeSortedEnv(d, c.Env)
	writeField(d, c.Cwd)

	outs := make([]string, len(c.Outputs))
	for i, o := range c.Outputs {
		outs[i] = NormalizePath(o)
	}
	sort.Strings(outs)
	for _, o := range outs {
		writeField(d, o)
	}
	section(d)

	writeField(d, c.StdinRedirect)
	writeField(d, c.StdoutRedirect)
	writeField(d, c.StderrRedirect)
	writeField(d, strconv.Itoa(int(c.ResponseFiles)))
	writeField(d, strconv.Itoa(int(c.Kind)))

	if c.RecordInputsMtime {
		ins := make([]string, len(c.Inputs))
		copy(ins, c.Inputs)
		sort.Strings(ins)
		for _, p := range ins {
			writeField(d, p)
			writeU64(d, uint64(in.InputMtimes[p]))
		}
		section(d)
	}

	writeU64(d, in.ProgramHash)

	return d.Sum64()
}

func writeField(d *xxhash.Digest, s string) {
	_, _ = d.WriteString(s)
	_, _ = d.Write([]byte{0})
}

func section(d *xxhash.Digest) {
	_, _ = d.Write([]byte{0})
}

func writeU64(d *xxhash.Digest, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = d.Write(buf[:])
}

func writeSortedEnv(d *xxhash.Digest, env map[string]string) {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		_, _ = d.WriteString(k)
		_, _ = d.Write([]byte{'='})
		_, _ = d.WriteString(env[k])
		_, _ = d.Write([]byte{0})
	}
	section(d)
}
