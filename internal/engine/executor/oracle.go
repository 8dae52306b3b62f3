package executor

import (
	"go.trai.ch/sw/internal/core/domain"
	"go.trai.ch/sw/internal/core/ports"
)

// oracle decides whether a prepared command must run, consulting the
// signature store.
type oracle struct {
	store ports.SignatureStore
}

// isOutdated applies the outdatedness protocol:
//
//  1. always-run commands (including output-less ones) are outdated;
//  2. a missing output makes the command outdated;
//  3. a fingerprint differing from the one recorded for the first output
//     catches argument, environment and toolchain drift;
//  4. an input newer than the oldest output catches source edits between
//     runs without re-hashing anything.
func (o *oracle) isOutdated(c *domain.Command) bool {
	if c.EffectiveAlwaysRun() {
		return true
	}

	minOutputMtime := int64(0)
	for i, out := range c.Outputs {
		sig, ok := o.store.Probe(out)
		if !ok {
			return true
		}
		if i == 0 || sig.MTime < minOutputMtime {
			minOutputMtime = sig.MTime
		}
	}

	if o.store.LastFingerprint(c.Outputs[0]) != c.Fingerprint() {
		return true
	}

	for _, in := range c.Inputs {
		sig, ok := o.store.Probe(in)
		if !ok {
			// A vanished input will fail the command when it runs; that
			// is the command's problem, not the oracle's.
			return true
		}
		if sig.MTime > minOutputMtime {
			return true
		}
	}

	return false
}
