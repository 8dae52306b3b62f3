package ports

import "go.trai.ch/sw/internal/core/domain"

// SignatureStore maps filesystem paths to their last observed signature and
// persists them across runs so unchanged work can be skipped.
//
// Within one run Probe is monotonic: after Refresh for a path, Probe never
// returns the pre-refresh record.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type SignatureStore interface {
	// Probe returns the signature for path, stat-only and cheap. The
	// second result is false when the path does not exist.
	Probe(path string) (domain.Signature, bool)

	// StrongHash returns the content hash of path, computing and
	// memoizing it on first use within the run.
	StrongHash(path string) (uint64, error)

	// Refresh re-stats path after a command wrote it, invalidates any
	// memoized strong hash and records the fingerprint of the command
	// that produced it.
	Refresh(path string, fingerprint uint64) error

	// LastFingerprint returns the fingerprint recorded for path by a
	// previous Refresh, zero when unknown.
	LastFingerprint(path string) uint64

	// Save persists the store to its backing file.
	Save() error
}
