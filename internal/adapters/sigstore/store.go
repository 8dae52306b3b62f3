// Package sigstore implements the persistent file signature store.
package sigstore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/sw/internal/core/domain"
	"go.trai.ch/sw/internal/core/ports"
	"go.trai.ch/zerr"
)

// shardCount keeps probe contention low; probes for different paths take
// different locks.
const shardCount = 16

var _ ports.SignatureStore = (*Store)(nil)

type shard struct {
	mu   sync.RWMutex
	live map[string]domain.Signature
}

// Store implements ports.SignatureStore with a sharded in-memory map over a
// persisted snapshot. Probes within one run are monotonic: once Refresh has
// run for a path, later probes see the post-refresh record.
type Store struct {
	path   string
	hasher ports.StrongHasher

	persisted map[string]domain.Signature
	shards    [shardCount]shard
}

// New creates a Store backed by the file at path. A missing file yields an
// empty store; a corrupt or version-mismatched file is reported through the
// returned warning error and the store starts empty, per the best-effort
// contract.
func New(path string, hasher ports.StrongHasher) (*Store, error) {
	s := &Store{
		path:      filepath.Clean(path),
		hasher:    hasher,
		persisted: make(map[string]domain.Signature),
	}
	for i := range s.shards {
		s.shards[i].live = make(map[string]domain.Signature)
	}

	err := s.load()
	if err != nil {
		s.persisted = make(map[string]domain.Signature)
	}
	return s, err
}

func (s *Store) shardFor(path string) *shard {
	return &s.shards[xxhash.Sum64String(path)%shardCount]
}

// Probe returns the signature of path. The first probe of a run stats the
// filesystem and merges the persisted record; later probes are served from
// the shard map.
func (s *Store) Probe(path string) (domain.Signature, bool) {
	sh := s.shardFor(path)

	sh.mu.RLock()
	sig, ok := sh.live[path]
	sh.mu.RUnlock()
	if ok {
		return sig, true
	}

	info, err := os.Stat(path)
	if err != nil {
		return domain.Signature{}, false
	}

	sig = domain.Signature{
		Path:  path,
		MTime: info.ModTime().UnixNano(),
		Size:  uint64(info.Size()),
	}

	if prev, ok := s.persisted[path]; ok {
		sig.LastFingerprint = prev.LastFingerprint
		// A persisted strong hash stays valid while mtime and size agree.
		if prev.HasStrong && prev.MTime == sig.MTime && prev.Size == sig.Size {
			sig.StrongHash = prev.StrongHash
			sig.HasStrong = true
		}
	}

	sh.mu.Lock()
	// Another prober may have raced us; first write wins so the view stays
	// monotonic.
	if cur, ok := sh.live[path]; ok {
		sig = cur
	} else {
		sh.live[path] = sig
	}
	sh.mu.Unlock()

	return sig, true
}

// StrongHash returns the memoized content hash of path, computing it on
// first use.
func (s *Store) StrongHash(path string) (uint64, error) {
	sig, ok := s.Probe(path)
	if !ok {
		return 0, zerr.With(zerr.Wrap(ErrStoreStat, "strong hash unavailable"), "path", path)
	}
	if sig.HasStrong {
		return sig.StrongHash, nil
	}

	h, err := s.hasher.HashFile(path)
	if err != nil {
		return 0, err
	}

	sh := s.shardFor(path)
	sh.mu.Lock()
	sig = sh.live[path]
	sig.StrongHash = h
	sig.HasStrong = true
	sh.live[path] = sig
	sh.mu.Unlock()

	return h, nil
}

// Refresh re-stats path after it was written, drops any memoized strong
// hash and records the producing command's fingerprint.
func (s *Store) Refresh(path string, fingerprint uint64) error {
	info, err := os.Stat(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to stat refreshed output"), "path", path)
	}

	sh := s.shardFor(path)
	sh.mu.Lock()
	sh.live[path] = domain.Signature{
		Path:            path,
		MTime:           info.ModTime().UnixNano(),
		Size:            uint64(info.Size()),
		LastFingerprint: fingerprint,
	}
	sh.mu.Unlock()

	return nil
}

// LastFingerprint returns the fingerprint recorded for path, consulting the
// run's records first and the persisted snapshot second.
func (s *Store) LastFingerprint(path string) uint64 {
	sh := s.shardFor(path)
	sh.mu.RLock()
	sig, ok := sh.live[path]
	sh.mu.RUnlock()
	if ok {
		return sig.LastFingerprint
	}
	if prev, ok := s.persisted[path]; ok {
		return prev.LastFingerprint
	}
	return 0
}

// Save persists the snapshot merged with this run's records.
func (s *Store) Save() error {
	merged := make(map[string]domain.Signature, len(s.persisted))
	for path, sig := range s.persisted {
		merged[path] = sig
	}
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for path, sig := range sh.live {
			merged[path] = sig
		}
		sh.mu.RUnlock()
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return zerr.Wrap(err, "failed to create directory for signature store")
		}
	}

	data := encode(merged)
	//nolint:gosec // Path is cleaned and provided by trusted caller
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return zerr.Wrap(err, domain.ErrStoreIO.Error())
	}
	return nil
}

func (s *Store) load() error {
	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.Wrap(err, domain.ErrStoreIO.Error())
	}
	if len(data) == 0 {
		return nil
	}

	records, err := decode(data)
	if err != nil {
		return err
	}
	s.persisted = records
	return nil
}

// ErrStoreStat is returned when a strong hash is requested for a path that
// cannot be stat'ed.
var ErrStoreStat = zerr.New("cannot stat path for strong hash")
