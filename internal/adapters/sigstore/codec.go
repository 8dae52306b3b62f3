package sigstore

import (
	"bytes"
	"encoding/binary"
	"sort"

	"go.trai.ch/sw/internal/core/domain"
	"go.trai.ch/zerr"
)

// On-disk layout, little-endian throughout:
//
//	header:  magic u32, schema_version u32
//	record:  path_len u32, path bytes, mtime u64, size u64,
//	         strong_hash tag u8 (1 = present, followed by u64),
//	         last_fingerprint u64
//
// Schema version increments break compatibility; a mismatched file is
// discarded, not migrated.
const (
	storeMagic    uint32 = 0x53_57_46_53 // "SWFS"
	schemaVersion uint32 = 1
)

func encode(records map[string]domain.Signature) []byte {
	paths := make([]string, 0, len(records))
	for p := range records {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	writeU32(&buf, storeMagic)
	writeU32(&buf, schemaVersion)

	for _, path := range paths {
		sig := records[path]
		writeU32(&buf, uint32(len(path)))
		buf.WriteString(path)
		writeU64(&buf, uint64(sig.MTime))
		writeU64(&buf, sig.Size)
		if sig.HasStrong {
			buf.WriteByte(1)
			writeU64(&buf, sig.StrongHash)
		} else {
			buf.WriteByte(0)
		}
		writeU64(&buf, sig.LastFingerprint)
	}

	return buf.Bytes()
}

func decode(data []byte) (map[string]domain.Signature, error) {
	r := &reader{data: data}

	magic, err := r.u32()
	if err != nil || magic != storeMagic {
		return nil, domain.ErrStoreCorrupt
	}
	version, err := r.u32()
	if err != nil {
		return nil, domain.ErrStoreCorrupt
	}
	if version != schemaVersion {
		err := zerr.With(zerr.Wrap(domain.ErrStoreVersionMismatch, "unsupported store file"), "file_version", version)
		return nil, zerr.With(err, "supported_version", schemaVersion)
	}

	records := make(map[string]domain.Signature)
	for !r.done() {
		sig, err := r.record()
		if err != nil {
			return nil, err
		}
		records[sig.Path] = sig
	}
	return records, nil
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) done() bool { return r.off >= len(r.data) }

func (r *reader) take(n int) ([]byte, error) {
	if r.off+n > len(r.data) {
		return nil, domain.ErrStoreCorrupt
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) u8() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) record() (domain.Signature, error) {
	var sig domain.Signature

	pathLen, err := r.u32()
	if err != nil {
		return sig, err
	}
	path, err := r.take(int(pathLen))
	if err != nil {
		return sig, err
	}
	sig.Path = string(path)

	mtime, err := r.u64()
	if err != nil {
		return sig, err
	}
	sig.MTime = int64(mtime)

	if sig.Size, err = r.u64(); err != nil {
		return sig, err
	}

	tag, err := r.u8()
	if err != nil {
		return sig, err
	}
	if tag == 1 {
		if sig.StrongHash, err = r.u64(); err != nil {
			return sig, err
		}
		sig.HasStrong = true
	} else if tag != 0 {
		return sig, domain.ErrStoreCorrupt
	}

	if sig.LastFingerprint, err = r.u64(); err != nil {
		return sig, err
	}

	return sig, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
