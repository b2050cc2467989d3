// Package noun implements the content-addressed immutable data segment
// produced alongside Stage-1/Stage-2 code: string, Helix and Xenith payloads
// deduplicated by a 256-bit hash of their contents.
package noun

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/hackia/thot/internal/asmerr"
)

const (
	headerSize = 48

	// TypeData is the only payload type the emitter currently allocates.
	TypeData uint32 = 1

	permReadOnly uint32 = 1

	// Base is the fixed runtime address Noun addresses are based at:
	// 0x7E00 + 0x200, the first byte past a one-sector Stage-2.
	Base = 0x8000
)

// Store is the Noun segment being built: its raw bytes plus the CAS
// dictionary used for deduplication.
type Store struct {
	buf []byte
	cas map[[32]byte]uint16
}

// New returns an empty Noun store.
func New() *Store {
	return &Store{cas: make(map[[32]byte]uint16)}
}

// Bytes returns the Noun segment's current contents.
func (s *Store) Bytes() []byte { return s.buf }

// Len reports the current length of the Noun segment.
func (s *Store) Len() int { return len(s.buf) }

// Alloc writes payload's 48-byte header and content, deduplicating by hash,
// and returns the runtime address of the payload (not the header), based at
// Base — the fixed address the Noun segment is loaded at.
//
// Identical payloads always return the same address; the Noun
// only grows on the first call for a given payload.
func (s *Store) Alloc(typ uint32, payload []byte, entrypoint uint32) (uint16, error) {
	hash := sha256.Sum256(payload)
	if addr, ok := s.cas[hash]; ok {
		return addr, nil
	}

	for len(s.buf)%4 != 0 {
		s.buf = append(s.buf, 0)
	}

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], typ)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[8:12], permReadOnly)
	binary.LittleEndian.PutUint32(header[12:16], entrypoint)
	copy(header[16:48], hash[:])
	s.buf = append(s.buf, header...)

	absAddr := Base + len(s.buf)
	if absAddr > 0xFFFF {
		return 0, asmerr.New(asmerr.Range, asmerr.Position{}, "noun bump exceeds u16 address space: %d", absAddr)
	}
	addr := uint16(absAddr)

	s.buf = append(s.buf, payload...)
	s.cas[hash] = addr
	return addr, nil
}

// AllocString allocates a NUL-terminated string payload.
func (s *Store) AllocString(str string) (uint16, error) {
	payload := append([]byte(str), 0)
	return s.Alloc(TypeData, payload, 0)
}

// AllocHelixLiteral writes a 16-byte block: ra as a little-endian u64 at
// offset 0, apophis as a little-endian u64 at offset 8. Only meaningful for
// Extreme (128-bit) register destinations.
func (s *Store) AllocHelixLiteral(ra, apophis uint16) (uint16, error) {
	payload := make([]byte, 16)
	binary.LittleEndian.PutUint64(payload[0:8], uint64(ra))
	binary.LittleEndian.PutUint64(payload[8:16], uint64(apophis))
	return s.Alloc(TypeData, payload, 0)
}

// AllocXenithLiteral writes a 32-byte block with the same channel layout as
// AllocHelixLiteral in the low 16 bytes, zero-padded to 32.
func (s *Store) AllocXenithLiteral(ra, apophis uint16) (uint16, error) {
	payload := make([]byte, 32)
	binary.LittleEndian.PutUint64(payload[0:8], uint64(ra))
	binary.LittleEndian.PutUint64(payload[8:16], uint64(apophis))
	return s.Alloc(TypeData, payload, 0)
}
