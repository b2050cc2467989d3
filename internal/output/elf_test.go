package output_test

import (
	"encoding/binary"
	"testing"

	"github.com/hackia/thot/internal/output"
)

func TestSarcophageWritesElfMagicAndClass(t *testing.T) {
	img := output.Sarcophage([]byte{0x90})
	if len(img) < 16 {
		t.Fatalf("got %d bytes, want at least a 16-byte e_ident", len(img))
	}
	if string(img[0:4]) != "\x7fELF" {
		t.Fatalf("got %v, want the ELF magic number", img[0:4])
	}
	if img[4] != 2 {
		t.Fatalf("got ELF class %d, want 2 (ELFCLASS64)", img[4])
	}
	if img[5] != 1 {
		t.Fatalf("got data encoding %d, want 1 (little-endian)", img[5])
	}
}

func TestSarcophageAppendsCodeAfterTheHeaders(t *testing.T) {
	code := []byte{0xC3, 0x90, 0xCC}
	img := output.Sarcophage(code)
	tail := img[len(img)-len(code):]
	if string(tail) != string(code) {
		t.Fatalf("got trailing bytes % X, want the original code % X", tail, code)
	}
}

func TestSarcophageEntryPointMatchesHeaderLengths(t *testing.T) {
	img := output.Sarcophage([]byte{0x90})
	entry := binary.LittleEndian.Uint64(img[24:32])
	if entry != 0x400078 {
		t.Fatalf("got entry point %#x, want 0x400078", entry)
	}
}

func TestSarcophageFileSizeAccountsForCodeLength(t *testing.T) {
	code := make([]byte, 100)
	img := output.Sarcophage(code)
	if len(img) != 120+len(code) {
		t.Fatalf("got image length %d, want %d (120-byte header total + code)", len(img), 120+len(code))
	}
}
