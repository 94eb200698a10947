package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.snap.zst")
	in := SessionV1{
		Header:   Header{Seed: 42, Dimension: "overworld", PackDigest: "abc123", Created: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		Radius:   4,
		Registry: "sqlite",
		Chunks: []ChunkV1{
			{CX: 0, CZ: 0, MaxHeight: 256, Digest: "00ff", Blocks: []byte{1, 2, 3}},
			{CX: -1, CZ: 5, MaxHeight: 256, Digest: "ff00", Blocks: []byte{4}},
		},
		Layers:  []ChunkKeyV1{{CX: 7, CZ: -7}},
		Pending: []WriteV1{{X: 113, Y: 70, Z: -100, Block: 9}},
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.Version != Version || h.Chunks != 2 || h.Seed != 42 {
		t.Fatalf("header = %+v", h)
	}

	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if out.Radius != 4 || out.Registry != "sqlite" || len(out.Chunks) != 2 {
		t.Fatalf("snapshot = %+v", out)
	}
	if c := out.Chunks[1]; c.CX != -1 || c.CZ != 5 || c.Digest != "ff00" || len(c.Blocks) != 1 {
		t.Fatalf("chunk = %+v", c)
	}
	if len(out.Layers) != 1 || out.Layers[0].CZ != -7 || len(out.Pending) != 1 || out.Pending[0].Block != 9 {
		t.Fatalf("mantle state = %+v %+v", out.Layers, out.Pending)
	}
	if !out.Header.Created.Equal(in.Header.Created) {
		t.Fatalf("created = %v", out.Header.Created)
	}
}

func TestHeaderCheck(t *testing.T) {
	h := Header{Version: Version, Seed: 1, Dimension: "d", PackDigest: "p"}
	if err := h.Check(1, "d", "p"); err != nil {
		t.Fatalf("Check: %v", err)
	}
	for name, err := range map[string]error{
		"seed":      h.Check(2, "d", "p"),
		"dimension": h.Check(1, "e", "p"),
		"pack":      h.Check(1, "d", "q"),
	} {
		if !errors.Is(err, ErrMismatch) {
			t.Fatalf("%s: got %v", name, err)
		}
	}
}

func TestReadMissing(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "none")); !os.IsNotExist(err) {
		t.Fatalf("ReadSnapshot on missing file: %v", err)
	}
}
