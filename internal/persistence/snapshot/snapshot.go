// Package snapshot saves a generation session so that a later run with the
// same seed and pack can resume without regenerating finished chunks.
//
// A file is zstd(JSON header line + gob body).
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

var ErrMismatch = errors.New("snapshot does not match session")

type Header struct {
	Version    int       `json:"version"`
	Seed       int64     `json:"seed"`
	Dimension  string    `json:"dimension"`
	PackDigest string    `json:"pack_digest"`
	Created    time.Time `json:"created"`
	Chunks     int       `json:"chunks"`
}

type SessionV1 struct {
	Header Header `json:"header"`

	Radius   int    `json:"radius"`
	Registry string `json:"registry"`

	Chunks []ChunkV1 `json:"chunks"`
	// Layers are chunks whose structure layer already ran; Pending holds
	// structure blocks recorded for chunks not yet generated.
	Layers  []ChunkKeyV1 `json:"layers"`
	Pending []WriteV1    `json:"pending"`
}

type ChunkKeyV1 struct {
	CX int `json:"cx"`
	CZ int `json:"cz"`
}

type WriteV1 struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
	Block uint16 `json:"block"`
}

// ChunkV1 is one finished chunk. Blocks is the run-length encoded palette
// id array; Digest is the hex sha256 of the decoded ids.
type ChunkV1 struct {
	CX        int    `json:"cx"`
	CZ        int    `json:"cz"`
	MaxHeight int    `json:"max_height"`
	Digest    string `json:"digest"`
	Blocks    []byte `json:"blocks"`
}

// Check reports whether the snapshot belongs to a session with this seed,
// dimension and pack digest.
func (h Header) Check(seed int64, dimension, packDigest string) error {
	switch {
	case h.Version != Version:
		return fmt.Errorf("%w: version %d, want %d", ErrMismatch, h.Version, Version)
	case h.Seed != seed:
		return fmt.Errorf("%w: seed %d, want %d", ErrMismatch, h.Seed, seed)
	case h.Dimension != dimension:
		return fmt.Errorf("%w: dimension %q, want %q", ErrMismatch, h.Dimension, dimension)
	case h.PackDigest != packDigest:
		return fmt.Errorf("%w: pack digest %.12s, want %.12s", ErrMismatch, h.PackDigest, packDigest)
	}
	return nil
}

// WriteSnapshot writes to a temporary file and renames it over path, so a
// crash never leaves a truncated snapshot behind.
func WriteSnapshot(path string, snap SessionV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	snap.Header.Version = Version
	snap.Header.Chunks = len(snap.Chunks)

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func open(path string) (*os.File, *zstd.Decoder, *bufio.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, nil, err
	}
	return f, dec, bufio.NewReaderSize(dec, 256*1024), nil
}

// ReadHeader decodes only the header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, dec, br, err := open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	defer dec.Close()
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

func ReadSnapshot(path string) (SessionV1, error) {
	var snap SessionV1
	f, dec, br, err := open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()
	defer dec.Close()

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
