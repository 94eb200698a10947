package store

import (
	"encoding/hex"
	"fmt"

	"terragen.ai/internal/persistence/snapshot"
)

// ExportChunks returns every finished chunk in key order.
func (s *ChunkStore) ExportChunks() []snapshot.ChunkV1 {
	keys := s.LoadedChunkKeys()
	out := make([]snapshot.ChunkV1, 0, len(keys))
	for _, k := range keys {
		ch, ok := s.Get(k)
		if !ok {
			continue
		}
		d := ch.Digest()
		out = append(out, snapshot.ChunkV1{
			CX:        ch.CX,
			CZ:        ch.CZ,
			MaxHeight: ch.MaxHeight,
			Digest:    hex.EncodeToString(d[:]),
			Blocks:    EncodeRLE(ch.Blocks),
		})
	}
	return out
}

// ImportChunks restores exported chunks. Each chunk's blocks must hash to
// its recorded digest.
func (s *ChunkStore) ImportChunks(chunks []snapshot.ChunkV1) error {
	maxH := s.cx.Dimension().MaxHeight
	for _, c := range chunks {
		if c.MaxHeight != maxH {
			return fmt.Errorf("snapshot chunk (%d,%d) height %d, want %d", c.CX, c.CZ, c.MaxHeight, maxH)
		}
		blocks, err := DecodeRLE(c.Blocks, colArea*maxH)
		if err != nil {
			return fmt.Errorf("snapshot chunk (%d,%d): %w", c.CX, c.CZ, err)
		}
		d := digestBlocks(blocks)
		if got := hex.EncodeToString(d[:]); got != c.Digest {
			return fmt.Errorf("snapshot chunk (%d,%d): digest mismatch", c.CX, c.CZ)
		}
		if _, err := s.Restore(c.CX, c.CZ, blocks); err != nil {
			return err
		}
	}
	return nil
}
