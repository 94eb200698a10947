// Package archive keeps superseded session snapshots. Before a snapshot is
// overwritten it is copied to <data>/archives/<created>/ with a meta.json
// describing it.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"terragen.ai/internal/persistence/snapshot"
)

type SessionArchiveMeta struct {
	Seed       int64  `json:"seed"`
	Dimension  string `json:"dimension"`
	PackDigest string `json:"pack_digest"`
	Chunks     int    `json:"chunks"`
	Created    string `json:"created"`
	ArchivedAt string `json:"archived_at"`
	Snapshot   string `json:"snapshot"`
}

// ArchiveSession copies the snapshot at snapshotPath into
// dataDir/archives/<created>/. It returns archived=false when there is no
// snapshot to archive.
func ArchiveSession(dataDir, snapshotPath string) (archivedPath string, archived bool, err error) {
	h, err := snapshot.ReadHeader(snapshotPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("archive %s: %w", filepath.Base(snapshotPath), err)
	}

	archiveDir := filepath.Join(dataDir, "archives", h.Created.UTC().Format("20060102-150405.000000000"))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}
	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := SessionArchiveMeta{
		Seed:       h.Seed,
		Dimension:  h.Dimension,
		PackDigest: h.PackDigest,
		Chunks:     h.Chunks,
		Created:    h.Created.UTC().Format(time.RFC3339Nano),
		ArchivedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Snapshot:   filepath.Base(dst),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}
	return dst, true, nil
}

// List returns the metadata of every archive under dataDir, oldest first.
func List(dataDir string) ([]SessionArchiveMeta, error) {
	dir := filepath.Join(dataDir, "archives")
	ents, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	var out []SessionArchiveMeta
	for _, n := range names {
		raw, err := os.ReadFile(filepath.Join(dir, n, "meta.json"))
		if err != nil {
			continue
		}
		var m SessionArchiveMeta
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("archive %s: %w", n, err)
		}
		m.Snapshot = filepath.Join(dir, n, m.Snapshot)
		out = append(out, m)
	}
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
