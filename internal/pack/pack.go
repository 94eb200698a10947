// Package pack resolves where a session's generator pack comes from: a
// local directory, a remote source fetched with go-getter, or the built-in
// default.
package pack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	getter "github.com/hashicorp/go-getter"

	"terragen.ai/internal/gen/catalog"
)

// Fetch downloads the pack directory at src (any go-getter source string:
// a local path, git::, https:// archive, s3::, ...) into dst, replacing
// whatever dst held before.
func Fetch(ctx context.Context, src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("fetch pack: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("fetch pack: %w", err)
	}
	pwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("fetch pack: %w", err)
	}
	c := &getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: getter.ClientModeDir,
	}
	if err := c.Get(); err != nil {
		return fmt.Errorf("fetch pack %s: %w", src, err)
	}
	return nil
}

// Source describes where to load a pack from. Remote wins over Dir; with
// neither set the built-in default pack is used.
type Source struct {
	Dir    string
	Remote string
	// CacheDir receives fetched packs.
	CacheDir string
}

// Open resolves s into a validated store.
func Open(ctx context.Context, s Source) (*catalog.Store, error) {
	dir := s.Dir
	if s.Remote != "" {
		if s.CacheDir == "" {
			return nil, fmt.Errorf("open pack: remote %s needs a cache dir", s.Remote)
		}
		dir = filepath.Join(s.CacheDir, "pack")
		if err := Fetch(ctx, s.Remote, dir); err != nil {
			return nil, err
		}
	}
	if dir == "" {
		return catalog.NewStore(catalog.Default())
	}
	return catalog.Load(dir)
}
