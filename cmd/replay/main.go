package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"terragen.ai/internal/gen/terrain"
	"terragen.ai/internal/pack"
	"terragen.ai/internal/persistence/registry"
	"terragen.ai/internal/persistence/snapshot"
	"terragen.ai/internal/session"
	"terragen.ai/internal/sim/store"
)

func main() {
	var (
		dataDir  = flag.String("data", "./data", "runtime data directory")
		snapPath = flag.String("snapshot", "", "path to .snap.zst (default: <data>/session.snap.zst)")
		packDir  = flag.String("pack", "", "generator pack directory the snapshot was made with (empty: built-in default)")
		rebuild  = flag.String("rebuild", "", "rebuild a registry of this kind (sqlite|leveldb) from <data>/events into -out")
		outPath  = flag.String("out", "", "output path for -rebuild (must not exist)")
	)
	flag.Parse()

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		path = session.SnapshotPath(*dataDir)
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot v%d seed=%d dimension=%s pack=%.12s created=%s chunks=%d layers=%d pending=%d registry=%s\n",
		snap.Header.Version, snap.Header.Seed, snap.Header.Dimension, snap.Header.PackDigest,
		snap.Header.Created.Format("2006-01-02T15:04:05Z"), len(snap.Chunks), len(snap.Layers), len(snap.Pending), snap.Registry)

	ctx := context.Background()
	cat, err := pack.Open(ctx, pack.Source{Dir: strings.TrimSpace(*packDir)})
	if err != nil {
		fmt.Fprintln(os.Stderr, "open pack:", err)
		os.Exit(1)
	}
	if err := snap.Header.Check(snap.Header.Seed, cat.Dimension().Key, cat.Digest); err != nil {
		fmt.Fprintln(os.Stderr, "pack:", err)
		os.Exit(1)
	}
	cx, err := terrain.New(terrain.Config{Seed: snap.Header.Seed, Store: cat})
	if err != nil {
		fmt.Fprintln(os.Stderr, "terrain:", err)
		os.Exit(1)
	}
	chunks, err := store.New(store.Config{Complex: cx})
	if err != nil {
		fmt.Fprintln(os.Stderr, "store:", err)
		os.Exit(1)
	}
	if err := chunks.ImportChunks(snap.Chunks); err != nil {
		fmt.Fprintln(os.Stderr, "verify:", err)
		os.Exit(1)
	}
	fmt.Printf("verify ok: %d chunk digests match\n", chunks.Len())

	if *rebuild == "" {
		return
	}
	out := strings.TrimSpace(*outPath)
	if out == "" {
		out = filepath.Join(*dataDir, "registry.rebuilt."+*rebuild)
	}
	if _, err := os.Stat(out); err == nil {
		fmt.Fprintln(os.Stderr, "refusing to overwrite", out)
		os.Exit(2)
	}
	reg, err := registry.Open(*rebuild, out)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open registry:", err)
		os.Exit(1)
	}
	n, err := session.ReplayPlacements(ctx, *dataDir, snap.Header.Seed, reg)
	if cerr := reg.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: %d placements into %s\n", n, out)
}
