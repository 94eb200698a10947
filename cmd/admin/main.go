package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"terragen.ai/internal/persistence/archive"
	persistlog "terragen.ai/internal/persistence/log"
	"terragen.ai/internal/persistence/snapshot"
	"terragen.ai/internal/session"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "placements":
			placementsCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "metrics":
			metricsCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints archived sessions, oldest first.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	metas, err := archive.List(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, m := range metas {
		printJSON(m)
	}
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to <data>/session.snap.zst)")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		path = session.SnapshotPath(*dataDir)
	}
	h, err := snapshot.ReadHeader(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	printJSON(h)
}

func placementsCmd(args []string) {
	fs := flag.NewFlagSet("placements", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	structure := fs.String("structure", "", "structure key filter (optional)")
	seed := fs.Int64("seed", 0, "seed filter (optional; 0 means any)")
	aabb := fs.String("aabb", "", "horizontal filter: x1,z1:x2,z2 (optional)")
	_ = fs.Parse(args)

	var box *[4]int
	if s := strings.TrimSpace(*aabb); s != "" {
		b, err := parseAABB(s)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -aabb:", err)
			os.Exit(2)
		}
		box = &b
	}

	evs, err := persistlog.ReadPlacements(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read events:", err)
		os.Exit(1)
	}
	n := 0
	for _, ev := range evs {
		p := ev.Placement
		if *structure != "" && p.Structure != *structure {
			continue
		}
		if *seed != 0 && ev.Seed != *seed {
			continue
		}
		if box != nil && !within(p.Anchor.X, p.Anchor.Z, *box) {
			continue
		}
		printJSON(ev)
		n++
	}
	fmt.Fprintf(os.Stderr, "%d of %d placements\n", n, len(evs))
}

func within(x, z int, box [4]int) bool {
	return x >= box[0] && x <= box[2] && z >= box[1] && z <= box[3]
}

// parseAABB reads "x1,z1:x2,z2" into min/max corners.
func parseAABB(s string) ([4]int, error) {
	var out [4]int
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return out, fmt.Errorf("expected x1,z1:x2,z2")
	}
	var a, b [2]int
	if _, err := fmt.Sscanf(parts[0], "%d,%d", &a[0], &a[1]); err != nil {
		return out, err
	}
	if _, err := fmt.Sscanf(parts[1], "%d,%d", &b[0], &b[1]); err != nil {
		return out, err
	}
	out = [4]int{min(a[0], b[0]), min(a[1], b[1]), max(a[0], b[0]), max(a[1], b[1])}
	return out, nil
}
