package log

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"terragen.ai/internal/gen/jigsaw"
	"terragen.ai/internal/persistence/registry"
)

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "x")
	now := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }
	for i := 0; i < 3; i++ {
		if err := w.Write(map[string]int{"i": i}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	now = now.Add(2 * time.Minute)
	if err := w.Write(map[string]int{"i": 3}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := Files(dir, "x")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "x-2026-03-01-10.jsonl.zst" || filepath.Base(files[1]) != "x-2026-03-01-11.jsonl.zst" {
		t.Fatalf("files = %v", files)
	}
	var got []int
	for _, f := range files {
		err := ReadJSONL(f, func(raw json.RawMessage) error {
			var v struct{ I int }
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			got = append(got, v.I)
			return nil
		})
		if err != nil {
			t.Fatalf("ReadJSONL: %v", err)
		}
	}
	if len(got) != 4 || got[0] != 0 || got[3] != 3 {
		t.Fatalf("lines = %v", got)
	}
}

func TestPlacementLoggerAppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ev := jigsaw.Event{
		Time:      time.Now().UTC().Truncate(time.Second),
		Seed:      42,
		Source:    jigsaw.SourceBiome,
		Region:    registry.RegionKey{RX: -1},
		Placement: registry.NewPlacement("village", registry.Anchor{X: -20, Y: 70, Z: 5}, -2, 0),
	}
	for i := 0; i < 2; i++ {
		l := NewPlacementLogger(dir)
		if err := l.WritePlacement(ev); err != nil {
			t.Fatalf("WritePlacement: %v", err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	evs, err := ReadPlacements(dir)
	if err != nil {
		t.Fatalf("ReadPlacements: %v", err)
	}
	if len(evs) != 2 || evs[1].Placement != ev.Placement || evs[0].Source != jigsaw.SourceBiome {
		t.Fatalf("events = %+v", evs)
	}
}

func TestReadPlacementsEmptyDir(t *testing.T) {
	evs, err := ReadPlacements(t.TempDir())
	if err != nil || len(evs) != 0 {
		t.Fatalf("ReadPlacements = %v, %v", evs, err)
	}
}
