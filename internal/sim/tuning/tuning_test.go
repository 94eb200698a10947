package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func write(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "terragen.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadKeepsDefaults(t *testing.T) {
	got, err := Load(write(t, "seed: 99\nregistry: LevelDB\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Defaults()
	want.Seed = 99
	want.Registry = "leveldb"
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestLoadRejects(t *testing.T) {
	for name, body := range map[string]string{
		"unknown field": "seeds: 1\n",
		"workers":       "workers: 0\n",
		"radius":        "radius: -1\n",
		"registry":      "registry: redis\n",
	} {
		if _, err := Load(write(t, body)); err == nil || !strings.Contains(err.Error(), "terragen.yaml") {
			t.Fatalf("%s: err = %v", name, err)
		}
	}
}
