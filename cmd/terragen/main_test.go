package main

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"terragen.ai/internal/gen/catalog"
	"terragen.ai/internal/session"
	"terragen.ai/internal/sim/tuning"
)

func TestMergeFlagsOverrideFile(t *testing.T) {
	file := tuning.Defaults()
	file.Seed = 5
	file.Radius = 2
	file.Registry = "leveldb"
	flags := tuning.Defaults()
	flags.Radius = 10
	flags.Workers = 3

	got := merge(file, flags, map[string]bool{"radius": true})
	if got.Seed != 5 || got.Registry != "leveldb" || got.Radius != 10 || got.Workers != file.Workers {
		t.Fatalf("merge = %+v", got)
	}
}

func TestMetricsMux(t *testing.T) {
	cat, err := catalog.NewStore(catalog.Default())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s, err := session.Open(context.Background(), session.Config{Catalog: cat, DataDir: t.TempDir(), Registry: "memory"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	srv := httptest.NewServer(metricsMux(s))
	defer srv.Close()

	for path, want := range map[string]string{
		"/healthz": "ok",
		"/metrics": "terragen_chunks 0",
	} {
		resp, err := srv.Client().Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != 200 || !strings.Contains(string(body), want) {
			t.Fatalf("GET %s = %d %q", path, resp.StatusCode, body)
		}
	}
}
