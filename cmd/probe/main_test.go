package main

import (
	"testing"

	"terragen.ai/internal/gen/catalog"
	"terragen.ai/internal/gen/stream"
	"terragen.ai/internal/gen/terrain"
)

func TestStreamNamesResolve(t *testing.T) {
	cat, err := catalog.NewStore(catalog.Default())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	cx, err := terrain.New(terrain.Config{Seed: 7, Store: cat})
	if err != nil {
		t.Fatalf("terrain.New: %v", err)
	}
	nodes := streamNodes(cx)
	if len(nodes) != len(streamNames()) {
		t.Fatalf("%d nodes, %d names", len(nodes), len(streamNames()))
	}
	for _, name := range streamNames() {
		n, ok := nodes[name]
		if !ok || n == nil {
			t.Fatalf("stream %q has no node", name)
		}
		if stream.Depth(n) < 1 {
			t.Fatalf("stream %q depth %d", name, stream.Depth(n))
		}
	}
}
