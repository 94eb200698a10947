// Package registry persists committed structure placements per region so
// that later distance checks, possibly in another process, can see them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrClosed = errors.New("registry closed")

// RegionKey is a region coordinate (32x32 chunks).
type RegionKey struct {
	RX int `json:"rx"`
	RZ int `json:"rz"`
}

func (k RegionKey) String() string { return fmt.Sprintf("r.%d.%d", k.RX, k.RZ) }

// Anchor is a structure origin in block coordinates.
type Anchor struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// DistSq is the squared horizontal distance between a and b.
func (a Anchor) DistSq(b Anchor) int64 {
	dx := int64(a.X - b.X)
	dz := int64(a.Z - b.Z)
	return dx*dx + dz*dz
}

// Placement is a committed structure. It is never modified after Append.
type Placement struct {
	ID        string `json:"id"`
	Structure string `json:"structure"`
	Anchor    Anchor `json:"anchor"`
	ChunkX    int    `json:"cx"`
	ChunkZ    int    `json:"cz"`
}

// NewPlacement fills in a fresh record id.
func NewPlacement(structure string, a Anchor, cx, cz int) Placement {
	return Placement{ID: uuid.NewString(), Structure: structure, Anchor: a, ChunkX: cx, ChunkZ: cz}
}

// Snapshot is an immutable view of one region's placements.
type Snapshot struct {
	Region     RegionKey
	placements []Placement
	byKey      map[string][]Anchor
}

func newSnapshot(k RegionKey, ps []Placement) *Snapshot {
	s := &Snapshot{Region: k, placements: ps, byKey: map[string][]Anchor{}}
	for _, p := range ps {
		s.byKey[p.Structure] = append(s.byKey[p.Structure], p.Anchor)
	}
	return s
}

// with returns a copy of s with p appended.
func (s *Snapshot) with(p Placement) *Snapshot {
	ps := make([]Placement, len(s.placements), len(s.placements)+1)
	copy(ps, s.placements)
	return newSnapshot(s.Region, append(ps, p))
}

func (s *Snapshot) Len() int { return len(s.placements) }

// Anchors lists the anchors of one structure type in append order.
func (s *Snapshot) Anchors(structure string) []Anchor { return s.byKey[structure] }

// Placements returns a copy of every placement in append order.
func (s *Snapshot) Placements() []Placement {
	return append([]Placement(nil), s.placements...)
}

// Registry is safe for concurrent use. Get returns either the state before
// or after any concurrent Append to the same region, never a partial one.
type Registry interface {
	Get(ctx context.Context, region RegionKey) (*Snapshot, error)
	Append(ctx context.Context, region RegionKey, p Placement) error
	Close() error
}

// Open builds a backend by name: "memory", "sqlite" or "leveldb". Disk
// backends are wrapped in a read-through cache.
func Open(kind, path string) (Registry, error) {
	switch strings.ToLower(kind) {
	case "", "memory", "mem":
		return NewMemory(), nil
	case "sqlite":
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return NewCached(db), nil
	case "leveldb", "level":
		db, err := OpenLevelDB(path)
		if err != nil {
			return nil, err
		}
		return NewCached(db), nil
	}
	return nil, fmt.Errorf("unknown registry kind %q", kind)
}
