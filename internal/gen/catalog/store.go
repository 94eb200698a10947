// Package catalog is the read-only configuration store of a generation
// session: dimension, regions, biomes, height generators and structures.
// Records are validated once when the store is built and never mutated.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid configuration")
)

type RecordKind string

const (
	KindRegion    RecordKind = "region"
	KindBiome     RecordKind = "biome"
	KindGenerator RecordKind = "generator"
	KindStructure RecordKind = "structure"
)

type Store struct {
	dim        *Dimension
	regions    map[string]*Region
	biomes     map[string]*Biome
	generators map[string]*Generator
	structures map[string]*Structure

	Blocks BlockPalette
	Digest string
}

// NewStore normalizes and validates p. The pack is copied; later changes to
// p do not affect the store.
func NewStore(p Pack) (*Store, error) {
	p = clonePack(p)
	normalize(&p)
	if err := validate(&p); err != nil {
		return nil, err
	}

	s := &Store{
		dim:        &p.Dimension,
		regions:    make(map[string]*Region, len(p.Regions)),
		biomes:     make(map[string]*Biome, len(p.Biomes)),
		generators: make(map[string]*Generator, len(p.Generators)),
		structures: make(map[string]*Structure, len(p.Structures)),
	}
	for i := range p.Regions {
		s.regions[p.Regions[i].Key] = &p.Regions[i]
	}
	for i := range p.Biomes {
		s.biomes[p.Biomes[i].Key] = &p.Biomes[i]
	}
	for i := range p.Generators {
		s.generators[p.Generators[i].Key] = &p.Generators[i]
	}
	for i := range p.Structures {
		s.structures[p.Structures[i].Key] = &p.Structures[i]
	}
	s.Blocks = newBlockPalette(referencedBlocks(&p))
	if s.Digest == "" {
		raw, _ := json.Marshal(p)
		s.Digest = sha256Hex(raw)
	}
	return s, nil
}

func (s *Store) Dimension() *Dimension { return s.dim }

func (s *Store) Region(key string) (*Region, error) {
	if r, ok := s.regions[key]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%s %q: %w", KindRegion, key, ErrNotFound)
}

func (s *Store) Biome(key string) (*Biome, error) {
	if b, ok := s.biomes[key]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%s %q: %w", KindBiome, key, ErrNotFound)
}

func (s *Store) Generator(key string) (*Generator, error) {
	if g, ok := s.generators[key]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("%s %q: %w", KindGenerator, key, ErrNotFound)
}

func (s *Store) Structure(key string) (*Structure, error) {
	if st, ok := s.structures[key]; ok {
		return st, nil
	}
	return nil, fmt.Errorf("%s %q: %w", KindStructure, key, ErrNotFound)
}

// Lookup is the untyped form of the typed getters.
func (s *Store) Lookup(kind RecordKind, key string) (any, error) {
	switch kind {
	case KindRegion:
		return s.Region(key)
	case KindBiome:
		return s.Biome(key)
	case KindGenerator:
		return s.Generator(key)
	case KindStructure:
		return s.Structure(key)
	}
	return nil, fmt.Errorf("unknown record kind %q", kind)
}

// Regions returns the dimension's regions in declaration order.
func (s *Store) Regions() []*Region {
	out := make([]*Region, 0, len(s.dim.Regions))
	for _, w := range s.dim.Regions {
		out = append(out, s.regions[w.Key])
	}
	return out
}

// RegionBiomes returns every biome reachable from r, children included, in
// first-seen order. Child cycles are visited once.
func (s *Store) RegionBiomes(r *Region) []*Biome {
	seen := map[string]bool{}
	var out []*Biome
	var visit func(key string)
	visit = func(key string) {
		if seen[key] {
			return
		}
		seen[key] = true
		b := s.biomes[key]
		out = append(out, b)
		for _, c := range b.Children {
			visit(c.Key)
		}
	}
	for _, c := range []Category{CategoryLand, CategorySea, CategoryShore, CategoryCave} {
		for _, w := range r.Biomes(c) {
			visit(w.Key)
		}
	}
	return out
}

func (s *Store) StructureKeys() []string {
	keys := make([]string, 0, len(s.structures))
	for k := range s.structures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func clonePack(p Pack) Pack {
	raw, err := json.Marshal(p)
	if err != nil {
		return p
	}
	var out Pack
	if err := json.Unmarshal(raw, &out); err != nil {
		return p
	}
	return out
}
