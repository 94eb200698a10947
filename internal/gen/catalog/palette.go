package catalog

import (
	"encoding/json"
	"sort"
)

const Air = "AIR"

// BlockPalette assigns dense ids to every block a pack can produce. AIR is
// always id 0; the rest are sorted so ids are stable for a given pack.
type BlockPalette struct {
	Names  []string
	Index  map[string]uint16
	Digest string
}

func newBlockPalette(blocks []string) BlockPalette {
	set := map[string]bool{}
	for _, b := range blocks {
		if b != "" && b != Air {
			set[b] = true
		}
	}
	ids := make([]string, 0, len(set)+1)
	for b := range set {
		ids = append(ids, b)
	}
	sort.Strings(ids)
	ids = append([]string{Air}, ids...)

	p := BlockPalette{Names: ids, Index: make(map[string]uint16, len(ids))}
	for i, id := range ids {
		p.Index[id] = uint16(i)
	}
	raw, _ := json.Marshal(ids)
	p.Digest = sha256Hex(raw)
	return p
}

// ID returns the palette id of name, or AIR's id when unknown.
func (p BlockPalette) ID(name string) uint16 {
	return p.Index[name]
}

func (p BlockPalette) Name(id uint16) string {
	if int(id) < len(p.Names) {
		return p.Names[id]
	}
	return Air
}

func referencedBlocks(p *Pack) []string {
	var out []string
	add := func(ws []Weighted) {
		for _, w := range ws {
			out = append(out, w.Key)
		}
	}
	add(p.Dimension.RockPalette.Blocks)
	add(p.Dimension.FluidPalette.Blocks)
	for _, b := range p.Biomes {
		for _, l := range b.Layers {
			add(l.Blocks)
		}
		for _, d := range b.Decorators {
			add(d.Blocks)
		}
	}
	for _, s := range p.Structures {
		for _, pc := range s.Pieces {
			out = append(out, pc.Block)
		}
	}
	return out
}
