package catalog

import (
	"fmt"
	"strings"
)

const (
	defaultMaxHeight      = 256
	defaultLandChance     = 0.5
	defaultShrinkFactor   = 1.5
	defaultInterpRadius   = 8
	defaultRegionZoom     = 1
	defaultBiomeZoom      = 1
	defaultStrongholdRing = 1500
)

func normalize(p *Pack) {
	d := &p.Dimension
	if d.MaxHeight <= 0 {
		d.MaxHeight = defaultMaxHeight
	}
	if d.RegionZoom == 0 {
		d.RegionZoom = defaultRegionZoom
	}
	normalizeWeighted(d.Regions)
	normalizeWeighted(d.RockPalette.Blocks)
	normalizeWeighted(d.FluidPalette.Blocks)
	if d.Stronghold != nil && d.Stronghold.Count > 0 && d.Stronghold.Radius == 0 {
		d.Stronghold.Radius = defaultStrongholdRing
	}

	for i := range p.Regions {
		r := &p.Regions[i]
		if len(r.CaveBiomes) == 0 {
			r.CaveBiomes = append([]Weighted(nil), r.LandBiomes...)
		}
		for _, z := range []*float64{&r.LandBiomeZoom, &r.SeaBiomeZoom, &r.ShoreBiomeZoom, &r.CaveBiomeZoom} {
			if *z == 0 {
				*z = defaultBiomeZoom
			}
		}
		normalizeWeighted(r.LandBiomes)
		normalizeWeighted(r.SeaBiomes)
		normalizeWeighted(r.ShoreBiomes)
		normalizeWeighted(r.CaveBiomes)
	}
	for i := range p.Biomes {
		b := &p.Biomes[i]
		if b.ChildShrinkFactor == 0 {
			b.ChildShrinkFactor = defaultShrinkFactor
		}
		normalizeWeighted(b.Children)
		for j := range b.Layers {
			normalizeWeighted(b.Layers[j].Blocks)
		}
		for j := range b.Decorators {
			dec := &b.Decorators[j]
			normalizeWeighted(dec.Blocks)
			if dec.StackMin <= 0 {
				dec.StackMin = 1
			}
			if dec.StackMax < dec.StackMin {
				dec.StackMax = dec.StackMin
			}
		}
	}
	for i := range p.Generators {
		if p.Generators[i].InterpolationRadius == 0 {
			p.Generators[i].InterpolationRadius = defaultInterpRadius
		}
	}
}

func normalizeWeighted(ws []Weighted) {
	for i := range ws {
		ws[i].Key = strings.TrimSpace(ws[i].Key)
		if ws[i].Rarity == 0 {
			ws[i].Rarity = 1
		}
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// validate rejects every configuration the generator would otherwise have to
// special-case at query time.
func validate(p *Pack) error {
	regions := map[string]bool{}
	biomes := map[string]bool{}
	gens := map[string]bool{}
	structs := map[string]bool{}

	for _, r := range p.Regions {
		if err := uniqueKey(regions, KindRegion, r.Key); err != nil {
			return err
		}
	}
	for _, b := range p.Biomes {
		if err := uniqueKey(biomes, KindBiome, b.Key); err != nil {
			return err
		}
	}
	for _, g := range p.Generators {
		if err := uniqueKey(gens, KindGenerator, g.Key); err != nil {
			return err
		}
		if g.InterpolationRadius < 0 {
			return invalid("generator %s interpolation_radius must be >= 0", g.Key)
		}
	}
	for _, s := range p.Structures {
		if err := uniqueKey(structs, KindStructure, s.Key); err != nil {
			return err
		}
		if s.Width <= 0 || s.Depth <= 0 {
			return invalid("structure %s width/depth must be > 0", s.Key)
		}
		if s.MaxSlope < 0 {
			return invalid("structure %s max_slope must be >= 0", s.Key)
		}
		for i, pc := range s.Pieces {
			if strings.TrimSpace(pc.Block) == "" {
				return invalid("structure %s pieces[%d] missing block", s.Key, i)
			}
			if pc.Size[0] <= 0 || pc.Size[1] <= 0 || pc.Size[2] <= 0 {
				return invalid("structure %s pieces[%d] size must be > 0", s.Key, i)
			}
		}
	}

	d := &p.Dimension
	if strings.TrimSpace(d.Key) == "" {
		return invalid("dimension key must not be empty")
	}
	if d.FluidHeight < 0 || d.FluidHeight >= d.MaxHeight {
		return invalid("dimension %s fluid_height must be in [0, max_height)", d.Key)
	}
	if l := d.Land(); l < 0 || l > 1 {
		return invalid("dimension %s land_chance must be in [0,1]", d.Key)
	}
	if d.RegionZoom <= 0 {
		return invalid("dimension %s region_zoom must be > 0", d.Key)
	}
	if err := candidates("dimension "+d.Key+" regions", d.Regions, regions); err != nil {
		return err
	}
	if len(d.RockPalette.Blocks) == 0 || len(d.FluidPalette.Blocks) == 0 {
		return invalid("dimension %s rock_palette and fluid_palette must not be empty", d.Key)
	}
	if err := candidates("dimension "+d.Key+" rock_palette", d.RockPalette.Blocks, nil); err != nil {
		return err
	}
	if err := candidates("dimension "+d.Key+" fluid_palette", d.FluidPalette.Blocks, nil); err != nil {
		return err
	}
	for _, o := range d.Overlay {
		if o.Style.Zoom < 0 {
			return invalid("dimension %s overlay zoom must be >= 0", d.Key)
		}
	}
	if err := placements("dimension "+d.Key, d.Jigsaw, structs); err != nil {
		return err
	}
	if sh := d.Stronghold; sh != nil {
		if !structs[sh.Structure] {
			return invalid("dimension %s stronghold structure %q not found", d.Key, sh.Structure)
		}
		if sh.Count < 0 || sh.Radius < 0 {
			return invalid("dimension %s stronghold count/radius must be >= 0", d.Key)
		}
	}

	for _, r := range p.Regions {
		where := "region " + r.Key
		for _, c := range []Category{CategoryLand, CategorySea, CategoryShore, CategoryCave} {
			if err := candidates(fmt.Sprintf("%s %s_biomes", where, c), r.Biomes(c), biomes); err != nil {
				return err
			}
			if r.BiomeZoom(c) <= 0 {
				return invalid("%s %s_biome_zoom must be > 0", where, c)
			}
		}
		if r.Shore.Min < 0 || r.Shore.Max < 0 {
			return invalid("%s shore thickness must be >= 0", where)
		}
		if err := placements(where, r.Jigsaw, structs); err != nil {
			return err
		}
	}

	for _, b := range p.Biomes {
		where := "biome " + b.Key
		if len(b.Children) > 0 {
			if err := candidates(where+" children", b.Children, biomes); err != nil {
				return err
			}
		}
		if b.ChildShrinkFactor <= 0 {
			return invalid("%s child_shrink_factor must be > 0", where)
		}
		for _, l := range b.Generators {
			if !gens[l.Generator] {
				return invalid("%s generator %q not found", where, l.Generator)
			}
		}
		for i, l := range b.Layers {
			if err := candidates(fmt.Sprintf("%s layers[%d]", where, i), l.Blocks, nil); err != nil {
				return err
			}
			if l.MinHeight < 0 || l.MaxHeight < l.MinHeight {
				return invalid("%s layers[%d] requires 0 <= min_height <= max_height", where, i)
			}
		}
		for i, dec := range b.Decorators {
			if err := candidates(fmt.Sprintf("%s decorators[%d]", where, i), dec.Blocks, nil); err != nil {
				return err
			}
			if dec.Chance < 0 || dec.Chance > 1 {
				return invalid("%s decorators[%d] chance must be in [0,1]", where, i)
			}
		}
		if err := placements(where, b.Jigsaw, structs); err != nil {
			return err
		}
	}
	return nil
}

func uniqueKey(seen map[string]bool, kind RecordKind, key string) error {
	if strings.TrimSpace(key) == "" {
		return invalid("%s key must not be empty", kind)
	}
	if seen[key] {
		return invalid("duplicate %s key: %s", kind, key)
	}
	seen[key] = true
	return nil
}

// candidates checks a weighted list is non-empty, has positive rarities and,
// when known is non-nil, only references known keys.
func candidates(where string, ws []Weighted, known map[string]bool) error {
	if len(ws) == 0 {
		return invalid("%s must not be empty", where)
	}
	for i, w := range ws {
		if w.Key == "" {
			return invalid("%s[%d] key must not be empty", where, i)
		}
		if w.Rarity <= 0 {
			return invalid("%s[%d] rarity must be > 0", where, i)
		}
		if known != nil && !known[w.Key] {
			return invalid("%s[%d] %q not found", where, i, w.Key)
		}
	}
	return nil
}

func placements(where string, ps []Placement, structs map[string]bool) error {
	for i, p := range ps {
		if !structs[p.Structure] {
			return invalid("%s jigsaw[%d] structure %q not found", where, i, p.Structure)
		}
		if p.Rarity <= 0 {
			return invalid("%s jigsaw[%d] rarity must be > 0", where, i)
		}
		for other, dist := range p.MinDistance {
			if !structs[other] {
				return invalid("%s jigsaw[%d] min_distance references unknown structure %q", where, i, other)
			}
			if dist <= 0 {
				return invalid("%s jigsaw[%d] min_distance[%s] must be > 0", where, i, other)
			}
		}
	}
	return nil
}
