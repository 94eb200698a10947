package catalog

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBase = "https://terragen.ai/schemas/"

// Pack directory layout.
const (
	DimensionFile = "dimension.yaml"
	RegionsDir    = "regions"
	BiomesDir     = "biomes"
	GeneratorsDir = "generators"
	StructuresDir = "structures"
)

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		entries, err := fs.ReadDir(schemaFS, "schemas")
		if err != nil {
			schemasErr = err
			return
		}
		for _, e := range entries {
			raw, err := schemaFS.ReadFile("schemas/" + e.Name())
			if err != nil {
				schemasErr = err
				return
			}
			if err := c.AddResource(schemaBase+e.Name(), bytes.NewReader(raw)); err != nil {
				schemasErr = fmt.Errorf("%s: %w", e.Name(), err)
				return
			}
		}
		out := map[string]*jsonschema.Schema{}
		for _, name := range []string{"dimension", "region", "biome", "generator", "structure"} {
			s, err := c.Compile(schemaBase + name + ".schema.json")
			if err != nil {
				schemasErr = fmt.Errorf("compile %s schema: %w", name, err)
				return
			}
			out[name] = s
		}
		schemas = out
	})
	return schemas, schemasErr
}

// Load reads a pack directory, validates every file against its JSON schema
// and builds a Store. The store digest covers the raw file contents.
func Load(dir string) (*Store, error) {
	p, digest, err := ReadPack(dir)
	if err != nil {
		return nil, err
	}
	s, err := NewStore(p)
	if err != nil {
		return nil, err
	}
	s.Digest = digest
	return s, nil
}

// ReadPack decodes a pack directory without building a store.
func ReadPack(dir string) (Pack, string, error) {
	var p Pack
	sch, err := compileSchemas()
	if err != nil {
		return p, "", err
	}

	h := newDigest()
	if err := decodeFile(sch["dimension"], dir, DimensionFile, &p.Dimension, h); err != nil {
		return p, "", err
	}
	if err := decodeDir(sch["region"], dir, RegionsDir, &p.Regions, h); err != nil {
		return p, "", err
	}
	if err := decodeDir(sch["biome"], dir, BiomesDir, &p.Biomes, h); err != nil {
		return p, "", err
	}
	if err := decodeDir(sch["generator"], dir, GeneratorsDir, &p.Generators, h); err != nil {
		return p, "", err
	}
	if err := decodeDir(sch["structure"], dir, StructuresDir, &p.Structures, h); err != nil {
		return p, "", err
	}
	return p, h.sum(), nil
}

func decodeDir[T any](schema *jsonschema.Schema, root, sub string, out *[]T, h *digest) error {
	names, err := yamlFiles(filepath.Join(root, sub))
	if err != nil {
		return err
	}
	for _, name := range names {
		var v T
		if err := decodeFile(schema, root, filepath.Join(sub, name), &v, h); err != nil {
			return err
		}
		*out = append(*out, v)
	}
	return nil
}

// yamlFiles lists *.yaml and *.yml in dir, sorted. A missing dir is empty.
func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func decodeFile(schema *jsonschema.Schema, root, rel string, out any, h *digest) error {
	raw, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return err
	}
	h.add(filepath.ToSlash(rel), raw)

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}
	inst, err := jsonValue(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("%s: %w: %v", rel, ErrInvalid, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}
	return nil
}

// jsonValue converts a decoded YAML document into the value space the schema
// validator expects (map[string]any, []any, json.Number, ...).
func jsonValue(doc any) (any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// WritePack lays p out as a pack directory that Load accepts.
func WritePack(dir string, p Pack) error {
	for _, sub := range []string{RegionsDir, BiomesDir, GeneratorsDir, StructuresDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return err
		}
	}
	if err := writeYAML(filepath.Join(dir, DimensionFile), p.Dimension); err != nil {
		return err
	}
	for _, r := range p.Regions {
		if err := writeYAML(filepath.Join(dir, RegionsDir, r.Key+".yaml"), r); err != nil {
			return err
		}
	}
	for _, b := range p.Biomes {
		if err := writeYAML(filepath.Join(dir, BiomesDir, b.Key+".yaml"), b); err != nil {
			return err
		}
	}
	for _, g := range p.Generators {
		if err := writeYAML(filepath.Join(dir, GeneratorsDir, g.Key+".yaml"), g); err != nil {
			return err
		}
	}
	for _, s := range p.Structures {
		if err := writeYAML(filepath.Join(dir, StructuresDir, s.Key+".yaml"), s); err != nil {
			return err
		}
	}
	return nil
}

func writeYAML(path string, v any) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
