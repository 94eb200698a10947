// Package tuning loads a terragen.yaml run file. Every field has a matching
// command line flag; flags given explicitly win over the file.
package tuning

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	Seed     int64  `yaml:"seed"`
	Radius   int    `yaml:"radius"`
	Workers  int    `yaml:"workers"`
	Registry string `yaml:"registry"`
	Pack     string `yaml:"pack"`
	Fetch    string `yaml:"fetch"`
	Data     string `yaml:"data"`
	HTTP     string `yaml:"http"`
	Resume   bool   `yaml:"resume"`
}

func Defaults() Tuning {
	return Tuning{
		Seed:     1337,
		Radius:   8,
		Workers:  8,
		Registry: "sqlite",
		Data:     "./data",
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return t, fmt.Errorf("terragen.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("terragen.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	t.Registry = strings.ToLower(strings.TrimSpace(t.Registry))
	t.Pack = strings.TrimSpace(t.Pack)
	t.Fetch = strings.TrimSpace(t.Fetch)
	t.Data = strings.TrimSpace(t.Data)
	if t.Data == "" {
		t.Data = "./data"
	}
}

func (t Tuning) Validate() error {
	if t.Radius < 0 {
		return fmt.Errorf("radius must be >= 0, got %d", t.Radius)
	}
	if t.Workers <= 0 {
		return fmt.Errorf("workers must be > 0, got %d", t.Workers)
	}
	switch t.Registry {
	case "memory", "sqlite", "leveldb":
	default:
		return fmt.Errorf("unknown registry %q", t.Registry)
	}
	return nil
}
