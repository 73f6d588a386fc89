package main

import (
	"fmt"
	"os"

	"github.com/tinyrange/fwtable"
	"gopkg.in/yaml.v3"
)

// config describes a fwdump run loaded from a YAML file. Flags
// override individual fields.
type config struct {
	// Image is the path of the guest memory dump.
	Image string `yaml:"image"`

	// ImageBase is the guest physical address of the dump's first
	// byte.
	ImageBase uint64 `yaml:"imageBase,omitempty"`

	// Regions overrides the RSDP scan regions.
	Regions []regionConfig `yaml:"regions,omitempty"`
}

type regionConfig struct {
	Name  string `yaml:"name"`
	Start uint64 `yaml:"start"`
	End   uint64 `yaml:"end"`
}

func loadConfig(path string) (config, error) {
	var cfg config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c config) regions() []fwtable.Region {
	if len(c.Regions) == 0 {
		return fwtable.DefaultRegions()
	}
	out := make([]fwtable.Region, 0, len(c.Regions))
	for _, r := range c.Regions {
		out = append(out, fwtable.Region{Name: r.Name, Start: r.Start, End: r.End})
	}
	return out
}
