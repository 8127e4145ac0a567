package rss

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedSource is one entry of the feeds YAML file.
//
//	sources:
//	  - name: BBC Sport Football
//	    url: https://feeds.bbci.co.uk/sport/football/rss.xml
//	    language: en
//	    priority: 8
type SeedSource struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Language string `yaml:"language"`
	Category string `yaml:"category"`
	Priority int32  `yaml:"priority"`
	Active   *bool  `yaml:"active"`
}

type seedFile struct {
	Sources []SeedSource `yaml:"sources"`
}

// LoadSeedFile reads the default feed list, filling in defaults.
func LoadSeedFile(path string) ([]SeedSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg seedFile
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	sources := make([]SeedSource, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		if s.URL == "" {
			continue
		}
		if s.Name == "" {
			s.Name = s.URL
		}
		if s.Language == "" {
			s.Language = "en"
		}
		if s.Category == "" {
			s.Category = "general"
		}
		if s.Priority == 0 {
			s.Priority = 5
		}
		if s.Active == nil {
			active := true
			s.Active = &active
		}
		sources = append(sources, s)
	}
	return sources, nil
}
