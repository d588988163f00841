package memstore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML fixture format:
//
//	records:
//	  - kind: node
//	    sub_kind: article
//	    id: "1"
//	    fields:
//	      title: Hello
//	      uid: "7"
//	      field_tags: ["3", "4"]
type SeedFile struct {
	Records []SeedRecord `yaml:"records"`
}

// SeedRecord is one fixture record. Reference fields hold target ids.
type SeedRecord struct {
	Kind    string         `yaml:"kind"`
	SubKind string         `yaml:"sub_kind"`
	ID      string         `yaml:"id"`
	Fields  map[string]any `yaml:"fields"`
}

// LoadSeed reads a fixture file into the store and returns the number of
// records loaded.
func (s *Store) LoadSeed(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed %s: %w", path, err)
	}

	return s.Seed(data)
}

// Seed loads fixture records from YAML data.
func (s *Store) Seed(data []byte) (int, error) {
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("parse seed: %w", err)
	}

	for i, sr := range f.Records {
		if sr.ID == "" {
			return i, fmt.Errorf("seed record %d (%s): id is required", i, sr.Kind)
		}

		sub := sr.SubKind
		if sub == "" {
			sub = sr.Kind
		}

		r, err := s.cat.NewRecord(sr.Kind, sub, sr.ID, sr.Fields, s.resolve)
		if err != nil {
			return i, fmt.Errorf("seed record %d (%s %s): %w", i, sr.Kind, sr.ID, err)
		}

		s.put(sr.Kind, r)
	}

	return len(f.Records), nil
}
