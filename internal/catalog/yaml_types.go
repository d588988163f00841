package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// File is a parsed catalog file.
type File struct {
	Kinds map[string]*KindDecl `yaml:"kinds"`
}

// KindDecl declares one record kind.
type KindDecl struct {
	BundleLabel string                `yaml:"bundle_label"`
	IdentityKey string                `yaml:"identity_key"`
	BundleKey   string                `yaml:"bundle_key"`
	Operations  []string              `yaml:"operations"`
	SubKinds    map[string]FieldDecls `yaml:"sub_kinds"`
}

// FieldDecl declares one host field of a sub-kind.
type FieldDecl struct {
	Name string `yaml:"name"`
	// References names the kind a relationship field points at.
	References string `yaml:"references,omitempty"`
	Multiple   bool   `yaml:"multiple,omitempty"`
	Hidden     bool   `yaml:"hidden,omitempty"`
	ReadOnly   bool   `yaml:"read_only,omitempty"`
}

// IsRelationship reports whether the field references other records.
func (f FieldDecl) IsRelationship() bool {
	return f.References != ""
}

// FieldDecls is a field list accepting plain names or full declarations.
type FieldDecls []FieldDecl

// UnmarshalYAML implements custom YAML unmarshaling for FieldDecls.
// Accepts a sequence whose items are either a field name or a mapping
// with at least "name".
func (f *FieldDecls) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*f = FieldDecls{}
		return nil
	}

	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: expected a list of fields", node.Line)
	}

	decls := make(FieldDecls, 0, len(node.Content))

	for _, item := range node.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			decls = append(decls, FieldDecl{Name: item.Value})

		case yaml.MappingNode:
			var d FieldDecl
			if err := item.Decode(&d); err != nil {
				return fmt.Errorf("line %d: %w", item.Line, err)
			}

			if d.Name == "" {
				return fmt.Errorf("line %d: field declaration without name", item.Line)
			}

			decls = append(decls, d)

		default:
			return fmt.Errorf("line %d: expected field name or mapping", item.Line)
		}
	}

	*f = decls

	return nil
}
