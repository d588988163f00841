package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// File is a parsed, uncompiled schema file.
type File struct {
	Scopes map[string]map[string]*Declaration `yaml:"scopes"`
}

// Declaration is one endpoint as written in the schema file.
type Declaration struct {
	Kind       string                `yaml:"kind"`
	SubKinds   StringOrArray         `yaml:"sub_kinds,omitempty"`
	Fields     FieldList             `yaml:"fields,omitempty"`
	Include    StringOrArray         `yaml:"include,omitempty"`
	Extensions map[string]*Extension `yaml:"extensions,omitempty"`
}

// Extension adds fields and default includes for one sub-kind.
type Extension struct {
	Fields  FieldList     `yaml:"fields,omitempty"`
	Include StringOrArray `yaml:"include,omitempty"`
}

// FieldEntry is one field in canonical form. An empty As means the default
// exposed name.
type FieldEntry struct {
	Source    string `yaml:"source"`
	As        string `yaml:"as,omitempty"`
	Transform string `yaml:"transform,omitempty"`
	// Problem describes a malformed entry; it is reported by Compile.
	Problem string `yaml:"-"`
	Line    int    `yaml:"-"`
}

// FieldList is a list of field entries accepting the shorthand forms.
type FieldList []FieldEntry

// StringOrArray accepts a single string or a list of strings.
type StringOrArray []string

// UnmarshalYAML implements custom YAML unmarshaling for StringOrArray.
// A comma-free scalar becomes a one-element list; an empty scalar an empty list.
func (s *StringOrArray) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var str string

		err := node.Decode(&str)
		if err != nil {
			return err
		}

		if str != "" {
			*s = StringOrArray{str}
		} else {
			*s = StringOrArray{}
		}

		return nil

	case yaml.SequenceNode:
		var arr []string

		err := node.Decode(&arr)
		if err != nil {
			return err
		}

		*s = arr

		return nil

	default:
		return fmt.Errorf("line %d: expected string or array, got %v", node.Line, node.Kind)
	}
}

// UnmarshalYAML implements custom YAML unmarshaling for FieldList.
// Accepts:
//   - Sequence of names: [title, field_byline]
//   - Sequence with renames: [{field_byline: byline}]
//   - Sequence with options: [{field_body: {as: body, transform: json}}]
//   - Mapping of the same: {title: title, field_body: {as: body}}
//
// Entries of an unexpected shape are kept with a Problem set so that
// compilation can report every one of them at once.
func (f *FieldList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		entries := make(FieldList, 0, len(node.Content))

		for _, item := range node.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				entries = append(entries, FieldEntry{Source: item.Value, Line: item.Line})

			case yaml.MappingNode:
				if len(item.Content) != 2 {
					entries = append(entries, FieldEntry{
						Problem: "expected a single {source: name} pair",
						Line:    item.Line,
					})

					continue
				}

				entries = append(entries, parseFieldPair(item.Content[0], item.Content[1]))

			default:
				entries = append(entries, FieldEntry{
					Problem: fmt.Sprintf("expected string or map in field list, got %v", kindName(item.Kind)),
					Line:    item.Line,
				})
			}
		}

		*f = entries

		return nil

	case yaml.MappingNode:
		entries := make(FieldList, 0, len(node.Content)/2)

		for i := 0; i+1 < len(node.Content); i += 2 {
			entries = append(entries, parseFieldPair(node.Content[i], node.Content[i+1]))
		}

		*f = entries

		return nil

	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*f = FieldList{}
			return nil
		}

		*f = FieldList{{Source: node.Value, Line: node.Line}}

		return nil

	default:
		return fmt.Errorf("line %d: expected field list, got %v", node.Line, kindName(node.Kind))
	}
}

// parseFieldPair parses a `source: name` or `source: {as, transform}` pair.
func parseFieldPair(key, value *yaml.Node) FieldEntry {
	entry := FieldEntry{Source: key.Value, Line: key.Line}

	if key.Kind != yaml.ScalarNode || key.Value == "" {
		entry.Problem = "field source must be a non-empty string"
		return entry
	}

	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag != "!!null" {
			entry.As = value.Value
		}

	case yaml.MappingNode:
		var opts struct {
			As        string `yaml:"as"`
			Transform string `yaml:"transform"`
		}

		if err := value.Decode(&opts); err != nil {
			entry.Problem = fmt.Sprintf("invalid field options: %v", err)
			return entry
		}

		entry.As = opts.As
		entry.Transform = opts.Transform

	default:
		entry.Problem = fmt.Sprintf("expected exposed name or {as, transform}, got %v", kindName(value.Kind))
	}

	return entry
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "node"
	}
}
