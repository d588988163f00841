package catalog

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"resource-mapper/internal/host"
)

// Defaults for keys a kind does not declare.
const (
	DefaultIdentityKey = "id"
	DefaultBundleKey   = "type"
)

// Kind is a compiled kind declaration.
type Kind struct {
	Name        string
	BundleLabel string
	IdentityKey string
	BundleKey   string

	operations map[host.Operation]bool
	subKinds   map[string]*SubKind
}

// SubKind is the field layout of one sub-kind.
type SubKind struct {
	Name   string
	Fields []FieldDecl

	byName map[string]FieldDecl
}

// Field returns a declared field.
func (s *SubKind) Field(name string) (FieldDecl, bool) {
	d, ok := s.byName[name]
	return d, ok
}

// SubKind returns a sub-kind by name.
func (k *Kind) SubKind(name string) (*SubKind, bool) {
	s, ok := k.subKinds[name]
	return s, ok
}

// SubKinds returns the sub-kind names, sorted.
func (k *Kind) SubKinds() []string {
	out := make([]string, 0, len(k.subKinds))
	for name := range k.subKinds {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}

// Catalog is the compiled set of kinds. It is immutable.
type Catalog struct {
	kinds map[string]*Kind
}

var whitespace = regexp.MustCompile(`\s`)

// LoadFile reads and compiles a catalog file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse compiles catalog YAML. Unknown top-level keys are ignored so that a
// catalog may share a file with a schema.
func Parse(data []byte) (*Catalog, error) {
	var f File

	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	return Compile(&f)
}

// Compile builds a Catalog from a parsed file.
func Compile(f *File) (*Catalog, error) {
	c := &Catalog{kinds: map[string]*Kind{}}

	for name, decl := range f.Kinds {
		if decl == nil {
			decl = &KindDecl{}
		}

		k := &Kind{
			Name:        name,
			BundleLabel: strings.ToLower(whitespace.ReplaceAllString(decl.BundleLabel, "-")),
			IdentityKey: decl.IdentityKey,
			BundleKey:   decl.BundleKey,
			subKinds:    map[string]*SubKind{},
		}

		if k.IdentityKey == "" {
			k.IdentityKey = DefaultIdentityKey
		}

		if k.BundleKey == "" {
			k.BundleKey = DefaultBundleKey
		}

		if k.IdentityKey == k.BundleKey {
			return nil, fmt.Errorf("kind %s: identity key and bundle key are both %q", name, k.IdentityKey)
		}

		if len(decl.Operations) > 0 {
			k.operations = map[host.Operation]bool{}

			for _, op := range decl.Operations {
				switch o := host.Operation(op); o {
				case host.OpView, host.OpCreate, host.OpEdit, host.OpDelete:
					k.operations[o] = true
				default:
					return nil, fmt.Errorf("kind %s: unknown operation %q", name, op)
				}
			}
		}

		subs := decl.SubKinds
		if len(subs) == 0 {
			subs = map[string]FieldDecls{name: nil}
		}

		for subName, fields := range subs {
			s := &SubKind{Name: subName, Fields: fields, byName: map[string]FieldDecl{}}

			for _, fd := range fields {
				if fd.Name == k.IdentityKey || fd.Name == k.BundleKey {
					return nil, fmt.Errorf("kind %s/%s: field %q shadows a key field", name, subName, fd.Name)
				}

				if _, dup := s.byName[fd.Name]; dup {
					return nil, fmt.Errorf("kind %s/%s: field %q declared twice", name, subName, fd.Name)
				}

				s.byName[fd.Name] = fd
			}

			k.subKinds[subName] = s
		}

		c.kinds[name] = k
	}

	for _, k := range c.kinds {
		for _, s := range k.subKinds {
			for _, fd := range s.Fields {
				if fd.IsRelationship() && c.kinds[fd.References] == nil {
					return nil, fmt.Errorf("kind %s/%s: field %q references unknown kind %q", k.Name, s.Name, fd.Name, fd.References)
				}
			}
		}
	}

	return c, nil
}

// Kind returns a kind by name.
func (c *Catalog) Kind(name string) (*Kind, bool) {
	k, ok := c.kinds[name]
	return k, ok
}

// Kinds returns every kind name, sorted.
func (c *Catalog) Kinds() []string {
	out := make([]string, 0, len(c.kinds))
	for name := range c.kinds {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}

func (c *Catalog) field(kind, subKind, field string) (FieldDecl, bool) {
	k, ok := c.kinds[kind]
	if !ok {
		return FieldDecl{}, false
	}

	s, ok := k.subKinds[subKind]
	if !ok {
		return FieldDecl{}, false
	}

	return s.Field(field)
}
