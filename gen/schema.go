// Package gen emits Go implementations of the relic.Model contract from
// YAML schema declarations. It is the code-generation collaborator
// behind the relicgen command: given entity declarations with column
// annotations it produces, per entity, a struct plus TableName, Columns,
// PrimaryKey, Encode and Decode methods.
package gen

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Schema is one entity declaration loaded from a schema file.
type Schema struct {
	// Name is the entity name, e.g. "User".
	Name string `yaml:"name"`
	// Table overrides the derived table name.
	Table string `yaml:"table,omitempty"`
	// Columns is the ordered column list.
	Columns []*ColumnDef `yaml:"columns"`
}

// ColumnDef is one column annotation.
type ColumnDef struct {
	Name string `yaml:"name"`
	// Type is the SQL type text. "BOOLEAN" maps to a Go bool stored as
	// INTEGER.
	Type       string `yaml:"type"`
	PrimaryKey bool   `yaml:"primary_key,omitempty"`
	Optional   bool   `yaml:"optional,omitempty"`
}

type schemaFile struct {
	Schemas []*Schema `yaml:"schemas"`
}

// LoadSchemas reads and validates a YAML schema file.
func LoadSchemas(path string) ([]*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gen: read %s: %w", path, err)
	}
	var f schemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("gen: parse %s: %w", path, err)
	}
	if len(f.Schemas) == 0 {
		return nil, fmt.Errorf("gen: %s declares no schemas", path)
	}
	for _, s := range f.Schemas {
		if err := s.validate(); err != nil {
			return nil, err
		}
	}
	return f.Schemas, nil
}

func (s *Schema) validate() error {
	if s.Name == "" {
		return fmt.Errorf("gen: schema with empty name")
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("gen: schema %s has no columns", s.Name)
	}
	seen := make(map[string]struct{}, len(s.Columns))
	pks := 0
	for _, c := range s.Columns {
		if c.Name == "" || c.Type == "" {
			return fmt.Errorf("gen: schema %s: column with empty name or type", s.Name)
		}
		if _, ok := seen[c.Name]; ok {
			return fmt.Errorf("gen: schema %s: duplicate column %s", s.Name, c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.PrimaryKey {
			pks++
		}
	}
	if pks > 1 {
		return fmt.Errorf("gen: schema %s: %d primary keys, want at most one", s.Name, pks)
	}
	return nil
}

// TableName returns the explicit table name, or the pluralized
// snake_case entity name.
func (s *Schema) TableName() string {
	if s.Table != "" {
		return s.Table
	}
	return inflect.Pluralize(inflect.Underscore(s.Name))
}

var titler = cases.Title(language.English, cases.NoLower)

// commonInitialisms follow the exported-name conventions of generated Go
// code.
var commonInitialisms = map[string]string{
	"id": "ID", "sql": "SQL", "url": "URL", "api": "API", "uuid": "UUID",
}

// exported converts a snake_case identifier to an exported Go name.
func exported(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if u, ok := commonInitialisms[strings.ToLower(p)]; ok {
			parts[i] = u
			continue
		}
		parts[i] = titler.String(p)
	}
	return strings.Join(parts, "")
}

// colKind classifies the Go representation of a column.
type colKind int

const (
	kindInteger colKind = iota
	kindReal
	kindText
	kindBlob
	kindBool
)

// kind derives the Go kind from the SQL type text.
func (c *ColumnDef) kind() colKind {
	t := strings.ToUpper(c.Type)
	switch {
	case strings.Contains(t, "BOOL"):
		return kindBool
	case strings.Contains(t, "INT"):
		return kindInteger
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return kindReal
	case strings.Contains(t, "BLOB"):
		return kindBlob
	default:
		return kindText
	}
}

// sqlType returns the SQL type text emitted into column metadata.
// BOOLEAN columns are stored as INTEGER.
func (c *ColumnDef) sqlType() string {
	if c.kind() == kindBool {
		return "INTEGER"
	}
	return c.Type
}

// nullable reports whether the Go field is pointer-typed. An
// auto-generated primary key is unset before insertion, so primary keys
// are always nullable in Go.
func (c *ColumnDef) nullable() bool {
	return c.Optional || c.PrimaryKey
}
