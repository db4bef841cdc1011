// Package querydef loads table queries from YAML or CUE definition files.
//
// A definition names a table, optionally declares member fields, and lists
// the query clauses:
//
//	table: movies
//	fields:
//	  Year: {wire: year, kind: int32}
//	where:
//	  - ge: [{member: Year}, {value: 1990}]
//	order_by:
//	  - {expr: {member: Year}, desc: true}
//	take: 10
//
// Expressions are single-key maps; see ParseExpr.
package querydef

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// Definition is a decoded query definition file.
type Definition struct {
	Table             string              `yaml:"table" json:"table"`
	Fields            map[string]FieldDef `yaml:"fields,omitempty" json:"fields,omitempty"`
	Where             []any               `yaml:"where,omitempty" json:"where,omitempty"`
	OrderBy           []OrderDef          `yaml:"order_by,omitempty" json:"order_by,omitempty"`
	Select            []string            `yaml:"select,omitempty" json:"select,omitempty"`
	Skip              *int                `yaml:"skip,omitempty" json:"skip,omitempty"`
	Take              *int                `yaml:"take,omitempty" json:"take,omitempty"`
	IncludeDeleted    bool                `yaml:"include_deleted,omitempty" json:"include_deleted,omitempty"`
	IncludeTotalCount bool                `yaml:"include_total_count,omitempty" json:"include_total_count,omitempty"`
	Parameters        map[string]string   `yaml:"parameters,omitempty" json:"parameters,omitempty"`

	// Source is the file the definition was loaded from, if any.
	Source string `yaml:"-" json:"-"`
}

// FieldDef declares the wire name and kind of a member.
type FieldDef struct {
	Wire string `yaml:"wire" json:"wire"`
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"`
}

// OrderDef is one ordering key.
type OrderDef struct {
	Expr any  `yaml:"expr" json:"expr"`
	Desc bool `yaml:"desc,omitempty" json:"desc,omitempty"`
}

// Error codes for definition failures.
const (
	ErrCodeRead   = "E201" // file unreadable
	ErrCodeFormat = "E202" // unknown file extension
	ErrCodeDecode = "E203" // malformed document
	ErrCodeSchema = "E204" // document violates the definition schema
	ErrCodeExpr   = "E205" // invalid expression
	ErrCodeBuild  = "E206" // query construction rejected a clause
)

// DefinitionError reports an invalid definition.
type DefinitionError struct {
	Code string

	// File is the definition path, if loaded from disk.
	File string

	// Path locates the problem inside the document, e.g. "where[0].eq[1]".
	Path string

	// Pos is the CUE source position, if known.
	Pos token.Pos

	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *DefinitionError) Unwrap() error { return e.Cause }

func (e *DefinitionError) Error() string {
	var b strings.Builder
	if e.Pos.IsValid() {
		fmt.Fprintf(&b, "%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	} else if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(": ")
	}
	b.WriteString(e.Code)
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// IsDefinitionError returns true if err is or wraps a *DefinitionError.
func IsDefinitionError(err error) bool {
	var de *DefinitionError
	return errors.As(err, &de)
}

// Load reads a definition, choosing the format by extension: .yaml/.yml or .cue.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DefinitionError{Code: ErrCodeRead, File: path, Message: err.Error()}
	}

	var def *Definition
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		def, err = DecodeYAML(data)
	case ".cue":
		def, err = DecodeCUE(data, path)
	default:
		return nil, &DefinitionError{Code: ErrCodeFormat, File: path, Message: fmt.Sprintf("unsupported extension %q", ext)}
	}
	if err != nil {
		var de *DefinitionError
		if errors.As(err, &de) && de.File == "" {
			de.File = path
		}
		return nil, err
	}
	def.Source = path
	return def, nil
}

// DecodeYAML decodes a YAML definition. Unknown keys are rejected.
func DecodeYAML(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, &DefinitionError{Code: ErrCodeDecode, Message: err.Error()}
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *Definition) validate() error {
	if strings.TrimSpace(d.Table) == "" {
		return &DefinitionError{Code: ErrCodeSchema, Path: "table", Message: "required"}
	}
	for name, f := range d.Fields {
		if strings.TrimSpace(f.Wire) == "" {
			return &DefinitionError{Code: ErrCodeSchema, Path: "fields." + name + ".wire", Message: "required"}
		}
	}
	return nil
}
