package querydef

import (
	"bytes"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// schema constrains CUE definitions. The document is unified with #Query,
// so unknown top-level fields are rejected.
const schema = `
#Field: {
	wire:  string & !=""
	kind?: "string" | "bool" | "int32" | "int64" | "float32" | "float64" | "decimal" | "enum" | "date" | "datetime" | "datetimeoffset"
}

#Query: {
	table: string & !=""
	fields?: [string]: #Field
	where?: [...{...}]
	order_by?: [...{
		expr:  {...}
		desc?: bool
	}]
	select?: [...string]
	skip?:                int & >=0
	take?:                int & >0
	include_deleted?:     bool
	include_total_count?: bool
	parameters?: [string]: string
}
`

// DecodeCUE evaluates a CUE definition, validates it against the query
// schema and decodes the concrete result. filename labels positions.
func DecodeCUE(data []byte, filename string) (*Definition, error) {
	ctx := cuecontext.New()

	defs := ctx.CompileString(schema, cue.Filename("querydef.schema.cue"))
	if err := defs.Err(); err != nil {
		return nil, fmt.Errorf("compile query schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, cueError(ErrCodeDecode, filename, err)
	}

	value = defs.LookupPath(cue.ParsePath("#Query")).Unify(value)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(ErrCodeSchema, filename, err)
	}

	raw, err := value.MarshalJSON()
	if err != nil {
		return nil, cueError(ErrCodeDecode, filename, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, &DefinitionError{Code: ErrCodeDecode, Message: err.Error()}
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// cueError keeps the first position inside the definition file itself;
// positions inside the schema are not useful to the author.
func cueError(code, filename string, err error) *DefinitionError {
	de := &DefinitionError{Code: code, Message: err.Error(), Cause: err}
	for _, p := range cueerrors.Positions(err) {
		if p.IsValid() && p.Filename() == filename {
			de.Pos = p
			break
		}
	}
	return de
}
