package catalog

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// catalogSchema constrains CUE catalog files and supplies defaults.
const catalogSchema = `
#Column: {
	name:     string
	type:     string | *"text"
	nullable: bool | *false
	default:  bool | *false
	labels?: [...string]
}

#ForeignKey: {
	columns: [...string]
	target:  string
	target_columns?: [...string]
}

#Table: {
	name: string
	columns: [...#Column]
	primary_key?: [...string]
	unique_keys?: [...[...string]]
	foreign_keys?: [...#ForeignKey]
}

#Schema: {
	name: string
	tables: [...#Table]
}

schemas: [...#Schema]
`

// LoadError reports a CUE catalog that failed to compile or validate.
type LoadError struct {
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// ParseCUE builds a catalog from CUE source. The document is unified with
// the catalog schema, so misspelled fields and wrong types are rejected with
// a source position.
func ParseCUE(src []byte, filename string) (*Catalog, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(catalogSchema, cue.Filename("catalog.schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling catalog schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var def Definition
	if err := unified.Decode(&def); err != nil {
		return nil, formatCUEError(err)
	}
	return FromDefinition(&def)
}

func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Message: err.Error()}
	}
	first := errs[0]
	var pos token.Pos
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		pos = positions[0]
	}
	return &LoadError{Message: first.Error(), Pos: pos}
}
