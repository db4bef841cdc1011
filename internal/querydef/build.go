package querydef

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/datasync/internal/datasync"
	"github.com/roach88/datasync/internal/odata"
	"github.com/roach88/datasync/internal/query"
	q "github.com/roach88/datasync/internal/querynode"
)

// Record is the item type of a definition-driven query: one decoded JSON
// object per item.
type Record = map[string]any

// Resolver maps members through the declared fields. An undeclared member
// passes through with its dots turned into "/", after substituting the wire
// name of its longest declared prefix. Navigating below a declared
// offset-aware field is rejected.
type Resolver struct {
	declared odata.MapResolver
}

// NewResolver builds a Resolver from field declarations.
func NewResolver(fields map[string]FieldDef) (*Resolver, error) {
	declared := make(odata.MapResolver, len(fields))
	for path, f := range fields {
		kind, err := q.ParseKind(f.Kind)
		if err != nil && strings.TrimSpace(f.Kind) != "" {
			return nil, &DefinitionError{Code: ErrCodeSchema, Path: "fields." + path + ".kind", Message: err.Error()}
		}
		declared[path] = odata.Field{WireName: f.Wire, Kind: kind}
	}
	return &Resolver{declared: declared}, nil
}

// Resolve implements odata.MemberResolver.
func (r *Resolver) Resolve(path string) (odata.Field, error) {
	if _, ok := r.declared[path]; ok {
		return r.declared.Resolve(path)
	}

	segments := strings.Split(path, ".")
	for i := len(segments) - 1; i > 0; i-- {
		prefix := strings.Join(segments[:i], ".")
		f, ok := r.declared[prefix]
		if !ok {
			continue
		}
		if f.Kind == q.KindDateTimeOffset {
			return r.declared.Resolve(path)
		}
		return odata.Field{WireName: f.WireName + "/" + strings.Join(segments[i:], "/")}, nil
	}
	return odata.Field{WireName: strings.Join(segments, "/")}, nil
}

// Build turns a definition into a query against the client's table.
// Errors are *DefinitionError values naming the offending clause.
func Build(def *Definition, c *datasync.Client) (query.Query[Record, Record], error) {
	qry, err := build(def, c)
	var de *DefinitionError
	if errors.As(err, &de) && de.File == "" {
		de.File = def.Source
	}
	return qry, err
}

func build(def *Definition, c *datasync.Client) (query.Query[Record, Record], error) {
	var zero query.Query[Record, Record]

	resolver, err := NewResolver(def.Fields)
	if err != nil {
		return zero, err
	}
	table, err := datasync.GetTable[Record](c, def.Table)
	if err != nil {
		return zero, buildError("table", err)
	}
	qry := table.WithResolver(resolver).Query()

	for i, raw := range def.Where {
		path := fmt.Sprintf("where[%d]", i)
		node, err := ParseExpr(raw, path)
		if err != nil {
			return zero, err
		}
		if qry, err = qry.Where(node); err != nil {
			return zero, buildError(path, err)
		}
	}

	for i, o := range def.OrderBy {
		path := fmt.Sprintf("order_by[%d]", i)
		key, err := ParseExpr(o.Expr, path+".expr")
		if err != nil {
			return zero, err
		}
		switch {
		case i == 0 && o.Desc:
			qry, err = qry.OrderByDescending(key)
		case i == 0:
			qry, err = qry.OrderBy(key)
		case o.Desc:
			qry, err = qry.ThenByDescending(key)
		default:
			qry, err = qry.ThenBy(key)
		}
		if err != nil {
			return zero, buildError(path, err)
		}
	}

	if len(def.Select) > 0 {
		if qry, err = query.Select[Record](qry, def.Select...); err != nil {
			return zero, buildError("select", err)
		}
	}
	if def.Skip != nil {
		if qry, err = qry.Skip(*def.Skip); err != nil {
			return zero, buildError("skip", err)
		}
	}
	if def.Take != nil {
		if qry, err = qry.Take(*def.Take); err != nil {
			return zero, buildError("take", err)
		}
	}
	if len(def.Parameters) > 0 {
		if qry, err = qry.WithParameters(def.Parameters); err != nil {
			return zero, buildError("parameters", err)
		}
	}

	return qry.IncludeDeletedItems(def.IncludeDeleted).IncludeTotalCount(def.IncludeTotalCount), nil
}

func buildError(path string, err error) *DefinitionError {
	return &DefinitionError{Code: ErrCodeBuild, Path: path, Message: err.Error(), Cause: err}
}
