package querydef

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	q "github.com/roach88/datasync/internal/querynode"
)

// ParseExpr converts a decoded expression document into a query node.
// path prefixes error locations.
//
// Every expression is a map with a single key:
//
//	{member: Title}                    member reference
//	{value: 42}                        literal (string, number, bool, null)
//	{date: "2001-12-31"}               calendar date
//	{datetime: "2002-01-01T00:00:00Z"} instant
//	{eq: [a, b]}                       binary operator (eq ne lt le gt ge add sub mul div mod)
//	{and: [a, b, ...]}                 and/or fold over one or more operands
//	{not: a}
//	{negate: a}
//	{call: {name: contains, args: [a, b]}}
//	{convert: {to: float64, expr: a}}
func ParseExpr(v any, path string) (q.Node, error) {
	m, ok := asMap(v)
	if !ok {
		return nil, exprError(path, "expression must be a single-key map, got %s", describe(v))
	}
	if len(m) != 1 {
		return nil, exprError(path, "expression must have exactly one key, got %s", strings.Join(slices.Sorted(maps.Keys(m)), ", "))
	}

	var key string
	var arg any
	for k, a := range m {
		key, arg = k, a
	}
	at := path + "." + key

	switch key {
	case "member":
		s, ok := arg.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, exprError(at, "member must be a non-empty string")
		}
		return q.Prop(s), nil

	case "value":
		val, err := literal(arg)
		if err != nil {
			return nil, exprError(at, "%v", err)
		}
		return q.Lit(val), nil

	case "date":
		if t, ok := arg.(time.Time); ok {
			return q.Day(t.Year(), t.Month(), t.Day()), nil
		}
		s, _ := arg.(string)
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, exprError(at, "date must be YYYY-MM-DD, got %s", describe(arg))
		}
		return q.Day(d.Year(), d.Month(), d.Day()), nil

	case "datetime":
		if t, ok := arg.(time.Time); ok {
			return q.At(t), nil
		}
		s, _ := arg.(string)
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, exprError(at, "datetime must be RFC 3339, got %s", describe(arg))
		}
		return q.At(t), nil

	case "not", "negate":
		operand, err := ParseExpr(arg, at)
		if err != nil {
			return nil, err
		}
		if key == "not" {
			return q.Not(operand), nil
		}
		return q.Neg(operand), nil

	case "call":
		return parseCall(arg, at)

	case "convert":
		return parseConvert(arg, at)
	}

	op := q.BinaryOp(key)
	switch {
	case op.IsLogical():
		operands, err := parseList(arg, at)
		if err != nil {
			return nil, err
		}
		if len(operands) == 0 {
			return nil, exprError(at, "%s needs at least one operand", key)
		}
		if op == q.OpAnd {
			return q.And(operands...), nil
		}
		return q.Or(operands...), nil

	case op.IsComparison(), op.IsArithmetic():
		operands, err := parseList(arg, at)
		if err != nil {
			return nil, err
		}
		if len(operands) != 2 {
			return nil, exprError(at, "%s needs exactly two operands, got %d", key, len(operands))
		}
		return q.Binary{Op: op, Left: operands[0], Right: operands[1]}, nil
	}

	return nil, exprError(path, "unknown expression %q", key)
}

func parseList(v any, path string) ([]q.Node, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, exprError(path, "operands must be a list, got %s", describe(v))
	}
	nodes := make([]q.Node, 0, len(items))
	for i, item := range items {
		n, err := ParseExpr(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func parseCall(v any, path string) (q.Node, error) {
	m, ok := asMap(v)
	if !ok {
		return nil, exprError(path, "call must be a map with name and args")
	}
	if err := onlyKeys(m, path, "name", "args"); err != nil {
		return nil, err
	}
	name, _ := m["name"].(string)
	if strings.TrimSpace(name) == "" {
		return nil, exprError(path+".name", "must be a non-empty string")
	}

	var args []q.Node
	if raw, present := m["args"]; present {
		var err error
		if args, err = parseList(raw, path+".args"); err != nil {
			return nil, err
		}
	}
	return q.Fn(name, args...), nil
}

func parseConvert(v any, path string) (q.Node, error) {
	m, ok := asMap(v)
	if !ok {
		return nil, exprError(path, "convert must be a map with to and expr")
	}
	if err := onlyKeys(m, path, "to", "expr"); err != nil {
		return nil, err
	}
	to, _ := m["to"].(string)
	kind, err := q.ParseKind(to)
	if err != nil || kind == q.KindUnknown {
		return nil, exprError(path+".to", "unknown kind %s", describe(m["to"]))
	}
	operand, err := ParseExpr(m["expr"], path+".expr")
	if err != nil {
		return nil, err
	}
	return q.Cast(kind, operand), nil
}

// literal converts a decoded scalar. YAML yields int and float64; CUE
// exports through JSON and yields json.Number.
func literal(v any) (q.Value, error) {
	switch val := v.(type) {
	case json.Number:
		if n, err := strconv.ParseInt(val.String(), 10, 64); err == nil {
			return q.Int(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s", val)
		}
		return q.Float(f), nil
	case map[string]any, []any:
		return nil, fmt.Errorf("value must be a scalar, got %s", describe(v))
	}
	return q.ValueOf(v)
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func onlyKeys(m map[string]any, path string, allowed ...string) error {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if !slices.Contains(allowed, k) {
			return exprError(path, "unknown key %q", k)
		}
	}
	return nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "map"
	case []any:
		return "list"
	}
	return fmt.Sprintf("%v", v)
}

func exprError(path, format string, args ...any) *DefinitionError {
	return &DefinitionError{Code: ErrCodeExpr, Path: path, Message: fmt.Sprintf(format, args...)}
}
