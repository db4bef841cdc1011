package odata

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/datasync/internal/querynode"
)

// Compiler renders querynode trees as OData fragments.
//
// A Compiler is stateless apart from its resolver and is safe for
// concurrent use when the resolver is.
type Compiler struct {
	resolver MemberResolver
}

// NewCompiler creates a Compiler that resolves members through r.
func NewCompiler(r MemberResolver) *Compiler {
	return &Compiler{resolver: r}
}

// fragment is a compiled sub-tree.
type fragment struct {
	text string
	kind querynode.Kind
	// wrapped reports that text is already enclosed in parentheses.
	wrapped bool
}

// Compile renders a filter expression. The result is the unescaped
// $filter value, e.g. "(id eq 'foo')".
func (c *Compiler) Compile(n querynode.Node) (string, error) {
	f, err := c.node(n, false)
	if err != nil {
		return "", err
	}
	return f.text, nil
}

// CompileOrder renders the $orderby value for clauses, e.g. "year desc,title".
func (c *Compiler) CompileOrder(clauses []querynode.OrderClause) (string, error) {
	parts := make([]string, 0, len(clauses))
	for i, clause := range clauses {
		if err := orderable(clause.Key); err != nil {
			return "", fmt.Errorf("order clause %d: %w", i, err)
		}
		f, err := c.node(clause.Key, false)
		if err != nil {
			return "", fmt.Errorf("order clause %d: %w", i, err)
		}
		if clause.Direction == querynode.Descending {
			parts = append(parts, f.text+" desc")
		} else {
			parts = append(parts, f.text)
		}
	}
	return strings.Join(parts, ","), nil
}

// CompileSelect renders the $select value for member paths. Duplicate
// wire names are emitted once, at their first position.
func (c *Compiler) CompileSelect(paths []string) (string, error) {
	seen := make(map[string]bool, len(paths))
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		f, err := c.member(querynode.Member{Path: p})
		if err != nil {
			return "", err
		}
		if seen[f.text] {
			continue
		}
		seen[f.text] = true
		parts = append(parts, f.text)
	}
	return strings.Join(parts, ","), nil
}

// orderable rejects sort keys that cannot order rows.
func orderable(n querynode.Node) error {
	n, err := deref(n)
	if err != nil {
		return err
	}
	switch key := n.(type) {
	case querynode.Constant:
		return unsupported("order by constant", "ordering key must reference a member")
	case querynode.Unary:
		return unsupported("order by "+string(key.Op), "ordering key must be a member, function, or arithmetic expression")
	case querynode.Binary:
		if !key.Op.IsArithmetic() {
			return unsupported("order by "+string(key.Op), "ordering key must be a member, function, or arithmetic expression")
		}
	}
	return nil
}

// node compiles n. arith is true beneath an arithmetic operator.
func (c *Compiler) node(n querynode.Node, arith bool) (fragment, error) {
	if n == nil {
		return fragment{}, unsupported("", "empty expression")
	}

	n, err := deref(n)
	if err != nil {
		return fragment{}, err
	}

	switch x := n.(type) {
	case querynode.Constant:
		return constant(x.Value)
	case querynode.Member:
		return c.member(x)
	case querynode.Unary:
		return c.unary(x, arith)
	case querynode.Binary:
		return c.binary(x, arith)
	case querynode.Call:
		return c.call(x, arith)
	case querynode.Convert:
		return c.convert(x, arith)
	default:
		return fragment{}, unsupported(fmt.Sprintf("%T", n), "unsupported node type")
	}
}

// deref replaces a pointer node with the value it points to. A nil pointer
// is a translation error.
func deref(n querynode.Node) (querynode.Node, error) {
	var ok bool
	switch x := n.(type) {
	case *querynode.Constant:
		if ok = x != nil; ok {
			n = *x
		}
	case *querynode.Member:
		if ok = x != nil; ok {
			n = *x
		}
	case *querynode.Unary:
		if ok = x != nil; ok {
			n = *x
		}
	case *querynode.Binary:
		if ok = x != nil; ok {
			n = *x
		}
	case *querynode.Call:
		if ok = x != nil; ok {
			n = *x
		}
	case *querynode.Convert:
		if ok = x != nil; ok {
			n = *x
		}
	default:
		return n, nil
	}
	if !ok {
		return nil, unsupported(fmt.Sprintf("%T", n), "nil node")
	}
	return n, nil
}

func (c *Compiler) member(m querynode.Member) (fragment, error) {
	if c.resolver == nil {
		return fragment{}, unmapped(m.Path)
	}
	f, err := c.resolver.Resolve(m.Path)
	if err != nil {
		if IsTranslationError(err) {
			return fragment{}, err
		}
		return fragment{}, unsupported("member "+m.Path, "%v", err)
	}
	if f.WireName == "" {
		return fragment{}, unmapped(m.Path)
	}
	return fragment{text: f.WireName, kind: f.Kind}, nil
}

func constant(v querynode.Value) (fragment, error) {
	switch x := v.(type) {
	case nil, querynode.Null:
		return fragment{text: "null"}, nil
	case querynode.String:
		return fragment{text: quote(string(x)), kind: querynode.KindString}, nil
	case querynode.Int:
		return fragment{text: strconv.FormatInt(int64(x), 10), kind: querynode.KindInt64}, nil
	case querynode.Float:
		text, err := formatFloat(float64(x))
		if err != nil {
			return fragment{}, err
		}
		return fragment{text: text, kind: querynode.KindFloat64}, nil
	case querynode.Bool:
		return fragment{text: strconv.FormatBool(bool(x)), kind: querynode.KindBool}, nil
	case querynode.Date:
		return fragment{text: "cast(" + x.String() + ",Edm.Date)", kind: querynode.KindDate}, nil
	case querynode.DateTime:
		ts := x.Time.UTC().Format("2006-01-02T15:04:05.000Z07:00")
		return fragment{text: "cast(" + ts + ",Edm.DateTimeOffset)", kind: querynode.KindDateTime}, nil
	default:
		return fragment{}, unsupported(fmt.Sprintf("constant %T", v), "unsupported literal type")
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", unsupported("constant", "%v has no literal form", f)
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

func (c *Compiler) unary(u querynode.Unary, arith bool) (fragment, error) {
	switch u.Op {
	case querynode.OpNot:
		operand, err := c.node(u.Operand, false)
		if err != nil {
			return fragment{}, err
		}
		if operand.kind != querynode.KindUnknown && operand.kind != querynode.KindBool {
			return fragment{}, unsupported("not", "operand is %s, not bool", operand.kind)
		}
		if operand.wrapped {
			return fragment{text: "not " + operand.text, kind: querynode.KindBool}, nil
		}
		return fragment{text: "not (" + operand.text + ")", kind: querynode.KindBool}, nil

	case querynode.OpNegate:
		if arith {
			return fragment{}, unsupported("negate", "negation inside an arithmetic expression")
		}
		return negate(u.Operand)

	default:
		return fragment{}, unsupported("unary "+string(u.Op), "unknown unary operator")
	}
}

// negate renders the negation of a numeric constant as a negative literal.
func negate(operand querynode.Node) (fragment, error) {
	operand, err := deref(operand)
	if err != nil {
		return fragment{}, err
	}
	var v querynode.Value
	switch x := operand.(type) {
	case querynode.Constant:
		v = x.Value
	default:
		return fragment{}, unsupported("negate", "only numeric constants can be negated")
	}

	switch n := v.(type) {
	case querynode.Int:
		if n == math.MinInt64 {
			return fragment{}, unsupported("negate", "negation of %d overflows", int64(n))
		}
		return fragment{text: strconv.FormatInt(-int64(n), 10), kind: querynode.KindInt64}, nil
	case querynode.Float:
		text, err := formatFloat(-float64(n))
		if err != nil {
			return fragment{}, err
		}
		return fragment{text: text, kind: querynode.KindFloat64}, nil
	default:
		return fragment{}, unsupported("negate", "only numeric constants can be negated")
	}
}

func (c *Compiler) binary(b querynode.Binary, arith bool) (fragment, error) {
	var kind querynode.Kind
	switch {
	case b.Op.IsLogical(), b.Op.IsComparison():
		kind = querynode.KindBool
	case b.Op.IsArithmetic():
		arith = true
	default:
		return fragment{}, unsupported("operator "+string(b.Op), "operator has no wire token")
	}

	left, err := c.node(b.Left, arith)
	if err != nil {
		return fragment{}, err
	}
	right, err := c.node(b.Right, arith)
	if err != nil {
		return fragment{}, err
	}

	if b.Op.IsArithmetic() {
		kind = widest(left.kind, right.kind)
	}

	return fragment{
		text:    "(" + left.text + " " + string(b.Op) + " " + right.text + ")",
		kind:    kind,
		wrapped: true,
	}, nil
}

var numericRank = map[querynode.Kind]int{
	querynode.KindInt32:   1,
	querynode.KindInt64:   2,
	querynode.KindFloat32: 3,
	querynode.KindFloat64: 4,
	querynode.KindDecimal: 5,
}

// widest returns the result kind of an arithmetic expression.
func widest(a, b querynode.Kind) querynode.Kind {
	ra, rb := numericRank[a], numericRank[b]
	if ra == 0 || rb == 0 {
		return querynode.KindUnknown
	}
	if rb > ra {
		return b
	}
	return a
}

func (c *Compiler) call(call querynode.Call, arith bool) (fragment, error) {
	name := strings.ToLower(call.Name)
	construct := "call " + name
	fn, ok := functions[name]
	if !ok {
		return fragment{}, unsupported(construct, "function is not supported")
	}

	minArgs, maxArgs := fn.arity()
	if len(call.Args) < minArgs || len(call.Args) > maxArgs {
		if minArgs == maxArgs {
			return fragment{}, unsupported(construct, "expects %d argument(s), got %d", minArgs, len(call.Args))
		}
		return fragment{}, unsupported(construct, "expects %d to %d arguments, got %d", minArgs, maxArgs, len(call.Args))
	}

	args := make([]string, len(call.Args))
	var first querynode.Kind
	for i, a := range call.Args {
		f, err := c.node(a, arith)
		if err != nil {
			return fragment{}, err
		}
		if f.kind == querynode.KindDateTimeOffset {
			return fragment{}, unsupported(construct, "cannot filter on offset-aware timestamps")
		}
		if class := fn.params[i]; !class.accepts(f.kind) {
			return fragment{}, unsupported(construct, "argument %d is %s, want %s", i+1, f.kind, class)
		}
		if i == 0 {
			first = f.kind
		}
		args[i] = f.text
	}

	kind := fn.returns
	if kind == querynode.KindUnknown {
		kind = first
	}
	return fragment{text: name + "(" + strings.Join(args, ",") + ")", kind: kind}, nil
}

// widenings lists the conversions rendered without a cast.
var widenings = map[querynode.Kind][]querynode.Kind{
	querynode.KindInt32:   {querynode.KindInt64, querynode.KindFloat32, querynode.KindFloat64, querynode.KindDecimal},
	querynode.KindInt64:   {querynode.KindFloat64, querynode.KindDecimal},
	querynode.KindFloat32: {querynode.KindFloat64},
	querynode.KindEnum:    {querynode.KindInt32, querynode.KindInt64},
}

func (c *Compiler) convert(cv querynode.Convert, arith bool) (fragment, error) {
	construct := "convert to " + string(cv.To)
	if cv.To == querynode.KindDateTimeOffset {
		return fragment{}, unsupported(construct, "cannot filter on offset-aware timestamps")
	}

	operand, err := c.node(cv.Operand, arith)
	if err != nil {
		return fragment{}, err
	}

	switch {
	case operand.kind == querynode.KindDateTimeOffset:
		return fragment{}, unsupported(construct, "cannot filter on offset-aware timestamps")
	case operand.kind == querynode.KindUnknown:
		return fragment{}, unsupported(construct, "source kind is unknown")
	case operand.kind == cv.To:
		return operand, nil
	}

	for _, to := range widenings[operand.kind] {
		if to == cv.To {
			operand.kind = cv.To
			return operand, nil
		}
	}
	return fragment{}, unsupported(construct, "no conversion from %s", operand.kind)
}
