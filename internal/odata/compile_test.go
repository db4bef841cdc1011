package odata

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	q "github.com/roach88/datasync/internal/querynode"
	"github.com/roach88/datasync/internal/testutil"
)

func movieCompiler() *Compiler {
	return NewCompiler(ResolverFor[testutil.Movie]())
}

func TestCompile_Filters(t *testing.T) {
	east := time.FixedZone("east", 3*60*60)

	tests := []struct {
		name string
		node q.Node
		want string
	}{
		{"equality", q.Eq(q.Prop("ID"), q.Str("foo")), "(id eq 'foo')"},
		{"quote doubled", q.Eq(q.Prop("Title"), q.Str("O'Brien")), "(title eq 'O''Brien')"},
		{"null", q.Ne(q.Prop("Title"), q.Nil()), "(title ne null)"},
		{"bool", q.Eq(q.Prop("BestPictureWinner"), q.B(true)), "(bestPictureWinner eq true)"},
		{
			"and",
			q.And(q.Gt(q.Prop("Year"), q.I(1990)), q.Lt(q.Prop("Year"), q.I(2000))),
			"((year gt 1990) and (year lt 2000))",
		},
		{
			"or of three folds left",
			q.Or(q.Eq(q.Prop("Rating"), q.I(1)), q.Eq(q.Prop("Rating"), q.I(2)), q.Eq(q.Prop("Rating"), q.I(3))),
			"(((rating eq 1) or (rating eq 2)) or (rating eq 3))",
		},
		{"not binary", q.Not(q.Eq(q.Prop("ID"), q.Str("a"))), "not (id eq 'a')"},
		{"not member", q.Not(q.Prop("Deleted")), "not (deleted)"},
		{"negative literal", q.Lt(q.Prop("Year"), q.Neg(q.I(5))), "(year lt -5)"},
		{"negative float", q.Gt(q.Prop("Budget"), q.Neg(q.F(2.5))), "(budget gt -2.5)"},
		{"arithmetic", q.Gt(q.Mul(q.Prop("Duration"), q.F(1.5)), q.I(100)), "((duration mul 1.5) gt 100)"},
		{"mod", q.Eq(q.Mod(q.Prop("Year"), q.I(4)), q.I(0)), "((year mod 4) eq 0)"},
		{"contains", q.Fn("contains", q.Prop("Title"), q.Str("er")), "contains(title,'er')"},
		{"name lower-cased", q.Fn("StartsWith", q.Prop("Title"), q.Str("A")), "startswith(title,'A')"},
		{"substring two args", q.Eq(q.Fn("substring", q.Prop("Title"), q.I(1)), q.Str("x")), "(substring(title,1) eq 'x')"},
		{"substring three args", q.Eq(q.Fn("substring", q.Prop("Title"), q.I(1), q.I(2)), q.Str("x")), "(substring(title,1,2) eq 'x')"},
		{"length", q.Gt(q.Fn("length", q.Fn("trim", q.Prop("Title"))), q.I(3)), "(length(trim(title)) gt 3)"},
		{"year of date", q.Eq(q.Fn("year", q.Prop("PremiereDate")), q.I(2000)), "(year(premiereDate) eq 2000)"},
		{"hour of datetime", q.Eq(q.Fn("hour", q.Prop("UpdatedAt")), q.I(12)), "(hour(updatedAt) eq 12)"},
		{"round", q.Eq(q.Fn("round", q.Prop("Budget")), q.I(3)), "(round(budget) eq 3)"},
		{
			"date literal",
			q.Eq(q.Prop("PremiereDate"), q.Day(2001, time.December, 31)),
			"(premiereDate eq cast(2001-12-31,Edm.Date))",
		},
		{
			"instant normalized to UTC",
			q.Gt(q.Prop("ReleaseDate"), q.At(time.Date(2002, 1, 1, 3, 0, 0, 0, east))),
			"(releaseDate gt cast(2002-01-01T00:00:00.000Z,Edm.DateTimeOffset))",
		},
		{"enum to int", q.Eq(q.Cast(q.KindInt32, q.Prop("Rating")), q.I(2)), "(rating eq 2)"},
		{"numeric widen", q.Gt(q.Cast(q.KindInt64, q.Prop("Duration")), q.I(90)), "(duration gt 90)"},
		{"identity convert", q.Eq(q.Cast(q.KindString, q.Prop("Title")), q.Str("a")), "(title eq 'a')"},
		{"nested member", q.Eq(q.Prop("Studio.Name"), q.Str("Pixar")), "(studio/name eq 'Pixar')"},
		{"pointer node", &q.Binary{Op: q.OpEq, Left: &q.Member{Path: "ID"}, Right: q.Str("p")}, "(id eq 'p')"},
	}

	c := movieCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Compile(tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		node      q.Node
		construct string
	}{
		{"navigate into offset-aware", q.Eq(q.Prop("ReleaseDate.UtcDateTime"), q.I(1)), "member ReleaseDate.UtcDateTime"},
		{"unknown function", q.Eq(q.Fn("lastindexof", q.Prop("Title"), q.Str("er")), q.I(1)), "call lastindexof"},
		{"tolower", q.Eq(q.Fn("ToLower", q.Prop("ID")), q.Str("a")), "call tolower"},
		{"xor", q.Binary{Op: "xor", Left: q.Prop("Deleted"), Right: q.B(true)}, "operator xor"},
		{"negated member in product", q.Gt(q.Mul(q.I(5), q.Neg(q.Prop("Duration"))), q.I(1)), "negate"},
		{"negated constant in product", q.Gt(q.Mul(q.I(5), q.Neg(q.I(3))), q.I(1)), "negate"},
		{"negated member", q.Eq(q.Neg(q.Prop("Year")), q.I(-1)), "negate"},
		{"negated string", q.Eq(q.Prop("Title"), q.Neg(q.Str("a"))), "negate"},
		{"negation overflow", q.Eq(q.Prop("Year"), q.Neg(q.I(math.MinInt64))), "negate"},
		{"arity", q.Fn("contains", q.Prop("Title")), "call contains"},
		{"substring arity", q.Fn("substring", q.Prop("Title")), "call substring"},
		{"argument kind", q.Fn("contains", q.Prop("Year"), q.Str("1")), "call contains"},
		{"date function on offset-aware", q.Eq(q.Fn("year", q.Prop("ReleaseDate")), q.I(2000)), "call year"},
		{"convert to offset-aware", q.Eq(q.Cast(q.KindDateTimeOffset, q.Prop("UpdatedAt")), q.Nil()), "convert to datetimeoffset"},
		{"convert from offset-aware", q.Eq(q.Cast(q.KindInt64, q.Prop("ReleaseDate")), q.I(0)), "convert to int64"},
		{"narrowing convert", q.Eq(q.Cast(q.KindInt32, q.Prop("Budget")), q.I(0)), "convert to int32"},
		{"string to number", q.Eq(q.Cast(q.KindInt32, q.Prop("Title")), q.I(0)), "convert to int32"},
		{"convert of null", q.Eq(q.Cast(q.KindInt32, q.Nil()), q.I(0)), "convert to int32"},
		{"json dash", q.Eq(q.Prop("Secret"), q.Str("x")), "member Secret"},
		{"unknown member", q.Eq(q.Prop("Missing"), q.Str("x")), "member Missing"},
		{"nan", q.Eq(q.Prop("Budget"), q.F(math.NaN())), "constant"},
		{"not on number", q.Not(q.Prop("Year")), "not"},
		{"unknown unary", q.Unary{Op: "complement", Operand: q.Prop("Year")}, "unary complement"},
		{"nil", nil, ""},
		{"nil constant pointer", q.Eq(q.Prop("ID"), (*q.Constant)(nil)), "*querynode.Constant"},
		{"nil member pointer", q.Eq((*q.Member)(nil), q.Str("x")), "*querynode.Member"},
		{"nil unary pointer", (*q.Unary)(nil), "*querynode.Unary"},
		{"nil binary pointer", q.Not((*q.Binary)(nil)), "*querynode.Binary"},
		{"nil call pointer", q.Eq((*q.Call)(nil), q.I(1)), "*querynode.Call"},
		{"nil convert pointer", q.Eq((*q.Convert)(nil), q.I(1)), "*querynode.Convert"},
		{"negated nil constant pointer", q.Eq(q.Prop("Year"), q.Neg((*q.Constant)(nil))), "*querynode.Constant"},
	}

	c := movieCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Compile(tt.node)
			require.Error(t, err)
			assert.True(t, IsTranslationError(err))

			var te *TranslationError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.construct, te.Construct)
		})
	}
}

func TestCompile_OffsetAwareReason(t *testing.T) {
	_, err := movieCompiler().Compile(q.Eq(q.Cast(q.KindInt64, q.Prop("ReleaseDate")), q.I(0)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot filter on offset-aware timestamps")
}

func TestCompile_Deterministic(t *testing.T) {
	node := q.And(
		q.Fn("contains", q.Prop("Title"), q.Str("the")),
		q.Ge(q.Prop("PremiereDate"), q.Day(1999, time.January, 1)),
		q.Not(q.Prop("Deleted")),
	)
	c := movieCompiler()

	first, err := c.Compile(node)
	require.NoError(t, err)
	second, err := c.Compile(node)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCompileOrder(t *testing.T) {
	c := movieCompiler()

	got, err := c.CompileOrder([]q.OrderClause{q.Desc(q.Prop("Year")), q.Asc(q.Prop("Title"))})
	require.NoError(t, err)
	assert.Equal(t, "year desc,title", got)

	got, err = c.CompileOrder([]q.OrderClause{q.Asc(q.Prop("ReleaseDate"))})
	require.NoError(t, err)
	assert.Equal(t, "releaseDate", got, "offset-aware members can be ordered directly")

	got, err = c.CompileOrder([]q.OrderClause{q.Asc(q.Fn("length", q.Prop("Title")))})
	require.NoError(t, err)
	assert.Equal(t, "length(title)", got)

	got, err = c.CompileOrder(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCompileOrder_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  q.Node
	}{
		{"tolower", q.Fn("tolower", q.Prop("ID"))},
		{"constant", q.Str("x")},
		{"comparison", q.Eq(q.Prop("ID"), q.Str("x"))},
		{"not", q.Not(q.Prop("Deleted"))},
		{"unmapped", q.Prop("Missing")},
		{"not pointer", &q.Unary{Op: q.OpNot, Operand: q.Prop("Deleted")}},
		{"nil member pointer", (*q.Member)(nil)},
	}

	c := movieCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CompileOrder([]q.OrderClause{q.Asc(tt.key)})
			assert.True(t, IsTranslationError(err))
		})
	}
}

func TestCompileSelect(t *testing.T) {
	c := movieCompiler()

	got, err := c.CompileSelect([]string{"ID", "Title", "ID", "Studio.Name"})
	require.NoError(t, err)
	assert.Equal(t, "id,title,studio/name", got)

	_, err = c.CompileSelect([]string{"Missing"})
	assert.True(t, IsTranslationError(err))
}

func TestCompile_NoResolver(t *testing.T) {
	_, err := NewCompiler(nil).Compile(q.Prop("ID"))
	assert.True(t, IsTranslationError(err))

	got, err := NewCompiler(nil).Compile(q.Eq(q.I(1), q.I(1)))
	require.NoError(t, err)
	assert.Equal(t, "(1 eq 1)", got)
}
