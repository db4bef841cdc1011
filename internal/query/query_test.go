package query

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datasync/internal/odata"
	q "github.com/roach88/datasync/internal/querynode"
	"github.com/roach88/datasync/internal/testutil"
)

const endpoint = "https://localhost/tables/movies/"

type movieQuery = Query[testutil.Movie, testutil.Movie]

func must[Q any](query Q, err error) Q {
	if err != nil {
		panic(err)
	}
	return query
}

func newQuery(t *testing.T) (movieQuery, *testutil.ScriptedTransport) {
	t.Helper()
	tr := testutil.NewScriptedTransport()
	query, err := New[testutil.Movie](testutil.Table{URL: endpoint, Scripted: tr})
	require.NoError(t, err)
	return query, tr
}

func queryString(t *testing.T, query interface{ ToQueryString() (string, error) }) string {
	t.Helper()
	s, err := query.ToQueryString()
	require.NoError(t, err)
	return s
}

func TestToQueryString_Blank(t *testing.T) {
	base, _ := newQuery(t)
	assert.Equal(t, "", queryString(t, base))
}

func TestToQueryString_Flags(t *testing.T) {
	base, _ := newQuery(t)

	assert.Equal(t, "__includedeleted=true", queryString(t, base.IncludeDeletedItems(true)))
	assert.Equal(t, "$count=true", queryString(t, base.IncludeTotalCount(true)))
	assert.Equal(t, "", queryString(t, base.IncludeDeletedItems(true).IncludeDeletedItems(false)))
	assert.Equal(t, "", queryString(t, base.IncludeTotalCount(true).IncludeTotalCount(false)))
}

func TestToQueryString_Ordering(t *testing.T) {
	base, _ := newQuery(t)

	tests := []struct {
		name  string
		query movieQuery
		want  string
	}{
		{"order by", must(base.OrderBy(q.Prop("ID"))), "$orderby=id"},
		{"order by descending", must(base.OrderByDescending(q.Prop("ID"))), "$orderby=id%20desc"},
		{"then by without order", must(base.ThenBy(q.Prop("ID"))), "$orderby=id"},
		{"then by descending without order", must(base.ThenByDescending(q.Prop("ID"))), "$orderby=id%20desc"},
		{"then by appends", must(must(base.OrderBy(q.Prop("ID"))).ThenBy(q.Prop("Title"))), "$orderby=id%2Ctitle"},
		{
			"order by replaces",
			must(must(must(base.OrderBy(q.Prop("ID"))).ThenBy(q.Prop("Title"))).OrderByDescending(q.Prop("Year"))),
			"$orderby=year%20desc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, queryString(t, tt.query))
		})
	}
}

func TestToQueryString_UnsupportedOrderingFailsLate(t *testing.T) {
	base, _ := newQuery(t)

	ordered, err := base.OrderBy(q.Fn("ToLower", q.Prop("ID")))
	require.NoError(t, err, "building an unsupported ordering succeeds")

	_, err = ordered.ToQueryString()
	assert.True(t, odata.IsTranslationError(err))
}

func TestToQueryString_Select(t *testing.T) {
	type idOnly struct {
		ID string `json:"id"`
	}
	base, _ := newQuery(t)

	selected, err := Select[idOnly](base, "ID")
	require.NoError(t, err)
	assert.Equal(t, "$select=id", queryString(t, selected))

	reselected, err := Select[testutil.Movie](selected, "Title", "Year")
	require.NoError(t, err)
	assert.Equal(t, "$select=title%2Cyear", queryString(t, reselected))
}

func TestToQueryString_OrderingEscapesDelimiters(t *testing.T) {
	base, _ := newQuery(t)

	tests := []struct {
		name string
		key  q.Node
		want string
	}{
		{"ampersand equals and hash", q.Fn("indexof", q.Prop("Title"), q.Str("a&b=c#x")), "indexof(title,'a&b=c#x')"},
		{"percent", q.Fn("concat", q.Prop("Title"), q.Str("50%")), "concat(title,'50%')"},
		{"plus and space", q.Fn("concat", q.Prop("Title"), q.Str("a+b c")), "concat(title,'a+b c')"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := queryString(t, must(base.OrderBy(tt.key)))
			values, err := url.ParseQuery(s)
			require.NoError(t, err)
			assert.Equal(t, url.Values{"$orderby": {tt.want}}, values)
		})
	}
}

func TestToQueryString_Skip(t *testing.T) {
	base, _ := newQuery(t)

	assert.Equal(t, "$skip=5", queryString(t, must(base.Skip(5))))
	assert.Equal(t, "$skip=25", queryString(t, must(must(base.Skip(5)).Skip(20))))
	assert.Equal(t, "", queryString(t, must(base.Skip(0))))

	_, err := base.Skip(-1)
	assert.True(t, IsUsageError(err))

	huge := must(must(base.Skip(math.MaxInt)).Skip(math.MaxInt))
	_, err = huge.Skip(math.MaxInt)
	var ue *UsageError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "Skip", ue.Op)
	assert.Equal(t, "$skip="+strconv.FormatUint(uint64(math.MaxInt)*2, 10), queryString(t, huge))
}

func TestToQueryString_Take(t *testing.T) {
	base, _ := newQuery(t)

	tests := []struct {
		first, second int
		want          uint
	}{
		{5, 2, 2},
		{2, 5, 2},
		{5, 20, 5},
		{20, 5, 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d then %d", tt.first, tt.second), func(t *testing.T) {
			taken := must(must(base.Take(tt.first)).Take(tt.second))
			n, ok := taken.TakeCount()
			require.True(t, ok)
			assert.Equal(t, tt.want, n)
			assert.Equal(t, fmt.Sprintf("$top=%d", tt.want), queryString(t, taken))
		})
	}

	assert.Equal(t, "$top=5", queryString(t, must(base.Take(5))))

	for _, n := range []int{0, -3} {
		_, err := base.Take(n)
		assert.True(t, IsUsageError(err), n)
	}
}

func TestToQueryString_Where(t *testing.T) {
	base, _ := newQuery(t)

	filtered := must(base.Where(q.Eq(q.Prop("ID"), q.Str("foo"))))
	assert.Equal(t, "$filter=(id%20eq%20'foo')", queryString(t, filtered))

	both := must(filtered.Where(q.Gt(q.Prop("Year"), q.I(2000))))
	assert.Equal(t, "$filter=((id%20eq%20'foo')%20and%20(year%20gt%202000))", queryString(t, both))

	_, err := base.Where(nil)
	assert.True(t, IsUsageError(err))
}

func TestToQueryString_UnsupportedPredicates(t *testing.T) {
	base, _ := newQuery(t)

	tests := []struct {
		name      string
		predicate q.Node
	}{
		{"member of offset-aware timestamp", q.Gt(q.Prop("ReleaseDate.UtcDateTime"), q.At(time.Now()))},
		{"lastindexof", q.Eq(q.Fn("LastIndexOf", q.Prop("Title"), q.Str("er")), q.I(0))},
		{"xor", q.Binary{Op: "xor", Left: q.Prop("BestPictureWinner"), Right: q.B(true)}},
		{"negated member in product", q.Gt(q.Mul(q.I(5), q.Neg(q.Prop("Duration"))), q.I(-50))},
		{"negated member", q.Eq(q.Neg(q.Prop("Year")), q.I(-2000))},
		{"hash code", q.Eq(q.Fn("GetHashCode", q.Prop("ID")), q.I(42))},
		{"to string with format", q.Eq(q.Fn("ToString", q.Prop("ReleaseDate"), q.Str("o")), q.Str("x"))},
		{"unmapped member", q.Eq(q.Prop("Secret"), q.Str("x"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filtered, err := base.Where(tt.predicate)
			require.NoError(t, err, "construction always succeeds")

			_, err = filtered.ToQueryString()
			assert.True(t, odata.IsTranslationError(err))
		})
	}
}

func TestToQueryString_Distinct(t *testing.T) {
	base, _ := newQuery(t)

	distinct := base.Distinct()
	assert.True(t, distinct.IsDistinct())
	assert.False(t, base.IsDistinct())

	_, err := distinct.ToQueryString()
	assert.True(t, odata.IsTranslationError(err))
}

func TestWithParameter(t *testing.T) {
	base, _ := newQuery(t)

	assert.Equal(t, "testkey=test%20value", queryString(t, must(base.WithParameter("testkey", "test value"))))

	overwritten := must(must(must(base.WithParameter("a", "1")).WithParameter("b", "2")).WithParameter("a", "3"))
	assert.Equal(t, "a=3&b=2", queryString(t, overwritten))
	assert.Equal(t, [][2]string{{"a", "3"}, {"b", "2"}}, overwritten.Parameters())
}

func TestWithParameter_Rejects(t *testing.T) {
	base, _ := newQuery(t)

	tests := []struct {
		name, key, value string
	}{
		{"empty key", "", "v"},
		{"whitespace key", "  \t", "v"},
		{"empty value", "k", ""},
		{"whitespace value", "k", "   "},
		{"reserved count", "$count", "true"},
		{"reserved deleted", "__includedeleted", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := base.WithParameter(tt.key, tt.value)
			assert.True(t, IsUsageError(err))

			_, err = base.IncludeTotalCount(true).IncludeDeletedItems(true).WithParameter(tt.key, tt.value)
			assert.True(t, IsUsageError(err), "regardless of builder state")
		})
	}
}

func TestWithParameters(t *testing.T) {
	base, _ := newQuery(t)
	params := map[string]string{"key2": "value 2", "key1": "value1"}

	assert.Equal(t, "key1=value1&key2=value%202", queryString(t, must(base.WithParameters(params))))

	merged := must(must(base.WithParameter("foo", "bar")).WithParameters(params))
	assert.Equal(t, "foo=bar&key1=value1&key2=value%202", queryString(t, merged))
}

func TestWithParameters_Rejects(t *testing.T) {
	base, _ := newQuery(t)

	for name, params := range map[string]map[string]string{
		"nil":         nil,
		"empty":       {},
		"reserved":    {"ok": "1", "$count": "true"},
		"blank value": {"a": "1", "b": " "},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := base.WithParameters(params)
			assert.True(t, IsUsageError(err))
			assert.Empty(t, got.Parameters(), "no partial application")
		})
	}
}

func TestQuery_ClauseOrder(t *testing.T) {
	base, _ := newQuery(t)

	full := must(base.Where(q.Eq(q.Prop("ID"), q.Str("a"))))
	full = must(full.OrderBy(q.Prop("Title")))
	full = must(full.Skip(10))
	full = must(full.Take(5))
	full = must(full.WithParameter("z", "last"))
	full = full.IncludeDeletedItems(true).IncludeTotalCount(true)
	selected := must(Select[testutil.Movie](full, "ID"))

	want := "$filter=(id%20eq%20'a')&$orderby=title&$select=id&$skip=10&$top=5&$count=true&__includedeleted=true&z=last"
	assert.Equal(t, want, queryString(t, selected))
	assert.Equal(t, queryString(t, selected), queryString(t, selected), "compilation is idempotent")
}

func TestQuery_BranchingDoesNotAlias(t *testing.T) {
	base, _ := newQuery(t)
	base = must(base.OrderBy(q.Prop("ID")))
	base = must(base.WithParameter("p", "1"))

	left := must(must(base.ThenBy(q.Prop("Title"))).WithParameter("l", "x"))
	right := must(must(base.ThenBy(q.Prop("Year"))).WithParameter("p", "2"))

	assert.Equal(t, "$orderby=id&p=1", queryString(t, base))
	assert.Equal(t, "$orderby=id%2Ctitle&p=1&l=x", queryString(t, left))
	assert.Equal(t, "$orderby=id%2Cyear&p=2", queryString(t, right))

	filtered := must(base.Where(q.Eq(q.Prop("ID"), q.Str("x"))))
	assert.Nil(t, base.Filter())
	assert.NotNil(t, filtered.Filter())
}

func TestQuery_ConcurrentBranching(t *testing.T) {
	base, _ := newQuery(t)
	base = must(base.OrderBy(q.Prop("ID")))

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			derived := must(must(base.ThenBy(q.Prop("Title"))).Skip(i))
			results[i], _ = derived.ToQueryString()
		}()
	}
	wg.Wait()

	assert.Equal(t, "$orderby=id%2Ctitle", results[0])
	assert.Equal(t, "$orderby=id%2Ctitle&$skip=15", results[15])
	assert.Equal(t, "$orderby=id", queryString(t, base))
}

func TestQuery_UsageErrors(t *testing.T) {
	_, err := New[testutil.Movie](nil)
	assert.True(t, IsUsageError(err))

	base, _ := newQuery(t)

	_, err = base.OrderBy(nil)
	assert.True(t, IsUsageError(err))
	_, err = base.ThenByDescending(nil)
	assert.True(t, IsUsageError(err))
	_, err = Select[testutil.Movie](base)
	assert.True(t, IsUsageError(err))
	_, err = Select[testutil.Movie](base, "ID", " ")
	assert.True(t, IsUsageError(err))

	var ue *UsageError
	_, err = base.Take(0)
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "Take", ue.Op)
	assert.Equal(t, "count", ue.Arg)
}

func TestQuery_CustomResolver(t *testing.T) {
	tr := testutil.NewScriptedTransport()
	resolver := odata.MapResolver{"Name": {WireName: "full_name", Kind: q.KindString}}

	base, err := New[map[string]any](testutil.Table{URL: endpoint, Scripted: tr}, WithResolver(resolver))
	require.NoError(t, err)

	filtered := must(base.Where(q.Eq(q.Prop("Name"), q.Str("x"))))
	assert.Equal(t, "$filter=(full_name%20eq%20'x')", queryString(t, filtered))
}

func TestRequestURL(t *testing.T) {
	base, _ := newQuery(t)

	u, err := base.RequestURL()
	require.NoError(t, err)
	assert.Equal(t, endpoint, u)

	u, err = must(base.Take(1)).RequestURL()
	require.NoError(t, err)
	assert.Equal(t, endpoint+"?$top=1", u)

	var zero movieQuery
	_, err = zero.RequestURL()
	assert.True(t, IsUsageError(err))
}

func TestToAsyncPageable_CountRequest(t *testing.T) {
	base, tr := newQuery(t)
	movies := testutil.Movies(10)
	first := endpoint + "?$filter=(stringValue%20eq%20'foo')&$count=true"
	tr.OnPage(first, map[string]any{"items": movies[:5], "count": 10, "nextLink": endpoint + "?page=2"}).
		OnPage(endpoint+"?page=2", map[string]any{"items": movies[5:], "nextLink": endpoint + "?page=3"}).
		OnPage(endpoint+"?page=3", map[string]any{"items": []testutil.Movie{}})

	counted := must(base.Where(q.Eq(q.Prop("StringValue"), q.Str("foo")))).IncludeTotalCount(true)
	p, err := counted.ToAsyncPageable()
	require.NoError(t, err)
	assert.Equal(t, first, p.RequestURL())

	items, err := p.Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 10)
	assert.Equal(t, []string{first, endpoint + "?page=2", endpoint + "?page=3"}, tr.Requests())

	n, ok := p.Count()
	require.True(t, ok)
	assert.Equal(t, int64(10), n)
}

func TestToAsyncPageable_Projection(t *testing.T) {
	type titleOnly struct {
		Title string `json:"title"`
	}
	base, tr := newQuery(t)
	tr.On(endpoint+"?$select=title", 200, `{"items":[{"title":"Alien"},{"title":"Heat"}]}`)

	p, err := must(Select[titleOnly](base, "Title")).ToAsyncPageable()
	require.NoError(t, err)

	items, err := p.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []titleOnly{{"Alien"}, {"Heat"}}, items)
}

func TestToAsyncPageable_CompileFailureIssuesNoRequest(t *testing.T) {
	base, tr := newQuery(t)

	_, err := must(base.OrderBy(q.Fn("tolower", q.Prop("ID")))).ToAsyncPageable()
	assert.True(t, odata.IsTranslationError(err))
	assert.Empty(t, tr.Requests())
}

func TestEscapeComponent(t *testing.T) {
	tests := map[string]string{
		"plain":         "plain",
		"a b":           "a%20b",
		"(x eq 'y')":    "(x%20eq%20'y')",
		"-_.!~*'()":     "-_.!~*'()",
		"a&b=c/d?e#f":   "a%26b%3Dc%2Fd%3Fe%23f",
		"2001:12,Z+1%":  "2001%3A12%2CZ%2B1%25",
		"café":          "caf%C3%A9",
		"":              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, escapeComponent(in), in)
	}
}
