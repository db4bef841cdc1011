package datasync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datasync/internal/query"
	q "github.com/roach88/datasync/internal/querynode"
	"github.com/roach88/datasync/internal/testutil"
)

func TestValidateEndpoint_Valid(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://foo.azurewebsites.net", "https://foo.azurewebsites.net/"},
		{"https://foo.azurewebsites.net/", "https://foo.azurewebsites.net/"},
		{"https://foo.azurewebsites.net/api", "https://foo.azurewebsites.net/api/"},
		{"http://localhost", "http://localhost/"},
		{"http://localhost:5000/base/", "http://localhost:5000/base/"},
		{"http://127.0.0.1/tables", "http://127.0.0.1/tables/"},
		{"http://[::1]:8080", "http://[::1]:8080/"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, err := ValidateEndpoint(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestValidateEndpoint_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"/relative/path",
		"foo.azurewebsites.net",
		"http://foo.azurewebsites.net",
		"ftp://localhost",
		"file:///tmp/x",
		"https://foo.azurewebsites.net/?q=1",
		"https://foo.azurewebsites.net/#frag",
		"https://user:pw@foo.azurewebsites.net/",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := NewClient(in)
			assert.True(t, query.IsUsageError(err))
		})
	}
}

func TestGetTable_Endpoints(t *testing.T) {
	const endpoint = "https://localhost/"

	tests := []struct {
		name   string
		prefix *string
		table  string
		want   string
	}{
		{"default prefix", nil, "movies", "https://localhost/tables/movies/"},
		{"custom prefix", ptr("/api"), "movies", "https://localhost/api/movies/"},
		{"empty prefix", ptr(""), "movies", "https://localhost/movies/"},
		{"relative path", nil, "/api/movies", "https://localhost/api/movies/"},
		{"relative path ignores prefix", ptr("/api"), "/foo/movies", "https://localhost/foo/movies/"},
		{"trailing slash", nil, "movies/", "https://localhost/tables/movies/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.prefix != nil {
				opts = append(opts, WithTablesPrefix(*tt.prefix))
			}
			c, err := NewClient(endpoint, opts...)
			require.NoError(t, err)

			table, err := GetTable[testutil.Movie](c, tt.table)
			require.NoError(t, err)
			assert.Equal(t, tt.want, table.Endpoint())
			assert.Equal(t, tt.table, table.Name())
		})
	}
}

func TestGetTable_BasePath(t *testing.T) {
	c, err := NewClient("https://example.com/mobile")
	require.NoError(t, err)

	table, err := GetTable[testutil.Movie](c, "movies")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/mobile/tables/movies/", table.Endpoint())
}

func TestGetTable_EmptyName(t *testing.T) {
	c, err := NewClient("https://localhost")
	require.NoError(t, err)

	for _, name := range []string{"", " ", "/", "//"} {
		_, err := GetTable[testutil.Movie](c, name)
		assert.True(t, query.IsUsageError(err), "%q", name)
	}
}

func TestGetDefaultTable(t *testing.T) {
	c, err := NewClient("https://localhost", WithTablesPrefix("/api"))
	require.NoError(t, err)

	table, err := GetDefaultTable[testutil.Movie](c)
	require.NoError(t, err)
	assert.Equal(t, "https://localhost/api/movie/", table.Endpoint())

	assert.Equal(t, "movie", DefaultTableName[*testutil.Movie]())
}

func TestTable_QueryRoundTrip(t *testing.T) {
	tr := testutil.NewScriptedTransport()
	c, err := NewClient("https://localhost", WithTransport(tr))
	require.NoError(t, err)

	table, err := GetTable[testutil.Movie](c, "movies")
	require.NoError(t, err)
	assert.Same(t, tr, table.Transport())

	want := "https://localhost/tables/movies/?$filter=(year%20eq%201999)"
	tr.OnPage(want, map[string]any{"items": testutil.Movies(3)})

	filtered, err := table.Query().Where(q.Eq(q.Prop("Year"), q.I(1999)))
	require.NoError(t, err)
	p, err := filtered.ToAsyncPageable()
	require.NoError(t, err)

	items, err := p.Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, []string{want}, tr.Requests())
}

func TestNewClient_DefaultTransport(t *testing.T) {
	c, err := NewClient("https://localhost")
	require.NoError(t, err)
	assert.NotNil(t, c.Transport())
	assert.Equal(t, DefaultTablesPrefix, c.TablesPrefix())
	assert.Equal(t, "https://localhost/", c.Endpoint())
}

func ptr(s string) *string { return &s }
