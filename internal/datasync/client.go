// Package datasync binds queries to the tables of a remote service.
//
//	client, err := datasync.NewClient("https://example.com/")
//	movies := datasync.GetDefaultTable[Movie](client)   // https://example.com/tables/movie/
//	q, err := movies.Query().Where(...)
package datasync

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"

	"github.com/roach88/datasync/internal/pageable"
	"github.com/roach88/datasync/internal/query"
	"github.com/roach88/datasync/internal/transport"
)

// DefaultTablesPrefix is the path segment tables live under.
const DefaultTablesPrefix = "tables"

// Client is a connection to a service endpoint.
//
// Thread-safety: Client is immutable and safe for concurrent use.
type Client struct {
	endpoint  *url.URL
	prefix    string
	transport pageable.Transport
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTablesPrefix sets the path prefix for table endpoints. Leading and
// trailing slashes are ignored; "" places tables at the endpoint root.
func WithTablesPrefix(prefix string) Option {
	return func(c *Client) { c.prefix = strings.Trim(prefix, "/") }
}

// WithTransport sets the page transport. The default is an HTTPTransport.
func WithTransport(t pageable.Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithLogger sets the logger passed to queries and pageables.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient validates endpoint and creates a Client.
//
// The endpoint must be an absolute http or https URL with a host and no
// query or fragment; plain http is accepted only for loopback hosts. It is
// normalized to end with "/".
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := ValidateEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	c := &Client{endpoint: u, prefix: DefaultTablesPrefix}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		var topts []transport.Option
		if c.logger != nil {
			topts = append(topts, transport.WithLogger(c.logger))
		}
		c.transport = transport.New(topts...)
	}
	return c, nil
}

// ValidateEndpoint parses and normalizes a service endpoint.
func ValidateEndpoint(endpoint string) (*url.URL, error) {
	invalid := func(format string, args ...any) error {
		return &query.UsageError{Op: "NewClient", Arg: "endpoint", Message: fmt.Sprintf(format, args...)}
	}

	if strings.TrimSpace(endpoint) == "" {
		return nil, invalid("must not be empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, invalid("%q is not an absolute URL", endpoint)
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !isLoopback(u.Hostname()) {
			return nil, invalid("http is only allowed for loopback hosts, got %q", u.Hostname())
		}
	default:
		return nil, invalid("unsupported scheme %q", u.Scheme)
	}
	if u.RawQuery != "" || u.ForceQuery {
		return nil, invalid("must not have a query")
	}
	if u.Fragment != "" {
		return nil, invalid("must not have a fragment")
	}
	if u.User != nil {
		return nil, invalid("must not carry credentials")
	}

	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Endpoint returns the normalized service endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// TablesPrefix returns the configured table path prefix.
func (c *Client) TablesPrefix() string {
	return c.prefix
}

// Transport returns the page transport shared by the client's tables.
func (c *Client) Transport() pageable.Transport {
	return c.transport
}

// TableEndpoint resolves the URL of a table.
//
// "movies" resolves to <endpoint><prefix>/movies/. A name starting with
// "/" is a path below the endpoint and ignores the prefix: "/api/movies"
// resolves to <endpoint>api/movies/.
func (c *Client) TableEndpoint(name string) (string, error) {
	if strings.Trim(strings.TrimSpace(name), "/") == "" {
		return "", &query.UsageError{Op: "GetTable", Arg: "name", Message: "must not be empty"}
	}

	rel := strings.Trim(name, "/")
	if !strings.HasPrefix(name, "/") && c.prefix != "" {
		rel = c.prefix + "/" + rel
	}

	ref := &url.URL{Path: rel + "/"}
	return c.endpoint.ResolveReference(ref).String(), nil
}
