package datasync

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/datasync/internal/odata"
	"github.com/roach88/datasync/internal/pageable"
	"github.com/roach88/datasync/internal/query"
)

// Table is a typed remote table. It implements query.Table.
type Table[T any] struct {
	client   *Client
	name     string
	endpoint string
	resolver odata.MemberResolver
}

// GetTable returns the table called name.
func GetTable[T any](c *Client, name string) (*Table[T], error) {
	endpoint, err := c.TableEndpoint(name)
	if err != nil {
		return nil, err
	}
	return &Table[T]{
		client:   c,
		name:     name,
		endpoint: endpoint,
		resolver: odata.ResolverFor[T](),
	}, nil
}

// GetDefaultTable returns the table named after T, lower-cased.
func GetDefaultTable[T any](c *Client) (*Table[T], error) {
	return GetTable[T](c, DefaultTableName[T]())
}

// DefaultTableName is the lower-cased Go type name of T, without any
// package qualifier or pointer marker.
func DefaultTableName[T any]() string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return strings.ToLower(t.Name())
}

// WithResolver returns a copy of the table using r for member names.
// A nil r keeps the current resolver.
func (t *Table[T]) WithResolver(r odata.MemberResolver) *Table[T] {
	cp := *t
	if r != nil {
		cp.resolver = r
	}
	return &cp
}

// Name returns the table name as given to GetTable.
func (t *Table[T]) Name() string { return t.name }

// Endpoint implements query.Table.
func (t *Table[T]) Endpoint() string { return t.endpoint }

// Transport implements query.Table.
func (t *Table[T]) Transport() pageable.Transport { return t.client.transport }

// Query starts a query over the table.
func (t *Table[T]) Query() query.Query[T, T] {
	q, err := query.New[T](t, query.WithResolver(t.resolver), query.WithLogger(t.client.logger))
	if err != nil {
		// Only a nil table or resolver fails, and t supplies both.
		panic(fmt.Sprintf("datasync: %v", err))
	}
	return q
}
