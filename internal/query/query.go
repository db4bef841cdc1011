package query

import (
	"log/slog"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/roach88/datasync/internal/odata"
	"github.com/roach88/datasync/internal/pageable"
	"github.com/roach88/datasync/internal/querynode"
)

// Reserved parameter keys. They are controlled only through
// IncludeTotalCount and IncludeDeletedItems.
const (
	CountKey          = "$count"
	IncludeDeletedKey = "__includedeleted"
)

// Table is the remote list endpoint a query runs against.
type Table interface {
	// Endpoint is the absolute table URL, e.g. "https://host/tables/movies/".
	Endpoint() string

	// Transport fetches pages from the endpoint.
	Transport() pageable.Transport
}

// Option configures a new Query.
type Option func(*settings)

type settings struct {
	resolver odata.MemberResolver
	logger   *slog.Logger
}

// WithResolver overrides the member resolver. By default members are
// resolved against the fields of T.
func WithResolver(r odata.MemberResolver) Option {
	return func(s *settings) { s.resolver = r }
}

// WithLogger sets the logger handed to pageables created from the query.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

type param struct {
	key, value string
}

// Query is an immutable description of a table query over items of type
// T, producing results of type U.
//
// Every mutator returns a new Query and leaves the receiver untouched, so a
// base query can be branched into many derived queries, including from
// multiple goroutines.
type Query[T, U any] struct {
	table    Table
	resolver odata.MemberResolver
	logger   *slog.Logger

	filter     querynode.Node
	order      []querynode.OrderClause
	projection []string
	skip       uint
	take       uint
	hasTake    bool
	params     []param

	includeDeleted    bool
	includeTotalCount bool
	distinct          bool
}

// New starts a query against table.
func New[T any](table Table, opts ...Option) (Query[T, T], error) {
	if table == nil {
		return Query[T, T]{}, usage("New", "table", "must not be nil")
	}

	s := settings{resolver: odata.ResolverFor[T]()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.resolver == nil {
		return Query[T, T]{}, usage("New", "resolver", "must not be nil")
	}

	return Query[T, T]{table: table, resolver: s.resolver, logger: s.logger}, nil
}

// Where adds a predicate. Successive predicates are combined with and.
func (q Query[T, U]) Where(predicate querynode.Node) (Query[T, U], error) {
	if predicate == nil {
		return q, usage("Where", "predicate", "must not be nil")
	}
	q.filter = querynode.And(q.filter, predicate)
	return q, nil
}

// OrderBy replaces the ordering with a single ascending key.
func (q Query[T, U]) OrderBy(key querynode.Node) (Query[T, U], error) {
	return q.reorder("OrderBy", key, querynode.Ascending)
}

// OrderByDescending replaces the ordering with a single descending key.
func (q Query[T, U]) OrderByDescending(key querynode.Node) (Query[T, U], error) {
	return q.reorder("OrderByDescending", key, querynode.Descending)
}

// ThenBy appends an ascending key. With no prior ordering it acts as OrderBy.
func (q Query[T, U]) ThenBy(key querynode.Node) (Query[T, U], error) {
	return q.appendOrder("ThenBy", key, querynode.Ascending)
}

// ThenByDescending appends a descending key. With no prior ordering it acts
// as OrderByDescending.
func (q Query[T, U]) ThenByDescending(key querynode.Node) (Query[T, U], error) {
	return q.appendOrder("ThenByDescending", key, querynode.Descending)
}

func (q Query[T, U]) reorder(op string, key querynode.Node, dir querynode.Direction) (Query[T, U], error) {
	if key == nil {
		return q, usage(op, "key", "must not be nil")
	}
	q.order = []querynode.OrderClause{{Key: key, Direction: dir}}
	return q, nil
}

func (q Query[T, U]) appendOrder(op string, key querynode.Node, dir querynode.Direction) (Query[T, U], error) {
	if key == nil {
		return q, usage(op, "key", "must not be nil")
	}
	// Clip so appending never writes into a slice shared with q's origin.
	q.order = append(slices.Clip(q.order), querynode.OrderClause{Key: key, Direction: dir})
	return q, nil
}

// Skip skips n more items. Skips are cumulative.
func (q Query[T, U]) Skip(n int) (Query[T, U], error) {
	if n < 0 {
		return q, usage("Skip", "count", "must not be negative, got %d", n)
	}
	if uint(n) > math.MaxUint-q.skip {
		return q, usage("Skip", "count", "total skip overflows, got %d more after %d", n, q.skip)
	}
	q.skip += uint(n)
	return q, nil
}

// Take limits the result to at most n items. The smallest limit wins.
func (q Query[T, U]) Take(n int) (Query[T, U], error) {
	if n <= 0 {
		return q, usage("Take", "count", "must be positive, got %d", n)
	}
	if !q.hasTake || uint(n) < q.take {
		q.take, q.hasTake = uint(n), true
	}
	return q, nil
}

// IncludeDeletedItems sets or clears the __includedeleted marker.
func (q Query[T, U]) IncludeDeletedItems(include bool) Query[T, U] {
	q.includeDeleted = include
	return q
}

// IncludeTotalCount sets or clears the $count marker.
func (q Query[T, U]) IncludeTotalCount(include bool) Query[T, U] {
	q.includeTotalCount = include
	return q
}

// Distinct marks the query as distinct. The table protocol has no wire
// form for it, so compiling the query fails.
func (q Query[T, U]) Distinct() Query[T, U] {
	q.distinct = true
	return q
}

// WithParameter sets a free-form query parameter. A later value for the
// same key overwrites the earlier one in place.
func (q Query[T, U]) WithParameter(key, value string) (Query[T, U], error) {
	if err := checkParameter("WithParameter", key, value); err != nil {
		return q, err
	}
	q.params = setParam(q.params, key, value)
	return q, nil
}

// WithParameters sets several free-form query parameters, applied in key
// order. The map must not be empty.
func (q Query[T, U]) WithParameters(params map[string]string) (Query[T, U], error) {
	if len(params) == 0 {
		return q, usage("WithParameters", "parameters", "must not be empty")
	}

	keys := slices.Sorted(maps.Keys(params))
	for _, k := range keys {
		if err := checkParameter("WithParameters", k, params[k]); err != nil {
			return q, err
		}
	}
	for _, k := range keys {
		q.params = setParam(q.params, k, params[k])
	}
	return q, nil
}

func checkParameter(op, key, value string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return usage(op, "key", "must not be empty")
	case key == CountKey || key == IncludeDeletedKey:
		return usage(op, "key", "%q is reserved", key)
	case strings.TrimSpace(value) == "":
		return usage(op, "value", "must not be empty for key %q", key)
	}
	return nil
}

// setParam returns params with key set, never modifying the input slice.
func setParam(params []param, key, value string) []param {
	out := slices.Clone(params)
	for i := range out {
		if out[i].key == key {
			out[i].value = value
			return out
		}
	}
	return append(out, param{key: key, value: value})
}

// Select projects the query onto members and changes the result type to V.
// The projection replaces any earlier one.
//
//	titles, err := query.Select[TitleOnly](q, "ID", "Title")
func Select[V, T, U any](q Query[T, U], members ...string) (Query[T, V], error) {
	if len(members) == 0 {
		return Query[T, V]{}, usage("Select", "members", "must not be empty")
	}
	for _, m := range members {
		if strings.TrimSpace(m) == "" {
			return Query[T, V]{}, usage("Select", "members", "member path must not be empty")
		}
	}

	return Query[T, V]{
		table:             q.table,
		resolver:          q.resolver,
		logger:            q.logger,
		filter:            q.filter,
		order:             q.order,
		projection:        slices.Clone(members),
		skip:              q.skip,
		take:              q.take,
		hasTake:           q.hasTake,
		params:            q.params,
		includeDeleted:    q.includeDeleted,
		includeTotalCount: q.includeTotalCount,
		distinct:          q.distinct,
	}, nil
}

// Table returns the table the query runs against.
func (q Query[T, U]) Table() Table { return q.table }

// Filter returns the accumulated predicate, nil if none.
func (q Query[T, U]) Filter() querynode.Node { return q.filter }

// Ordering returns a copy of the order clauses.
func (q Query[T, U]) Ordering() []querynode.OrderClause { return slices.Clone(q.order) }

// Projection returns a copy of the selected member paths.
func (q Query[T, U]) Projection() []string { return slices.Clone(q.projection) }

// SkipCount returns the effective skip.
func (q Query[T, U]) SkipCount() uint { return q.skip }

// TakeCount returns the effective take; ok is false when unlimited.
func (q Query[T, U]) TakeCount() (n uint, ok bool) { return q.take, q.hasTake }

// Parameters returns the free-form parameters as ordered key/value pairs.
func (q Query[T, U]) Parameters() [][2]string {
	out := make([][2]string, len(q.params))
	for i, p := range q.params {
		out[i] = [2]string{p.key, p.value}
	}
	return out
}

// IncludesDeleted reports whether soft-deleted items are requested.
func (q Query[T, U]) IncludesDeleted() bool { return q.includeDeleted }

// IncludesTotalCount reports whether the total count is requested.
func (q Query[T, U]) IncludesTotalCount() bool { return q.includeTotalCount }

// IsDistinct reports whether Distinct was applied.
func (q Query[T, U]) IsDistinct() bool { return q.distinct }
