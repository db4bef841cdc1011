package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/datasync/internal/odata"
	"github.com/roach88/datasync/internal/pageable"
)

// ToQueryString compiles the query into its wire query string, without a
// leading "?". Clauses appear in a fixed order:
//
//	$filter, $orderby, $select, $skip, $top, $count, __includedeleted, parameters
//
// Absent clauses contribute nothing; a blank query yields "". Every value
// is percent-encoded, so "$orderby=id desc" goes out as
// "$orderby=id%20desc"; keys are not.
func (q Query[T, U]) ToQueryString() (string, error) {
	if q.distinct {
		return "", &odata.TranslationError{
			Construct: "distinct",
			Reason:    "the table protocol has no distinct operator",
		}
	}

	c := odata.NewCompiler(q.resolver)
	var parts []string

	if q.filter != nil {
		filter, err := c.Compile(q.filter)
		if err != nil {
			return "", fmt.Errorf("compile filter: %w", err)
		}
		parts = append(parts, "$filter="+escapeComponent(filter))
	}

	if len(q.order) > 0 {
		order, err := c.CompileOrder(q.order)
		if err != nil {
			return "", fmt.Errorf("compile ordering: %w", err)
		}
		parts = append(parts, "$orderby="+escapeComponent(order))
	}

	if len(q.projection) > 0 {
		sel, err := c.CompileSelect(q.projection)
		if err != nil {
			return "", fmt.Errorf("compile projection: %w", err)
		}
		parts = append(parts, "$select="+escapeComponent(sel))
	}

	if q.skip > 0 {
		parts = append(parts, "$skip="+strconv.FormatUint(uint64(q.skip), 10))
	}
	if q.hasTake {
		parts = append(parts, "$top="+strconv.FormatUint(uint64(q.take), 10))
	}
	if q.includeTotalCount {
		parts = append(parts, CountKey+"=true")
	}
	if q.includeDeleted {
		parts = append(parts, IncludeDeletedKey+"=true")
	}
	for _, p := range q.params {
		parts = append(parts, p.key+"="+escapeComponent(p.value))
	}

	return strings.Join(parts, "&"), nil
}

// RequestURL returns the table endpoint followed by "?" and the query
// string, or the bare endpoint for a blank query.
func (q Query[T, U]) RequestURL() (string, error) {
	if q.table == nil {
		return "", usage("RequestURL", "table", "query has no table")
	}
	qs, err := q.ToQueryString()
	if err != nil {
		return "", err
	}
	if qs == "" {
		return q.table.Endpoint(), nil
	}
	return q.table.Endpoint() + "?" + qs, nil
}

// ToAsyncPageable compiles the query and returns a lazy sequence of
// results. A compile failure is returned here, before any request.
func (q Query[T, U]) ToAsyncPageable(opts ...pageable.Option) (*pageable.Pageable[U], error) {
	url, err := q.RequestURL()
	if err != nil {
		return nil, err
	}

	if q.logger != nil {
		opts = append([]pageable.Option{pageable.WithLogger(q.logger)}, opts...)
	}
	return pageable.New[U](q.table.Transport(), url, pageable.JSONDecoder[U]{}, opts...), nil
}
