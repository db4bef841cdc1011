package pageable

import (
	"context"
	"iter"
	"log/slog"
	"sync"
)

// Pageable is a lazily fetched, paginated sequence of items.
//
// Each call to Iterator (or All) starts a new, independent request chain
// from the initial request URL. Count and CurrentResponse report what the
// most recent iteration observed.
type Pageable[T any] struct {
	transport  Transport
	requestURL string
	decoder    Decoder[T]
	logger     *slog.Logger

	mu       sync.Mutex
	count    int64
	hasCount bool
	current  *Response
}

// Option configures a Pageable.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger receiving per-page Debug records.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates a Pageable that starts at requestURL. A nil decoder uses
// JSONDecoder.
func New[T any](t Transport, requestURL string, dec Decoder[T], opts ...Option) *Pageable[T] {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	if dec == nil {
		dec = JSONDecoder[T]{}
	}
	return &Pageable[T]{
		transport:  t,
		requestURL: requestURL,
		decoder:    dec,
		logger:     o.logger,
	}
}

// RequestURL returns the initial request URL.
func (p *Pageable[T]) RequestURL() string {
	return p.requestURL
}

// Count returns the total count announced by the first page of the most
// recent iteration. ok is false until that page arrives, or when the
// service did not report one.
func (p *Pageable[T]) Count() (count int64, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count, p.hasCount
}

// CurrentResponse returns the most recently received raw response, nil
// before the first fetch completes.
func (p *Pageable[T]) CurrentResponse() *Response {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Iterator starts a new iteration.
func (p *Pageable[T]) Iterator() *Iterator[T] {
	p.mu.Lock()
	p.count, p.hasCount = 0, false
	p.mu.Unlock()

	return &Iterator[T]{p: p, next: p.requestURL}
}

// All returns the items as a range-over-func sequence. A failure is
// yielded once, as the final pair, with a zero item. Breaking out of the
// loop stops further requests.
func (p *Pageable[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		it := p.Iterator()
		defer it.Close()

		for it.Next(ctx) {
			if !yield(it.Item(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			var zero T
			yield(zero, err)
		}
	}
}

// Collect drains a new iteration into a slice.
func (p *Pageable[T]) Collect(ctx context.Context) ([]T, error) {
	var items []T
	for item, err := range p.All(ctx) {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (p *Pageable[T]) observe(resp *Response, first bool, count *int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if resp != nil {
		p.current = resp
	}
	if first && count != nil {
		p.count, p.hasCount = *count, true
	}
}
