package pageable

import (
	"context"
	"sync/atomic"
)

// State is the lifecycle position of an Iterator.
type State int

const (
	NotStarted State = iota
	FetchingPage
	HasBuffered
	Exhausted
	// Errored is absorbing: Next keeps returning false and Err the failure.
	Errored
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case FetchingPage:
		return "fetching_page"
	case HasBuffered:
		return "has_buffered"
	case Exhausted:
		return "exhausted"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Iterator pulls items one page at a time.
//
// Pages are fetched strictly in sequence: the next request is issued only
// when the buffer is drained and the previous page supplied a next-link.
// An Iterator serves a single consumer; only Close may be called from
// another goroutine.
type Iterator[T any] struct {
	p     *Pageable[T]
	state State

	next  string // URL of the next page, "" once the last page is buffered
	buf   []T
	pos   int
	item  T
	err   error
	pages int

	closed atomic.Bool
}

// Next advances to the next item, fetching pages as needed. It returns
// false when the sequence is exhausted, has failed, or was closed.
func (it *Iterator[T]) Next(ctx context.Context) bool {
	for {
		if it.closed.Load() {
			it.finish()
			return false
		}

		switch it.state {
		case Exhausted, Errored:
			return false
		case HasBuffered:
			if it.pos < len(it.buf) {
				it.item = it.buf[it.pos]
				it.pos++
				return true
			}
			if it.next == "" {
				it.finish()
				return false
			}
		}

		if err := ctx.Err(); err != nil {
			it.fail(err)
			return false
		}
		it.fetch(ctx)
	}
}

// Item returns the current item. Valid only after Next returned true.
func (it *Iterator[T]) Item() T {
	return it.item
}

// Err returns the failure that stopped the iteration, nil otherwise.
func (it *Iterator[T]) Err() error {
	return it.err
}

// State returns the current lifecycle state.
func (it *Iterator[T]) State() State {
	return it.state
}

// Pages returns the number of pages received so far.
func (it *Iterator[T]) Pages() int {
	return it.pages
}

// Close stops the iteration. No request is issued after Close, and a page
// still in flight is discarded when it arrives.
func (it *Iterator[T]) Close() {
	it.closed.Store(true)
}

func (it *Iterator[T]) fetch(ctx context.Context) {
	url := it.next
	first := it.state == NotStarted
	it.state = FetchingPage

	it.p.logger.Debug("fetching page",
		"url", url,
		"page", it.pages+1,
	)

	resp, err := it.p.transport.Fetch(ctx, url)

	if it.closed.Load() {
		it.finish()
		return
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		it.fail(ctxErr)
		return
	}

	it.p.observe(resp, false, nil)
	if err != nil {
		it.fail(err)
		return
	}

	page, err := it.p.decoder.Decode(resp)
	if err != nil {
		it.fail(&DecodeError{URL: url, Cause: err})
		return
	}

	next := ""
	if page.NextLink != "" {
		next, err = resolveLink(url, page.NextLink)
		if err != nil {
			it.fail(&DecodeError{URL: url, Cause: err})
			return
		}
		if next == url {
			it.fail(&DecodeError{URL: url, Cause: ErrNextLinkLoop})
			return
		}
	}

	it.p.observe(nil, first, page.Count)
	it.pages++
	it.buf, it.pos = page.Items, 0
	it.next = next
	it.state = HasBuffered

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	it.p.logger.Debug("page received",
		"url", url,
		"page", it.pages,
		"status", status,
		"items", len(page.Items),
		"has_next", next != "",
	)
}

func (it *Iterator[T]) finish() {
	if it.state != Errored {
		it.state = Exhausted
	}
	it.buf, it.pos, it.next = nil, 0, ""
	var zero T
	it.item = zero
}

func (it *Iterator[T]) fail(err error) {
	it.err = err
	it.state = Errored
	it.buf, it.pos, it.next = nil, 0, ""
	var zero T
	it.item = zero
}
