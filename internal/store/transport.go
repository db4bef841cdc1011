package store

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/roach88/datasync/internal/pageable"
)

// RecordingTransport journals every response returned by the wrapped
// transport, including non-2xx responses that come with an error.
type RecordingTransport struct {
	next   pageable.Transport
	store  *Store
	logger *slog.Logger
}

// NewRecordingTransport wraps next so its responses are written to s.
func NewRecordingTransport(next pageable.Transport, s *Store, logger *slog.Logger) *RecordingTransport {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RecordingTransport{next: next, store: s, logger: logger}
}

// Fetch implements pageable.Transport.
func (t *RecordingTransport) Fetch(ctx context.Context, url string) (*pageable.Response, error) {
	resp, fetchErr := t.next.Fetch(ctx, url)
	if resp == nil {
		return nil, fetchErr
	}

	if resp.URL == "" {
		cp := *resp
		cp.URL = url
		resp = &cp
	}

	seq, err := t.store.WritePage(ctx, resp)
	if err != nil {
		return nil, &pageable.TransportError{URL: url, StatusCode: resp.StatusCode, Message: "journal response", Cause: err}
	}
	t.logger.Debug("page journaled", "url", url, "seq", seq, "status", resp.StatusCode)

	return resp, fetchErr
}

// ReplayTransport serves journaled responses.
//
// A URL with no journaled page fails with a 404 *pageable.TransportError;
// a journaled non-2xx page is returned with a TransportError carrying its
// status, as the live transport would.
type ReplayTransport struct {
	store *Store
}

// NewReplayTransport creates a transport reading from s.
func NewReplayTransport(s *Store) *ReplayTransport {
	return &ReplayTransport{store: s}
}

// Fetch implements pageable.Transport.
func (t *ReplayTransport) Fetch(ctx context.Context, url string) (*pageable.Response, error) {
	page, err := t.store.ReadPage(ctx, url)
	if errors.Is(err, ErrNotFound) {
		return nil, &pageable.TransportError{
			URL:        url,
			StatusCode: http.StatusNotFound,
			Message:    "no journaled response",
			Cause:      err,
		}
	}
	if err != nil {
		return nil, &pageable.TransportError{URL: url, Message: "read journal", Cause: err}
	}

	resp := page.Response()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, &pageable.TransportError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}
	return resp, nil
}
