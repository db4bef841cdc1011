package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/roach88/datasync/internal/pageable"
)

// ScriptedTransport serves canned responses keyed by exact URL and
// records every request it receives.
//
// A URL with no script gets a 404 *pageable.TransportError.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ScriptedTransport struct {
	mu       sync.Mutex
	scripts  map[string]script
	requests []string

	// OnFetch, if set, runs after a request is recorded and before its
	// response is returned.
	OnFetch func(url string)
}

type script struct {
	resp *pageable.Response
	err  error
}

// NewScriptedTransport creates an empty ScriptedTransport.
func NewScriptedTransport() *ScriptedTransport {
	return &ScriptedTransport{scripts: make(map[string]script)}
}

// On scripts a raw response for url.
func (s *ScriptedTransport) On(url string, status int, body string) *ScriptedTransport {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := &pageable.Response{
		URL:        url,
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
	if body != "" {
		resp.Content = []byte(body)
	}
	s.scripts[url] = script{resp: resp}
	return s
}

// OnPage scripts a 200 response whose body is page encoded as JSON.
func (s *ScriptedTransport) OnPage(url string, page any) *ScriptedTransport {
	body, err := json.Marshal(page)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal page: %v", err))
	}
	return s.On(url, http.StatusOK, string(body))
}

// Fail scripts err as the result of fetching url.
func (s *ScriptedTransport) Fail(url string, err error) *ScriptedTransport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[url] = script{err: err}
	return s
}

// Fetch implements pageable.Transport.
func (s *ScriptedTransport) Fetch(ctx context.Context, url string) (*pageable.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, url)
	sc, ok := s.scripts[url]
	hook := s.OnFetch
	s.mu.Unlock()

	if hook != nil {
		hook(url)
	}

	if !ok {
		return nil, &pageable.TransportError{
			URL:        url,
			StatusCode: http.StatusNotFound,
			Message:    "no scripted response",
		}
	}
	return sc.resp, sc.err
}

// Requests returns the URLs requested so far, in order.
func (s *ScriptedTransport) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Table is a minimal table bound to a ScriptedTransport.
type Table struct {
	URL      string
	Scripted *ScriptedTransport
}

// Endpoint returns the table URL.
func (t Table) Endpoint() string { return t.URL }

// Transport returns the scripted transport.
func (t Table) Transport() pageable.Transport { return t.Scripted }
