package pageable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
)

// Page is one response's worth of items.
type Page[T any] struct {
	Items []T `json:"items"`

	// Count is the total number of matching items; only present when the
	// request asked for it.
	Count *int64 `json:"count,omitempty"`

	// NextLink is the URL of the following page, empty on the last page.
	NextLink string `json:"nextLink,omitempty"`
}

// Decoder turns a raw response into a Page.
type Decoder[T any] interface {
	Decode(resp *Response) (Page[T], error)
}

// JSONDecoder decodes the {"items": [...], "count": N, "nextLink": "..."}
// envelope. A response without content is an empty last page.
type JSONDecoder[T any] struct{}

// Decode implements Decoder.
func (JSONDecoder[T]) Decode(resp *Response) (Page[T], error) {
	var page Page[T]
	if !resp.HasContent() {
		return page, nil
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Content))
	if err := dec.Decode(&page); err != nil {
		return Page[T]{}, fmt.Errorf("page envelope: %w", err)
	}
	if page.Count != nil && *page.Count < 0 {
		return Page[T]{}, fmt.Errorf("page envelope: negative count %d", *page.Count)
	}
	return page, nil
}

// resolveLink resolves a next-link against the URL that returned it.
// Absolute links are returned verbatim.
func resolveLink(base, link string) (string, error) {
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse next link %q: %w", link, err)
	}
	if ref.IsAbs() {
		return link, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse request url %q: %w", base, err)
	}
	return b.ResolveReference(ref).String(), nil
}
