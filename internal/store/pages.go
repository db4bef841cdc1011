package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/roach88/datasync/internal/pageable"
)

// ErrNotFound is returned when no page is journaled for a URL.
var ErrNotFound = errors.New("page not found")

// Page is one journaled response.
type Page struct {
	Seq        int64
	RequestKey string
	URL        string
	StatusCode int
	Header     http.Header
	Content    []byte
}

// Response converts the journaled page back into a transport response.
func (p Page) Response() *pageable.Response {
	return &pageable.Response{
		URL:        p.URL,
		StatusCode: p.StatusCode,
		Header:     p.Header,
		Content:    p.Content,
	}
}

// WritePage appends a response to the journal and returns its seq.
func (s *Store) WritePage(ctx context.Context, resp *pageable.Response) (int64, error) {
	if resp == nil {
		return 0, fmt.Errorf("write page: nil response")
	}

	header := resp.Header
	if header == nil {
		header = http.Header{}
	}
	headersJSON, err := json.Marshal(header)
	if err != nil {
		return 0, fmt.Errorf("write page: marshal headers: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (request_key, request_url, status_code, headers, content)
		VALUES (?, ?, ?, ?, ?)
	`,
		RequestKey(resp.URL),
		resp.URL,
		resp.StatusCode,
		string(headersJSON),
		resp.Content,
	)
	if err != nil {
		return 0, fmt.Errorf("write page: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write page: %w", err)
	}
	return seq, nil
}

// ReadPage returns the most recently journaled page for url.
// Returns ErrNotFound if there is none.
func (s *Store) ReadPage(ctx context.Context, url string) (Page, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, request_key, request_url, status_code, headers, content
		FROM pages
		WHERE request_key = ?
		ORDER BY seq DESC
		LIMIT 1
	`, RequestKey(url))

	p, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Page{}, fmt.Errorf("read page %s: %w", url, ErrNotFound)
	}
	if err != nil {
		return Page{}, fmt.Errorf("read page %s: %w", url, err)
	}
	return p, nil
}

// ListPages returns every journaled page in seq order.
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ListPages(ctx context.Context) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, request_key, request_url, status_code, headers, content
		FROM pages
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	pages := []Page{}
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return pages, nil
}

// Clear deletes every journaled page and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pages`)
	if err != nil {
		return 0, fmt.Errorf("clear pages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear pages: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPage(row scanner) (Page, error) {
	var (
		p           Page
		headersJSON string
	)
	if err := row.Scan(&p.Seq, &p.RequestKey, &p.URL, &p.StatusCode, &headersJSON, &p.Content); err != nil {
		return Page{}, err
	}
	if err := json.Unmarshal([]byte(headersJSON), &p.Header); err != nil {
		return Page{}, fmt.Errorf("unmarshal headers for page %d: %w", p.Seq, err)
	}
	return p, nil
}
