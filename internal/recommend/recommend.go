// Package recommend joins search results with the local catalog for display.
package recommend

import (
	"context"
	"errors"

	"bookrec/internal/logger"
	"bookrec/internal/parser"
	"bookrec/internal/search"
	"bookrec/internal/storage/catalog"
)

// ErrEmptyQuery is returned for blank input; the search itself never sees it.
var ErrEmptyQuery = errors.New("empty query")

// FallbackMessage is shown instead of an empty result area.
const FallbackMessage = "No recommendations were found for your search query; please try another one!"

type Outcome string

const (
	OutcomeFound     Outcome = "ok"
	OutcomeEmpty     Outcome = "empty"
	OutcomeNoResults Outcome = "no_results"
)

type Item struct {
	search.Book
	CoverURL string `json:"cover_url,omitempty"`
}

type Result struct {
	Query   string      `json:"query"`
	Mode    search.Mode `json:"mode"`
	Outcome Outcome     `json:"status"`
	Items   []Item      `json:"books"`
}

// Fallback reports whether the consumer should show FallbackMessage.
func (r *Result) Fallback() bool {
	return len(r.Items) == 0
}

type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Book, error)
	KeywordSearch(ctx context.Context, query string) ([]search.Book, error)
}

type Covers interface {
	Cover(ctx context.Context, id string) (string, error)
}

type Service struct {
	searcher Searcher
	covers   Covers
}

// New wires a searcher with an optional cover lookup (nil disables covers).
func New(searcher Searcher, covers Covers) *Service {
	return &Service{searcher: searcher, covers: covers}
}

// Recommend parses raw input, runs the matching search and decorates the books.
// ErrNoResults from the search becomes OutcomeNoResults, any other error is returned.
func (s *Service) Recommend(ctx context.Context, raw string) (*Result, error) {
	q := parser.Parse(raw)
	if q.Text == "" {
		return nil, ErrEmptyQuery
	}

	var (
		books []search.Book
		err   error
	)
	switch q.Mode {
	case search.ModeKeyword:
		books, err = s.searcher.KeywordSearch(ctx, q.Text)
	default:
		books, err = s.searcher.Search(ctx, q.Text)
	}

	res := &Result{Query: q.Text, Mode: q.Mode, Items: []Item{}}
	switch {
	case errors.Is(err, search.ErrNoResults):
		res.Outcome = OutcomeNoResults
		return res, nil
	case err != nil:
		return nil, err
	case len(books) == 0:
		res.Outcome = OutcomeEmpty
		return res, nil
	}

	res.Outcome = OutcomeFound
	for _, b := range books {
		res.Items = append(res.Items, Item{Book: b, CoverURL: s.cover(ctx, b.ID)})
	}
	return res, nil
}

func (s *Service) cover(ctx context.Context, id string) string {
	if s.covers == nil {
		return ""
	}
	url, err := s.covers.Cover(ctx, id)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		logger.For(ctx).WithField("book_id", id).Debug("catalog.cover_missing")
	case err != nil:
		logger.For(ctx).WithError(err).WithField("book_id", id).Warn("catalog.cover_failed")
	}
	return url
}
