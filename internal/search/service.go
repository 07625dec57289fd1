package search

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"bookrec/internal/config"
	"bookrec/internal/logger"
	"bookrec/internal/metrics"
	"bookrec/internal/storage/shaping"
	"bookrec/internal/storage/weaviate"
)

// ErrNoResults означает, что сервис не вернул список результатов вовсе
// (нет data или ключа класса). Это не то же самое, что пустой список после фильтра.
var ErrNoResults = errors.New("no results")

// Properties requested for every book.
var bookFields = []string{"bookId", "title", "genres", "description"}

// Backend is the part of the vector service client the search needs.
type Backend interface {
	GraphQL(ctx context.Context, query string) ([]byte, error)
}

// Service инкапсулирует запрос к векторному сервису и фильтр по дистанции.
// Безопасен для конкурентного использования: состояние только для чтения.
type Service struct {
	backend     Backend
	class       string
	limit       int
	maxDistance float64
}

// New создает сервис поиска. Нулевые значения cfg заменяются значениями по умолчанию.
func New(backend Backend, class string, cfg config.SearchConfig) *Service {
	if class == "" {
		class = config.DefaultClassName
	}
	if cfg.Limit <= 0 {
		cfg.Limit = config.DefaultLimit
	}
	if cfg.MaxDistance <= 0 {
		cfg.MaxDistance = config.DefaultMaxDistance
	}
	return &Service{
		backend:     backend,
		class:       class,
		limit:       cfg.Limit,
		maxDistance: cfg.MaxDistance,
	}
}

func (s *Service) Limit() int { return s.limit }

func (s *Service) MaxDistance() float64 { return s.maxDistance }

// Search runs one nearText query and keeps the candidates with distance <= MaxDistance,
// in the order the service returned them. ErrNoResults is returned when the response
// carries no result list; transport failures come back wrapped in weaviate.ErrUpstream.
func (s *Service) Search(ctx context.Context, query string) ([]Book, error) {
	defer logger.Track(ctx, "search.near_text")()

	gql := weaviate.NewGet(s.class).
		Fields(bookFields...).
		NearText(normalize(query)).
		Limit(s.limit).
		Additional("distance").
		String()

	hits, err := s.fetch(ctx, gql, ModeVector)
	if err != nil {
		return nil, err
	}

	books := make([]Book, 0, len(hits))
	for _, h := range hits {
		d, ok := h.Distance()
		if !ok {
			logger.For(ctx).WithField("book_id", h.BookID).Debug("search.hit_without_distance")
			continue
		}
		b := toBook(h)
		b.Distance = d
		books = append(books, b)
	}

	inRange := FilterByDistance(books, s.maxDistance)
	metrics.FilteredOutTotal.Add(float64(len(books) - len(inRange)))
	kept := s.capped(inRange)
	observe(ModeVector, len(kept))

	logger.For(ctx).WithFields(logrus.Fields{
		"query":      query,
		"candidates": len(hits),
		"kept":       len(kept),
	}).Info("search.near_text")
	return kept, nil
}

// KeywordSearch runs a bm25 query over descriptions. Scores are not cut off.
func (s *Service) KeywordSearch(ctx context.Context, query string) ([]Book, error) {
	defer logger.Track(ctx, "search.bm25")()

	gql := weaviate.NewGet(s.class).
		Fields(bookFields...).
		BM25(normalize(query), "description").
		Limit(s.limit).
		Additional("score").
		String()

	hits, err := s.fetch(ctx, gql, ModeKeyword)
	if err != nil {
		return nil, err
	}

	books := make([]Book, 0, len(hits))
	for _, h := range hits {
		b := toBook(h)
		b.Score = h.Score()
		books = append(books, b)
	}
	books = s.capped(books)
	observe(ModeKeyword, len(books))
	return books, nil
}

func (s *Service) fetch(ctx context.Context, gql string, mode Mode) ([]shaping.Hit, error) {
	data, err := s.backend.GraphQL(ctx, gql)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues(string(mode), metrics.OutcomeError).Inc()
		return nil, err
	}

	hits, gqlErrs, err := shaping.ShapeGet(data, s.class)
	for _, e := range gqlErrs {
		logger.For(ctx).WithField("path", e.Path).Warnf("graphql error: %s", e.Message)
	}
	if errors.Is(err, shaping.ErrMissingResults) {
		metrics.SearchesTotal.WithLabelValues(string(mode), metrics.OutcomeNoResults).Inc()
		return nil, ErrNoResults
	}
	if err != nil {
		metrics.SearchesTotal.WithLabelValues(string(mode), metrics.OutcomeError).Inc()
		return nil, err
	}
	return hits, nil
}

func (s *Service) capped(books []Book) []Book {
	if len(books) > s.limit {
		return books[:s.limit]
	}
	return books
}

// FilterByDistance keeps books with Distance <= maxDistance, preserving order.
func FilterByDistance(books []Book, maxDistance float64) []Book {
	out := make([]Book, 0, len(books))
	for _, b := range books {
		if b.Distance <= maxDistance {
			out = append(out, b)
		}
	}
	return out
}

func toBook(h shaping.Hit) Book {
	return Book{
		ID:          h.BookID,
		Title:       h.Title,
		Genres:      h.Genres,
		Description: h.Description,
	}
}

func normalize(q string) string {
	return norm.NFC.String(strings.TrimSpace(q))
}

func observe(mode Mode, n int) {
	outcome := metrics.OutcomeFound
	if n == 0 {
		outcome = metrics.OutcomeEmpty
	}
	metrics.SearchesTotal.WithLabelValues(string(mode), outcome).Inc()
}
