package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrec/internal/search"
	"bookrec/internal/storage/catalog"
)

type stubSearcher struct {
	books       []search.Book
	err         error
	lastVector  string
	lastKeyword string
}

func (s *stubSearcher) Search(_ context.Context, q string) ([]search.Book, error) {
	s.lastVector = q
	return s.books, s.err
}

func (s *stubSearcher) KeywordSearch(_ context.Context, q string) ([]search.Book, error) {
	s.lastKeyword = q
	return s.books, s.err
}

type stubCovers map[string]string

func (c stubCovers) Cover(_ context.Context, id string) (string, error) {
	if id == "broken" {
		return "", errors.New("disk I/O error")
	}
	url, ok := c[id]
	if !ok {
		return "", catalog.ErrNotFound
	}
	return url, nil
}

func TestRecommendFound(t *testing.T) {
	s := &stubSearcher{books: []search.Book{
		{ID: "1", Title: "Dune", Distance: 0.11},
		{ID: "2", Title: "Hyperion", Distance: 0.18},
		{ID: "broken", Title: "Solaris", Distance: 0.19},
	}}
	svc := New(s, stubCovers{"1": "https://covers/1.jpg"})

	res, err := svc.Recommend(context.Background(), "science fiction")
	require.NoError(t, err)

	assert.Equal(t, "science fiction", s.lastVector)
	assert.Equal(t, OutcomeFound, res.Outcome)
	assert.Equal(t, search.ModeVector, res.Mode)
	assert.False(t, res.Fallback())
	require.Len(t, res.Items, 3)
	assert.Equal(t, "https://covers/1.jpg", res.Items[0].CoverURL)
	assert.Empty(t, res.Items[1].CoverURL)
	assert.Empty(t, res.Items[2].CoverURL)
	assert.Equal(t, "Hyperion", res.Items[1].Title)
}

func TestRecommendEmptyShowsFallback(t *testing.T) {
	svc := New(&stubSearcher{books: []search.Book{}}, nil)
	res, err := svc.Recommend(context.Background(), "knitting for astronauts")
	require.NoError(t, err)
	assert.Equal(t, OutcomeEmpty, res.Outcome)
	assert.True(t, res.Fallback())
	assert.NotNil(t, res.Items)
}

func TestRecommendNoResultsIsDistinct(t *testing.T) {
	svc := New(&stubSearcher{err: search.ErrNoResults}, nil)
	res, err := svc.Recommend(context.Background(), "science fiction")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoResults, res.Outcome)
	assert.True(t, res.Fallback())
}

func TestRecommendUpstreamError(t *testing.T) {
	boom := errors.New("connection refused")
	svc := New(&stubSearcher{err: boom}, nil)
	_, err := svc.Recommend(context.Background(), "science fiction")
	assert.ErrorIs(t, err, boom)
}

func TestRecommendKeywordMode(t *testing.T) {
	s := &stubSearcher{books: []search.Book{{ID: "m", Score: 1.2}}}
	res, err := New(s, nil).Recommend(context.Background(), "keyword: magic")
	require.NoError(t, err)
	assert.Equal(t, "magic", s.lastKeyword)
	assert.Empty(t, s.lastVector)
	assert.Equal(t, search.ModeKeyword, res.Mode)
}

func TestRecommendEmptyQuery(t *testing.T) {
	s := &stubSearcher{}
	for _, in := range []string{"", "   ", "keyword:"} {
		_, err := New(s, nil).Recommend(context.Background(), in)
		assert.ErrorIs(t, err, ErrEmptyQuery, in)
	}
	assert.Empty(t, s.lastVector)
}

func TestRecommendPassesQueryTextThrough(t *testing.T) {
	for _, in := range []string{
		"Dune: Messiah and sequels",
		"Star Wars:Episode IV",
		"12:30 in Paris",
		`a "quoted" word`,
	} {
		s := &stubSearcher{books: []search.Book{}}
		_, err := New(s, nil).Recommend(context.Background(), in)
		require.NoError(t, err, in)
		assert.Equal(t, in, s.lastVector)
	}
}

func TestRecommendKeywordKeepsRestVerbatim(t *testing.T) {
	s := &stubSearcher{books: []search.Book{}}
	_, err := New(s, nil).Recommend(context.Background(), `bm25: Harry Potter: "Stone"`)
	require.NoError(t, err)
	assert.Equal(t, `Harry Potter: "Stone"`, s.lastKeyword)
}
