package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrec/internal/config"
	"bookrec/internal/storage/weaviate"
)

type fakeBackend struct {
	body    string
	err     error
	queries []string
}

func (f *fakeBackend) GraphQL(_ context.Context, query string) ([]byte, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

func booksResponse(distances ...float64) string {
	items := make([]string, len(distances))
	for i, d := range distances {
		items[i] = fmt.Sprintf(`{"bookId":"b%d","title":"Title %d","genres":"g","description":"d","_additional":{"distance":%v}}`, i, i, d)
	}
	return `{"data":{"Get":{"Books":[` + strings.Join(items, ",") + `]}}}`
}

func newService(b Backend) *Service {
	return New(b, "Books", config.SearchConfig{})
}

func TestSearchBuildsNearTextQuery(t *testing.T) {
	b := &fakeBackend{body: booksResponse()}
	_, err := newService(b).Search(context.Background(), "  science fiction ")
	require.NoError(t, err)

	require.Len(t, b.queries, 1)
	assert.Equal(t,
		`{ Get { Books(nearText: {concepts: ["science fiction"]}, limit: 3) { bookId title genres description _additional { distance } } } }`,
		b.queries[0])
}

func TestSearchFiltersByDistance(t *testing.T) {
	b := &fakeBackend{body: booksResponse(0.15, 0.35)}
	books, err := newService(b).Search(context.Background(), "science fiction")
	require.NoError(t, err)

	require.Len(t, books, 1)
	assert.Equal(t, "b0", books[0].ID)
	assert.InDelta(t, 0.15, books[0].Distance, 1e-9)
}

func TestSearchKeepsBoundaryAndOrder(t *testing.T) {
	b := &fakeBackend{body: booksResponse(0.05, 0.2, 0.2000001)}
	books, err := newService(b).Search(context.Background(), "dragons")
	require.NoError(t, err)

	require.Len(t, books, 2)
	assert.Equal(t, "b0", books[0].ID)
	assert.Equal(t, "b1", books[1].ID)
	assert.LessOrEqual(t, books[0].Distance, books[1].Distance)
}

func TestSearchNothingInRangeIsEmptyNotNoResults(t *testing.T) {
	b := &fakeBackend{body: booksResponse(0.4, 0.5, 0.9)}
	books, err := newService(b).Search(context.Background(), "cookbook for cats")
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)
}

func TestSearchEmptyListIsEmpty(t *testing.T) {
	b := &fakeBackend{body: `{"data":{"Get":{"Books":[]}}}`}
	books, err := newService(b).Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestSearchMissingResultKey(t *testing.T) {
	for _, body := range []string{
		`{}`,
		`{"data":{"Get":{}}}`,
		`{"data":{"Get":{"Books":null}},"errors":[{"message":"vectorizer unavailable"}]}`,
	} {
		b := &fakeBackend{body: body}
		books, err := newService(b).Search(context.Background(), "science fiction")
		assert.ErrorIs(t, err, ErrNoResults, body)
		assert.Nil(t, books)
	}
}

func TestSearchPropagatesUpstreamFailure(t *testing.T) {
	upstream := fmt.Errorf("%w: graphql: connection refused", weaviate.ErrUpstream)
	b := &fakeBackend{err: upstream}
	_, err := newService(b).Search(context.Background(), "science fiction")
	require.Error(t, err)
	assert.ErrorIs(t, err, weaviate.ErrUpstream)
	assert.False(t, errors.Is(err, ErrNoResults))
	assert.Len(t, b.queries, 1, "no retry")
}

func TestSearchDropsHitsWithoutDistance(t *testing.T) {
	b := &fakeBackend{body: `{"data":{"Get":{"Books":[{"bookId":"x","title":"X"},{"bookId":"y","_additional":{"distance":0.1}}]}}}`}
	books, err := newService(b).Search(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "y", books[0].ID)
}

func TestSearchNeverExceedsLimit(t *testing.T) {
	b := &fakeBackend{body: booksResponse(0.01, 0.02, 0.03, 0.04, 0.05)}
	books, err := newService(b).Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, books, 3)
}

func TestSearchIsIdempotent(t *testing.T) {
	b := &fakeBackend{body: booksResponse(0.1, 0.19, 0.3)}
	s := newService(b)
	first, err := s.Search(context.Background(), "space opera")
	require.NoError(t, err)
	second, err := s.Search(context.Background(), "space opera")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, b.queries[0], b.queries[1])
}

func TestSearchOverrides(t *testing.T) {
	b := &fakeBackend{body: booksResponse(0.1, 0.25, 0.3, 0.5, 0.6)}
	s := New(b, "Novels", config.SearchConfig{Limit: 5, MaxDistance: 0.3})
	b.body = strings.Replace(b.body, `"Books"`, `"Novels"`, 1)

	books, err := s.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, books, 3)
	assert.Contains(t, b.queries[0], "Novels(")
	assert.Contains(t, b.queries[0], "limit: 5")
}

func TestSearchNormalizesUnicode(t *testing.T) {
	b := &fakeBackend{body: booksResponse()}
	// "e" followed by a combining acute accent composes to one rune
	_, err := newService(b).Search(context.Background(), "cafe\u0301")
	require.NoError(t, err)
	assert.Contains(t, b.queries[0], "caf\u00e9")
}

func TestKeywordSearch(t *testing.T) {
	b := &fakeBackend{body: `{"data":{"Get":{"Books":[
		{"bookId":"m1","title":"Magic","description":"magic school","_additional":{"score":"2.4"}},
		{"bookId":"m2","title":"More Magic","description":"magic","_additional":{"score":"0.9"}}
	]}}}`}
	books, err := newService(b).KeywordSearch(context.Background(), "magic")
	require.NoError(t, err)

	assert.Equal(t,
		`{ Get { Books(bm25: {query: "magic", properties: ["description"]}, limit: 3) { bookId title genres description _additional { score } } } }`,
		b.queries[0])
	require.Len(t, books, 2)
	assert.InDelta(t, 2.4, books[0].Score, 1e-9)
	assert.Equal(t, "m2", books[1].ID)
}

func TestKeywordSearchMissing(t *testing.T) {
	b := &fakeBackend{body: `{"data":null}`}
	_, err := newService(b).KeywordSearch(context.Background(), "magic")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestFilterByDistance(t *testing.T) {
	in := []Book{{ID: "a", Distance: 0.3}, {ID: "b", Distance: 0.1}, {ID: "c", Distance: 0.2}}
	out := FilterByDistance(in, 0.2)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ID)
	assert.Equal(t, "c", out[1].ID)

	assert.Empty(t, FilterByDistance(nil, 0.2))
}

func filteredOut(t *testing.T) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "bookrec_filtered_out_total" {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestFilteredOutCountsOnlyDistanceCutoff(t *testing.T) {
	// one hit without distance, one above the cutoff, four in range with limit 3
	body := `{"data":{"Get":{"Books":[
		{"bookId":"nodist","title":"N"},
		{"bookId":"a","_additional":{"distance":0.01}},
		{"bookId":"far","_additional":{"distance":0.9}},
		{"bookId":"b","_additional":{"distance":0.02}},
		{"bookId":"c","_additional":{"distance":0.03}},
		{"bookId":"d","_additional":{"distance":0.04}}
	]}}}`
	before := filteredOut(t)
	books, err := newService(&fakeBackend{body: body}).Search(context.Background(), "q")
	require.NoError(t, err)

	assert.Len(t, books, 3)
	assert.Equal(t, 1.0, filteredOut(t)-before)
}
