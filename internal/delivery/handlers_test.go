package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrec/internal/recommend"
	"bookrec/internal/search"
	"bookrec/internal/storage/weaviate"
)

type stubRecommender struct {
	res  *recommend.Result
	err  error
	last string
}

func (s *stubRecommender) Recommend(_ context.Context, raw string) (*recommend.Result, error) {
	s.last = raw
	return s.res, s.err
}

func newServer(rec Recommender) http.Handler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return (&Server{Log: log, Recommender: rec}).Routes()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func found() *recommend.Result {
	return &recommend.Result{
		Query:   "space opera",
		Mode:    search.ModeVector,
		Outcome: recommend.OutcomeFound,
		Items: []recommend.Item{{
			Book: search.Book{
				ID:          "42",
				Title:       "Hyperion",
				Description: `Pilgrims <b>travel</b> to the Time Tombs<script>alert(1)</script>`,
				Distance:    0.123456,
			},
			CoverURL: "https://covers.example/42.jpg",
		}},
	}
}

func TestIndex(t *testing.T) {
	rec := get(t, newServer(&stubRecommender{}), "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<form action="/recommend"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRecommendPageRendersBooks(t *testing.T) {
	stub := &stubRecommender{res: found()}
	rec := get(t, newServer(stub), "/recommend?q=space+opera")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, "space opera", stub.last)
	assert.Contains(t, body, "DISTANCE SCORE: 0.1235")
	assert.Contains(t, body, "Hyperion")
	assert.Contains(t, body, `src="https://covers.example/42.jpg"`)
	assert.Contains(t, body, "<b>travel</b>")
	assert.NotContains(t, body, "<script>")
	assert.NotContains(t, body, recommend.FallbackMessage)
}

func TestRecommendPageKeywordShowsScore(t *testing.T) {
	res := found()
	res.Mode = search.ModeKeyword
	res.Items[0].Score = 2.5
	rec := get(t, newServer(&stubRecommender{res: res}), "/recommend?q=keyword:tombs")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SCORE: 2.5000")
	assert.NotContains(t, rec.Body.String(), "DISTANCE SCORE")
}

func TestRecommendPageFallback(t *testing.T) {
	for _, outcome := range []recommend.Outcome{recommend.OutcomeEmpty, recommend.OutcomeNoResults} {
		t.Run(string(outcome), func(t *testing.T) {
			res := &recommend.Result{Query: "zzz", Mode: search.ModeVector, Outcome: outcome, Items: []recommend.Item{}}
			rec := get(t, newServer(&stubRecommender{res: res}), "/recommend?q=zzz")

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), recommend.FallbackMessage)
		})
	}
}

func TestSearchJSON(t *testing.T) {
	rec := get(t, newServer(&stubRecommender{res: found()}), "/api/search?q=space+opera")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got struct {
		Status string `json:"status"`
		Query  string `json:"query"`
		Mode   string `json:"mode"`
		Books  []struct {
			ID       string  `json:"id"`
			Distance float64 `json:"distance"`
			CoverURL string  `json:"cover_url"`
		} `json:"books"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "vector", got.Mode)
	require.Len(t, got.Books, 1)
	assert.Equal(t, "42", got.Books[0].ID)
	assert.InDelta(t, 0.123456, got.Books[0].Distance, 1e-9)
	assert.Equal(t, "https://covers.example/42.jpg", got.Books[0].CoverURL)
}

func TestSearchJSONNoResults(t *testing.T) {
	res := &recommend.Result{Query: "x", Mode: search.ModeVector, Outcome: recommend.OutcomeNoResults, Items: []recommend.Item{}}
	rec := get(t, newServer(&stubRecommender{res: res}), "/api/search?q=x")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query":"x","mode":"vector","status":"no_results","books":[]}`, rec.Body.String())
}

func TestMissingQuery(t *testing.T) {
	stub := &stubRecommender{res: found()}
	h := newServer(stub)
	for _, target := range []string{"/api/search", "/api/search?q=%20%20", "/recommend"} {
		rec := get(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)

		var env ErrorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "bad_request", env.Error.Code)
	}
	assert.Empty(t, stub.last)
}

func TestEmptyAfterParsing(t *testing.T) {
	rec := get(t, newServer(&stubRecommender{err: recommend.ErrEmptyQuery}), "/api/search?q=keyword:")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpstreamFailure(t *testing.T) {
	err := fmt.Errorf("search: %w", &weaviate.StatusError{Endpoint: "graphql", Code: 500, Body: "boom"})
	rec := get(t, newServer(&stubRecommender{err: err}), "/api/search?q=dune")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "upstream_error", env.Error.Code)
	assert.True(t, errors.Is(err, weaviate.ErrUpstream))
}

func TestHealthAndMetrics(t *testing.T) {
	h := newServer(&stubRecommender{})

	rec := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bookrec_gateway_requests_total")
}
