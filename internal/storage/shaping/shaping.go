package shaping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMissingResults means the GraphQL payload carried no result list for the class:
// no data, no Get, or a null/absent class key.
var ErrMissingResults = errors.New("response has no result list")

// --- Get shaping ---

// Hit is one object of a Get query with the properties the app reads.
type Hit struct {
	BookID      string     `json:"bookId"`
	Title       string     `json:"title"`
	Genres      string     `json:"genres"`
	Description string     `json:"description"`
	Additional  Additional `json:"_additional"`
}

// Additional holds the `_additional` block. Distance is nil when it was not requested or returned.
type Additional struct {
	ID       string     `json:"id,omitempty"`
	Distance *float64   `json:"distance"`
	Score    *flexFloat `json:"score"`
}

// Distance reports the cosine distance and whether the service returned one.
func (h Hit) Distance() (float64, bool) {
	if h.Additional.Distance == nil {
		return 0, false
	}
	return *h.Additional.Distance, true
}

// Score returns the bm25 score, 0 when absent.
func (h Hit) Score() float64 {
	if h.Additional.Score == nil {
		return 0
	}
	return float64(*h.Additional.Score)
}

// GraphQLError is one entry of the top-level "errors" array.
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

type getResp struct {
	Data *struct {
		Get map[string]json.RawMessage `json:"Get"`
	} `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

// ShapeGet extracts data.Get.<class> from a GraphQL response.
// GraphQL errors are returned alongside, they do not fail the decode.
func ShapeGet(data []byte, class string) ([]Hit, []GraphQLError, error) {
	var r getResp
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, nil, fmt.Errorf("decode graphql: %w", err)
	}
	if r.Data == nil || r.Data.Get == nil {
		return nil, r.Errors, ErrMissingResults
	}
	raw, ok := r.Data.Get[class]
	if !ok || isNull(raw) {
		return nil, r.Errors, ErrMissingResults
	}

	hits := make([]Hit, 0) // ensure [] not nil
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, r.Errors, fmt.Errorf("decode %s hits: %w", class, err)
	}
	return hits, r.Errors, nil
}

// --- Aggregate shaping ---

type aggResp struct {
	Data *struct {
		Aggregate map[string][]struct {
			Meta struct {
				Count int `json:"count"`
			} `json:"meta"`
		} `json:"Aggregate"`
	} `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

// ShapeCount reads data.Aggregate.<class>[0].meta.count.
func ShapeCount(data []byte, class string) (int, error) {
	var r aggResp
	if err := json.Unmarshal(data, &r); err != nil {
		return 0, fmt.Errorf("decode aggregate: %w", err)
	}
	if len(r.Errors) > 0 {
		return 0, fmt.Errorf("aggregate %s: %s", class, r.Errors[0].Message)
	}
	if r.Data == nil || len(r.Data.Aggregate[class]) == 0 {
		return 0, ErrMissingResults
	}
	return r.Data.Aggregate[class][0].Meta.Count, nil
}

// flexFloat accepts both 0.42 and "0.42"; bm25 scores come back as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("score %q: %w", s, err)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

func isNull(b []byte) bool {
	return len(bytes.TrimSpace(b)) == 0 || bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}
