package weaviate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GetQuery builds a GraphQL `Get` query for one class.
type GetQuery struct {
	class      string
	fields     []string
	concepts   []string
	bm25Query  string
	bm25Props  []string
	limit      int
	additional []string
}

func NewGet(class string) *GetQuery {
	return &GetQuery{class: class}
}

func (q *GetQuery) Fields(fields ...string) *GetQuery {
	q.fields = append(q.fields, fields...)
	return q
}

func (q *GetQuery) NearText(concepts ...string) *GetQuery {
	q.concepts = append(q.concepts, concepts...)
	return q
}

func (q *GetQuery) BM25(query string, properties ...string) *GetQuery {
	q.bm25Query = query
	q.bm25Props = append(q.bm25Props, properties...)
	return q
}

func (q *GetQuery) Limit(n int) *GetQuery {
	q.limit = n
	return q
}

// Additional requests `_additional` fields such as distance or score.
func (q *GetQuery) Additional(fields ...string) *GetQuery {
	q.additional = append(q.additional, fields...)
	return q
}

func (q *GetQuery) String() string {
	var args []string
	if len(q.concepts) > 0 {
		args = append(args, fmt.Sprintf("nearText: {concepts: %s}", quoteList(q.concepts)))
	}
	if q.bm25Query != "" {
		bm := "query: " + quote(q.bm25Query)
		if len(q.bm25Props) > 0 {
			bm += ", properties: " + quoteList(q.bm25Props)
		}
		args = append(args, "bm25: {"+bm+"}")
	}
	if q.limit > 0 {
		args = append(args, fmt.Sprintf("limit: %d", q.limit))
	}

	selection := append([]string{}, q.fields...)
	if len(q.additional) > 0 {
		selection = append(selection, "_additional { "+strings.Join(q.additional, " ")+" }")
	}

	var b strings.Builder
	b.WriteString("{ Get { ")
	b.WriteString(q.class)
	if len(args) > 0 {
		b.WriteString("(" + strings.Join(args, ", ") + ")")
	}
	b.WriteString(" { " + strings.Join(selection, " ") + " } } }")
	return b.String()
}

// AggregateCount builds `{ Aggregate { <class> { meta { count } } } }`.
func AggregateCount(class string) string {
	return "{ Aggregate { " + class + " { meta { count } } } }"
}

// GraphQL string literals share JSON's escaping rules.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
