package weaviate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetQueryNearText(t *testing.T) {
	q := NewGet("Books").
		Fields("bookId", "title", "genres", "description").
		NearText("science fiction").
		Limit(3).
		Additional("distance").
		String()

	assert.Equal(t,
		`{ Get { Books(nearText: {concepts: ["science fiction"]}, limit: 3) { bookId title genres description _additional { distance } } } }`,
		q)
}

func TestGetQueryBM25(t *testing.T) {
	q := NewGet("Books").
		Fields("title").
		BM25("magic", "description").
		Limit(3).
		Additional("score").
		String()

	assert.Equal(t,
		`{ Get { Books(bm25: {query: "magic", properties: ["description"]}, limit: 3) { title _additional { score } } } }`,
		q)
}

func TestGetQueryEscapesConcepts(t *testing.T) {
	q := NewGet("Books").Fields("title").NearText(`say "hi"` + "\n}").String()
	assert.Contains(t, q, `["say \"hi\"\n}"]`)
}

func TestGetQueryNoArguments(t *testing.T) {
	assert.Equal(t, `{ Get { Books { title } } }`, NewGet("Books").Fields("title").String())
}

func TestAggregateCount(t *testing.T) {
	assert.Equal(t, `{ Aggregate { Books { meta { count } } } }`, AggregateCount("Books"))
}
