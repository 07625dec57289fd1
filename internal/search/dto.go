package search

// Mode selects how the vector service is queried.
type Mode string

const (
	ModeVector  Mode = "vector"
	ModeKeyword Mode = "keyword"
)

// Book представляет книгу, возвращённую векторным сервисом.
// Distance заполняется для ModeVector, Score для ModeKeyword.
type Book struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Genres      string  `json:"genres"`
	Description string  `json:"description"`
	Distance    float64 `json:"distance"`
	Score       float64 `json:"score,omitempty"`
}
