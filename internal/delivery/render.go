package delivery

import (
	"fmt"
	"html/template"
	"io"

	"github.com/microcosm-cc/bluemonday"

	"bookrec/internal/recommend"
	"bookrec/internal/search"
)

// описания приходят из датасета как есть, в них бывает разметка
var policy = bluemonday.UGCPolicy()

var funcs = template.FuncMap{
	"sanitize": func(s string) template.HTML { return template.HTML(policy.Sanitize(s)) },
	"distance": func(d float64) string { return fmt.Sprintf("DISTANCE SCORE: %.4f", d) },
	"score":    func(s float64) string { return fmt.Sprintf("SCORE: %.4f", s) },
	"keyword":  func(m search.Mode) bool { return m == search.ModeKeyword },
}

const layout = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Book Recommendations</title>
<style>
body { font-family: sans-serif; max-width: 960px; margin: 2em auto; }
.book { display: flex; gap: 1em; margin-bottom: 2em; }
.book img { width: 120px; }
.score { color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<h1>Book Recommendations</h1>
<form action="/recommend" method="get">
<input type="text" name="q" size="60" placeholder="Describe the book you'd like to read" value="{{.Query}}">
<button type="submit">Find</button>
</form>
{{if .Result}}{{template "results" .Result}}{{end}}
</body>
</html>
{{define "results"}}
{{if .Fallback}}<p class="fallback">{{fallback}}</p>{{else}}
{{$kw := keyword .Mode}}
{{range .Items}}
<div class="book">
{{if .CoverURL}}<img src="{{.CoverURL}}" alt="{{.Title}}">{{end}}
<div>
<p class="score">{{if $kw}}{{score .Score}}{{else}}{{distance .Distance}}{{end}}</p>
<h2>{{.Title}}</h2>
<div class="description">{{sanitize .Description}}</div>
</div>
</div>
{{end}}{{end}}
{{end}}`

var page = template.Must(template.New("page").Funcs(funcs).Funcs(template.FuncMap{
	"fallback": func() string { return recommend.FallbackMessage },
}).Parse(layout))

type pageData struct {
	Query  string
	Result *recommend.Result
}

func renderPage(w io.Writer, query string, res *recommend.Result) error {
	return page.Execute(w, pageData{Query: query, Result: res})
}
