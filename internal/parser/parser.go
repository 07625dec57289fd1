package parser

import (
	"strings"

	"bookrec/internal/search"
)

// Query is what the user asked for: which search to run and with what text.
type Query struct {
	Mode search.Mode
	Text string
}

// Field prefixes that pick the search mode. Anything else is part of the text.
var modeFields = map[string]search.Mode{
	"keyword": search.ModeKeyword,
	"bm25":    search.ModeKeyword,
	"near":    search.ModeVector,
	"vector":  search.ModeVector,
}

// Parse - точка входа. Создает лексер и парсер.
// Распознаётся только ведущий префикс режима, остальной текст уходит в поиск как есть
// (без изменения регистра, кавычек и двоеточий).
func Parse(input string) Query {
	l := NewLexer(input)
	p := newParser(l)
	return p.parseQuery(input)
}

type Parser struct {
	l      *Lexer
	curTok Token
}

func newParser(l *Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curTok = p.l.NextToken()
}

// Query -> [MODE ':'] RawText
func (p *Parser) parseQuery(input string) Query {
	q := Query{Mode: search.ModeVector, Text: strings.TrimSpace(input)}

	if p.curTok.Type == TokenField {
		if mode, ok := modeFields[p.curTok.Value]; ok {
			q.Mode = mode
			q.Text = strings.TrimSpace(p.l.Rest())
		}
	}
	return q
}
