package parser

import (
	"strings"
	"unicode"
)

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenWord
	TokenField
	TokenPhrase
)

type Token struct {
	Type  TokenType
	Value string
}

type Lexer struct {
	input []rune
	pos   int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input)}
}

func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF}
	}

	// Фраза в кавычках идёт как есть, вместе с пробелами
	if l.input[l.pos] == '"' {
		return l.readPhrase()
	}

	// Читаем токен до пробела ИЛИ до двоеточия (если это поле)
	start := l.pos
	for l.pos < len(l.input) && !unicode.IsSpace(l.input[l.pos]) {
		if l.input[l.pos] == ':' && l.pos > start {
			l.pos++ // Включаем двоеточие в токен поля
			word := string(l.input[start:l.pos])
			return Token{Type: TokenField, Value: strings.ToLower(strings.TrimSuffix(word, ":"))}
		}
		l.pos++
	}

	return Token{Type: TokenWord, Value: string(l.input[start:l.pos])}
}

// Rest returns the input not consumed yet, exactly as it was given.
func (l *Lexer) Rest() string {
	return string(l.input[l.pos:])
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

// readPhrase consumes "..." and returns the inner text. An unterminated quote runs to the end.
func (l *Lexer) readPhrase() Token {
	l.pos++ // opening quote
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != '"' {
		l.pos++
	}
	value := string(l.input[start:l.pos])
	if l.pos < len(l.input) {
		l.pos++ // closing quote
	}
	return Token{Type: TokenPhrase, Value: value}
}
