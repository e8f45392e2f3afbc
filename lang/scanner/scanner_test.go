package scanner_test

import (
	"testing"

	"github.com/16dprice/rlox/lang/scanner"
	"github.com/16dprice/rlox/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(src string) []token.Token {
	var s scanner.Scanner
	s.Init(src)
	var toks []token.Token
	for {
		tok := s.ScanToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return toks
}

func TestScanTokenTypes(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []token.Type
	}{
		{"empty", "", []token.Type{token.EOF}},
		{"punctuation", "(){};,.+-*/", []token.Type{
			token.LEFT_PAREN, token.RIGHT_PAREN, token.LEFT_BRACE, token.RIGHT_BRACE,
			token.SEMICOLON, token.COMMA, token.DOT, token.PLUS, token.MINUS,
			token.STAR, token.SLASH, token.EOF,
		}},
		{"comparisons", "! != = == < <= > >=", []token.Type{
			token.BANG, token.BANG_EQUAL, token.EQUAL, token.EQUAL_EQUAL,
			token.LESS, token.LESS_EQUAL, token.GREATER, token.GREATER_EQUAL, token.EOF,
		}},
		{"keywords", "and class else false for fun if nil or print return true var while", []token.Type{
			token.AND, token.CLASS, token.ELSE, token.FALSE, token.FOR, token.FUN,
			token.IF, token.NIL, token.OR, token.PRINT, token.RETURN, token.TRUE,
			token.VAR, token.WHILE, token.EOF,
		}},
		{"identifiers and numbers", "foo bar123 1 12.5", []token.Type{
			token.IDENT, token.IDENT, token.NUMBER, token.NUMBER, token.EOF,
		}},
		{"string", `"hello world"`, []token.Type{token.STRING, token.EOF}},
		{"line comment", "var a = 1; // trailing\nvar b = 2;", []token.Type{
			token.VAR, token.IDENT, token.EQUAL, token.NUMBER, token.SEMICOLON,
			token.VAR, token.IDENT, token.EQUAL, token.NUMBER, token.SEMICOLON, token.EOF,
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			toks := scanAll(c.src)
			got := make([]token.Type, len(toks))
			for i, tok := range toks {
				got[i] = tok.Type
			}
			assert.Equal(t, c.want, got)
		})
	}
}

func TestScanLexemes(t *testing.T) {
	src := `var greeting = "hi";`
	var s scanner.Scanner
	s.Init(src)

	tok := s.ScanToken()
	require.Equal(t, token.VAR, tok.Type)
	assert.Equal(t, "var", tok.Lexeme(src))

	tok = s.ScanToken()
	require.Equal(t, token.IDENT, tok.Type)
	assert.Equal(t, "greeting", tok.Lexeme(src))

	tok = s.ScanToken()
	require.Equal(t, token.EQUAL, tok.Type)

	tok = s.ScanToken()
	require.Equal(t, token.STRING, tok.Type)
	assert.Equal(t, `"hi"`, tok.Lexeme(src))
}

func TestUnterminatedStringAndStrayCharacter(t *testing.T) {
	var s scanner.Scanner
	s.Init(`"abc`)
	tok := s.ScanToken()
	require.Equal(t, token.ILLEGAL, tok.Type)
	assert.Equal(t, "Unterminated string.", s.Message())

	s.Init("@")
	tok = s.ScanToken()
	require.Equal(t, token.ILLEGAL, tok.Type)
	assert.Equal(t, "Unexpected character.", s.Message())
}

func TestLineTracking(t *testing.T) {
	src := "var a = 1;\nvar b = 2;\n\nprint a;"
	toks := scanAll(src)
	// the second "var" keyword starts on line 2
	var varLines []int
	for _, tok := range toks {
		if tok.Type == token.VAR {
			varLines = append(varLines, tok.Line)
		}
	}
	assert.Equal(t, []int{1, 2}, varLines)

	last := toks[len(toks)-2] // SEMICOLON before EOF
	assert.Equal(t, 4, last.Line)
}
