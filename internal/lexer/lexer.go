package lexer

import (
	"fmt"

	"ilocopt/internal/diag"
	"ilocopt/internal/source"
	"ilocopt/internal/token"
)

type Lexer struct {
	file   *source.File
	cursor Cursor
	opts   Options
	look   *token.Token // one-token lookahead
}

func New(file *source.File, opts Options) *Lexer {
	return &Lexer{
		file:   file,
		cursor: NewCursor(file),
		opts:   opts,
	}
}

// Peek returns the next token without consuming it.
func (lx *Lexer) Peek() token.Token {
	if lx.look == nil {
		tok := lx.scan()
		lx.look = &tok
	}
	return *lx.look
}

// Next returns the next token. After EOF it keeps returning EOF.
func (lx *Lexer) Next() token.Token {
	if lx.look != nil {
		tok := *lx.look
		lx.look = nil
		return tok
	}
	return lx.scan()
}

// EmptySpan is a zero-width span at the cursor.
func (lx *Lexer) EmptySpan() source.Span {
	return lx.cursor.SpanFrom(lx.cursor.Mark())
}

func (lx *Lexer) scan() token.Token {
	lx.skipTrivia()
	if lx.cursor.EOF() {
		return token.Token{Kind: token.EOF, Span: lx.EmptySpan()}
	}

	start := lx.cursor.Mark()
	ch := lx.cursor.Peek()
	switch {
	case ch == '\n':
		// blank lines collapse into one record end
		for lx.cursor.Peek() == '\n' {
			lx.cursor.Bump()
			lx.skipTrivia()
		}
		return lx.make(token.Newline, start)
	case isIdentStart(ch):
		return lx.scanIdent(start)
	case isDec(ch):
		return lx.scanNumber(start)
	case ch == '-' || ch == '+':
		b0, b1, _ := lx.cursor.Peek2()
		if b0 == '-' && b1 == '>' {
			lx.cursor.Bump()
			lx.cursor.Bump()
			return lx.make(token.Arrow, start)
		}
		if isDec(b1) {
			return lx.scanNumber(start)
		}
	case ch == '=':
		if _, b1, _ := lx.cursor.Peek2(); b1 == '>' {
			lx.cursor.Bump()
			lx.cursor.Bump()
			return lx.make(token.Assign, start)
		}
	case ch == ',':
		lx.cursor.Bump()
		return lx.make(token.Comma, start)
	case ch == ':':
		lx.cursor.Bump()
		return lx.make(token.Colon, start)
	case ch == ';':
		lx.cursor.Bump()
		return lx.make(token.Semicolon, start)
	}

	lx.cursor.Bump()
	sp := lx.cursor.SpanFrom(start)
	lx.report(diag.LexUnknownChar, sp, fmt.Sprintf("unexpected character %q", ch))
	return token.Token{Kind: token.Invalid, Span: sp, Text: string(ch)}
}

// skipTrivia eats spaces, tabs, carriage returns and // comments, stopping at '\n'.
func (lx *Lexer) skipTrivia() {
	for !lx.cursor.EOF() {
		switch b := lx.cursor.Peek(); b {
		case ' ', '\t', '\r', '\f', '\v':
			lx.cursor.Bump()
		case '/':
			if _, b1, _ := lx.cursor.Peek2(); b1 != '/' {
				return
			}
			for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
				lx.cursor.Bump()
			}
		default:
			return
		}
	}
}

func (lx *Lexer) make(kind token.Kind, start Mark) token.Token {
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: kind, Span: sp, Text: string(lx.file.Content[sp.Start:sp.End])}
}
