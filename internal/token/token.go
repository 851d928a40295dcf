package token

import (
	"ilocopt/internal/source"
)

// Token represents a single source token with its location.
type Token struct {
	Kind Kind
	Span source.Span
	Text string
}

// IsPunct reports whether the token is punctuation.
func (t Token) IsPunct() bool {
	switch t.Kind {
	case Comma, Colon, Semicolon, Assign, Arrow:
		return true
	default:
		return false
	}
}

// EndsRecord reports whether the token terminates an instruction record.
func (t Token) EndsRecord() bool {
	return t.Kind == Newline || t.Kind == Semicolon || t.Kind == EOF
}
