package lexer

import (
	"fmt"

	"ilocopt/internal/diag"
	"ilocopt/internal/token"
)

// scanIdent reads an opcode or label name; r<digits> becomes a Register.
func (lx *Lexer) scanIdent(start Mark) token.Token {
	for isIdentContinue(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}
	tok := lx.make(token.Ident, start)
	if isRegisterText(tok.Text) {
		tok.Kind = token.Register
	}
	return lx.checkLength(tok)
}

// scanNumber reads [+-]?[0-9]+. Letters glued to the digits make the token invalid.
func (lx *Lexer) scanNumber(start Mark) token.Token {
	if b := lx.cursor.Peek(); b == '-' || b == '+' {
		lx.cursor.Bump()
	}
	for isDec(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}
	if isIdentStart(lx.cursor.Peek()) {
		for isIdentContinue(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
		tok := lx.make(token.Invalid, start)
		lx.report(diag.LexBadNumber, tok.Span, fmt.Sprintf("malformed number %q", tok.Text))
		return tok
	}
	return lx.checkLength(lx.make(token.IntLit, start))
}

func (lx *Lexer) checkLength(tok token.Token) token.Token {
	if tok.Span.Len() > lx.opts.maxTokenLength() {
		lx.report(diag.LexTokenTooLong, tok.Span, fmt.Sprintf("token longer than %d bytes", lx.opts.maxTokenLength()))
		tok.Kind = token.Invalid
	}
	return tok
}

func isRegisterText(s string) bool {
	if len(s) < 2 || s[0] != 'r' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isDec(s[i]) {
			return false
		}
	}
	return true
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isIdentContinue(b byte) bool {
	return isIdentStart(b) || isDec(b)
}

func isDec(b byte) bool {
	return b >= '0' && b <= '9'
}
