package lexer

import (
	"ilocopt/internal/diag"
	"ilocopt/internal/source"
)

// DefaultMaxTokenLength bounds identifiers and numbers.
const DefaultMaxTokenLength = 256

type Options struct {
	Reporter       diag.Reporter // may be nil; errors are then dropped and lexing continues
	MaxTokenLength int           // 0 means DefaultMaxTokenLength
}

func (o Options) maxTokenLength() uint32 {
	if o.MaxTokenLength <= 0 {
		return DefaultMaxTokenLength
	}
	return uint32(o.MaxTokenLength) //nolint:gosec // bounded by caller config
}

func (lx *Lexer) report(code diag.Code, sp source.Span, msg string) {
	if lx.opts.Reporter != nil {
		diag.ReportError(lx.opts.Reporter, code, sp, msg).Emit()
	}
}
