package parser

import (
	"fmt"

	"ilocopt/internal/diag"
	"ilocopt/internal/iloc"
	"ilocopt/internal/lexer"
	"ilocopt/internal/source"
	"ilocopt/internal/token"
)

type Options struct {
	MaxErrors uint             // 0 means unlimited
	Reporter  diag.Reporter    // may be nil
	Labels    *iloc.LabelTable // table to intern into; a fresh one when nil
	Lexer     lexer.Options    // Reporter is overridden
}

type Result struct {
	Program iloc.Program
	Spans   []source.Span // Spans[i] covers Program.Insts[i]
	Errors  uint
}

// Parser holds the state for one file.
type Parser struct {
	lx       *lexer.Lexer
	labels   *iloc.LabelTable
	opts     Options
	errors   uint
	lastSpan source.Span

	insts    []iloc.Instruction
	spans    []source.Span
	labelDef map[iloc.Label]source.Span
}

// ParseFile parses one ILOC listing from fs.
func ParseFile(fs *source.FileSet, file source.FileID, opts Options) Result {
	labels := opts.Labels
	if labels == nil {
		labels = iloc.NewLabelTable()
	}
	p := &Parser{
		labels:   labels,
		opts:     opts,
		labelDef: make(map[iloc.Label]source.Span),
	}
	lexOpts := opts.Lexer
	lexOpts.Reporter = countingReporter{next: opts.Reporter, p: p}
	p.lx = lexer.New(fs.Get(file), lexOpts)
	p.lastSpan = p.lx.EmptySpan()

	p.parseRecords()
	return Result{
		Program: iloc.NewProgram(p.insts, labels),
		Spans:   p.spans,
		Errors:  p.errors,
	}
}

// countingReporter counts lexer errors against the parser's total.
type countingReporter struct {
	next diag.Reporter
	p    *Parser
}

func (r countingReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note) {
	if sev >= diag.SevError {
		r.p.errors++
	}
	if r.next != nil && !r.p.enough() {
		r.next.Report(code, sev, primary, msg, notes)
	}
}

// enough reports whether the error limit was reached.
func (p *Parser) enough() bool {
	return p.opts.MaxErrors != 0 && p.errors >= p.opts.MaxErrors
}

func (p *Parser) at(k token.Kind) bool {
	return p.lx.Peek().Kind == k
}

func (p *Parser) advance() token.Token {
	tok := p.lx.Next()
	p.lastSpan = tok.Span
	return tok
}

func (p *Parser) report(code diag.Code, sp source.Span, msg string) {
	p.errors++
	if p.opts.Reporter != nil && !p.enough() {
		diag.ReportError(p.opts.Reporter, code, sp, msg).Emit()
	}
}

func (p *Parser) err(code diag.Code, msg string) {
	tok := p.lx.Peek()
	p.report(code, tok.Span, fmt.Sprintf("%s, got %s", msg, describe(tok)))
}

func describe(tok token.Token) string {
	switch tok.Kind {
	case token.EOF, token.Newline:
		return tok.Kind.String()
	}
	return fmt.Sprintf("%q", tok.Text)
}

// parseRecords is the top-level loop: one record per line or ';'.
func (p *Parser) parseRecords() {
	for !p.at(token.EOF) {
		if p.enough() {
			return
		}
		if p.at(token.Newline) || p.at(token.Semicolon) {
			p.advance()
			continue
		}
		if !p.parseRecord() {
			p.resync()
		}
	}
}

// resync skips to the end of the current record.
func (p *Parser) resync() {
	for !p.lx.Peek().EndsRecord() {
		p.advance()
	}
	if !p.at(token.EOF) {
		p.advance()
	}
}

// parseRecord parses `[label:] [opcode operands]` up to the record end.
func (p *Parser) parseRecord() bool {
	first := p.lx.Peek()
	if first.Kind != token.Ident {
		p.err(diag.SynUnexpectedToken, "expected label or opcode")
		return false
	}
	p.advance()

	label := iloc.NoLabel
	opTok := first
	if p.at(token.Colon) {
		p.advance()
		var ok bool
		if label, ok = p.defineLabel(first); !ok {
			return false
		}
		if p.lx.Peek().EndsRecord() {
			p.push(label, iloc.Nop(), first.Span)
			return p.endRecord()
		}
		if !p.at(token.Ident) {
			p.err(diag.SynUnknownOpcode, "expected opcode after label")
			return false
		}
		opTok = p.advance()
	}

	code, ok := iloc.LookupOpcode(opTok.Text)
	if !ok {
		p.report(diag.SynUnknownOpcode, opTok.Span, fmt.Sprintf("unknown opcode %q", opTok.Text))
		return false
	}
	op, ok := p.parseOperands(code)
	if !ok {
		return false
	}
	p.push(label, op, first.Span.Cover(p.lastSpan))
	return p.endRecord()
}

func (p *Parser) endRecord() bool {
	if !p.lx.Peek().EndsRecord() {
		p.err(diag.SynExpectNewline, "expected end of instruction")
		return false
	}
	if !p.at(token.EOF) {
		p.advance()
	}
	return true
}

func (p *Parser) push(label iloc.Label, op iloc.Operation, sp source.Span) {
	p.insts = append(p.insts, iloc.Instruction{Label: label, Op: op})
	p.spans = append(p.spans, sp)
}

func (p *Parser) defineLabel(tok token.Token) (iloc.Label, bool) {
	if tok.Text == iloc.StartName && len(p.insts) != 0 {
		p.report(diag.SynDuplicateLabel, tok.Span, "label START is reserved for the first instruction")
		return iloc.NoLabel, false
	}
	id := p.labels.Intern(tok.Text)
	if prev, dup := p.labelDef[id]; dup {
		b := diag.ReportError(p.opts.Reporter, diag.SynDuplicateLabel, tok.Span,
			fmt.Sprintf("label %s defined twice", tok.Text)).
			WithNote(prev, "first definition")
		p.errors++
		if p.opts.Reporter != nil && !p.enough() {
			b.Emit()
		}
		return iloc.NoLabel, false
	}
	p.labelDef[id] = tok.Span
	return id, true
}
