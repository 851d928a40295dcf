package parser

import (
	"fmt"
	"strconv"

	"fortio.org/safecast"

	"ilocopt/internal/diag"
	"ilocopt/internal/iloc"
	"ilocopt/internal/token"
)

// shape is the operand layout an opcode expects.
type shape uint8

const (
	shapeNone       shape = iota
	shapeRegRegTo         // r, r => r
	shapeRegConstTo       // r, c => r
	shapeRegTo            // r => r
	shapeConstTo          // c => r
	shapeTo               // => r
	shapeStoreAI          // r => r, c
	shapeStoreAO          // r => r, r
	shapeJump             // -> L
	shapeCondJump         // r -> L, L
	shapeConst            // c
	shapeReg              // r
)

func shapeOf(code iloc.Opcode) shape {
	switch code {
	case iloc.OpNop, iloc.OpHalt:
		return shapeNone
	case iloc.OpLoadI:
		return shapeConstTo
	case iloc.OpLoad, iloc.OpCload, iloc.OpStore, iloc.OpCstore:
		return shapeRegTo
	case iloc.OpLoadAI, iloc.OpCloadAI:
		return shapeRegConstTo
	case iloc.OpLoadAO, iloc.OpCloadAO:
		return shapeRegRegTo
	case iloc.OpStoreAI, iloc.OpCstoreAI:
		return shapeStoreAI
	case iloc.OpStoreAO, iloc.OpCstoreAO:
		return shapeStoreAO
	case iloc.OpRead, iloc.OpCread:
		return shapeTo
	case iloc.OpBr:
		return shapeJump
	case iloc.OpCbr:
		return shapeCondJump
	case iloc.OpOutput, iloc.OpCoutput:
		return shapeConst
	case iloc.OpWrite, iloc.OpCwrite:
		return shapeReg
	}
	switch code.Class() {
	case iloc.ClassBinary:
		return shapeRegRegTo
	case iloc.ClassImmediate:
		return shapeRegConstTo
	case iloc.ClassConvert, iloc.ClassNot:
		return shapeRegTo
	}
	return shapeNone
}

// parseOperands reads the operands of code into the slots documented on iloc.Operation.
func (p *Parser) parseOperands(code iloc.Opcode) (iloc.Operation, bool) {
	op := iloc.Operation{Code: code}
	ok := true
	switch shapeOf(code) {
	case shapeNone:
	case shapeRegRegTo:
		ok = p.reg(&op.R0) && p.comma() && p.reg(&op.R1) && p.expect(token.Assign) && p.reg(&op.R2)
	case shapeRegConstTo:
		ok = p.reg(&op.R0) && p.comma() && p.constant(&op.Const) && p.expect(token.Assign) && p.reg(&op.R2)
	case shapeRegTo:
		if code == iloc.OpStore || code == iloc.OpCstore {
			ok = p.reg(&op.R0) && p.expect(token.Assign) && p.reg(&op.R1)
		} else {
			ok = p.reg(&op.R0) && p.expect(token.Assign) && p.reg(&op.R2)
		}
	case shapeConstTo:
		ok = p.constant(&op.Const) && p.expect(token.Assign) && p.reg(&op.R2)
	case shapeTo:
		ok = p.expect(token.Assign) && p.reg(&op.R2)
	case shapeStoreAI:
		ok = p.reg(&op.R0) && p.expect(token.Assign) && p.reg(&op.R1) && p.comma() && p.constant(&op.Const)
	case shapeStoreAO:
		ok = p.reg(&op.R0) && p.expect(token.Assign) && p.reg(&op.R1) && p.comma() && p.reg(&op.R2)
	case shapeJump:
		ok = p.expect(token.Arrow) && p.target(&op.Target1)
	case shapeCondJump:
		ok = p.reg(&op.R0) && p.expect(token.Arrow) && p.target(&op.Target1) && p.comma() && p.target(&op.Target2)
	case shapeConst:
		ok = p.constant(&op.Const)
	case shapeReg:
		ok = p.reg(&op.R0)
	}
	return op, ok
}

func (p *Parser) reg(dst *iloc.Reg) bool {
	if !p.at(token.Register) {
		p.err(diag.SynExpectRegister, "expected register")
		return false
	}
	tok := p.advance()
	n, err := strconv.ParseUint(tok.Text[1:], 10, 64)
	if err == nil {
		var r uint32
		if r, err = safecast.Conv[uint32](n); err == nil {
			*dst = iloc.Reg(r)
			return true
		}
	}
	p.report(diag.SynRegisterOverflow, tok.Span, fmt.Sprintf("register %s out of range", tok.Text))
	return false
}

func (p *Parser) constant(dst *int64) bool {
	if !p.at(token.IntLit) {
		p.err(diag.SynExpectConstant, "expected constant")
		return false
	}
	tok := p.advance()
	n, err := strconv.ParseInt(tok.Text, 10, 64)
	if err != nil {
		p.report(diag.SynConstOverflow, tok.Span, fmt.Sprintf("constant %s out of range", tok.Text))
		return false
	}
	*dst = n
	return true
}

func (p *Parser) target(dst *iloc.Label) bool {
	if !p.at(token.Ident) {
		p.err(diag.SynExpectLabel, "expected label")
		return false
	}
	*dst = p.labels.Intern(p.advance().Text)
	return true
}

func (p *Parser) comma() bool {
	if !p.at(token.Comma) {
		p.err(diag.SynExpectComma, "expected ','")
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(k token.Kind) bool {
	if !p.at(k) {
		p.err(diag.SynExpectArrow, "expected "+k.String())
		return false
	}
	p.advance()
	return true
}
