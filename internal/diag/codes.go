package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Lexical
	LexInfo         Code = 1000
	LexUnknownChar  Code = 1001
	LexBadNumber    Code = 1004
	LexTokenTooLong Code = 1005

	// Syntax
	SynInfo             Code = 2000
	SynUnexpectedToken  Code = 2001
	SynUnknownOpcode    Code = 2002
	SynExpectRegister   Code = 2003
	SynExpectConstant   Code = 2004
	SynExpectLabel      Code = 2005
	SynExpectArrow      Code = 2006
	SynExpectComma      Code = 2007
	SynExpectNewline    Code = 2008
	SynDuplicateLabel   Code = 2009
	SynRegisterOverflow Code = 2010
	SynConstOverflow    Code = 2011

	// Control flow
	CfgInfo            Code = 3000
	CfgUnresolvedLabel Code = 3001
	CfgEmptyProgram    Code = 3002

	// IO
	IOLoadFileError Code = 4001

	// Configuration
	ProjInfo          Code = 5000
	ProjInvalidConfig Code = 5001
	ProjUnknownKey    Code = 5002
)

var codeDescription = map[Code]string{
	UnknownCode:         "Unknown error",
	LexInfo:             "Lexical information",
	LexUnknownChar:      "Unknown character",
	LexBadNumber:        "Malformed number",
	LexTokenTooLong:     "Token too long",
	SynInfo:             "Syntax information",
	SynUnexpectedToken:  "Unexpected token",
	SynUnknownOpcode:    "Unknown opcode",
	SynExpectRegister:   "Expected register",
	SynExpectConstant:   "Expected constant",
	SynExpectLabel:      "Expected label",
	SynExpectArrow:      "Expected arrow",
	SynExpectComma:      "Expected comma",
	SynExpectNewline:    "Expected end of line",
	SynDuplicateLabel:   "Duplicate label",
	SynRegisterOverflow: "Register number out of range",
	SynConstOverflow:    "Constant out of range",
	CfgInfo:             "Control flow information",
	CfgUnresolvedLabel:  "Branch to undefined label",
	CfgEmptyProgram:     "Empty program",
	IOLoadFileError:     "Cannot open file",
	ProjInfo:            "Configuration information",
	ProjInvalidConfig:   "Invalid configuration",
	ProjUnknownKey:      "Unknown configuration key",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("CFG%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
