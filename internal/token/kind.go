package token

// Kind represents the category of an ILOC token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF
	// Newline ends an instruction record.
	Newline

	// Ident is an opcode mnemonic or a label name.
	Ident
	// Register is r followed by decimal digits.
	Register
	// IntLit is a decimal constant, optionally signed.
	IntLit

	// Comma is ','.
	Comma
	// Colon is ':' after a label definition.
	Colon
	// Semicolon separates instructions on one line.
	Semicolon
	// Assign is '=>' before destinations.
	Assign
	// Arrow is '->' before branch targets.
	Arrow
)

var kindNames = [...]string{
	Invalid:   "invalid",
	EOF:       "end of file",
	Newline:   "end of line",
	Ident:     "identifier",
	Register:  "register",
	IntLit:    "constant",
	Comma:     "','",
	Colon:     "':'",
	Semicolon: "';'",
	Assign:    "'=>'",
	Arrow:     "'->'",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}
