package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Pass names one transformation of the chain.
type Pass uint8

const (
	PassVN Pass = iota + 1
	PassUnroll
	PassMotion
)

// ErrUnsupportedPass is returned for passes that are recognised but not built.
var ErrUnsupportedPass = errors.New("code motion not implemented")

var passInfo = [...]struct {
	name string
	flag byte
}{
	PassVN:     {"vn", 'v'},
	PassUnroll: {"unroll", 'u'},
	PassMotion: {"motion", 'i'},
}

func (p Pass) String() string {
	if p == 0 || int(p) >= len(passInfo) {
		return fmt.Sprintf("Pass(%d)", p)
	}
	return passInfo[p].name
}

// Flag returns the command-line switch selecting p, e.g. "-v".
func (p Pass) Flag() string {
	if p == 0 || int(p) >= len(passInfo) {
		return "-?"
	}
	return "-" + string(passInfo[p].flag)
}

// PassForFlag maps a switch letter to its pass.
func PassForFlag(letter byte) (Pass, bool) {
	for p := PassVN; int(p) < len(passInfo); p++ {
		if passInfo[p].flag == letter {
			return p, true
		}
	}
	return 0, false
}

// Validate rejects repeated passes and passes that are not implemented.
func Validate(passes []Pass) error {
	seen := make(map[Pass]bool, len(passes))
	for _, p := range passes {
		if seen[p] {
			return fmt.Errorf("%s given more than once", p.Flag())
		}
		seen[p] = true
		if p == PassMotion {
			return fmt.Errorf("%s: %w", p.Flag(), ErrUnsupportedPass)
		}
		if p == 0 || int(p) >= len(passInfo) {
			return fmt.Errorf("unknown pass %d", p)
		}
	}
	return nil
}

// Chain renders passes as switch letters, e.g. "vu".
func Chain(passes []Pass) string {
	var b strings.Builder
	for _, p := range passes {
		b.WriteString(strings.TrimPrefix(p.Flag(), "-"))
	}
	return b.String()
}
