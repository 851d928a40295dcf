package parser

import (
	"fmt"

	"ilocopt/internal/diag"
	"ilocopt/internal/iloc"
	"ilocopt/internal/source"
)

// SyntaxError reports that a listing could not be parsed.
type SyntaxError struct {
	Count       uint
	Diagnostics []diag.Diagnostic
	Files       *source.FileSet // resolves the diagnostics' spans
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Parse stopped with %d error(s).", e.Count)
}

// ParseSource parses src held in memory under name.
// Diagnostics are collected into a bag and returned inside *SyntaxError on failure.
func ParseSource(name, src string) (iloc.Program, error) {
	fs := source.NewFileSet()
	id := fs.AddVirtual(name, []byte(src))
	return Parse(fs, id, Options{})
}

// Parse runs ParseFile with a bag reporter and turns a non-zero error count into *SyntaxError.
func Parse(fs *source.FileSet, file source.FileID, opts Options) (iloc.Program, error) {
	bag := diag.NewBag(64)
	if opts.Reporter == nil {
		opts.Reporter = diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	}
	res := ParseFile(fs, file, opts)
	if res.Errors > 0 {
		return iloc.Program{}, &SyntaxError{Count: res.Errors, Diagnostics: bag.Items(), Files: fs}
	}
	return res.Program, nil
}
