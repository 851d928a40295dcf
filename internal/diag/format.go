package diag

import (
	"fmt"
	"sort"
	"strings"

	"ilocopt/internal/source"
)

type shortDiagnostic struct {
	Severity string
	Code     string
	Path     string
	Line     uint32
	Column   uint32
	Message  string
}

// FormatShort renders diagnostics into a stable single-line-per-entry form.
// Notes are included when includeNotes is set. Returns "" when nothing is left.
func FormatShort(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}

	rendered := make([]shortDiagnostic, 0, len(diags))
	for i := range diags {
		rendered = appendDiagnostic(rendered, &diags[i], fs, includeNotes)
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		return di.Column < dj.Column
	})

	var b strings.Builder
	for i, d := range rendered {
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s", d.Severity, d.Code, d.Path, d.Line, d.Column, d.Message)
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func appendDiagnostic(out []shortDiagnostic, d *Diagnostic, fs *source.FileSet, includeNotes bool) []shortDiagnostic {
	if loc, ok := resolveSpan(fs, d.Primary); ok {
		loc.Severity = d.Severity.String()
		loc.Code = d.Code.ID()
		loc.Message = sanitizeMessage(d.Message)
		out = append(out, loc)
	}
	if includeNotes {
		for _, note := range d.Notes {
			if loc, ok := resolveSpan(fs, note.Span); ok {
				loc.Severity = "note"
				loc.Code = d.Code.ID()
				loc.Message = sanitizeMessage(note.Msg)
				out = append(out, loc)
			}
		}
	}
	return out
}

func resolveSpan(fs *source.FileSet, span source.Span) (loc shortDiagnostic, ok bool) {
	defer func() {
		if recover() != nil {
			loc = shortDiagnostic{}
			ok = false
		}
	}()
	start, _ := fs.Resolve(span)
	return shortDiagnostic{
		Path:   fs.DisplayPath(span.File),
		Line:   start.Line,
		Column: start.Col,
	}, true
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
