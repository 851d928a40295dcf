package diag

// Severity orders diagnostics; the parser counts SevError ones toward the
// "Parse stopped" limit.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

// String is the label used in short diagnostics ("error", "warning", "info").
func (s Severity) String() string {
	switch s {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "info"
	}
}
