package iloc

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// Label is an interned label handle. Comparing two labels is an integer compare.
type Label uint32

// NoLabel marks an instruction without a label and a branch slot without a target.
const NoLabel Label = 0

// StartName is the synthetic label of the block that begins at line 0.
const StartName = "START"

// LabelTable interns label names.
type LabelTable struct {
	byID  []string         // byID[0] = "" for NoLabel
	index map[string]Label // name -> handle
}

// NewLabelTable returns a table that already knows StartName.
func NewLabelTable() *LabelTable {
	t := &LabelTable{
		byID:  []string{""},
		index: map[string]Label{"": NoLabel},
	}
	t.Intern(StartName)
	return t
}

// Intern returns the handle for name, adding it when new.
func (t *LabelTable) Intern(name string) Label {
	if id, ok := t.index[name]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(t.byID))
	if err != nil {
		panic(fmt.Errorf("label table overflow: %w", err))
	}
	id := Label(n)
	t.byID = append(t.byID, name)
	t.index[name] = id
	return id
}

// Lookup returns the handle for name without interning it.
func (t *LabelTable) Lookup(name string) (Label, bool) {
	id, ok := t.index[name]
	return id, ok && id != NoLabel
}

// Name returns the text of id. Unknown handles render as "".
func (t *LabelTable) Name(id Label) string {
	if int(id) >= len(t.byID) {
		return ""
	}
	return t.byID[id]
}

// Start returns the handle of StartName.
func (t *LabelTable) Start() Label {
	return t.Intern(StartName)
}

// MangledName returns base+"X"+n, the naming scheme of duplicated blocks.
func (t *LabelTable) MangledName(base Label, n int) string {
	return fmt.Sprintf("%sX%d", t.Name(base), n)
}

// Mangle interns MangledName(base, n).
func (t *LabelTable) Mangle(base Label, n int) Label {
	return t.Intern(t.MangledName(base, n))
}

// Len counts interned names, NoLabel included.
func (t *LabelTable) Len() int {
	return len(t.byID)
}

// Clone copies the table so a pass can add labels without touching its input.
func (t *LabelTable) Clone() *LabelTable {
	c := &LabelTable{
		byID:  slices.Clone(t.byID),
		index: make(map[string]Label, len(t.index)),
	}
	for k, v := range t.index {
		c.index[k] = v
	}
	return c
}
