package iloc

import (
	"errors"
	"fmt"
)

// Validate checks structural invariants of a parsed program.
// Returns error if any invariant is violated.
func Validate(p Program) error {
	if p.Labels == nil {
		return errors.New("program has no label table")
	}
	var errs []error

	// 1. Check labels are defined once
	if err := validateLabelDefs(p); err != nil {
		errs = append(errs, err)
	}

	// 2. Check branch targets name a label
	if err := validateTargets(p); err != nil {
		errs = append(errs, err)
	}

	// 3. Check opcodes are known
	for i, in := range p.Insts {
		if in.Op.Code >= numOpcodes {
			errs = append(errs, fmt.Errorf("line %d: unknown opcode %d", i, in.Op.Code))
		}
	}

	return errors.Join(errs...)
}

func validateLabelDefs(p Program) error {
	var errs []error
	first := make(map[Label]int)
	for i, in := range p.Insts {
		if !in.Labeled() {
			continue
		}
		if prev, ok := first[in.Label]; ok {
			errs = append(errs, fmt.Errorf("line %d: label %s already defined at line %d",
				i, p.Labels.Name(in.Label), prev))
			continue
		}
		first[in.Label] = i
	}
	return errors.Join(errs...)
}

func validateTargets(p Program) error {
	defined := LabelLines(p.Insts)
	var errs []error
	for i, in := range p.Insts {
		for _, t := range in.Op.Targets() {
			if t == NoLabel {
				errs = append(errs, fmt.Errorf("line %d: %s without target", i, in.Op.Code))
				continue
			}
			if _, ok := defined[t]; !ok {
				errs = append(errs, fmt.Errorf("line %d: %s to undefined label %s",
					i, in.Op.Code, p.Labels.Name(t)))
			}
		}
	}
	return errors.Join(errs...)
}
