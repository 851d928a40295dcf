package main

import (
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"ilocopt/internal/pipeline"
)

// passList collects pass flags in the order they appear on the command line.
type passList struct {
	passes []pipeline.Pass
}

var passUsage = map[pipeline.Pass]string{
	pipeline.PassVN:     "value numbering",
	pipeline.PassUnroll: "loop unrolling",
	pipeline.PassMotion: "loop-invariant code motion",
}

func (l *passList) register(fs *pflag.FlagSet) {
	for _, p := range []pipeline.Pass{pipeline.PassVN, pipeline.PassUnroll, pipeline.PassMotion} {
		f := fs.VarPF(&passFlag{list: l, pass: p}, p.String(), strings.TrimPrefix(p.Flag(), "-"), passUsage[p])
		f.NoOptDefVal = "true"
	}
}

// passFlag is a boolean flag that appends its pass to the shared list every
// time it is set, so repeats are kept and caught by pipeline.Validate.
type passFlag struct {
	list *passList
	pass pipeline.Pass
	set  bool
}

func (f *passFlag) String() string { return strconv.FormatBool(f.set) }

func (f *passFlag) Type() string { return "bool" }

func (f *passFlag) Set(value string) error {
	on, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	if on {
		f.list.passes = append(f.list.passes, f.pass)
	}
	f.set = on
	return nil
}
