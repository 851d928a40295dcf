package emit

import (
	"fmt"
	"io"
	"strings"

	"ilocopt/internal/cfg"
	"ilocopt/internal/graph"
	"ilocopt/internal/iloc"
)

// DumpOptions configures Graph.
type DumpOptions struct {
	// Code prints each block's instructions under its header.
	Code bool
}

// Graph writes a human-readable view of the blocks of prog, the labeled graph
// and the loops found in it.
func Graph(w io.Writer, prog iloc.Program, c *cfg.CFG, g *graph.Graph, loops []graph.Loop, opts DumpOptions) error {
	if w == nil || c == nil || g == nil {
		return nil
	}
	names := graph.BlockLabels(prog, c)

	if _, err := fmt.Fprintf(w, "blocks=%d edges=%d\n", c.NumBlocks(), g.NumEdges()); err != nil {
		return err
	}
	for i, b := range c.Blocks() {
		succ := make([]string, 0, len(g.Succs(names[i])))
		for _, s := range g.Succs(names[i]) {
			succ = append(succ, g.Name(s))
		}
		if _, err := fmt.Fprintf(w, "  B%d %s [%d..%d] -> %s\n",
			i, g.Name(names[i]), b.Leader, b.Trailer, strings.Join(succ, ", ")); err != nil {
			return err
		}
		if !opts.Code {
			continue
		}
		for line := b.Leader; line <= b.Trailer; line++ {
			if _, err := fmt.Fprintf(w, "    %4d %s\n", line, Instruction(prog.Insts[line], prog.Labels)); err != nil {
				return err
			}
		}
	}

	if _, err := fmt.Fprintf(w, "loops=%d\n", len(loops)); err != nil {
		return err
	}
	rev := g.Reverse()
	for _, l := range loops {
		body := graph.LoopBody(rev, l.Head, l.Tail)
		parts := make([]string, len(body))
		for i, v := range body {
			parts[i] = g.Name(v)
		}
		if _, err := fmt.Fprintf(w, "  parent=%s head=%s tail=%s body={%s}\n",
			g.Name(l.Parent), g.Name(l.Head), g.Name(l.Tail), strings.Join(parts, ", ")); err != nil {
			return err
		}
	}
	return nil
}
