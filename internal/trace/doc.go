// Package trace records what the optimizer did to a listing: one span per
// run, one per pass, and instant points for every loop the unroller looked
// at and every block value numbering changed.
//
//	ilocopt -v -u --trace=- --trace-level=loop loop.i
//
// Events go to a stream (written at once), to a ring buffer dumped when the
// command exits, or to both. The ring dump groups events by pass:
//
//	== unroll ==
//	[    12] → unroll
//	[    13]   • unroll.loop L1 {factor=4, reason=eligible}
//	[    14] ← unroll {loops=1, unrolled=1}
//
// Levels name the finest scope recorded: off, run, pass, loop, block.
//
// Passes receive their span directly and call Point on it; a nil span
// records nothing:
//
//	span := trace.Begin(t, trace.ScopePass, "vn", trace.SpanFrom(ctx))
//	defer span.End("")
//	span.Point(trace.ScopeBlock, "block", "L1", nil)
package trace
