// Package diag defines the diagnostic model shared by the ILOC front-end and
// the CFG builder.
//
// Producers emit through a Reporter (usually a BagReporter wrapped in a
// DedupReporter) so they never depend on storage or formatting. A Bag keeps
// at most its limit of entries but still counts what it dropped, which is what
// the driver needs for the "Parse stopped with N error(s)." summary.
//
// FormatShort renders diagnostics one per line in a stable order, for the CLI
// and for golden comparisons in tests.
package diag
