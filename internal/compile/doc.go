// Package compile runs the document-to-PDF pipeline.
//
// A Pipeline owns one compilation: it validates the target, resolves the TeX
// engine from magic comments and configuration, weaves literate documents,
// compiles, and on failure turns the engine and BibTeX logs into
// "<file> (line N): message" diagnostics. Progress and diagnostics are written
// to an OutputSink; the returned Outcome carries the same result for callers
// that need it programmatically.
//
// Service builds pipelines from configuration and adds what a host needs around
// them: batch compiles, a per-target guard, history and metrics.
package compile
