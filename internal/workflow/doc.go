// Package workflow joins the filesystem, the label parsers and the core
// algorithms into batch operations: merge, broadcast, remap, rename,
// keep-classes, overlay, raw frame checks and denoising, continuity and
// capture integrity checks.
//
// A Runner wraps each operation with the run ledger, a per-run debug log,
// an exclusive lock on the output directory and input preflight checks.
// Operations report per-file problems as findings on their Job and keep
// going; only conditions that make the whole batch meaningless return an
// error. Operations can also be called directly with NewJob, which is how
// the tests drive them.
package workflow
