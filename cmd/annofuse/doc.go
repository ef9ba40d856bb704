// Package main hosts the annofuse CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into batch runs over a
// dataset: label merges and relabelling, detector overlays, raw event-frame
// checks and denoising, frame continuity and capture integrity checks, and
// dataset inventories. Batch commands go through workflow.Runner so every run
// is locked, logged and recorded in the ledger; this package only parses
// flags, resolves defaults from the configuration and renders results.
//
// Add new behaviour to the internal packages first and surface it here.
package main
