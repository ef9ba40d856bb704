// Package services defines shared utilities consumed by the engine packages
// and the batch drivers.
//
// Key responsibilities:
//   - Error markers (structural, format, size mismatch, empty input, ...) and
//     the Wrap helper that tags failures so callers can classify them with
//     errors.Is regardless of which package produced them.
//   - Context helpers that stamp run identifiers, command names, and capture
//     ids for logging.
//
// Use these helpers when wiring new batch logic so failure reporting stays
// uniform across commands and the run ledger.
package services
