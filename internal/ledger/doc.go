// Package ledger records annofuse command runs and the findings they produce
// in a local SQLite database.
//
// Every mutating or checking command opens a run, attaches findings as it
// goes, and closes the run with a status and a JSON summary. The history
// command reads the same tables back. The store retries on SQLITE_BUSY so two
// terminals can share one ledger.
package ledger
