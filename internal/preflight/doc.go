// Package preflight provides readiness checks for the filesystem paths and
// local state annofuse depends on.
//
// The doctor command runs RunAll and prints every result. Batch workflows
// run the directory checks for the trees they are about to read or write
// and refuse to start when one fails.
package preflight
