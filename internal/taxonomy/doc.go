// Package taxonomy rewrites and scopes the class labels held in an
// annotation store.
//
// Remapping renames classes through a declared mapping and drops what the
// mapping does not cover unless unmapped classes are kept. Eligibility
// predicates (typically a capture-date window) select which captures a
// change applies to, so callers can partition a store, rewrite one part, and
// recombine it without touching the rest.
package taxonomy
