// Package fusion combines annotation stores from different sources.
//
// The primary store is authoritative: its boxes are never removed or
// rewritten. Boxes from the secondary source are appended unless they
// duplicate a box already present for the same key, where duplicate means an
// IOU strictly greater than the configured threshold or an identical box.
// Keys are processed in sorted order so the output is deterministic.
package fusion
