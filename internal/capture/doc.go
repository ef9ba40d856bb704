// Package capture inspects capture directories on disk: the expected
// frame-camera and event-camera layout, frame continuity of each stream,
// leftover device files, capture-id set differences between trees, and
// duplicate label files left behind by copy tools.
package capture
