// Package annotation models the identity and content of dataset labels.
//
// A Key ties together images, label files, and raw sensor frames that live in
// independently organised directory trees: the capture id and channel come
// from fixed path positions and the frame index from the filename. A Store
// maps keys to axis-aligned boxes and is the unit every other engine package
// (fusion, taxonomy, inventory) consumes and produces.
//
// Stores are built once per directory scan and treated as read-only values by
// the engine: operations return new stores rather than mutating their inputs.
package annotation
