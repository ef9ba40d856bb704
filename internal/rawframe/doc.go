// Package rawframe decodes, validates, denoises and previews ternary event
// frames.
//
// A raw frame is a headerless row-major byte stream, one byte per pixel,
// whose values are 0 (background) and the two event polarities 1 and 2. The
// dimensions are known out of band. Denoising filters each class as its own
// binary plane so the output never leaves {0,1,2} and sparse classes are not
// absorbed into the background by an ordinal median.
package rawframe
