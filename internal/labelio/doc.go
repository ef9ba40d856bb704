// Package labelio reads and writes the two label file formats found in the
// datasets: YOLO text files of normalized five-field lines and Pascal VOC XML
// documents. Readers turn files into annotation records so malformed entries
// surface as per-record format errors instead of aborting a batch.
package labelio
