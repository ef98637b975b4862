// Package artifact holds the vocabulary shared by the label pipeline: the
// item snapshot a label is printed for, the lookup URL its symbol encodes and
// the name the exported file is stored under.
//
// The pipeline itself lives in the subpackages:
//
//   - symbol encodes a lookup URL into a Code 128 raster
//   - asset resolves the brand mark asynchronously
//   - document composites banner, brand, fields and symbol into a PDF
//   - session sequences the three and holds at most one pending document
package artifact
