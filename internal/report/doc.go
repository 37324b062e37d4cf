// Package report decodes the JSON document printed by the grammar
// analyzer.
//
// The analyzer prints one object per paragraph, either as a bare array or
// wrapped as {"data": [...]}. Each paragraph carries a grammar finding
// array and a spelling finding array. Decoding is lenient at the finding
// level: a finding missing its position fields is still returned, marked
// incomplete, so callers can skip it and keep the rest of the batch.
// Structural problems above the finding level fail the whole document.
package report
