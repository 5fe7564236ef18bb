// Package planner plans how to cut required pieces from stock segments of a
// fixed length. Pieces are expanded into single units, sorted longest first,
// and grouped greedily: each segment is seeded with the longest remaining unit
// and then filled with the longest unit that still fits after accounting for
// the kerf of every seated unit.
//
// The result is a heuristic packing, not an optimal one.
package planner
