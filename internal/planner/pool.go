package planner

import (
	"slices"
	"sort"
)

// Pool is the working collection of units not yet assigned to a group.
// A pool belongs to a single planning call.
type Pool []PoolItem

// Expand turns quantity-bearing pieces into a pool of single units sorted by
// length, longest first. Units of equal length keep their expansion order,
// i.e. ascending source index and then unit order.
func Expand(pieces []RequiredPiece) Pool {
	total := 0
	for _, piece := range pieces {
		if piece.Quantity > 0 {
			total += piece.Quantity
		}
	}

	pool := make(Pool, 0, total)
	for i, piece := range pieces {
		for n := 0; n < piece.Quantity; n++ {
			pool = append(pool, PoolItem{SourceIndex: i, Length: piece.Length})
		}
	}

	sort.SliceStable(pool, func(a, b int) bool {
		return pool[a].Length > pool[b].Length
	})
	return pool
}

// Remove deletes the unit at index i. Out-of-range indices are ignored.
func (p *Pool) Remove(i int) {
	if i < 0 || i >= len(*p) {
		return
	}
	*p = slices.Delete(*p, i, i+1)
}
