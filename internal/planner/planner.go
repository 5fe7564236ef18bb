package planner

// greedyPlanner seats the longest remaining unit on a fresh stock segment and
// keeps adding the best fitting unit until nothing else fits.
type greedyPlanner struct{}

// New creates a Planner based on first-fit-decreasing grouping.
func New() Planner {
	return &greedyPlanner{}
}

// Plan partitions the expanded pieces into groups in closing order. It never
// fails: a piece longer than the usable stock length ends up alone in a group
// that exceeds the limit, and callers are expected to validate beforehand.
//
// The best-fit target is the headroom minus one kerf, reserving the cut of
// the candidate itself. With kerf > 0 the groups therefore differ from a
// search against the bare headroom, which can seat a piece whose cut
// overflows the stock by up to one kerf.
func (p *greedyPlanner) Plan(pieces []RequiredPiece, params Params) []Group {
	pool := Expand(pieces)
	results := make([]Group, 0)
	var current Group

	for len(pool) > 0 {
		if len(current) == 0 {
			current = append(current, pool[0])
			pool.Remove(0)
		} else {
			headroom := params.Limit - params.Kerf*float64(len(current)) - current.Sum()
			closed := true
			if headroom > 0 {
				// The candidate needs its own cut as well.
				if i, ok := BestFit(pool, headroom-params.Kerf, params.Precision); ok {
					current = append(current, pool[i])
					pool.Remove(i)
					closed = false
				}
			}
			if closed {
				results = append(results, current)
				current = nil
			}
		}

		if len(pool) == 0 && len(current) > 0 {
			results = append(results, current)
		}
	}

	return results
}
