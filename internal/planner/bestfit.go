package planner

import "math"

// BestFit looks for the longest unit in pool that fits target when lengths
// are quantised to precision decimal digits. It probes target, then target
// minus one step of 10^-precision, and so on, returning the position of the
// first unit (in pool order) whose quantised length equals the quantised
// probe. Once a probe at or below zero has been checked the search gives up.
//
// Lengths that only match between grid steps are never found; the step size,
// and therefore the cost of a miss, is controlled by precision.
func BestFit(pool Pool, target float64, precision int) (int, bool) {
	if len(pool) == 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		return -1, false
	}
	if precision < 0 {
		precision = 0
	}
	scale := math.Pow10(precision)
	step := 1 / scale

	first := make(map[int64]int, len(pool))
	lowest, highest := int64(math.MaxInt64), int64(math.MinInt64)
	for i, item := range pool {
		q := quantize(item.Length, scale)
		if _, ok := first[q]; !ok {
			first[q] = i
		}
		lowest = min(lowest, q)
		highest = max(highest, q)
	}

	// Probes above the longest unit cannot match.
	k := 0
	if gap := math.Floor(target*scale-float64(highest)) - 1; gap > 0 {
		k = int(gap)
	}

	for ; ; k++ {
		probe := target - float64(k)*step
		q := quantize(probe, scale)
		if i, ok := first[q]; ok {
			return i, true
		}
		if probe <= 0 || q < lowest {
			return -1, false
		}
	}
}

func quantize(v, scale float64) int64 {
	return int64(math.Round(v * scale))
}
