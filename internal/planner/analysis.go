package planner

// GroupStats summarises how one stock segment is used.
type GroupStats struct {
	Units       int     `json:"units"`
	Payload     float64 `json:"payload"`
	KerfLoss    float64 `json:"kerfLoss"`
	Offcut      float64 `json:"offcut"`
	Utilization float64 `json:"utilization"`
	Oversized   bool    `json:"oversized"`
}

// Analysis aggregates the stock consumption and waste of a plan.
type Analysis struct {
	Groups          []GroupStats `json:"groups"`
	StockUsed       int          `json:"stockUsed"`
	TotalPayload    float64      `json:"totalPayload"`
	TotalKerf       float64      `json:"totalKerf"`
	TotalOffcut     float64      `json:"totalOffcut"`
	OversizedGroups []int        `json:"oversizedGroups,omitempty"`
}

// TotalWaste is the material bought but not delivered as pieces.
func (a Analysis) TotalWaste() float64 {
	return a.TotalKerf + a.TotalOffcut
}

// Analyze computes usage statistics for groups cut from stock of params.Limit.
// Groups exceeding the limit are flagged and report no offcut.
func Analyze(groups []Group, params Params) Analysis {
	analysis := Analysis{
		Groups:    make([]GroupStats, 0, len(groups)),
		StockUsed: len(groups),
	}

	for i, group := range groups {
		stats := GroupStats{
			Units:    len(group),
			Payload:  group.Sum(),
			KerfLoss: params.Kerf * float64(len(group)),
		}
		used := stats.Payload + stats.KerfLoss
		if used > params.Limit+capacityTolerance {
			stats.Oversized = true
			analysis.OversizedGroups = append(analysis.OversizedGroups, i)
		} else {
			stats.Offcut = max(params.Limit-used, 0)
		}
		if params.Limit > 0 {
			stats.Utilization = stats.Payload / params.Limit
		}

		analysis.Groups = append(analysis.Groups, stats)
		analysis.TotalPayload += stats.Payload
		analysis.TotalKerf += stats.KerfLoss
		analysis.TotalOffcut += stats.Offcut
	}

	return analysis
}

// capacityTolerance absorbs floating point noise when summing lengths.
const capacityTolerance = 1e-9
