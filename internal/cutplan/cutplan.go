// Package cutplan assembles planner output into the cut plan document that is
// stored, served over the API and rendered for printing.
package cutplan

import (
	"time"

	"github.com/google/uuid"

	"github.com/eugenenazirov/kerf-planner/internal/cutlist"
	"github.com/eugenenazirov/kerf-planner/internal/planner"
)

// Cut is one piece seated on a stock segment.
type Cut struct {
	SourceIndex int     `json:"sourceIndex"`
	Mark        string  `json:"mark,omitempty"`
	Length      float64 `json:"length"`
}

// Segment is one stock segment and the cuts taken from it.
type Segment struct {
	Cuts  []Cut              `json:"cuts"`
	Stats planner.GroupStats `json:"stats"`
}

// Summary holds the plan-wide consumption figures.
type Summary struct {
	StockUsed         int     `json:"stockUsed"`
	TotalPayload      float64 `json:"totalPayload"`
	TotalKerf         float64 `json:"totalKerf"`
	TotalOffcut       float64 `json:"totalOffcut"`
	TotalWaste        float64 `json:"totalWaste"`
	OversizedSegments []int   `json:"oversizedSegments,omitempty"`
}

// Plan is a complete cutting plan for one cut list.
type Plan struct {
	ID        string          `json:"id"`
	Name      string          `json:"name,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	Params    planner.Params  `json:"params"`
	Pieces    []cutlist.Piece `json:"pieces"`
	Segments  []Segment       `json:"segments"`
	Summary   Summary         `json:"summary"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// New builds a Plan from the groups produced for pieces. Marks are resolved
// through each unit's source index.
func New(name string, pieces []cutlist.Piece, params planner.Params, groups []planner.Group, createdAt time.Time) Plan {
	analysis := planner.Analyze(groups, params)

	segments := make([]Segment, len(groups))
	for i, group := range groups {
		cuts := make([]Cut, len(group))
		for j, item := range group {
			cuts[j] = Cut{SourceIndex: item.SourceIndex, Length: item.Length}
			if item.SourceIndex >= 0 && item.SourceIndex < len(pieces) {
				cuts[j].Mark = pieces[item.SourceIndex].Mark
			}
		}
		segments[i] = Segment{Cuts: cuts, Stats: analysis.Groups[i]}
	}

	return Plan{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: createdAt,
		Params:    params,
		Pieces:    pieces,
		Segments:  segments,
		Summary: Summary{
			StockUsed:         analysis.StockUsed,
			TotalPayload:      analysis.TotalPayload,
			TotalKerf:         analysis.TotalKerf,
			TotalOffcut:       analysis.TotalOffcut,
			TotalWaste:        analysis.TotalWaste(),
			OversizedSegments: analysis.OversizedGroups,
		},
	}
}

// Groups converts the segments back into planner groups.
func (p Plan) Groups() []planner.Group {
	out := make([]planner.Group, len(p.Segments))
	for i, seg := range p.Segments {
		group := make(planner.Group, len(seg.Cuts))
		for j, cut := range seg.Cuts {
			group[j] = planner.PoolItem{SourceIndex: cut.SourceIndex, Length: cut.Length}
		}
		out[i] = group
	}
	return out
}
