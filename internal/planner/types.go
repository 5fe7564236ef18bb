package planner

// DefaultPrecision is the number of decimal digits used for best-fit matching
// when the caller does not choose one.
const DefaultPrecision = 1

// RequiredPiece describes one distinct output length and how many units of it
// are needed.
type RequiredPiece struct {
	Length   float64 `json:"length" yaml:"length"`
	Quantity int     `json:"quantity" yaml:"quantity"`
}

// PoolItem is one physical unit expanded from a RequiredPiece. SourceIndex is
// the position of that piece in the caller's input and is not unique.
type PoolItem struct {
	SourceIndex int     `json:"sourceIndex"`
	Length      float64 `json:"length"`
}

// Group is a cut-plan: the units assigned to one stock segment, in the order
// they were seated.
type Group []PoolItem

// Sum returns the combined length of the units in the group.
func (g Group) Sum() float64 {
	if len(g) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range g {
		total += item.Length
	}
	return total
}

// Params holds the stock and cutting parameters for a planning run.
type Params struct {
	// Limit is the length of one stock segment.
	Limit float64 `json:"stockLength" yaml:"stock_length"`
	// Kerf is the material consumed by the saw for every seated unit.
	Kerf float64 `json:"kerf" yaml:"kerf"`
	// Precision is the number of decimal digits used by BestFit.
	Precision int `json:"precision" yaml:"precision"`
}

// DefaultParams returns the parameters used when nothing else is configured.
func DefaultParams() Params {
	return Params{
		Limit:     6000,
		Kerf:      0,
		Precision: DefaultPrecision,
	}
}

// Planner partitions required pieces into cut-plans.
type Planner interface {
	Plan(pieces []RequiredPiece, params Params) []Group
}
