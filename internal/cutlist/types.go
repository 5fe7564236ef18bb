package cutlist

import "github.com/eugenenazirov/kerf-planner/internal/planner"

// Piece is one distinct output length of a cut list.
type Piece struct {
	Mark     string  `json:"mark,omitempty"`
	Length   float64 `json:"length"`
	Quantity int     `json:"quantity"`
	Notes    string  `json:"notes,omitempty"`
}

// Document is a parsed cut list.
type Document struct {
	Name     string         `json:"name,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
	Pieces   []Piece        `json:"pieces"`
	Warnings []string       `json:"warnings,omitempty"`
}

// Required converts the pieces to planner input, keeping their order so a
// PoolItem's SourceIndex points back into Pieces.
func (d Document) Required() []planner.RequiredPiece {
	out := make([]planner.RequiredPiece, len(d.Pieces))
	for i, p := range d.Pieces {
		out[i] = planner.RequiredPiece{Length: p.Length, Quantity: p.Quantity}
	}
	return out
}

// Marks returns the mark of every piece, indexed like Pieces.
func (d Document) Marks() []string {
	out := make([]string, len(d.Pieces))
	for i, p := range d.Pieces {
		out[i] = p.Mark
	}
	return out
}
