package planner

import (
	"fmt"
	"math"
)

const (
	maxKerf      = 1000
	maxPrecision = 3
)

// ValidateParams checks that params describe a usable stock segment.
func ValidateParams(params Params) error {
	if !(params.Limit > 0) || math.IsInf(params.Limit, 0) {
		return ErrInvalidLimit
	}
	if !(params.Kerf >= 0) || params.Kerf > maxKerf {
		return ErrInvalidKerf
	}
	if params.Precision < 0 || params.Precision > maxPrecision {
		return ErrInvalidPrecision
	}
	return nil
}

// Validate checks params and every piece. Pieces that are too long for the
// stock are not an error here; see OversizedPieces.
func Validate(pieces []RequiredPiece, params Params) error {
	if err := ValidateParams(params); err != nil {
		return err
	}
	for i, piece := range pieces {
		if !(piece.Length > 0) || math.IsInf(piece.Length, 0) {
			return fmt.Errorf("piece %d: length %v: %w", i, piece.Length, ErrInvalidPieces)
		}
		if piece.Quantity <= 0 {
			return fmt.Errorf("piece %d: quantity %d: %w", i, piece.Quantity, ErrInvalidPieces)
		}
	}
	return nil
}

// OversizedPieces returns the indices of pieces longer than limit minus kerf.
// Plan seats each unit of such a piece alone on a segment it overflows.
func OversizedPieces(pieces []RequiredPiece, params Params) []int {
	usable := params.Limit - params.Kerf
	var out []int
	for i, piece := range pieces {
		if piece.Length > usable {
			out = append(out, i)
		}
	}
	return out
}
