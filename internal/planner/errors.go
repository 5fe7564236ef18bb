package planner

import "errors"

var (
	// ErrInvalidLimit is returned when the stock length is not a positive number.
	ErrInvalidLimit = errors.New("stock length must be a positive number")
	// ErrInvalidKerf is returned when the kerf is negative or unrealistically wide.
	ErrInvalidKerf = errors.New("kerf must be between 0 and 1000")
	// ErrInvalidPrecision is returned when the precision is outside the supported range.
	ErrInvalidPrecision = errors.New("precision must be between 0 and 3 decimal digits")
	// ErrInvalidPieces is returned when a piece has a non-positive length or quantity.
	ErrInvalidPieces = errors.New("pieces must have a positive length and quantity")
	// ErrOversizedPiece is returned when a piece cannot fit on one stock segment.
	ErrOversizedPiece = errors.New("piece is longer than the usable stock length")
)
