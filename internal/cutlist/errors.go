package cutlist

import "errors"

var (
	// ErrUnsupportedFormat is returned for files that are not JSON, YAML, CSV or XLSX.
	ErrUnsupportedFormat = errors.New("unsupported cut list format")
	// ErrMissingSections is returned when a document lacks "meta" or "blueprints".
	ErrMissingSections = errors.New("cut list document must contain meta and blueprints")
	// ErrInvalidCutList is returned when the content cannot be turned into pieces.
	ErrInvalidCutList = errors.New("invalid cut list")
)
