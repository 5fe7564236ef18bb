package cutlist

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// blueprint is one entry of the "blueprints" section. Edges, milestones and
// other drawing hints are accepted but not needed for planning.
type blueprint struct {
	Length float64 `json:"length" yaml:"length"`
	Number int     `json:"number" yaml:"number"`
	Mark   any     `json:"mark" yaml:"mark"`
	Notes  any     `json:"notes" yaml:"notes"`
}

type rawDocument struct {
	Meta       *map[string]any `json:"meta" yaml:"meta"`
	Blueprints *[]blueprint    `json:"blueprints" yaml:"blueprints"`
}

// ParseJSON parses a JSON cut list document.
func ParseJSON(data []byte) (Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("%w: parse JSON: %v", ErrInvalidCutList, err)
	}
	return raw.document()
}

// ParseYAML parses a YAML cut list document with the same shape as JSON.
func ParseYAML(data []byte) (Document, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("%w: parse YAML: %v", ErrInvalidCutList, err)
	}
	return raw.document()
}

func (r rawDocument) document() (Document, error) {
	if r.Meta == nil || r.Blueprints == nil {
		return Document{}, ErrMissingSections
	}

	doc := Document{
		Meta:   *r.Meta,
		Pieces: make([]Piece, 0, len(*r.Blueprints)),
	}

	var problems []string
	for i, bp := range *r.Blueprints {
		if bp.Length <= 0 || bp.Number <= 0 {
			problems = append(problems, fmt.Sprintf("blueprint %d: length and number must be positive", i+1))
			continue
		}
		doc.Pieces = append(doc.Pieces, Piece{
			Mark:     scalarString(bp.Mark),
			Length:   bp.Length,
			Quantity: bp.Number,
			Notes:    scalarString(bp.Notes),
		})
	}
	if len(problems) > 0 {
		return Document{}, fmt.Errorf("%w: %s", ErrInvalidCutList, strings.Join(problems, "; "))
	}
	return doc, nil
}

func scalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprint(val)
	}
}
