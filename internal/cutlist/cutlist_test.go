package cutlist

import (
	"errors"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/eugenenazirov/kerf-planner/internal/planner"
)

const sampleJSON = `{
  "meta": {"title": "Frame A", "vendor": "Workshop"},
  "blueprints": [
    {"length": 5500, "edges": [0, 0], "milestones": {"468": [1, 1]}, "mark": 57, "number": 6, "notes": null},
    {"length": 1200.5, "mark": "B-2", "number": 2, "notes": "paint"}
  ]
}`

func TestParseJSON(t *testing.T) {
	t.Parallel()

	doc, err := ParseJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Piece{
		{Mark: "57", Length: 5500, Quantity: 6},
		{Mark: "B-2", Length: 1200.5, Quantity: 2, Notes: "paint"},
	}
	if !reflect.DeepEqual(doc.Pieces, want) {
		t.Fatalf("expected %v, got %v", want, doc.Pieces)
	}
	if doc.Meta["title"] != "Frame A" {
		t.Fatalf("expected meta title to be kept, got %v", doc.Meta)
	}

	required := doc.Required()
	if want := []planner.RequiredPiece{{Length: 5500, Quantity: 6}, {Length: 1200.5, Quantity: 2}}; !reflect.DeepEqual(required, want) {
		t.Fatalf("expected %v, got %v", want, required)
	}
}

func TestParseJSONRequiresSections(t *testing.T) {
	t.Parallel()

	for _, body := range []string{
		`{"blueprints": []}`,
		`{"meta": {}}`,
		`{"meta": null, "blueprints": []}`,
	} {
		if _, err := ParseJSON([]byte(body)); !errors.Is(err, ErrMissingSections) {
			t.Fatalf("expected ErrMissingSections for %s, got %v", body, err)
		}
	}
}

func TestParseJSONRejectsInvalidBlueprints(t *testing.T) {
	t.Parallel()

	body := `{"meta": {}, "blueprints": [{"length": 0, "number": 1}, {"length": 10, "number": -2}]}`
	if _, err := ParseJSON([]byte(body)); !errors.Is(err, ErrInvalidCutList) {
		t.Fatalf("expected ErrInvalidCutList, got %v", err)
	}
	if _, err := ParseJSON([]byte("{")); !errors.Is(err, ErrInvalidCutList) {
		t.Fatalf("expected ErrInvalidCutList for malformed JSON, got %v", err)
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()

	body := `
meta:
  title: Shelf
blueprints:
  - length: 800
    number: 4
    mark: S1
  - length: 350.5
    number: 8
`
	doc, err := ParseYAML([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Piece{
		{Mark: "S1", Length: 800, Quantity: 4},
		{Length: 350.5, Quantity: 8},
	}
	if !reflect.DeepEqual(doc.Pieces, want) {
		t.Fatalf("expected %v, got %v", want, doc.Pieces)
	}
}

func TestParseCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want []Piece
	}{
		{
			name: "CommaWithHeader",
			data: "Mark,Length,Qty\nA,1200,2\nB,450.5,4\n",
			want: []Piece{{Mark: "A", Length: 1200, Quantity: 2}, {Mark: "B", Length: 450.5, Quantity: 4}},
		},
		{
			name: "SemicolonReorderedHeader",
			data: "Qty;Notes;Length\n3;top rail;990,5\n",
			want: []Piece{{Length: 990.5, Quantity: 3, Notes: "top rail"}},
		},
		{
			name: "PositionalWithoutHeader",
			data: "P1\t300\t5\nP2\t200\t1\n",
			want: []Piece{{Mark: "P1", Length: 300, Quantity: 5}, {Mark: "P2", Length: 200, Quantity: 1}},
		},
		{
			name: "BlankRowsSkipped",
			data: "mark|length|count\n\n|\nX|10|1\n",
			want: []Piece{{Mark: "X", Length: 10, Quantity: 1}},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			doc, err := ParseCSV([]byte(tc.data))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(doc.Pieces, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, doc.Pieces)
			}
		})
	}
}

func TestParseCSVErrors(t *testing.T) {
	t.Parallel()

	for _, data := range []string{
		"",
		"Mark,Length\nA,10\n",
		"Mark,Length,Qty\nA,abc,1\n",
		"Mark,Length,Qty\nA,10,0\n",
		"Mark,Length,Qty\n",
	} {
		if _, err := ParseCSV([]byte(data)); !errors.Is(err, ErrInvalidCutList) {
			t.Fatalf("expected ErrInvalidCutList for %q, got %v", data, err)
		}
	}
}

func TestParseXLSX(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"Label", "Length", "Quantity"},
		{"Door", 2000, 2},
		{"Shelf", 600.5, 5},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cellName, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	doc, err := ParseXLSX(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Piece{{Mark: "Door", Length: 2000, Quantity: 2}, {Mark: "Shelf", Length: 600.5, Quantity: 5}}
	if !reflect.DeepEqual(doc.Pieces, want) {
		t.Fatalf("expected %v, got %v", want, doc.Pieces)
	}
	if doc.Meta["sheet"] != "Sheet1" {
		t.Fatalf("expected sheet name in meta, got %v", doc.Meta)
	}
}

func TestParseDispatchesOnExtension(t *testing.T) {
	t.Parallel()

	doc, err := Parse("uploads/frame.JSON", []byte(sampleJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Name != "frame.JSON" {
		t.Fatalf("expected base name, got %q", doc.Name)
	}
	if marks := doc.Marks(); !reflect.DeepEqual(marks, []string{"57", "B-2"}) {
		t.Fatalf("unexpected marks %v", marks)
	}

	if _, err := Parse("list.csv", []byte("a,1,2\n")); err != nil {
		t.Fatalf("unexpected CSV error: %v", err)
	}
	if _, err := Parse("drawing.dxf", nil); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := Parse("broken.yaml", []byte("meta: {}\n")); !errors.Is(err, ErrMissingSections) {
		t.Fatalf("expected ErrMissingSections, got %v", err)
	}
}
