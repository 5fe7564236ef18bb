package cutlist

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// columns maps column roles to their positions in a row; -1 means absent.
type columns struct {
	mark     int
	length   int
	quantity int
	notes    int
}

var headerAliases = map[string][]string{
	"mark":     {"mark", "label", "name", "part", "piece", "item", "id"},
	"length":   {"length", "len", "size", "l"},
	"quantity": {"quantity", "qty", "number", "count", "num", "pcs", "pieces", "amount"},
	"notes":    {"notes", "note", "comment", "comments", "description"},
}

// positional is used when the first row is not a header: mark, length, quantity, notes.
var positional = columns{mark: 0, length: 1, quantity: 2, notes: 3}

// ParseCSV parses a delimited table, sniffing the delimiter.
func ParseCSV(data []byte) (Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, fmt.Errorf("%w: file is empty", ErrInvalidCutList)
	}

	delimiter := detectDelimiter(data)
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return Document{}, fmt.Errorf("%w: read CSV: %v", ErrInvalidCutList, err)
	}
	return fromRows(records, "line")
}

// ParseXLSX parses the first sheet of an Excel workbook.
func ParseXLSX(data []byte) (Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("%w: open workbook: %v", ErrInvalidCutList, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Document{}, fmt.Errorf("%w: workbook has no sheets", ErrInvalidCutList)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Document{}, fmt.Errorf("%w: read sheet %q: %v", ErrInvalidCutList, sheets[0], err)
	}
	doc, err := fromRows(rows, "row")
	if err != nil {
		return Document{}, err
	}
	doc.Meta = map[string]any{"sheet": sheets[0]}
	return doc, nil
}

// detectDelimiter picks the delimiter that yields the most consistent column
// count with more than one column.
func detectDelimiter(data []byte) rune {
	best, bestScore := ',', 0
	for _, delim := range []rune{',', ';', '\t', '|'} {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) == 0 || len(records[0]) < 2 {
			continue
		}
		width := len(records[0])
		score := 0
		for _, row := range records {
			if len(row) == width {
				score++
			}
		}
		if weighted := score*10 + width; weighted > bestScore {
			best, bestScore = delim, weighted
		}
	}
	return best
}

func detectColumns(row []string) (columns, bool) {
	cols := columns{mark: -1, length: -1, quantity: -1, notes: -1}
	found := false
	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if name != alias {
					continue
				}
				found = true
				switch role {
				case "mark":
					if cols.mark == -1 {
						cols.mark = i
					}
				case "length":
					if cols.length == -1 {
						cols.length = i
					}
				case "quantity":
					if cols.quantity == -1 {
						cols.quantity = i
					}
				case "notes":
					if cols.notes == -1 {
						cols.notes = i
					}
				}
			}
		}
	}
	if !found {
		return positional, false
	}
	return cols, true
}

func fromRows(rows [][]string, rowPrefix string) (Document, error) {
	if len(rows) == 0 {
		return Document{}, fmt.Errorf("%w: no rows", ErrInvalidCutList)
	}

	var doc Document
	cols, header := detectColumns(rows[0])
	start := 0
	if header {
		start = 1
		var missing []string
		if cols.length == -1 {
			missing = append(missing, "length")
		}
		if cols.quantity == -1 {
			missing = append(missing, "quantity")
		}
		if len(missing) > 0 {
			return Document{}, fmt.Errorf("%w: header lacks %s", ErrInvalidCutList, strings.Join(missing, ", "))
		}
	} else if _, err := strconv.ParseFloat(cell(rows[0], cols.length), 64); err != nil {
		start = 1
		doc.Warnings = append(doc.Warnings, "unrecognised header row skipped")
	}

	var problems []string
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		label := fmt.Sprintf("%s %d", rowPrefix, i+1)

		length, err := strconv.ParseFloat(strings.ReplaceAll(cell(row, cols.length), ",", "."), 64)
		if err != nil || length <= 0 {
			problems = append(problems, fmt.Sprintf("%s: invalid length %q", label, cell(row, cols.length)))
			continue
		}
		qty, err := strconv.Atoi(cell(row, cols.quantity))
		if err != nil || qty <= 0 {
			problems = append(problems, fmt.Sprintf("%s: invalid quantity %q", label, cell(row, cols.quantity)))
			continue
		}

		doc.Pieces = append(doc.Pieces, Piece{
			Mark:     cell(row, cols.mark),
			Length:   length,
			Quantity: qty,
			Notes:    cell(row, cols.notes),
		})
	}

	if len(problems) > 0 {
		return Document{}, fmt.Errorf("%w: %s", ErrInvalidCutList, strings.Join(problems, "; "))
	}
	if len(doc.Pieces) == 0 {
		return Document{}, fmt.Errorf("%w: no pieces found", ErrInvalidCutList)
	}
	return doc, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
