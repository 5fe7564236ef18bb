package cutlist

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Parse reads a cut list, choosing the format from the file extension.
func Parse(name string, data []byte) (Document, error) {
	var (
		doc Document
		err error
	)

	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		doc, err = ParseJSON(data)
	case ".yaml", ".yml":
		doc, err = ParseYAML(data)
	case ".csv", ".tsv", ".txt":
		doc, err = ParseCSV(data)
	case ".xlsx", ".xlsm":
		doc, err = ParseXLSX(data)
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", name, err)
	}

	doc.Name = filepath.Base(name)
	return doc, nil
}
