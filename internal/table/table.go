// Package table reads and writes the row tables consumed by the assigner.
package table

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadOptions controls how a table file is decoded.
type ReadOptions struct {
	// Delimiter for delimited text. If 0, '\t' for .tsv and ',' otherwise.
	Delimiter rune
	// SheetName selects an XLSX sheet by name (case-insensitive).
	SheetName string
	// SheetIndex is the 1-based XLSX sheet used when SheetName is empty.
	SheetIndex int
}

// Reader decodes one file format into rows.
type Reader interface {
	CanRead(filename string) bool
	Read(path string, opt ReadOptions) ([][]string, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// ErrUnsupported indicates no registered reader handles the file extension.
var ErrUnsupported = errors.New("unsupported table format")

// Read selects a reader based on filename and returns all rows of the file.
func Read(path string, opt ReadOptions) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}
	for _, r := range registry {
		if r.CanRead(path) {
			return r.Read(path, opt)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

// ParseDelimiter converts a flag or config value to a delimiter rune.
// The empty string means auto.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case ",", "comma":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";", "semicolon":
		return ';', nil
	default:
		return 0, fmt.Errorf("unsupported delimiter: %q (use ',' | ';' | 'tab')", s)
	}
}

func init() {
	Register(delimitedReader{})
	Register(xlsxReader{})
}
