package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type delimitedReader struct{}

func (delimitedReader) CanRead(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

func (delimitedReader) Read(path string, opt ReadOptions) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = delimiterFor(path)
	}
	return ReadDelimited(f, delim)
}

// ReadDelimited decodes delimited text. A leading UTF-8 byte order mark is
// dropped; Geotek exports and spreadsheet "CSV UTF-8" saves both carry one.
func ReadDelimited(r io.Reader, delim rune) ([][]string, error) {
	if delim == 0 {
		delim = ','
	}
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1
	// encoding/csv trims any Unicode space, which would swallow empty
	// tab-separated fields.
	cr.TrimLeadingSpace = delim != '\t'
	cr.Comma = delim

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows), err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func delimiterFor(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// WriteOptions controls CSV encoding of output tables.
type WriteOptions struct {
	Delimiter rune
	// BOM prefixes the output with a UTF-8 byte order mark so spreadsheet
	// software opens it as UTF-8.
	BOM bool
}

// Encode renders rows as delimited text.
func Encode(rows [][]string, opt WriteOptions) ([]byte, error) {
	var buf bytes.Buffer
	var w io.Writer = &buf
	if opt.BOM {
		w = unicode.UTF8BOM.NewEncoder().Writer(&buf)
	}
	cw := csv.NewWriter(w)
	if opt.Delimiter != 0 {
		cw.Comma = opt.Delimiter
	}
	if err := cw.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	if c, ok := w.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return nil, fmt.Errorf("encode csv: %w", err)
		}
	}
	return buf.Bytes(), nil
}
