package table

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrWorkbook marks an XLSX file whose parts cannot be decoded.
var ErrWorkbook = errors.New("malformed workbook")

type xlsxReader struct{}

func (xlsxReader) CanRead(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Read extracts every row of the selected sheet. If SheetName is empty and
// SheetIndex <= 0, the first sheet is used.
func (xlsxReader) Read(p string, opt ReadOptions) ([][]string, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	rows, err := ReadXLSX(b, opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
	}
	return rows, nil
}

// Parts of a SpreadsheetML package, decoded with encoding/xml. Element names
// carry no namespace so both prefixed and default-namespace files decode.
type (
	workbookPart struct {
		Sheets []struct {
			Name string `xml:"name,attr"`
			RID  string `xml:"id,attr"`
		} `xml:"sheets>sheet"`
	}
	relsPart struct {
		Rels []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	sharedPart struct {
		Items []richText `xml:"si"`
	}
	sheetPart struct {
		Rows []struct {
			Cells []cell `xml:"c"`
		} `xml:"sheetData>row"`
	}
)

// richText is a plain <t> or a list of formatted <r><t> runs.
type richText struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (r richText) String() string {
	if len(r.Runs) == 0 {
		return r.T
	}
	var b strings.Builder
	b.WriteString(r.T)
	for _, run := range r.Runs {
		b.WriteString(run.T)
	}
	return b.String()
}

type cell struct {
	Ref    string    `xml:"r,attr"`
	Type   string    `xml:"t,attr"`
	Value  string    `xml:"v"`
	Inline *richText `xml:"is"`
}

func (c cell) text(shared []string) (string, error) {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || i < 0 || i >= len(shared) {
			return "", fmt.Errorf("%w: cell %s refers to shared string %q of %d", ErrWorkbook, c.Ref, c.Value, len(shared))
		}
		return shared[i], nil
	case "inlineStr":
		if c.Inline == nil {
			return "", nil
		}
		return c.Inline.String(), nil
	}
	return c.Value, nil
}

// ReadXLSX decodes the rows of one worksheet from workbook bytes. Cells are
// placed by their column reference; empty cells at the end of a row are
// dropped, as a spreadsheet's CSV export does.
func ReadXLSX(b []byte, sheetName string, sheetIndex int) ([][]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	target, err := sheetTarget(zr, sheetName, sheetIndex)
	if err != nil {
		return nil, err
	}

	var sst sharedPart
	if err := decodeOptionalPart(zr, "xl/sharedStrings.xml", &sst); err != nil {
		return nil, err
	}
	shared := make([]string, len(sst.Items))
	for i, si := range sst.Items {
		shared[i] = si.String()
	}

	var sheet sheetPart
	if err := decodePart(zr, target, &sheet); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: worksheet %s not found", ErrWorkbook, target)
		}
		return nil, err
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for n, r := range sheet.Rows {
		var row []string
		for _, c := range r.Cells {
			v, err := c.text(shared)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", n, err)
			}
			col := colIndexFromRef(c.Ref)
			if col < 0 {
				col = len(row)
			}
			for len(row) <= col {
				row = append(row, "")
			}
			row[col] = v
		}
		for len(row) > 0 && row[len(row)-1] == "" {
			row = row[:len(row)-1]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// sheetTarget resolves the ZIP entry of the requested worksheet. A name is
// matched case-insensitively; an index counts sheets in workbook order from 1.
// Packages without workbook relationships fall back to xl/worksheets/sheetN.xml.
func sheetTarget(fsys fs.FS, name string, index int) (string, error) {
	var wb workbookPart
	if err := decodeOptionalPart(fsys, "xl/workbook.xml", &wb); err != nil {
		return "", err
	}
	var rels relsPart
	if err := decodeOptionalPart(fsys, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return "", err
	}
	targets := make(map[string]string, len(rels.Rels))
	for _, r := range rels.Rels {
		targets[r.ID] = normalizeRelPath(r.Target)
	}

	if name != "" {
		names := make([]string, 0, len(wb.Sheets))
		for _, s := range wb.Sheets {
			if strings.EqualFold(s.Name, name) {
				if t, ok := targets[s.RID]; ok {
					return t, nil
				}
				return "", fmt.Errorf("%w: sheet '%s' has no worksheet relationship", ErrWorkbook, s.Name)
			}
			names = append(names, s.Name)
		}
		return "", fmt.Errorf("sheet '%s' not found (available sheets: %s)", name, strings.Join(names, ", "))
	}

	if index <= 0 {
		index = 1
	}
	if index <= len(wb.Sheets) {
		if t, ok := targets[wb.Sheets[index-1].RID]; ok {
			return t, nil
		}
	}
	return path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", index)), nil
}

// decodePart unmarshals one XML part of the package. A missing part returns an
// error wrapping fs.ErrNotExist.
func decodePart(fsys fs.FS, name string, v any) error {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWorkbook, name, err)
	}
	return nil
}

func decodeOptionalPart(fsys fs.FS, name string, v any) error {
	if err := decodePart(fsys, name, v); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// colIndexFromRef maps refs like "C12" to 2 (0-based). It returns -1 when the
// ref carries no column letters.
func colIndexFromRef(ref string) int {
	col := 0
	for _, ch := range strings.ToUpper(ref) {
		if ch < 'A' || ch > 'Z' {
			break
		}
		col = col*26 + int(ch-'A') + 1
	}
	return col - 1
}

// normalizeRelPath converts relationship Target paths to ZIP entry names.
// Targets may carry a leading slash ("/xl/worksheets/sheet1.xml"); ZIP entries
// never do.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
