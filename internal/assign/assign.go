// Package assign applies a core list to an MSCL data table.
//
// Apply works on decoded tables in memory. Run adds the file edge: reading the
// inputs, writing the matched and unmatched outputs, and summarizing the run.
package assign

import (
	"errors"
	"strconv"
	"strings"

	"github.com/laccore/coreid/internal/match"
	"github.com/laccore/coreid/internal/section"
)

// KeyColumn is the header of the composite key column in unmatched output.
const KeyColumn = "Part_Section"

// Options says where the interesting rows and columns are. Row and column
// indexes are 0-based.
type Options struct {
	// SectionColumn and DepthColumn are explicit column indexes; -1 locates
	// the column by header name.
	SectionColumn int
	DepthColumn   int
	SectionNames  []string
	DepthNames    []string
	// HeaderRow and UnitsRow are passed through to the output; -1 means the
	// table has no such row.
	HeaderRow int
	UnitsRow  int
	StartRow  int
}

// DefaultOptions matches the layout of Geotek MSCL exports.
func DefaultOptions() Options {
	return Options{
		SectionColumn: -1,
		DepthColumn:   -1,
		SectionNames:  []string{"SECT NUM", "Section"},
		DepthNames:    []string{"Section Depth", "SECT DEPTH"},
		HeaderRow:     0,
		UnitsRow:      1,
		StartRow:      2,
	}
}

// Validate checks that the row layout is consistent.
func (o Options) Validate() error {
	if o.StartRow < 0 {
		return &OptionsError{Field: "start row", Reason: "must be 0 or greater"}
	}
	if o.SectionColumn < -1 || o.DepthColumn < -1 {
		return &OptionsError{Field: "column", Reason: "column indexes must be 0 or greater"}
	}
	if o.SectionColumn >= 0 && o.SectionColumn == o.DepthColumn {
		return &OptionsError{Field: "column", Reason: "section and depth columns must differ"}
	}
	if o.HeaderRow >= o.StartRow {
		return &OptionsError{Field: "header row", Reason: "must come before the start row"}
	}
	if o.UnitsRow >= o.StartRow {
		return &OptionsError{Field: "units row", Reason: "must come before the start row"}
	}
	if o.HeaderRow >= 0 && o.HeaderRow == o.UnitsRow {
		return &OptionsError{Field: "units row", Reason: "must differ from the header row"}
	}
	return nil
}

// Result is the outcome of Apply.
type Result struct {
	// Header and Units are the pass-through rows, nil when absent.
	Header []string
	Units  []string

	Matched   [][]string
	Unmatched [][]string
	Stats     match.Stats

	SectionColumn int
	DepthColumn   int
	// Rows is the number of data rows considered.
	Rows int
	// Ignored lists rows before the start row that are neither header nor
	// units, plus blank rows after it.
	Ignored []int
	// Sections is the number of physical sections detected in the data.
	Sections int

	Entries    []match.Entry
	LookupKeys []section.Key
	DataKeys   []section.Key
}

// Apply keys both tables, builds the lookup and partitions the data rows.
func Apply(data, coreList [][]string, opt Options) (*Result, error) {
	dt, err := keyData(data, opt)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Header:        dt.header,
		Units:         dt.units,
		SectionColumn: dt.sectionCol,
		DepthColumn:   dt.depthCol,
		Ignored:       dt.ignored,
		DataKeys:      dt.keys,
		Rows:          len(dt.rows),
		Sections:      section.Parts(dt.keys),
	}

	if res.Entries, err = ParseEntries(coreList); err != nil {
		return nil, err
	}
	lookup, err := match.NewLookup(res.Entries)
	if err != nil {
		return nil, err
	}
	res.LookupKeys = lookup.Keys()

	keyed := make([]match.KeyedRow, len(dt.rows))
	for i, r := range dt.rows {
		keyed[i] = match.KeyedRow{Row: r, Key: dt.keys[i]}
	}
	m := match.Match(keyed, lookup, dt.sectionCol)
	res.Matched = m.Matched
	res.Unmatched = m.Unmatched
	res.Stats = m.Stats
	return res, nil
}

// Span is a run of consecutive data rows sharing one composite key.
type Span struct {
	Key      string  `json:"key" yaml:"key"`
	Part     int     `json:"part" yaml:"part"`
	Section  int     `json:"section" yaml:"section"`
	FirstRow int     `json:"first_row" yaml:"first_row"`
	LastRow  int     `json:"last_row" yaml:"last_row"`
	Rows     int     `json:"rows" yaml:"rows"`
	MinDepth float64 `json:"min_depth" yaml:"min_depth"`
	MaxDepth float64 `json:"max_depth" yaml:"max_depth"`
}

// SectionSpans keys a data table and groups its rows by section. Row numbers
// are indexes into data.
func SectionSpans(data [][]string, opt Options) ([]Span, error) {
	dt, err := keyData(data, opt)
	if err != nil {
		return nil, err
	}
	var spans []Span
	for i, k := range dt.keys {
		d := dt.obs[i].Depth
		if n := len(spans); n > 0 && spans[n-1].Part == k.Part && spans[n-1].Section == k.Section {
			sp := &spans[n-1]
			sp.LastRow = dt.index[i]
			sp.Rows++
			sp.MinDepth = min(sp.MinDepth, d)
			sp.MaxDepth = max(sp.MaxDepth, d)
			continue
		}
		spans = append(spans, Span{
			Key: k.String(), Part: k.Part, Section: k.Section,
			FirstRow: dt.index[i], LastRow: dt.index[i], Rows: 1,
			MinDepth: d, MaxDepth: d,
		})
	}
	return spans, nil
}

// dataTable is a data table with its rows parsed and keyed.
type dataTable struct {
	header, units        []string
	sectionCol, depthCol int
	rows                 [][]string
	index                []int
	obs                  []section.Observation
	keys                 []section.Key
	ignored              []int
}

func keyData(data [][]string, opt Options) (*dataTable, error) {
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	dt := &dataTable{
		header: rowAt(data, opt.HeaderRow),
		units:  rowAt(data, opt.UnitsRow),
	}
	var err error
	if dt.sectionCol, err = resolveColumn(dt.header, opt.SectionColumn, opt.SectionNames, "section number"); err != nil {
		return nil, err
	}
	if dt.depthCol, err = resolveColumn(dt.header, opt.DepthColumn, opt.DepthNames, "section depth"); err != nil {
		return nil, err
	}

	for i := 0; i < opt.StartRow && i < len(data); i++ {
		if i != opt.HeaderRow && i != opt.UnitsRow {
			dt.ignored = append(dt.ignored, i)
		}
	}
	for i := opt.StartRow; i < len(data); i++ {
		if blank(data[i]) {
			dt.ignored = append(dt.ignored, i)
			continue
		}
		o, err := parseObservation(data[i], i, dt.sectionCol, dt.depthCol)
		if err != nil {
			return nil, err
		}
		dt.rows = append(dt.rows, data[i])
		dt.index = append(dt.index, i)
		dt.obs = append(dt.obs, o)
	}
	dt.keys = section.NewDepthKeyer().Keys(dt.obs, 0)
	return dt, nil
}

// ParseEntries decodes core list rows of the form sectionNumber,coreID.
// Blank rows are skipped; extra columns are ignored.
func ParseEntries(rows [][]string) ([]match.Entry, error) {
	var entries []match.Entry
	for i, row := range rows {
		if blank(row) {
			continue
		}
		if len(row) < 2 {
			return nil, &MalformedRowError{Table: "core list", Row: i, Column: -1,
				Err: errors.New("expected sectionNumber,coreID")}
		}
		raw := strings.TrimSpace(row[0])
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &MalformedRowError{Table: "core list", Row: i, Column: 0, Value: row[0], Err: numErr(err)}
		}
		id := strings.TrimSpace(row[1])
		if id == "" {
			return nil, &MalformedRowError{Table: "core list", Row: i, Column: 1, Err: errors.New("empty core ID")}
		}
		entries = append(entries, match.Entry{Section: n, CoreID: id, Row: i})
	}
	if len(entries) == 0 {
		return nil, &LookupFileError{Err: errors.New("no entries"), Hint: CoreListHint}
	}
	return entries, nil
}

func parseObservation(row []string, idx, sectionCol, depthCol int) (section.Observation, error) {
	if sectionCol >= len(row) || depthCol >= len(row) {
		return section.Observation{}, &MalformedRowError{Table: "data", Row: idx, Column: -1,
			Err: errors.New("row has too few columns")}
	}
	n, err := strconv.Atoi(strings.TrimSpace(row[sectionCol]))
	if err != nil {
		return section.Observation{}, &MalformedRowError{Table: "data", Row: idx, Column: sectionCol, Value: row[sectionCol], Err: numErr(err)}
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(row[depthCol]), 64)
	if err != nil {
		return section.Observation{}, &MalformedRowError{Table: "data", Row: idx, Column: depthCol, Value: row[depthCol], Err: numErr(err)}
	}
	return section.Observation{Section: n, Depth: d}, nil
}

// resolveColumn returns the explicit index when set, else the first header
// matching one of names.
func resolveColumn(header []string, explicit int, names []string, what string) (int, error) {
	if explicit >= 0 {
		return explicit, nil
	}
	for _, name := range names {
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				return i, nil
			}
		}
	}
	return -1, &MissingColumnError{Column: what, Tried: names}
}

func rowAt(rows [][]string, i int) []string {
	if i < 0 || i >= len(rows) {
		return nil
	}
	out := make([]string, len(rows[i]))
	copy(out, rows[i])
	return out
}

func blank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// numErr strips strconv's wrapping, which repeats the input value.
func numErr(err error) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return ne.Err
	}
	return err
}
