package assign

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laccore/coreid/internal/match"
)

func msclTable(sections []string, depths []string) [][]string {
	rows := [][]string{
		{"SECT NUM", "Section Depth", "Den1"},
		{"", "cm", "g/cc"},
	}
	for i := range sections {
		rows = append(rows, []string{sections[i], depths[i], "1." + strconv.Itoa(i)})
	}
	return rows
}

func TestApplyEndToEnd(t *testing.T) {
	data := [][]string{
		{"1", "0.5"}, {"1", "1.5"}, {"2", "2.5"}, {"2", "3.5"}, {"1", "4.5"}, {"1", "5.5"},
	}
	core := [][]string{{"1", "X"}, {"2", "Y"}, {"1", "Z"}}
	opt := Options{SectionColumn: 0, DepthColumn: 1, HeaderRow: -1, UnitsRow: -1, StartRow: 0}

	res, err := Apply(data, core, opt)
	require.NoError(t, err)

	var dataKeys, lookupKeys []string
	for _, k := range res.DataKeys {
		dataKeys = append(dataKeys, k.String())
	}
	for _, k := range res.LookupKeys {
		lookupKeys = append(lookupKeys, k.String())
	}
	assert.Equal(t, []string{"1_1", "1_1", "1_2", "1_2", "2_1", "2_1"}, dataKeys)
	assert.Equal(t, []string{"1_1", "1_2", "2_1"}, lookupKeys)

	var ids []string
	for _, r := range res.Matched {
		ids = append(ids, r[0])
	}
	assert.Equal(t, []string{"X", "X", "Y", "Y", "Z", "Z"}, ids)
	assert.Empty(t, res.Unmatched)
	assert.Equal(t, 6, res.Stats.Matched)
	assert.Equal(t, 2, res.Sections)
	assert.Nil(t, res.Header)
	assert.Nil(t, res.Units)
}

func TestApplyLocatesColumnsByName(t *testing.T) {
	data := msclTable([]string{"1", "2", "1"}, []string{"0.5", "0.5", "0.5"})
	data[0] = []string{"Den1", " Section ", "SECT DEPTH"}
	for i := 2; i < len(data); i++ {
		data[i] = []string{"1.6", data[i][0], data[i][1]}
	}
	core := [][]string{{"1", "A"}, {"2", "B"}, {"1", "C"}}

	res, err := Apply(data, core, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, res.SectionColumn)
	assert.Equal(t, 2, res.DepthColumn)
	require.Len(t, res.Matched, 3)
	assert.Equal(t, []string{"1.6", "A", "0.5"}, res.Matched[0])
	assert.Equal(t, []string{"1.6", "C", "0.5"}, res.Matched[2])
	assert.Equal(t, data[0], res.Header)
}

func TestApplyPrefersFirstListedName(t *testing.T) {
	header := []string{"Section", "SECT NUM", "Section Depth"}
	col, err := resolveColumn(header, -1, DefaultOptions().SectionNames, "section number")
	require.NoError(t, err)
	assert.Equal(t, 1, col)
}

func TestApplyMissingColumn(t *testing.T) {
	data := [][]string{{"Depth", "Value"}, {"cm", ""}, {"1", "2"}}
	_, err := Apply(data, [][]string{{"1", "A"}}, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))

	var mc *MissingColumnError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, "section number", mc.Column)
	assert.Contains(t, err.Error(), "'SECT NUM' or 'Section'")
}

func TestApplyMalformedDataRow(t *testing.T) {
	data := msclTable([]string{"1", "x", "2"}, []string{"0.5", "1.5", "2.5"})
	_, err := Apply(data, [][]string{{"1", "A"}}, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedRow))

	var mr *MalformedRowError
	require.ErrorAs(t, err, &mr)
	assert.Equal(t, "data", mr.Table)
	assert.Equal(t, 3, mr.Row)
	assert.Equal(t, 0, mr.Column)
	assert.Equal(t, "x", mr.Value)
	assert.True(t, errors.Is(err, strconv.ErrSyntax))
}

func TestApplyMalformedDepthAndShortRow(t *testing.T) {
	data := msclTable([]string{"1"}, []string{"deep"})
	_, err := Apply(data, [][]string{{"1", "A"}}, DefaultOptions())
	var mr *MalformedRowError
	require.ErrorAs(t, err, &mr)
	assert.Equal(t, 1, mr.Column)

	data = msclTable([]string{"1"}, []string{"0.5"})
	data = append(data, []string{"2"})
	_, err = Apply(data, [][]string{{"1", "A"}}, DefaultOptions())
	require.ErrorAs(t, err, &mr)
	assert.Equal(t, 3, mr.Row)
	assert.Equal(t, -1, mr.Column)
}

func TestApplyMalformedCoreList(t *testing.T) {
	data := msclTable([]string{"1"}, []string{"0.5"})

	_, err := Apply(data, [][]string{{"1", "A"}, {"two", "B"}}, DefaultOptions())
	var mr *MalformedRowError
	require.ErrorAs(t, err, &mr)
	assert.Equal(t, "core list", mr.Table)
	assert.Equal(t, 1, mr.Row)

	_, err = Apply(data, [][]string{{"1"}}, DefaultOptions())
	assert.True(t, errors.Is(err, ErrMalformedRow))

	_, err = Apply(data, [][]string{{"", ""}}, DefaultOptions())
	assert.True(t, errors.Is(err, ErrLookupFile))
}

func TestApplyUnmatchedKeepsKey(t *testing.T) {
	data := msclTable([]string{"1", "2", "3", "1"}, []string{"0.5", "0.5", "0.5", "0.5"})
	res, err := Apply(data, [][]string{{"1", "A"}, {"2", "B"}}, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, res.Matched, 2)
	require.Len(t, res.Unmatched, 2)
	assert.Equal(t, []string{"3", "0.5", "1.2", "1_3"}, res.Unmatched[0])
	assert.Equal(t, []string{"1", "0.5", "1.3", "2_1"}, res.Unmatched[1])
	assert.Equal(t, res.Rows, res.Stats.Matched+res.Stats.Unmatched)

	um := UnmatchedTable(res)
	assert.Equal(t, append(append([]string{}, data[0]...), KeyColumn), um[0])
	assert.Equal(t, append(append([]string{}, data[1]...), ""), um[1])
	assert.Len(t, MatchedTable(res)[0], 3)
}

func TestApplyIgnoresRowsBeforeStart(t *testing.T) {
	data := [][]string{
		{"Geotek MSCL export"},
		{"SECT NUM", "Section Depth"},
		{"", "cm"},
		{"1", "0.5"},
		{"", ""},
		{"2", "0.5"},
	}
	opt := DefaultOptions()
	opt.HeaderRow, opt.UnitsRow, opt.StartRow = 1, 2, 3

	res, err := Apply(data, [][]string{{"1", "A"}, {"2", "B"}}, opt)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4}, res.Ignored)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 2, res.Stats.Matched)
}

func TestApplyDuplicateAndUnusedStats(t *testing.T) {
	data := msclTable([]string{"1", "2"}, []string{"0.5", "0.5"})
	core := [][]string{{"1", "A"}, {"2", "B"}, {"3", "A"}, {"4", "C"}}
	res, err := Apply(data, core, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 2}, res.Stats.DuplicateCoreNames)
	assert.Equal(t, []string{"C"}, res.Stats.UnusedCoreNames)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	data := msclTable([]string{"1", "2"}, []string{"0.5", "0.5"})
	before := make([][]string, len(data))
	for i, r := range data {
		before[i] = append([]string{}, r...)
	}
	_, err := Apply(data, [][]string{{"1", "A"}, {"2", "B"}}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, before, data)
}

func TestOptionsValidate(t *testing.T) {
	bad := []Options{
		{SectionColumn: -1, DepthColumn: -1, HeaderRow: 0, UnitsRow: 1, StartRow: -1},
		{SectionColumn: -1, DepthColumn: -1, HeaderRow: 2, UnitsRow: 1, StartRow: 2},
		{SectionColumn: -1, DepthColumn: -1, HeaderRow: 0, UnitsRow: 3, StartRow: 2},
		{SectionColumn: -1, DepthColumn: -1, HeaderRow: 0, UnitsRow: 0, StartRow: 2},
		{SectionColumn: 1, DepthColumn: 1, HeaderRow: -1, UnitsRow: -1, StartRow: 0},
		{SectionColumn: -2, DepthColumn: 1, HeaderRow: -1, UnitsRow: -1, StartRow: 0},
	}
	for i, o := range bad {
		err := o.Validate()
		assert.Truef(t, errors.Is(err, ErrInvalidOptions), "case %d: %v", i, err)
	}
	assert.NoError(t, DefaultOptions().Validate())
}

func TestSectionSpans(t *testing.T) {
	data := msclTable(
		[]string{"1", "1", "1", "2", "1", "1"},
		[]string{"0.5", "10", "20.5", "0.5", "0.5", "3"},
	)
	spans, err := SectionSpans(data, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, spans, 3)

	assert.Equal(t, Span{Key: "1_1", Part: 1, Section: 1, FirstRow: 2, LastRow: 4, Rows: 3, MinDepth: 0.5, MaxDepth: 20.5}, spans[0])
	assert.Equal(t, "1_2", spans[1].Key)
	assert.Equal(t, 1, spans[1].Rows)
	assert.Equal(t, Span{Key: "2_1", Part: 2, Section: 1, FirstRow: 6, LastRow: 7, Rows: 2, MinDepth: 0.5, MaxDepth: 3}, spans[2])
}

func TestSectionSpansDepthReset(t *testing.T) {
	data := msclTable([]string{"4", "4", "4"}, []string{"10", "20", "5"})
	spans, err := SectionSpans(data, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, "1_4", spans[0].Key)
	assert.Equal(t, "2_4", spans[1].Key)
}

func TestParseEntriesKeepsSourceRows(t *testing.T) {
	rows := [][]string{{"1", " PROJ-1A-1P-1-A "}, {"", ""}, {"2", "PROJ-1A-1P-2-A", "note"}}

	entries, err := ParseEntries(rows)
	require.NoError(t, err)
	assert.Equal(t, []match.Entry{
		{Section: 1, CoreID: "PROJ-1A-1P-1-A", Row: 0},
		{Section: 2, CoreID: "PROJ-1A-1P-2-A", Row: 2},
	}, entries)
	assert.Equal(t, []string{"PROJ-1A-1P-1-A", "PROJ-1A-1P-2-A"}, match.CoreIDs(entries))
}
