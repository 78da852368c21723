package assign

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/laccore/coreid/internal/logging"
	"github.com/laccore/coreid/internal/match"
	"github.com/laccore/coreid/internal/section"
	"github.com/laccore/coreid/internal/table"
	"github.com/laccore/coreid/internal/utils"
)

const (
	DefaultCoreList        = "corelist.csv"
	DefaultMatchedSuffix   = "_coreID.csv"
	DefaultUnmatchedSuffix = "_unmatched.csv"
)

// Files names the inputs and outputs of one run. Empty output names are
// derived from Input with DefaultOutputNames.
type Files struct {
	Input     string
	CoreList  string
	Matched   string
	Unmatched string
}

// Summary describes a completed run.
type Summary struct {
	RunID         string `json:"run_id" yaml:"run_id"`
	Input         string `json:"input" yaml:"input"`
	CoreList      string `json:"core_list" yaml:"core_list"`
	MatchedFile   string `json:"matched_file" yaml:"matched_file"`
	UnmatchedFile string `json:"unmatched_file,omitempty" yaml:"unmatched_file,omitempty"`

	SectionColumn int `json:"section_column" yaml:"section_column"`
	DepthColumn   int `json:"depth_column" yaml:"depth_column"`
	Rows          int `json:"rows" yaml:"rows"`
	Sections      int `json:"sections" yaml:"sections"`
	CoreEntries   int `json:"core_entries" yaml:"core_entries"`
	Ignored       int `json:"ignored" yaml:"ignored"`

	Stats match.Stats `json:"stats" yaml:"stats"`

	// RemovedFile is an unmatched file left by an earlier run and deleted
	// because this run matched every row.
	RemovedFile string `json:"removed_file,omitempty" yaml:"removed_file,omitempty"`

	Elapsed        time.Duration `json:"-" yaml:"-"`
	ElapsedSeconds float64       `json:"elapsed_seconds" yaml:"elapsed_seconds"`
}

// Run reads both tables, applies the core list, and writes the outputs. The
// unmatched file is written only when some rows did not match; otherwise a
// stale one from an earlier run is removed. Outputs are committed together by
// utils.SafeWriteFiles, so a failed run leaves earlier files untouched.
//
// r applies to the data file only. The core list picks its delimiter from its
// own extension.
func Run(files Files, opt Options, w table.WriteOptions, r table.ReadOptions) (*Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := logging.WithRun(runID)

	matchedDefault, unmatchedDefault := DefaultOutputNames(files.Input, "", "")
	if files.Matched == "" {
		files.Matched = matchedDefault
	}
	if files.Unmatched == "" {
		files.Unmatched = unmatchedDefault
	}
	if err := checkOutputs(files); err != nil {
		return nil, err
	}

	coreRows, err := table.Read(files.CoreList, table.ReadOptions{})
	if err != nil {
		lf := &LookupFileError{Path: files.CoreList, Err: err}
		if errors.Is(err, os.ErrNotExist) {
			lf.Hint = CoreListHint
		}
		return nil, lf
	}
	data, err := table.Read(files.Input, r)
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", files.Input, err)
	}
	log.Debug().Str("input", files.Input).Int("rows", len(data)).Str("core_list", files.CoreList).Int("core_rows", len(coreRows)).Msg("tables loaded")

	res, err := Apply(data, coreRows, opt)
	if err != nil {
		var lf *LookupFileError
		if errors.As(err, &lf) && lf.Path == "" {
			lf.Path = files.CoreList
		}
		return nil, err
	}
	log.Debug().Int("section_column", res.SectionColumn).Int("depth_column", res.DepthColumn).Msg("columns resolved")
	for _, i := range res.Ignored {
		log.Debug().Int("row", i).Strs("values", data[i]).Msg("ignored row")
	}
	log.Debug().Int("sections", res.Sections).Int("data_boundaries", section.Boundaries(res.DataKeys)).
		Int("core_list_parts", section.Parts(res.LookupKeys)).Msg("sections detected")

	pending := []utils.PendingFile{}
	body, err := table.Encode(MatchedTable(res), w)
	if err != nil {
		return nil, err
	}
	pending = append(pending, utils.PendingFile{Path: files.Matched, Data: body})

	sum := &Summary{
		RunID:         runID,
		Input:         files.Input,
		CoreList:      files.CoreList,
		MatchedFile:   files.Matched,
		SectionColumn: res.SectionColumn,
		DepthColumn:   res.DepthColumn,
		Rows:          res.Rows,
		Sections:      res.Sections,
		CoreEntries:   len(res.Entries),
		Ignored:       len(res.Ignored),
		Stats:         res.Stats,
	}
	if len(res.Unmatched) > 0 {
		body, err := table.Encode(UnmatchedTable(res), w)
		if err != nil {
			return nil, err
		}
		pending = append(pending, utils.PendingFile{Path: files.Unmatched, Data: body})
		sum.UnmatchedFile = files.Unmatched
	}

	if err := utils.SafeWriteFiles(pending); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}
	if sum.UnmatchedFile == "" && utils.FileExists(files.Unmatched) {
		if err := os.Remove(files.Unmatched); err != nil {
			return nil, fmt.Errorf("remove stale unmatched file: %w", err)
		}
		sum.RemovedFile = files.Unmatched
		log.Debug().Str("file", files.Unmatched).Msg("removed stale unmatched file")
	}

	sum.Elapsed = time.Since(start)
	sum.ElapsedSeconds = sum.Elapsed.Seconds()
	log.Debug().Int("matched", res.Stats.Matched).Int("unmatched", res.Stats.Unmatched).Dur("elapsed", sum.Elapsed).Msg("run complete")
	return sum, nil
}

// MatchedTable is the matched output: header, units, then matched rows.
func MatchedTable(res *Result) [][]string {
	out := make([][]string, 0, len(res.Matched)+2)
	if res.Header != nil {
		out = append(out, res.Header)
	}
	if res.Units != nil {
		out = append(out, res.Units)
	}
	return append(out, res.Matched...)
}

// UnmatchedTable is the unmatched output. The header and units rows gain a
// trailing column for the composite key.
func UnmatchedTable(res *Result) [][]string {
	out := make([][]string, 0, len(res.Unmatched)+2)
	if res.Header != nil {
		out = append(out, append(append([]string{}, res.Header...), KeyColumn))
	}
	if res.Units != nil {
		out = append(out, append(append([]string{}, res.Units...), ""))
	}
	return append(out, res.Unmatched...)
}

// DefaultOutputNames derives output paths next to input. Empty suffixes use
// DefaultMatchedSuffix and DefaultUnmatchedSuffix.
func DefaultOutputNames(input, matchedSuffix, unmatchedSuffix string) (string, string) {
	if matchedSuffix == "" {
		matchedSuffix = DefaultMatchedSuffix
	}
	if unmatchedSuffix == "" {
		unmatchedSuffix = DefaultUnmatchedSuffix
	}
	dir := filepath.Dir(input)
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+matchedSuffix), filepath.Join(dir, base+unmatchedSuffix)
}

// ResolveCoreList picks the core list path: explicit when given, otherwise
// fallback (DefaultCoreList when empty) if that file exists. A leading "~" in
// fallback, as written in the config file, is expanded.
func ResolveCoreList(explicit, fallback string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if fallback == "" {
		fallback = DefaultCoreList
	}
	fallback, err := utils.ExpandHome(fallback)
	if err != nil {
		return "", &LookupFileError{Path: fallback, Err: err}
	}
	if utils.FileExists(fallback) {
		return fallback, nil
	}
	return "", &LookupFileError{Path: fallback, Err: os.ErrNotExist, Hint: CoreListHint}
}

// checkOutputs rejects output names that would replace either input file or
// each other.
func checkOutputs(files Files) error {
	m, u := filepath.Clean(files.Matched), filepath.Clean(files.Unmatched)
	inputs := []struct{ path, what string }{
		{filepath.Clean(files.Input), "input file"},
		{filepath.Clean(files.CoreList), "core list"},
	}
	for _, in := range inputs {
		if m == in.path {
			return &OptionsError{Field: "output", Reason: "matched output would overwrite the " + in.what}
		}
		if u == in.path {
			return &OptionsError{Field: "unmatched output", Reason: "unmatched output would overwrite the " + in.what}
		}
	}
	if m == u {
		return &OptionsError{Field: "unmatched output", Reason: "matched and unmatched outputs must differ"}
	}
	return nil
}
