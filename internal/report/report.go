// Package report renders run summaries for people and for scripts.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gopkg.in/yaml.v3"

	"github.com/laccore/coreid/internal/assign"
	"github.com/laccore/coreid/internal/utils"
)

// Format names an output format.
type Format string

const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formatter writes one or more run summaries. JSON and YAML emit a single
// object for one run and a list for several.
type Formatter interface {
	Format(w io.Writer, runs []*assign.Summary) error
}

// NewFormatter returns the formatter for f, defaulting to text.
func NewFormatter(f Format, verbose bool) Formatter {
	switch f {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatTable:
		return &TableFormatter{}
	default:
		return &TextFormatter{Verbose: verbose}
	}
}

// ParseFormat validates a format name. The empty string is allowed and means
// "detect".
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatText, FormatTable, FormatJSON, FormatYAML, "":
		return f, nil
	}
	return "", fmt.Errorf("invalid format %q: must be one of: text, table, json, yaml", s)
}

// DetectFormat returns explicit when set, text when stdout is a terminal and
// JSON otherwise.
func DetectFormat(explicit Format) Format {
	if explicit != "" {
		return explicit
	}
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return FormatText
	}
	return FormatJSON
}

// TextFormatter prints the warnings and totals a lab user reads after a run.
type TextFormatter struct {
	Verbose bool
}

func (f *TextFormatter) Format(w io.Writer, runs []*assign.Summary) error {
	for _, s := range runs {
		if err := f.one(w, s); err != nil {
			return err
		}
	}
	return nil
}

func (f *TextFormatter) one(w io.Writer, s *assign.Summary) error {
	var b strings.Builder
	dups := make([]string, 0, len(s.Stats.DuplicateCoreNames))
	for id := range s.Stats.DuplicateCoreNames {
		dups = append(dups, id)
	}
	sort.Strings(dups)
	for _, id := range dups {
		fmt.Fprintf(&b, "WARNING: Core %s appears in %s %d times.\n", id, s.CoreList, s.Stats.DuplicateCoreNames[id])
	}

	if n := len(s.Stats.UnusedCoreNames); n > 0 {
		noun := "names were"
		if n == 1 {
			noun = "name was"
		}
		fmt.Fprintf(&b, "WARNING: Not all cores in %s were used.\n", s.CoreList)
		fmt.Fprintf(&b, "The following %d core %s not used:\n", n, noun)
		for _, id := range s.Stats.UnusedCoreNames {
			b.WriteString(id + "\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%d rows had section names assigned (%s).\n", s.Stats.Matched, s.MatchedFile)
	if s.Stats.Unmatched == 0 {
		b.WriteString("There were no unmatched rows.\n")
		if s.RemovedFile != "" {
			fmt.Fprintf(&b, "Removed %s left by an earlier run.\n", s.RemovedFile)
		}
	} else {
		fmt.Fprintf(&b, "There were %d unmatched rows (%s).\n", s.Stats.Unmatched, s.UnmatchedFile)
	}
	if f.Verbose {
		fmt.Fprintf(&b, "Completed in %.2f seconds.\n", s.Elapsed.Seconds())
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// TableFormatter prints one row per run.
type TableFormatter struct{}

func (f *TableFormatter) Format(w io.Writer, runs []*assign.Summary) error {
	headers := []string{"Input", "Rows", "Sections", "Matched", "Unmatched", "Duplicate IDs", "Unused IDs", "Output"}
	rows := make([][]string, 0, len(runs))
	for _, s := range runs {
		rows = append(rows, []string{
			s.Input,
			strconv.Itoa(s.Rows),
			strconv.Itoa(s.Sections),
			strconv.Itoa(s.Stats.Matched),
			strconv.Itoa(s.Stats.Unmatched),
			strconv.Itoa(len(s.Stats.DuplicateCoreNames)),
			strconv.Itoa(len(s.Stats.UnusedCoreNames)),
			s.MatchedFile,
		})
	}
	align := []tw.Align{tw.AlignLeft, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignLeft}
	return RenderTable(w, headers, rows, align)
}

// RenderTable draws rows with tablewriter. align may be nil.
func RenderTable(w io.Writer, headers []string, rows [][]string, align []tw.Align) error {
	cfg := tablewriter.Config{}
	if len(align) > 0 {
		cfg.Header.Alignment = tw.CellAlignment{PerColumn: align}
		cfg.Row.Alignment = tw.CellAlignment{PerColumn: align}
	}
	table := tablewriter.NewTable(w, tablewriter.WithConfig(cfg))

	if len(headers) > 0 {
		h := make([]any, len(headers))
		for i, v := range headers {
			h[i] = v
		}
		table.Header(h...)
	}
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		if err := table.Append(cells...); err != nil {
			return err
		}
	}
	return table.Render()
}

// JSONFormatter outputs indented JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(w io.Writer, runs []*assign.Summary) error {
	return WriteJSON(w, payload(runs))
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// YAMLFormatter outputs YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(w io.Writer, runs []*assign.Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(payload(runs)); err != nil {
		return err
	}
	return enc.Close()
}

func payload(runs []*assign.Summary) any {
	if len(runs) == 1 {
		return runs[0]
	}
	return runs
}
