package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/laccore/coreid/internal/assign"
	"github.com/laccore/coreid/internal/report"
	"github.com/laccore/coreid/internal/table"
	"github.com/laccore/coreid/internal/utils"
)

// assignFlags are shared by assign, assign-batch and keys --data.
type assignFlags struct {
	coreList      string
	sectionColumn int
	depthColumn   int
	startRow      int
	headerRow     int
	unitsRow      int
	verbose       bool
	format        string
	reportFile    string
	delimiter     string
	sheetName     string
	sheetIndex    int
	noBOM         bool
}

// registerLayout adds the flags describing where rows and columns are.
func (f *assignFlags) registerLayout(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.IntVarP(&f.sectionColumn, "section-column", "s", -1, "column number the section numbers are in (count starts at 0)")
	fl.IntVarP(&f.depthColumn, "depth-column", "d", -1, "column number the section depths are in (count starts at 0)")
	fl.IntVarP(&f.startRow, "start-row", "r", 2, "row number the MSCL data begins (count starts at 0)")
	fl.IntVarP(&f.headerRow, "header-row", "t", 0, "row number the headers are on (count starts at 0, -1 for none)")
	fl.IntVarP(&f.unitsRow, "units-row", "u", 1, "row number the units are on (count starts at 0, -1 for none)")
	fl.StringVar(&f.delimiter, "delimiter", "", "input delimiter: ',' | ';' | 'tab' (default from extension)")
	fl.StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	fl.IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

// register adds every assign flag.
func (f *assignFlags) register(cmd *cobra.Command) {
	f.registerLayout(cmd)
	fl := cmd.Flags()
	fl.StringVarP(&f.coreList, "corelist", "c", "", "core list file (default corelist.csv or core_list from config)")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "log column resolution, ignored rows and timing")
	fl.StringVar(&f.format, "format", "", "report format: text | table | json | yaml (default text on a terminal, json otherwise)")
	fl.StringVar(&f.reportFile, "report-file", "", "write the report to this file instead of stdout")
	fl.BoolVar(&f.noBOM, "no-bom", false, "do not prefix output files with a UTF-8 byte order mark")
}

// options merges config values with any flags the user changed.
func (f *assignFlags) options(cmd *cobra.Command) (assign.Options, error) {
	c := currentConfig()
	opt := assign.DefaultOptions()
	if len(c.SectionColumnNames) > 0 {
		opt.SectionNames = c.SectionColumnNames
	}
	if len(c.DepthColumnNames) > 0 {
		opt.DepthNames = c.DepthColumnNames
	}
	opt.HeaderRow, opt.UnitsRow, opt.StartRow = c.HeaderRow, c.UnitsRow, c.StartRow

	fl := cmd.Flags()
	opt.SectionColumn = f.sectionColumn
	opt.DepthColumn = f.depthColumn
	if fl.Changed("start-row") {
		opt.StartRow = f.startRow
	}
	if fl.Changed("header-row") {
		opt.HeaderRow = f.headerRow
	}
	if fl.Changed("units-row") {
		opt.UnitsRow = f.unitsRow
	}
	return opt, opt.Validate()
}

func (f *assignFlags) readOptions(cmd *cobra.Command) (table.ReadOptions, error) {
	raw := currentConfig().Delimiter
	if cmd.Flags().Changed("delimiter") {
		raw = f.delimiter
	}
	d, err := table.ParseDelimiter(raw)
	if err != nil {
		return table.ReadOptions{}, fmt.Errorf("unsupported --delimiter: %s", raw)
	}
	return table.ReadOptions{Delimiter: d, SheetName: f.sheetName, SheetIndex: f.sheetIndex}, nil
}

func (f *assignFlags) writeOptions() table.WriteOptions {
	return table.WriteOptions{BOM: currentConfig().WriteBOM && !f.noBOM}
}

func (f *assignFlags) resolveCoreList() (string, error) {
	return assign.ResolveCoreList(f.coreList, currentConfig().CoreList)
}

// writeReport renders runs to --report-file or the command's stdout.
func (f *assignFlags) writeReport(cmd *cobra.Command, runs []*assign.Summary) error {
	raw := f.format
	if raw == "" {
		raw = currentConfig().ReportFormat
	}
	format, err := report.ParseFormat(raw)
	if err != nil {
		return err
	}
	if f.reportFile != "" {
		if format == "" {
			format = report.FormatJSON
			if strings.HasSuffix(strings.ToLower(f.reportFile), ".yaml") || strings.HasSuffix(strings.ToLower(f.reportFile), ".yml") {
				format = report.FormatYAML
			}
		}
		var buf bytes.Buffer
		if err := report.NewFormatter(format, f.verbose).Format(&buf, runs); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(f.reportFile, buf.Bytes()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Report written to %s\n", f.reportFile)
		return nil
	}
	return report.NewFormatter(report.DetectFormat(format), f.verbose).Format(cmd.OutOrStdout(), runs)
}

var (
	asFlags     assignFlags
	asOutput    string
	asUnmatched string
)

var assignCmd = &cobra.Command{
	Use:   "assign <input>",
	Short: "Replace MSCL section numbers with core IDs from a core list",
	Long: `Reads an MSCL data file and a core list (sectionNumber,coreID per line), assigns a core ID
to every data row, and writes <input>_coreID.csv. Rows whose section cannot be matched are
written to <input>_unmatched.csv together with their Part_Section key.`,
	Example: `  coreid assign DCH_MSCL_raw.csv
  coreid assign -c YLAKE_core_list.csv YLAKE_XYZ.csv
  coreid assign -s 1 -d 2 -r 3 --format json YLAKE_XYZ.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if asFlags.verbose {
			setupLogging(true)
		}
		input := args[0]
		opt, err := asFlags.options(cmd)
		if err != nil {
			return err
		}
		ropt, err := asFlags.readOptions(cmd)
		if err != nil {
			return err
		}
		coreList, err := asFlags.resolveCoreList()
		if err != nil {
			return err
		}

		files := assign.Files{Input: input, CoreList: coreList, Matched: asOutput, Unmatched: asUnmatched}
		m, u := assign.DefaultOutputNames(input, currentConfig().MatchedSuffix, currentConfig().UnmatchedSuffix)
		if files.Matched == "" {
			files.Matched = m
		}
		if files.Unmatched == "" {
			files.Unmatched = u
		}

		sum, err := assign.Run(files, opt, asFlags.writeOptions(), ropt)
		if err != nil {
			return err
		}
		return asFlags.writeReport(cmd, []*assign.Summary{sum})
	},
}

func init() {
	rootCmd.AddCommand(assignCmd)
	asFlags.register(assignCmd)
	assignCmd.Flags().StringVarP(&asOutput, "output", "o", "", "name of the output file")
	assignCmd.Flags().StringVarP(&asUnmatched, "unmatched", "n", "", "name of the output file for unmatched data")
}
