package cmd

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/laccore/coreid/internal/assign"
	"github.com/laccore/coreid/internal/logging"
	"github.com/laccore/coreid/internal/match"
	"github.com/laccore/coreid/internal/report"
	"github.com/laccore/coreid/internal/section"
	"github.com/laccore/coreid/internal/table"
)

var (
	keysFlags  assignFlags
	keysData   bool
	keysFormat string
)

// keyedEntry is one core list row with its composite key. Row is the row in
// the source file, counting blank rows.
type keyedEntry struct {
	Row     int    `json:"row" yaml:"row"`
	Section int    `json:"section" yaml:"section"`
	Key     string `json:"key" yaml:"key"`
	CoreID  string `json:"core_id" yaml:"core_id"`
}

var keysCmd = &cobra.Command{
	Use:   "keys <file>",
	Short: "Show the Part_Section keys derived from a core list or an MSCL file",
	Long: `Prints the composite keys coreid derives, to check that the core list and the data
split into the same sections. By default <file> is a core list. With --data it is an MSCL file
and one line is printed per detected section with its row count and depth range.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ropt, err := keysFlags.readOptions(cmd)
		if err != nil {
			return err
		}
		format, err := report.ParseFormat(keysFormat)
		if err != nil {
			return err
		}
		rows, err := table.Read(args[0], ropt)
		if err != nil {
			return err
		}

		var (
			payload any
			headers []string
			cells   [][]string
			align   []tw.Align
			parts   int
		)
		if keysData {
			opt, err := keysFlags.options(cmd)
			if err != nil {
				return err
			}
			spans, err := assign.SectionSpans(rows, opt)
			if err != nil {
				return err
			}
			payload = spans
			if len(spans) > 0 {
				parts = spans[len(spans)-1].Part
			}
			headers = []string{"Key", "Rows", "First row", "Last row", "Min depth", "Max depth"}
			align = []tw.Align{tw.AlignLeft, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignRight}
			for _, s := range spans {
				cells = append(cells, []string{
					s.Key, strconv.Itoa(s.Rows), strconv.Itoa(s.FirstRow), strconv.Itoa(s.LastRow),
					strconv.FormatFloat(s.MinDepth, 'f', -1, 64), strconv.FormatFloat(s.MaxDepth, 'f', -1, 64),
				})
			}
		} else {
			entries, err := assign.ParseEntries(rows)
			if err != nil {
				return err
			}
			lookup, err := match.NewLookup(entries)
			if err != nil {
				return err
			}
			keys := lookup.Keys()
			keyed := make([]keyedEntry, len(entries))
			for i, e := range lookup.Entries() {
				keyed[i] = keyedEntry{Row: e.Row, Section: e.Section, Key: keys[i].String(), CoreID: e.CoreID}
			}
			payload = keyed
			parts = section.Parts(keys)
			logging.Default().Debug().Int("entries", len(entries)).Int("keys", lookup.Len()).Msg("core list keyed")
			if dups := match.DuplicateCoreNames(match.CoreIDs(entries)); len(dups) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %d core IDs appear more than once in %s\n", len(dups), args[0])
			}
			headers = []string{"Row", "Section", "Key", "Core ID"}
			align = []tw.Align{tw.AlignRight, tw.AlignRight, tw.AlignLeft, tw.AlignLeft}
			for _, k := range keyed {
				cells = append(cells, []string{strconv.Itoa(k.Row), strconv.Itoa(k.Section), k.Key, k.CoreID})
			}
		}

		out := cmd.OutOrStdout()
		switch format {
		case report.FormatJSON:
			return report.WriteJSON(out, payload)
		case report.FormatYAML:
			return yaml.NewEncoder(out).Encode(payload)
		default:
			if err := report.RenderTable(out, headers, cells, align); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d sections in %d parts\n", len(cells), parts)
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysFlags.registerLayout(keysCmd)
	keysCmd.Flags().BoolVar(&keysData, "data", false, "treat <file> as MSCL data instead of a core list")
	keysCmd.Flags().StringVar(&keysFormat, "format", "", "output format: table | json | yaml")
}
