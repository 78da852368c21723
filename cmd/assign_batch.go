package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/laccore/coreid/internal/assign"
)

var (
	abFlags assignFlags
	abQuiet bool
)

var assignBatchCmd = &cobra.Command{
	Use:   "assign-batch <files...>",
	Short: "Assign core IDs to several MSCL files with one core list",
	Long: `Runs assign over every file matched by the arguments (globs are expanded), in sorted
order, with one core list. Each file gets its own _coreID and _unmatched outputs. The batch
stops at the first file that fails; files already processed keep their outputs.`,
	Example: `  coreid assign-batch -c YLAKE_core_list.csv "YLAKE_*_MSCL.csv"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if abFlags.verbose {
			setupLogging(true)
		}
		files, err := expandInputs(args)
		if err != nil {
			return err
		}

		opt, err := abFlags.options(cmd)
		if err != nil {
			return err
		}
		ropt, err := abFlags.readOptions(cmd)
		if err != nil {
			return err
		}
		coreList, err := abFlags.resolveCoreList()
		if err != nil {
			return err
		}
		c := currentConfig()
		files = skipNonInputs(files, coreList, c.MatchedSuffix, c.UnmatchedSuffix)
		if len(files) == 0 {
			return fmt.Errorf("no input files left after skipping the core list and earlier outputs")
		}

		var runs []*assign.Summary
		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			m, u := assign.DefaultOutputNames(path, c.MatchedSuffix, c.UnmatchedSuffix)
			sum, err := assign.Run(assign.Files{Input: path, CoreList: coreList, Matched: m, Unmatched: u}, opt, abFlags.writeOptions(), ropt)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			runs = append(runs, sum)
		}
		if !abQuiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Processed %d files\n", len(runs))
		}
		return abFlags.writeReport(cmd, runs)
	},
}

// expandInputs expands globs, keeps literal paths that exist, drops
// duplicates and sorts the result.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// skipNonInputs drops the core list and the outputs of earlier runs, which
// a glob like "*.csv" also matches.
func skipNonInputs(files []string, coreList, matchedSuffix, unmatchedSuffix string) []string {
	if matchedSuffix == "" {
		matchedSuffix = assign.DefaultMatchedSuffix
	}
	if unmatchedSuffix == "" {
		unmatchedSuffix = assign.DefaultUnmatchedSuffix
	}
	var out []string
	for _, f := range files {
		switch {
		case filepath.Clean(f) == filepath.Clean(coreList):
		case strings.HasSuffix(f, matchedSuffix), strings.HasSuffix(f, unmatchedSuffix):
		default:
			out = append(out, f)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(assignBatchCmd)
	abFlags.register(assignBatchCmd)
	assignBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress output")
}
