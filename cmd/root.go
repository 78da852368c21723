package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/laccore/coreid/internal/assign"
	cfgpkg "github.com/laccore/coreid/internal/config"
	"github.com/laccore/coreid/internal/logging"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "coreid",
	Short: "Assign core IDs to Geotek MSCL section numbers",
	Long: `coreid replaces the locally numbered sections in Geotek MSCL output with the core IDs
from a core list. Section boundaries are recovered from resets in the section numbers and
section depths, so the same section number can appear in many cores.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		var lf *assign.LookupFileError
		if errors.As(err, &lf) && lf.Hint != "" {
			fmt.Fprintln(os.Stderr, lf.Hint)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.coreid/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: auto | console | json")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c
	setupLogging(false)
}

// setupLogging applies the configured log level, raised to debug by --debug
// or a command's --verbose flag.
func setupLogging(verbose bool) {
	c := currentConfig()
	level := c.LogLevel
	if debug || verbose {
		level = "debug"
	}
	format := c.LogFormat
	if logFormat != "" {
		format = logFormat
	}
	logging.Setup(level, format, os.Stderr)
}

func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			c = cfgpkg.Default()
		}
		cfg = c
	}
	return cfg
}
