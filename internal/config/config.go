package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/laccore/coreid/internal/utils"
)

// Global configuration structure.
type Global struct {
	// CoreList replaces corelist.csv as the default when no -c flag is given.
	CoreList           string   `mapstructure:"core_list" yaml:"core_list"`
	SectionColumnNames []string `mapstructure:"section_column_names" yaml:"section_column_names"`
	DepthColumnNames   []string `mapstructure:"depth_column_names" yaml:"depth_column_names"`
	HeaderRow          int      `mapstructure:"header_row" yaml:"header_row"`
	UnitsRow           int      `mapstructure:"units_row" yaml:"units_row"`
	StartRow           int      `mapstructure:"start_row" yaml:"start_row"`

	// Output naming and encoding
	MatchedSuffix   string `mapstructure:"matched_suffix" yaml:"matched_suffix"`
	UnmatchedSuffix string `mapstructure:"unmatched_suffix" yaml:"unmatched_suffix"`
	Delimiter       string `mapstructure:"delimiter" yaml:"delimiter"`
	WriteBOM        bool   `mapstructure:"write_bom" yaml:"write_bom"`

	ReportFormat string `mapstructure:"report_format" yaml:"report_format"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat    string `mapstructure:"log_format" yaml:"log_format"`
}

// EnvPrefix is the prefix for environment overrides, e.g. COREID_START_ROW.
const EnvPrefix = "COREID"

func defaults(v *viper.Viper) {
	v.SetDefault("core_list", "")
	v.SetDefault("section_column_names", []string{"SECT NUM", "Section"})
	v.SetDefault("depth_column_names", []string{"Section Depth", "SECT DEPTH"})
	v.SetDefault("header_row", 0)
	v.SetDefault("units_row", 1)
	v.SetDefault("start_row", 2)
	v.SetDefault("matched_suffix", "_coreID.csv")
	v.SetDefault("unmatched_suffix", "_unmatched.csv")
	v.SetDefault("delimiter", "")
	v.SetDefault("write_bom", true)
	v.SetDefault("report_format", "")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "auto")
}

// Dir returns ~/.coreid.
func Dir() (string, error) {
	return utils.ExpandHome("~/.coreid")
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.coreid/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env (.env included) > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	defaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Keys lists the settable configuration keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var setters = map[string]func(c *Global, val string) error{
	"core_list": func(c *Global, val string) error { c.CoreList = val; return nil },
	"section_column_names": func(c *Global, val string) error {
		names := splitList(val)
		if len(names) == 0 {
			return fmt.Errorf("section_column_names needs at least one name")
		}
		c.SectionColumnNames = names
		return nil
	},
	"depth_column_names": func(c *Global, val string) error {
		names := splitList(val)
		if len(names) == 0 {
			return fmt.Errorf("depth_column_names needs at least one name")
		}
		c.DepthColumnNames = names
		return nil
	},
	"header_row": rowSetter("header_row", -1, func(c *Global, i int) { c.HeaderRow = i }),
	"units_row":  rowSetter("units_row", -1, func(c *Global, i int) { c.UnitsRow = i }),
	"start_row":  rowSetter("start_row", 0, func(c *Global, i int) { c.StartRow = i }),
	"matched_suffix": func(c *Global, val string) error {
		if val == "" {
			return fmt.Errorf("matched_suffix cannot be empty")
		}
		c.MatchedSuffix = val
		return nil
	},
	"unmatched_suffix": func(c *Global, val string) error {
		if val == "" {
			return fmt.Errorf("unmatched_suffix cannot be empty")
		}
		c.UnmatchedSuffix = val
		return nil
	},
	"delimiter": func(c *Global, val string) error {
		switch strings.ToLower(val) {
		case "", "auto":
			c.Delimiter = ""
			return nil
		case ",", "comma", "\t", "tab", ";", "semicolon":
			c.Delimiter = val
			return nil
		}
		return fmt.Errorf("invalid delimiter: %q (use auto, comma, tab or semicolon)", val)
	},
	"write_bom": func(c *Global, val string) error {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for write_bom: %v", val)
		}
		c.WriteBOM = b
		return nil
	},
	"report_format": func(c *Global, val string) error {
		switch strings.ToLower(val) {
		case "", "text", "table", "json", "yaml":
			c.ReportFormat = strings.ToLower(val)
			return nil
		}
		return fmt.Errorf("invalid report_format: %s (use text, table, json or yaml)", val)
	},
	"log_level": func(c *Global, val string) error {
		switch strings.ToLower(val) {
		case "trace", "debug", "info", "warn", "warning", "error", "off":
			c.LogLevel = strings.ToLower(val)
			return nil
		}
		return fmt.Errorf("invalid log_level: %s", val)
	},
	"log_format": func(c *Global, val string) error {
		switch strings.ToLower(val) {
		case "auto", "console", "json":
			c.LogFormat = strings.ToLower(val)
			return nil
		}
		return fmt.Errorf("invalid log_format: %s (use auto, console or json)", val)
	},
}

// Set validates and applies one key/value pair.
func (c *Global) Set(key, val string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown key: %s", key)
	}
	return set(c, val)
}

func rowSetter(key string, lowest int, apply func(*Global, int)) func(*Global, string) error {
	return func(c *Global, val string) error {
		i, err := strconv.Atoi(val)
		if err != nil || i < lowest {
			return fmt.Errorf("invalid row for %s: %v", key, val)
		}
		apply(c, i)
		return nil
	}
}

func splitList(val string) []string {
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Default returns the built-in configuration, ignoring files and environment.
func Default() *Global {
	v := viper.New()
	defaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}
