// Package config loads the biostat configuration.
//
// Values are layered, each source overriding the one before it:
// built-in defaults, a yaml file (biostat.yaml in the working directory
// or the file named by --config), BIOSTAT_ environment variables, and
// finally command line flags that were explicitly set.  Nested keys are
// reached from the environment with a double underscore, so
// BIOSTAT_COX__TIES sets cox.ties.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read into the
// configuration.
const EnvPrefix = "BIOSTAT_"

// KeyAnnotation is the pflag annotation naming the configuration key a
// flag sets.  Flags without it map to their own name with dashes
// replaced by underscores.
const KeyAnnotation = "biostat_key"

// Config holds all biostat settings.
type Config struct {

	// Directory against which relative paths are resolved.  Defaults
	// to the directory of the config file, or the working directory
	// when there is none.
	BaseDir string `koanf:"base_dir"`

	// Directory receiving the figure files.
	FiguresDir string `koanf:"figures_dir"`

	Verbose  bool   `koanf:"verbose"`
	LogLevel string `koanf:"log_level"`

	Logistic LogisticConfig `koanf:"logistic"`
	Survival SurvivalConfig `koanf:"survival"`
	Cox      CoxConfig      `koanf:"cox"`

	// The config file that was read, empty if none.
	File string `koanf:"-"`
}

// LogisticConfig configures the binary outcome pipeline.
type LogisticConfig struct {
	Path       string   `koanf:"path"`
	IndexCol   string   `koanf:"index_col"`
	Outcome    string   `koanf:"outcome"`
	SexCol     string   `koanf:"sex_col"`
	Covariates []string `koanf:"covariates"`
}

// SurvivalConfig configures the two group survival comparison.
type SurvivalConfig struct {

	// Confidence level of every interval and of the log-rank test.
	Alpha float64 `koanf:"alpha"`

	// Figure size in inches.
	Width  float64 `koanf:"width"`
	Height float64 `koanf:"height"`
}

// CoxConfig configures the proportional hazards pipeline.
type CoxConfig struct {
	Path     string            `koanf:"path"`
	IDCol    string            `koanf:"id_col"`
	GroupCol string            `koanf:"group_col"`
	GroupMap map[string]string `koanf:"group_map"`
	TimeCol  string            `koanf:"time_col"`
	EventCol string            `koanf:"event_col"`
	Selected []string          `koanf:"selected"`
	Ties     string            `koanf:"ties"`
}

// Defaults returns the built-in settings as flat dotted keys.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"base_dir":    "",
		"figures_dir": "figures",
		"verbose":     false,
		"log_level":   "info",

		"logistic.path":       "PyData2403/GdAdultPhy1000_04.xlsx",
		"logistic.index_col":  "Number",
		"logistic.outcome":    "PhysiLv2",
		"logistic.sex_col":    "Sex",
		"logistic.covariates": []string{"Sex_2", "Height", "Weight"},

		"survival.alpha":  0.95,
		"survival.width":  6.0,
		"survival.height": 4.0,

		"cox.path":      "PyData2403/AB组COX生存分析数据.xlsx",
		"cox.id_col":    "编号",
		"cox.group_col": "疗法",
		"cox.group_map": map[string]interface{}{"A组": "1", "B组": "2"},
		"cox.time_col":  "生存时间",
		"cox.event_col": "结局",
		"cox.selected":  []string{"疗法", "是否转移", "体重", "分级"},
		"cox.ties":      "efron",
	}
}

// findConfigFile returns the explicit path if given, otherwise the
// first biostat config file present in the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"biostat.yaml", "biostat.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func flagKey(f *pflag.Flag) string {
	if v := f.Annotations[KeyAnnotation]; len(v) > 0 {
		return v[0]
	}
	return strings.ReplaceAll(f.Name, "-", "_")
}

// Load reads the configuration.  cfgFile names an explicit config file
// and may be empty.  flags may be nil; only flags that were set on the
// command line are applied.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {

	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: BIOSTAT_SURVIVAL__ALPHA -> survival.alpha
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	var flagBase string
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
		if f := flags.Lookup("base-dir"); f != nil && f.Changed {
			flagBase = f.Value.String()
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.resolvePaths(flagBase); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolvePaths makes BaseDir absolute and resolves the data and figure
// paths against it.  A base directory given on the command line is
// taken relative to the working directory, one from the config file
// relative to the file.
func (cfg *Config) resolvePaths(flagBase string) error {

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("cannot determine working directory: %w", err)
	}

	anchor := cwd
	if cfg.File != "" && flagBase == "" {
		abs, err := filepath.Abs(cfg.File)
		if err != nil {
			return err
		}
		anchor = filepath.Dir(abs)
	}

	if cfg.BaseDir == "" {
		cfg.BaseDir = anchor
	} else {
		cfg.BaseDir = filepath.Clean(resolvePathRelativeTo(cfg.BaseDir, anchor))
	}

	cfg.FiguresDir = resolvePathRelativeTo(cfg.FiguresDir, cfg.BaseDir)
	cfg.Logistic.Path = resolvePathRelativeTo(cfg.Logistic.Path, cfg.BaseDir)
	cfg.Cox.Path = resolvePathRelativeTo(cfg.Cox.Path, cfg.BaseDir)

	return nil
}

// Validate checks the settings that the pipelines cannot recover from.
func (cfg *Config) Validate() error {

	if a := cfg.Survival.Alpha; !(a > 0 && a < 1) {
		return fmt.Errorf("survival.alpha must be in (0, 1), got %v", a)
	}
	if !(cfg.Survival.Width > 0) || !(cfg.Survival.Height > 0) {
		return fmt.Errorf("survival figure size must be positive, got %vx%v",
			cfg.Survival.Width, cfg.Survival.Height)
	}

	switch strings.ToLower(cfg.Cox.Ties) {
	case "efron", "breslow":
	default:
		return fmt.Errorf("cox.ties must be efron or breslow, got '%s'", cfg.Cox.Ties)
	}

	if len(cfg.Logistic.Covariates) == 0 {
		return fmt.Errorf("logistic.covariates is empty")
	}
	if len(cfg.Cox.Selected) == 0 {
		return fmt.Errorf("cox.selected is empty")
	}
	if cfg.Cox.TimeCol == "" || cfg.Cox.EventCol == "" {
		return fmt.Errorf("cox.time_col and cox.event_col are required")
	}

	return nil
}
