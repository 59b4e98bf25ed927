package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/qaartru2266-jpg/hxc143/internal/converter"
	"github.com/qaartru2266-jpg/hxc143/internal/emitter"
	"gopkg.in/yaml.v3"
)

// ManifestNames lists the manifest file names searched by Find, in order.
var ManifestNames = []string{"bin2cc.yaml", "bin2cc.yml", "bin2cc.toml"}

// ErrNoTargets is returned by Validate when the manifest declares no targets.
var ErrNoTargets = errors.New("manifest declares no targets")

// Config represents a conversion manifest (bin2cc.yaml or bin2cc.toml).
type Config struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	// Defaults holds emitter settings applied to targets that do not set them.
	Defaults Defaults `yaml:"defaults" toml:"defaults"`
	// Targets is the list of conversions to perform.
	Targets []Target `yaml:"targets" toml:"targets"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level" toml:"level"`
	// Path is the log file path. Empty logs to stderr.
	Path string `yaml:"path" toml:"path"`
}

// Defaults contains emitter settings shared by all targets.
type Defaults struct {
	// Align is the alignas() value. Zero omits the hint; unset means 16.
	Align *int `yaml:"align" toml:"align"`
	// PerLine is the number of values per line.
	PerLine int `yaml:"per_line" toml:"per_line"`
}

// Target is a single manifest entry.
type Target struct {
	// Source is the binary input. It may be a doublestar pattern such as "assets/**/*.bin".
	Source string `yaml:"source" toml:"source"`
	// Output is the generated file, or the output directory when Source is a pattern.
	Output string `yaml:"output" toml:"output"`
	// Symbol is the array identifier. Derived from the file name for patterns.
	Symbol string `yaml:"symbol" toml:"symbol"`
	// LengthSymbol is the length identifier. Defaults to Symbol + "_len".
	LengthSymbol string `yaml:"length_symbol" toml:"length_symbol"`
	// Align overrides Defaults.Align.
	Align *int `yaml:"align" toml:"align"`
	// PerLine overrides Defaults.PerLine.
	PerLine int `yaml:"per_line" toml:"per_line"`
}

// IsPattern reports whether the target source is a glob pattern.
func (t Target) IsPattern() bool {
	return strings.ContainsAny(t.Source, "*?[{")
}

func (t Target) options() emitter.Options {
	opts := emitter.Options{
		Symbol:       t.Symbol,
		LengthSymbol: t.LengthSymbol,
		PerLine:      t.PerLine,
	}
	if t.Align != nil {
		opts.Align = *t.Align
	}
	return opts
}

// Find returns the first manifest from ManifestNames present in dir.
func Find(dir string) (string, error) {
	for _, name := range ManifestNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no manifest found in %s (looked for %s)", dir, strings.Join(ManifestNames, ", "))
}

// Load reads, decodes, defaults, and validates the manifest at path.
// The format is chosen by extension: .yaml/.yml or .toml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("failed to parse %s: unknown key %q", path, undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q (allowed: .yaml, .yml, .toml)", ext)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyDefaults sets default values for configuration fields that are missing
// and copies the shared defaults into each target.
func ApplyDefaults(config *Config) {
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Defaults.Align == nil {
		a := emitter.DefaultAlign
		config.Defaults.Align = &a
	}
	if config.Defaults.PerLine == 0 {
		config.Defaults.PerLine = emitter.DefaultPerLine
	}

	for i := range config.Targets {
		t := &config.Targets[i]
		if t.Align == nil {
			a := *config.Defaults.Align
			t.Align = &a
		}
		if t.PerLine == 0 {
			t.PerLine = config.Defaults.PerLine
		}
	}
}

// Validate checks the configuration for errors, such as missing paths,
// invalid identifiers, or a fixed symbol on a pattern target.
func Validate(config *Config) error {
	if config.Logging.Level != "" {
		switch strings.ToLower(config.Logging.Level) {
		case "debug", "info", "warn", "error":
			// ok
		default:
			return fmt.Errorf("invalid logging level: %s (allowed: debug, info, warn, error)", config.Logging.Level)
		}
	}

	if len(config.Targets) == 0 {
		return ErrNoTargets
	}

	for i, t := range config.Targets {
		if t.Source == "" {
			return fmt.Errorf("target %d: source is required", i)
		}
		if t.Output == "" {
			return fmt.Errorf("target %d (%s): output is required", i, t.Source)
		}

		opts := t.options()
		if t.IsPattern() {
			if !doublestar.ValidatePathPattern(t.Source) {
				return fmt.Errorf("target %d: invalid pattern %q", i, t.Source)
			}
			if t.Symbol != "" || t.LengthSymbol != "" {
				return fmt.Errorf("target %d (%s): symbol cannot be set on a pattern target, it is derived from each file name", i, t.Source)
			}
			opts.Symbol = "g_pattern"
		}
		if err := opts.Validate(); err != nil {
			return fmt.Errorf("target %d (%s): %w", i, t.Source, err)
		}
	}

	return nil
}

// Jobs expands the targets into concrete conversions. Relative paths are
// resolved against baseDir, normally the directory holding the manifest.
// Jobs are sorted by output path; two targets writing the same output is an error.
func (c *Config) Jobs(baseDir string) ([]converter.Job, error) {
	var jobs []converter.Job

	for i, t := range c.Targets {
		source := resolve(baseDir, t.Source)
		output := resolve(baseDir, t.Output)

		if !t.IsPattern() {
			jobs = append(jobs, converter.Job{Source: source, Output: output, Options: t.options()})
			continue
		}

		matches, err := doublestar.FilepathGlob(source, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("target %d: pattern %q matched no files", i, t.Source)
		}
		for _, m := range matches {
			opts := t.options()
			opts.Symbol = emitter.SymbolFromPath(m)
			name := strings.TrimSuffix(filepath.Base(m), filepath.Ext(m)) + ".cc"
			jobs = append(jobs, converter.Job{Source: m, Output: filepath.Join(output, name), Options: opts})
		}
	}

	sort.Slice(jobs, func(a, b int) bool { return jobs[a].Output < jobs[b].Output })
	for i := 1; i < len(jobs); i++ {
		if jobs[i].Output == jobs[i-1].Output {
			return nil, fmt.Errorf("output %s is written by both %s and %s", jobs[i].Output, jobs[i-1].Source, jobs[i].Source)
		}
	}
	return jobs, nil
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}
