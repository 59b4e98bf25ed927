package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/qaartru2266-jpg/hxc143/internal/config"
	"github.com/qaartru2266-jpg/hxc143/internal/converter"
	"github.com/qaartru2266-jpg/hxc143/pkg/log"
	"github.com/spf13/cobra"
)

// loadManifest loads the manifest at path, or the first manifest found in the
// current directory when path is empty. It returns the manifest's jobs.
func loadManifest(path string) (*config.Config, []converter.Job, error) {
	if path == "" {
		found, err := config.Find(".")
		if err != nil {
			return nil, nil, err
		}
		path = found
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	jobs, err := cfg.Jobs(filepath.Dir(path))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, jobs, nil
}

// applyManifestLogging switches the logger to the manifest's logging settings
// unless they were given on the command line.
func applyManifestLogging(cmd *cobra.Command, cfg *config.Config) error {
	level, file := logLevel, logFile
	if !cmd.Flags().Changed("log-level") {
		level = cfg.Logging.Level
	}
	if !cmd.Flags().Changed("log-file") && cfg.Logging.Path != "" {
		file = cfg.Logging.Path
	}
	if level == logLevel && file == logFile {
		return nil
	}
	return log.Init(file, level)
}

// zeroOrTwoArgs accepts either "<source> <destination>" or no arguments,
// in which case the command works on a manifest.
func zeroOrTwoArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 2 {
		return fmt.Errorf("accepts <source> <destination> or no arguments, received %d", len(args))
	}
	return nil
}

// resolveJobs returns a single job for "<source> <destination>" arguments,
// otherwise the jobs of the manifest at manifestPath.
func resolveJobs(cmd *cobra.Command, args []string, flags *emitterFlags, manifestPath string) ([]converter.Job, error) {
	if len(args) == 2 {
		if manifestPath != "" {
			return nil, fmt.Errorf("--file cannot be combined with <source> <destination>")
		}
		return []converter.Job{{Source: args[0], Output: args[1], Options: flags.options()}}, nil
	}

	cfg, jobs, err := loadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	if err := applyManifestLogging(cmd, cfg); err != nil {
		return nil, err
	}
	return jobs, nil
}
