package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/qaartru2266-jpg/hxc143/internal/converter"
	"github.com/qaartru2266-jpg/hxc143/internal/ui"
	"github.com/spf13/cobra"
)

// batchManifest is the manifest path set via --file.
var batchManifest string

// batchCmd represents the batch command.
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Convert every target listed in bin2cc.yaml or bin2cc.toml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jobs, err := resolveJobs(cmd, nil, nil, batchManifest)
		if err != nil {
			return err
		}
		return runBatch(jobs)
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchManifest, "file", "f", "", "Manifest path (default: bin2cc.yaml, bin2cc.yml or bin2cc.toml in the current directory)")
	rootCmd.AddCommand(batchCmd)
}

// runBatch converts every job, printing one status line per job.
// Every job runs even when an earlier one fails.
func runBatch(jobs []converter.Job) error {
	ui.PrintHeader(fmt.Sprintf("Converting %d file(s)", len(jobs)))

	failed := 0
	converter.RunAll(jobs, func(res converter.Result, err error) {
		label := filepath.Base(res.Output)
		switch {
		case err != nil:
			failed++
			ui.PrintError(label, err.Error())
		case !res.Changed:
			ui.PrintSuccess(label, fmt.Sprintf("up to date (%d bytes)", res.Size))
		default:
			ui.PrintSuccess(label, fmt.Sprintf("%d bytes", res.Size))
		}
	})

	if failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", failed, len(jobs))
	}
	return nil
}
