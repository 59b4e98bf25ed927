package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/qaartru2266-jpg/hxc143/internal/converter"
	"github.com/qaartru2266-jpg/hxc143/internal/ui"
	"github.com/spf13/cobra"
)

var (
	verifyManifest string
	verifyFlags    emitterFlags
)

// verifyCmd represents the verify command.
var verifyCmd = &cobra.Command{
	Use:   "verify [<source> <destination>]",
	Short: "Check that generated sources match their binary inputs",
	Args:  zeroOrTwoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jobs, err := resolveJobs(cmd, args, &verifyFlags, verifyManifest)
		if err != nil {
			return err
		}
		return runVerify(jobs)
	},
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyManifest, "file", "f", "", "Manifest path when no <source> <destination> is given")
	verifyFlags.register(verifyCmd.Flags())
	rootCmd.AddCommand(verifyCmd)
}

// runVerify checks every job and fails if any output is stale or unreadable.
func runVerify(jobs []converter.Job) error {
	stale := 0
	for _, job := range jobs {
		label := filepath.Base(job.Output)
		if err := converter.Verify(job.Source, job.Output, job.Options); err != nil {
			stale++
			if _, serr := os.Stat(job.Output); errors.Is(err, converter.ErrStale) && errors.Is(serr, fs.ErrNotExist) {
				ui.PrintWarning(label, "not generated yet")
				continue
			}
			ui.PrintError(label, err.Error())
			continue
		}
		ui.PrintSuccess(label, "up to date")
	}

	if stale > 0 {
		return fmt.Errorf("%d of %d generated sources are stale", stale, len(jobs))
	}
	return nil
}
