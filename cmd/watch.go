package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/qaartru2266-jpg/hxc143/internal/converter"
	"github.com/qaartru2266-jpg/hxc143/internal/ui"
	"github.com/qaartru2266-jpg/hxc143/internal/watch"
	"github.com/spf13/cobra"
)

var (
	watchManifest string
	watchFlags    emitterFlags
)

// watchCmd represents the watch command.
var watchCmd = &cobra.Command{
	Use:   "watch [<source> <destination>]",
	Short: "Convert, then regenerate whenever a source file changes",
	Long: `watch converts a single file, or every manifest target when no arguments are
given, and keeps regenerating outputs as their sources change until interrupted.`,
	Args: zeroOrTwoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jobs, err := resolveJobs(cmd, args, &watchFlags, watchManifest)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runWatch(ctx, jobs)
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchManifest, "file", "f", "", "Manifest path when no <source> <destination> is given")
	watchFlags.register(watchCmd.Flags())
	rootCmd.AddCommand(watchCmd)
}

// runWatch regenerates the jobs' outputs until ctx is cancelled.
func runWatch(ctx context.Context, jobs []converter.Job) error {
	return watch.Run(ctx, jobs, func(res converter.Result, err error) {
		label := filepath.Base(res.Output)
		switch {
		case err != nil:
			ui.PrintError(label, err.Error())
		case res.Changed:
			ui.PrintSuccess(label, "regenerated")
		}
	})
}
