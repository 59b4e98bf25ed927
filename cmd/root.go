package cmd

import (
	"fmt"
	"os"

	"github.com/qaartru2266-jpg/hxc143/internal/converter"
	"github.com/qaartru2266-jpg/hxc143/internal/emitter"
	"github.com/qaartru2266-jpg/hxc143/internal/ui"
	"github.com/qaartru2266-jpg/hxc143/pkg/log"
	"github.com/qaartru2266-jpg/hxc143/version"
	"github.com/spf13/cobra"
)

var (
	// logLevel and logFile configure the global logger for every command.
	logLevel string
	logFile  string

	convertFlags emitterFlags
)

// rootCmd represents the base command: convert one binary file into a C++ source.
var rootCmd = &cobra.Command{
	Use:   "bin2cc <source> <destination>",
	Short: "Convert a binary file into a C++ byte array source",
	Long: `bin2cc reads a binary file and writes a C++ source declaring its bytes as
an aligned unsigned char array (g_model) and its size (g_model_len), ready to be
compiled into firmware.`,
	Version:       version.Version,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	// A source file may be called "completion"; keep it from being taken as a subcommand.
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stdout) {
			ui.DisableColor()
		}
		return log.Init(logFile, logLevel)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(args[0], args[1], convertFlags.options())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute runs the command line args and closes the log file afterwards,
// whether or not the command succeeded.
func execute(args []string) error {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	log.Close()
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
	convertFlags.register(rootCmd.Flags())
}

// runConvert converts src into the generated source dst.
func runConvert(src, dst string, opts emitter.Options) error {
	_, err := converter.Convert(src, dst, opts)
	return err
}

// isTerminal reports whether f is a character device, i.e. an interactive terminal.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
