package main

import "github.com/qaartru2266-jpg/hxc143/cmd"

// main is the entry point of the bin2cc CLI application.
// It executes the root command which handles argument parsing and subcommand dispatch.
func main() {
	cmd.Execute()
}
