package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the taskdeck application
var rootCmd = &cobra.Command{
	Use:   "taskdeck",
	Short: "Keeps day-keyed task lists in sync with Google Calendar",
	Long: `taskdeck manages daily task lists stored in day buckets and mirrors
linked tasks to Google Calendar events. Finished tasks are checked off on the
calendar, and unfinished tasks can be mailed out as a nightly digest.

It can run as:
  - An HTTP command server (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "taskdeck version %s\n" .Version}}`)

	// Google client credentials usually live in a local .env file.
	// A missing file is fine; the environment may carry them already.
	_ = godotenv.Load()

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newDigestCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
