// Package cmd implements the command-line interface for taskdeck.
//
// This package provides the following commands:
//   - serve: Start the command server (HTTP) or the MCP server (stdio)
//   - auth: Run the Google OAuth consent flow and store the credential
//   - digest: Send the unfinished-task digest immediately
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
