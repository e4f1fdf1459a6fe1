package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/cfsui/internal/config"
	"github.com/vango-dev/cfsui/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// configDir is the directory cfsui.yaml is read from.
var configDir string

func main() {
	rootCmd := &cobra.Command{
		Use:   "cfsui",
		Short: "Browse content file cabinets",
		Long: `cfsui serves a small single-page UI for content file cabinets.

The server exposes tags, versions and files over a JSON API and serves
the UI shell; the browser runtime routes /ui paths and renders pages
from inline templates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", ".", "Directory containing cfsui.yaml")

	rootCmd.AddCommand(
		initCmd(),
		serveCmd(),
		browseCmd(),
		renderCmd(),
		routesCmd(),
		packCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
