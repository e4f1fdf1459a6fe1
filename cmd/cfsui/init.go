package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/cfsui/internal/templates"
)

func initCmd() *cobra.Command {
	var (
		template string
		cfg      templates.Config
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a cfsui.yaml and an empty cabinet",
		Long: `Write a starter configuration into dir (default: current directory).

Templates:
  minimal   cfsui.yaml and an empty cabinet (default)
  s3        cfsui.yaml for a cabinet in an S3 bucket
  custom    minimal plus editable UI templates and assets

Examples:
  cfsui init
  cfsui init docs --template=custom
  cfsui init --template=s3 --bucket=my-cabinet --endpoint=http://localhost:9000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			tmpl, err := templates.Get(template)
			if err != nil {
				return err
			}
			if cfg.Name == "" {
				abs, _ := filepath.Abs(dir)
				cfg.Name = metricsName(filepath.Base(abs))
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			if err := tmpl.Create(dir, cfg); err != nil {
				return err
			}

			success("Created %s project in %s", tmpl.Name, dir)
			fmt.Println()
			info("Next steps:")
			if tmpl.Backend == "fs" {
				info("  cfsui pack -c %s <tag> <dir>", dir)
			}
			if tmpl.CopyUI {
				info("  cfsui serve -c %s --reload", dir)
			} else {
				info("  cfsui serve -c %s", dir)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "minimal", "Starter template (minimal, s3, custom)")
	cmd.Flags().StringVar(&cfg.Name, "name", "", "Metrics namespace (default: directory name)")
	cmd.Flags().StringVar(&cfg.Addr, "addr", "", "Listen address")
	cmd.Flags().StringVar(&cfg.StoreDir, "store", "", "Cabinet directory")
	cmd.Flags().StringVar(&cfg.Bucket, "bucket", "", "S3 bucket")
	cmd.Flags().StringVar(&cfg.Region, "region", "", "S3 region")
	cmd.Flags().StringVar(&cfg.Endpoint, "endpoint", "", "S3-compatible endpoint")
	return cmd
}

// metricsName turns a directory name into a Prometheus namespace.
func metricsName(s string) string {
	var b strings.Builder
	for i, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "cfsui"
	}
	return name
}
