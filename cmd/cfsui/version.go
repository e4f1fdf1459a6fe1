package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/vango-dev/cfsui/internal/cabinet"
)

// buildInfo describes this binary and the cabinet layout it reads.
type buildInfo struct {
	Version   string   `json:"version"`
	Commit    string   `json:"commit"`
	Built     string   `json:"built"`
	Go        string   `json:"go"`
	Platform  string   `json:"platform"`
	Backends  []string `json:"backends"`
	Encodings []string `json:"encodings"`
	Versions  string   `json:"versionLayout"`
}

func currentBuild() buildInfo {
	b := buildInfo{
		Version:   version,
		Commit:    commit,
		Built:     date,
		Go:        runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Backends:  []string{"fs", "s3"},
		Encodings: []string{"zlib", "aes-128-cfb"},
		Versions:  cabinet.VersionLayout,
	}
	// go install builds carry no ldflags; fall back to the module metadata.
	if info, ok := debug.ReadBuildInfo(); ok {
		if b.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			b.Version = info.Main.Version
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && b.Commit == "none" {
				b.Commit = s.Value
			}
		}
	}
	return b
}

func (b buildInfo) write(w io.Writer) {
	fmt.Fprintf(w, "cfsui %s\n", b.Version)
	fmt.Fprintf(w, "  Commit:     %s\n", b.Commit)
	fmt.Fprintf(w, "  Built:      %s\n", b.Built)
	fmt.Fprintf(w, "  Go:         %s %s\n", b.Go, b.Platform)
	fmt.Fprintf(w, "  Backends:   %v\n", b.Backends)
	fmt.Fprintf(w, "  Encodings:  %v\n", b.Encodings)
	fmt.Fprintf(w, "  Versions:   versions/<tag>/%s\n", b.Versions)
}

func versionCmd() *cobra.Command {
	var (
		short  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and supported cabinet formats",
		RunE: func(cmd *cobra.Command, args []string) error {
			b := currentBuild()
			out := cmd.OutOrStdout()
			switch {
			case short:
				fmt.Fprintln(out, b.Version)
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(b)
			default:
				b.write(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print build information as JSON")
	return cmd
}
