package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/spf13/cobra"

	"github.com/vango-dev/cfsui/internal/errors"
	"github.com/vango-dev/cfsui/pkg/tmpl"
)

func renderCmd() *cobra.Command {
	var (
		dataFile string
		dataJSON string
	)

	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template file to stdout",
		Long: `Compile a template and render it with data read from a JSON or YAML
file, or given inline with --json. Syntax and evaluation errors are
reported with their line and column.

Examples:
  cfsui render internal/ui/templates/stat.tmpl --json '{"stat":{"totalSize":1024,"fileCount":3}}'
  cfsui render tags-index.tmpl --data testdata/tag.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return errors.New("E102").Wrap(err)
			}

			data, err := loadData(dataFile, dataJSON)
			if err != nil {
				return err
			}

			name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			out, err := tmpl.Render(string(source), data, tmpl.WithName(name))
			if err != nil {
				return errors.FromError(err, string(source))
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dataFile, "data", "d", "", "JSON or YAML file with template data")
	cmd.Flags().StringVar(&dataJSON, "json", "", "Template data as a JSON object")
	return cmd
}

// loadData reads the template data; with neither source the data is empty.
func loadData(file, inline string) (map[string]any, error) {
	if file != "" && inline != "" {
		return nil, errors.New("E401").WithDetail("--data and --json are mutually exclusive")
	}

	data := map[string]any{}
	switch {
	case inline != "":
		if err := json.Unmarshal([]byte(inline), &data); err != nil {
			return nil, errors.New("E401").Wrap(err).WithDetail("--json is not a JSON object")
		}
	case file != "":
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(filepath.Ext(file)) {
		case ".yaml", ".yml":
			data, err = yaml.Parser().Unmarshal(raw)
		default:
			err = json.Unmarshal(raw, &data)
		}
		if err != nil {
			return nil, errors.New("E401").Wrap(err).WithDetail("cannot parse " + file)
		}
	}
	return data, nil
}
