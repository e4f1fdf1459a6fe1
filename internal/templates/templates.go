package templates

import (
	"bytes"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/vango-dev/cfsui/internal/cabinet"
	"github.com/vango-dev/cfsui/internal/config"
	"github.com/vango-dev/cfsui/internal/errors"
	"github.com/vango-dev/cfsui/internal/ui"
)

// Config contains template variables.
type Config struct {
	Name     string
	Addr     string
	StoreDir string

	Bucket   string
	Region   string
	Endpoint string
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "cfsui"
	}
	if c.Addr == "" {
		c.Addr = config.DefaultAddr
	}
	if c.StoreDir == "" {
		c.StoreDir = "cabinet"
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	return c
}

// Template is a starter layout.
type Template struct {
	Name        string
	Description string

	// Files maps relative paths to text/template sources.
	Files map[string]string

	// Backend is the store backend the generated config selects.
	Backend string

	// CopyUI copies the UI templates and assets into internal/ui.
	CopyUI bool
}

var templates = map[string]*Template{
	"minimal": {
		Name:        "minimal",
		Description: "Config and an empty cabinet",
		Files:       map[string]string{config.ConfigFileName: fsConfig},
		Backend:     "fs",
	},
	"s3": {
		Name:        "s3",
		Description: "Config for a cabinet in an S3 bucket",
		Files:       map[string]string{config.ConfigFileName: s3Config},
		Backend:     "s3",
	},
	"custom": {
		Name:        "custom",
		Description: "Config, an empty cabinet and editable UI sources",
		Files:       map[string]string{config.ConfigFileName: fsConfig + devConfig},
		Backend:     "fs",
		CopyUI:      true,
	},
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New("E401").
			WithDetail("Template '" + name + "' not found").
			WithSuggestion("Available templates: " + strings.Join(List(), ", "))
	}
	return tmpl, nil
}

// List returns the template names in order.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create writes the template into dir. Existing files are not overwritten.
func (t *Template) Create(dir string, cfg Config) error {
	cfg = cfg.withDefaults()

	for relPath, content := range t.Files {
		tmpl, err := template.New(relPath).Parse(content)
		if err != nil {
			return errors.Newf(errors.CategoryCLI, "invalid template %s: %v", relPath, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, cfg); err != nil {
			return errors.Newf(errors.CategoryCLI, "template execute error %s: %v", relPath, err)
		}
		if err := writeNew(filepath.Join(dir, relPath), buf.Bytes()); err != nil {
			return err
		}
	}

	if t.Backend == "fs" {
		store := cabinet.NewFileStore(filepath.Join(dir, cfg.StoreDir))
		if err := store.Init(); err != nil {
			return errors.New("E302").Wrap(err)
		}
	}

	if t.CopyUI {
		uiDir := filepath.Join(dir, "internal", "ui")
		if err := copyFS(ui.Templates(), filepath.Join(uiDir, "templates")); err != nil {
			return err
		}
		if err := copyFS(ui.Assets(), filepath.Join(uiDir, "assets")); err != nil {
			return err
		}
	}
	return nil
}

func writeNew(fullPath string, data []byte) error {
	if _, err := os.Stat(fullPath); err == nil {
		return errors.New("E401").WithDetail(fullPath + " already exists")
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, data, 0644)
}

func copyFS(fsys fs.FS, dest string) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		return writeNew(filepath.Join(dest, filepath.FromSlash(path.Clean(p))), data)
	})
}

const fsConfig = `# cfsui configuration. Every key can be overridden with a CFSUI_
# environment variable, e.g. CFSUI_SERVER__ADDR=:9000.

server:
  addr: "{{.Addr}}"
  root: /ui
  api_root: /api

store:
  backend: fs
  dir: {{.StoreDir}}
  cache_size: 64

client:
  api_url: "http://{{.Addr}}/api"
  retries: 3
  policy: latest

log:
  level: info
  format: text

metrics:
  enabled: true
  namespace: {{.Name}}
`

const s3Config = `# cfsui configuration. Credentials fall back to CFSUI_STORE__S3__ACCESS_KEY
# and CFSUI_STORE__S3__SECRET_KEY.

server:
  addr: "{{.Addr}}"
  root: /ui
  api_root: /api

store:
  backend: s3
  cache_size: 64
  s3:
    bucket: {{.Bucket}}
    region: {{.Region}}
{{- if .Endpoint}}
    endpoint: {{.Endpoint}}
    path_style: true
{{- end}}

client:
  api_url: "http://{{.Addr}}/api"

metrics:
  enabled: true
  namespace: {{.Name}}
`

const devConfig = `
dev:
  watch:
    - internal/ui/templates
    - internal/ui/assets
  ignore:
    - "**/.*"
`
