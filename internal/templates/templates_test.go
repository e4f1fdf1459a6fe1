package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/cfsui/internal/config"
)

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"minimal", false},
		{"s3", false},
		{"custom", false},
		{"nonexistent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Get(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tmpl.Name != tt.name {
				t.Errorf("Name = %q, want %q", tmpl.Name, tt.name)
			}
		})
	}
}

func TestList(t *testing.T) {
	if got := strings.Join(List(), ","); got != "custom,minimal,s3" {
		t.Errorf("List() = %s", got)
	}
}

func TestCreateMinimal(t *testing.T) {
	dir := t.TempDir()
	tmpl, _ := Get("minimal")
	if err := tmpl.Create(dir, Config{Name: "docs", Addr: "localhost:9000"}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("generated config invalid: %v", err)
	}
	if cfg.Server.Addr != "localhost:9000" || cfg.Metrics.Namespace != "docs" || cfg.Store.Backend != "fs" {
		t.Errorf("config = %+v", cfg)
	}
	for _, sub := range []string{"tags", "versions", "data"} {
		if _, err := os.Stat(filepath.Join(dir, "cabinet", sub)); err != nil {
			t.Errorf("cabinet layout: %v", err)
		}
	}

	if err := tmpl.Create(dir, Config{}); err == nil {
		t.Error("Create() overwrote an existing config")
	}
}

func TestCreateS3(t *testing.T) {
	dir := t.TempDir()
	tmpl, _ := Get("s3")
	if err := tmpl.Create(dir, Config{Bucket: "cab", Endpoint: "http://localhost:9000"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	s3 := cfg.Store.S3
	if cfg.Store.Backend != "s3" || s3.Bucket != "cab" || s3.Endpoint != "http://localhost:9000" || !s3.PathStyle {
		t.Errorf("s3 config = %+v", s3)
	}
	if _, err := os.Stat(filepath.Join(dir, "cabinet")); err == nil {
		t.Error("s3 template created a local cabinet")
	}
}

func TestCreateCustom(t *testing.T) {
	dir := t.TempDir()
	tmpl, _ := Get("custom")
	if err := tmpl.Create(dir, Config{}); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"internal/ui/templates/tags-index.tmpl",
		"internal/ui/assets/index.html",
		"internal/ui/assets/boot.js",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s", name)
		}
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Dev.Watch) != 2 {
		t.Errorf("dev.watch = %v", cfg.Dev.Watch)
	}
}
