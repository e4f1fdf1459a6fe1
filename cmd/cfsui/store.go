package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vango-dev/cfsui/internal/cabinet"
	"github.com/vango-dev/cfsui/internal/config"
	"github.com/vango-dev/cfsui/internal/errors"
)

// storeDir resolves the fs backend directory against the config file.
func storeDir(cfg *config.Config) string {
	dir := cfg.Store.Dir
	if !filepath.IsAbs(dir) && cfg.Dir() != "" {
		dir = filepath.Join(cfg.Dir(), dir)
	}
	return dir
}

// openStore opens the configured cabinet backend.
func openStore(cfg *config.Config) (cabinet.Store, error) {
	switch cfg.Store.Backend {
	case "s3":
		s3 := cfg.Store.S3
		return cabinet.NewS3Store(cabinet.S3Options{
			Bucket:    s3.Bucket,
			Prefix:    s3.Prefix,
			Region:    s3.Region,
			Endpoint:  s3.Endpoint,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			PathStyle: s3.PathStyle,
		}), nil
	default:
		dir := storeDir(cfg)
		info, err := os.Stat(dir)
		if err != nil {
			return nil, errors.New("E302").Wrap(err).
				WithSuggestion(fmt.Sprintf("Create it with `cfsui pack --init` or set store.dir (currently %q).", dir))
		}
		if !info.IsDir() {
			return nil, errors.New("E302").WithDetail(dir + " is not a directory")
		}
		return cabinet.NewFileStore(dir), nil
	}
}
