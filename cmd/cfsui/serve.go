package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/cfsui/internal/apiserver"
	"github.com/vango-dev/cfsui/internal/cabinet"
	"github.com/vango-dev/cfsui/internal/dev"
)

func serveCmd() *cobra.Command {
	var (
		addr   string
		store  string
		reload bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the API and the UI",
		Long: `Serve the cabinet API under /api and the UI under /ui.

With --reload the UI templates and assets are read from disk and
connected browsers reload when they change.

Examples:
  cfsui serve
  cfsui serve --addr=:8086 --store=/srv/cabinet
  cfsui serve --reload`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if store != "" {
				cfg.Store.Backend = "fs"
				cfg.Store.Dir = store
			}
			if reload {
				cfg.Dev.Reload = true
			}

			logger := cfg.Logger(os.Stderr)
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			cab := cabinet.New(st, cabinet.WithLogger(logger), cabinet.WithCacheSize(cfg.Store.CacheSize))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := []apiserver.Option{apiserver.WithLogger(logger)}
			if cfg.Dev.Reload {
				devServer := dev.NewServer(dev.ServerOptions{
					Config: cfg,
					Logger: logger,
					OnReload: func(clients int) {
						success("Reloaded %d browsers", clients)
					},
				})
				go func() {
					if err := devServer.Start(ctx); err != nil {
						warn("watcher stopped: %v", err)
					}
				}()
				opts = append(opts, apiserver.WithDevServer(devServer))

				uiDir := filepath.Join(cfg.Dir(), "internal", "ui")
				if _, err := os.Stat(uiDir); err == nil {
					opts = append(opts, apiserver.WithUIFiles(
						os.DirFS(filepath.Join(uiDir, "assets")),
						os.DirFS(filepath.Join(uiDir, "templates")),
					))
				}
			}

			srv := apiserver.New(cfg, cab, opts...)
			success("Serving %s on http://%s%s/", describeStore(cfg.Store.Backend, st), cfg.Server.Addr, cfg.Server.Root)
			if cfg.Auth.Enabled() {
				info("basic auth enabled for %s and %s", cfg.Server.APIRoot, cfg.Server.Root)
			}
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from cfsui.yaml)")
	cmd.Flags().StringVarP(&store, "store", "s", "", "Cabinet directory (forces the fs backend)")
	cmd.Flags().BoolVarP(&reload, "reload", "r", false, "Watch UI sources and reload browsers")
	return cmd
}

func describeStore(backend string, st cabinet.Store) string {
	if fs, ok := st.(*cabinet.FileStore); ok {
		return fs.Root()
	}
	return backend
}
