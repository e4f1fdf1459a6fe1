//go:build js && wasm

// Command cfsui-wasm is the browser runtime of the cabinet UI. Build it with
//
//	GOOS=js GOARCH=wasm go build -o internal/ui/assets/cfsui.wasm ./cmd/cfsui-wasm
package main

import (
	"context"
	"log/slog"
	"os"
	"syscall/js"

	"github.com/vango-dev/cfsui/internal/ui"
	"github.com/vango-dev/cfsui/pkg/browser"
	"github.com/vango-dev/cfsui/pkg/fetch"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	origin := js.Global().Get("location").Get("origin").String()
	page := browser.New()
	app, err := ui.New(page, fetch.New(origin+"/api", fetch.WithLogger(logger)), ui.WithLogger(logger))
	if err != nil {
		logger.Error("init failed", "error", err)
		return
	}
	page.Bind(app.Controller())
	app.Controller().Start()

	if err := app.Controller().Run(context.Background()); err != nil {
		logger.Error("navigation loop stopped", "error", err)
	}
}
