// Package dev provides live reload for UI development.
//
// A polling Watcher scans the configured directories and reports batches of
// changes. Server compiles changed templates and then either tells connected
// browsers to reload, swaps stylesheets for CSS-only changes, or shows an
// error overlay naming the broken template.
//
//	srv := dev.NewServer(dev.ServerOptions{Config: cfg})
//	r.Handle(dev.ReloadPath, srv.Handler())
//	go srv.Start(ctx)
//
// The browser side is DevClientScript, injected into the UI shell.
package dev
