// Package browser binds the navigation controller to the live document
// when compiled for js/wasm.
//
//	page := browser.New()
//	app, err := ui.New(page, fetch.New(origin+"/api"))
//	page.Bind(app.Controller())
//	go app.Controller().Run(ctx)
//	app.Controller().Start()
package browser
