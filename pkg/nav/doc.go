// Package nav is the navigation controller: it turns link clicks, history
// changes and the initial page load into router dispatches, and feeds handler
// results into the template renderer.
//
// All dispatch and page mutation happens on one goroutine, the loop started by
// Run. Handlers run on the loop and return immediately; slow work (typically
// an API fetch) is started with Async and its completion is posted back to
// the loop, where it may call RenderInto:
//
//	b := router.NewBuilder(router.WithRoot("/ui"))
//	c := nav.New(b.Seal(), page)
//	b.MustRegister("/tags/:id", func(p router.Params) {
//	    c.Async(func(ctx context.Context) (any, error) {
//	        return client.GetJSON(ctx, "/tags/"+p["id"])
//	    }, func(v any, err error) {
//	        c.RenderInto(".content", "tag", v)
//	    })
//	})
//	go c.Run(ctx)
//	c.Start()
//
// The visible URL is recorded right after the handler returns, before its data
// arrives. When a new navigation starts before an older one's data arrives,
// the Policy decides whether the older completion is still delivered.
package nav
