// Package router implements the client-side pattern router.
//
// Routes are declared with path patterns made of literal segments and named
// placeholders:
//
//	/tags/:id
//	/tags/:id/versions/:version
//
// Every placeholder matches one run of characters up to the next "/". Routes are
// collected on a Builder and sealed into an immutable Router before the first
// navigation:
//
//	b := router.NewBuilder(router.WithRoot("/ui"))
//	b.MustRegister("/", showIndex)
//	b.MustRegister("/tags/:id", showTag)
//	r := b.Seal()
//
//	result, err := r.Resolve("/ui/tags/42")
//	// result.Params["id"] == "42"
//
// # Priority
//
// Registration order is match priority. Resolve scans routes in the order they
// were registered and returns the first route that accepts the path; there is no
// "most specific" ranking. Registering "/tags/:id" before "/tags/special" means
// "/tags/special" is handled by the ":id" route.
//
// # Dispatch
//
// Dispatch resolves a path, runs the matched handler and only then records the
// path through the caller-provided recorder, so history reflects a completed
// navigation decision even though the handler's data may still be loading.
package router
