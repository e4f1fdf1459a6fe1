package router

import (
	"regexp"

	"github.com/vango-dev/cfsui/pkg/routepath"
)

// Params maps placeholder names to the values captured from a path.
type Params map[string]string

// Get returns the value captured for name, or "" if the route has no such
// placeholder.
func (p Params) Get(name string) string {
	return p[name]
}

// Handler is invoked with the captured parameters of a matched route.
type Handler func(params Params)

// Route is a registered pattern with its compiled matcher.
// Routes are never modified after registration.
type Route struct {
	// Pattern is the pattern as registered (e.g. "/tags/:id").
	Pattern string

	// ParamNames are the placeholder names in the order they appear.
	ParamNames []string

	// Handler is called when the route wins a navigation.
	Handler Handler

	// Index is the registration position, which is also the match priority.
	Index int

	matcher *regexp.Regexp
}

// Match tests path (already stripped of the application root) against the route
// and returns the captured parameters.
func (r *Route) Match(path string) (Params, bool) {
	captures := r.matcher.FindStringSubmatch(path)
	if captures == nil {
		return nil, false
	}

	params := make(Params, len(r.ParamNames))
	for i, name := range r.ParamNames {
		value, err := routepath.DecodeSegment(captures[i+1])
		if err != nil {
			return nil, false
		}
		params[name] = value
	}
	return params, true
}

// Expr returns the regular expression the pattern compiled to.
func (r *Route) Expr() string {
	return r.matcher.String()
}

// MatchResult is produced once per navigation and consumed by the handler.
type MatchResult struct {
	// Route is the winning route.
	Route *Route

	// Params are the values captured for Route.ParamNames.
	Params Params

	// Path is the path that was matched, after root stripping.
	Path string
}
