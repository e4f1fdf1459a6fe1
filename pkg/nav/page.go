package nav

import "github.com/vango-dev/cfsui/pkg/routepath"

// Page is the document the controller drives.
type Page interface {
	// Path returns the current location (path plus optional query).
	Path() string

	// PushState records url as a new history entry without reloading.
	PushState(url string)

	// ReplaceState replaces the current history entry with url.
	ReplaceState(url string)

	// SetHTML replaces the content of the region matched by selector.
	SetHTML(selector, html string) error

	// Template returns the template source registered under id.
	Template(id string) (string, bool)

	// SetActive marks the navigation item id of group as active and clears
	// the others. Pages without navigation chrome may ignore it.
	SetActive(group, id string)
}

// ShouldIntercept reports whether a click on a link to href is handled in
// page: the href is an absolute path on the same origin and the link is not
// opted out.
func ShouldIntercept(href string, optOut bool) bool {
	if optOut {
		return false
	}
	return routepath.ValidateNavPath(href) == nil
}
