package nav

import (
	"errors"
	"fmt"
)

var (
	// ErrTemplateNotFound is returned by RenderInto when the page has no
	// template with the requested id.
	ErrTemplateNotFound = errors.New("nav: template not found")

	// ErrRunning is returned when Run is called on a controller whose loop is
	// already running.
	ErrRunning = errors.New("nav: controller already running")

	// ErrClosed is returned for work posted after Close.
	ErrClosed = errors.New("nav: controller closed")
)

// TemplateNotFoundError reports a missing template id.
type TemplateNotFoundError struct {
	ID string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("nav: template %q not found", e.ID)
}

// Unwrap allows errors.Is(err, ErrTemplateNotFound).
func (e *TemplateNotFoundError) Unwrap() error {
	return ErrTemplateNotFound
}
