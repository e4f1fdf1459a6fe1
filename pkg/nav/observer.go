package nav

import "time"

// Outcome classifies a finished dispatch.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeNotFound Outcome = "not_found"
	OutcomeInvalid  Outcome = "invalid"
	OutcomePanic    Outcome = "panic"
)

// Observer receives navigation events. Methods are called on the loop and
// must not block.
type Observer interface {
	Navigated(path, route string, outcome Outcome, d time.Duration)
	Rendered(templateID string, d time.Duration, err error)
	StaleDropped(path string)
}

type nopObserver struct{}

func (nopObserver) Navigated(string, string, Outcome, time.Duration) {}
func (nopObserver) Rendered(string, time.Duration, error)             {}
func (nopObserver) StaleDropped(string)                               {}

// MultiObserver fans events out to every observer in order.
func MultiObserver(observers ...Observer) Observer {
	return multiObserver(observers)
}

type multiObserver []Observer

func (m multiObserver) Navigated(path, route string, outcome Outcome, d time.Duration) {
	for _, o := range m {
		o.Navigated(path, route, outcome, d)
	}
}

func (m multiObserver) Rendered(templateID string, d time.Duration, err error) {
	for _, o := range m {
		o.Rendered(templateID, d, err)
	}
}

func (m multiObserver) StaleDropped(path string) {
	for _, o := range m {
		o.StaleDropped(path)
	}
}
