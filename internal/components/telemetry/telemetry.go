package telemetry

import (
	"fmt"
)

// API is where scrape components send logs and counters. Tests swap it for a
// TestAPI to assert on what was reported.
type API interface {
	// ReportBroken reports a deck, page or listing that could not be handled.
	//
	// id names the component, ex. "client.fetch" or "deck.parse-card", it is
	// lowercase with dashes between words. Details such as the deck name or
	// url go into params.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something odd that the scrape recovered from,
	// ex. a card link that had to be replaced by the fallback.
	ReportWarning(id string, params ...any)

	// ReportDebug is only visible with --verbose.
	ReportDebug(msg string, params ...any)

	// ReportCount reports a gauge, ex. the amount of decks left in a stage.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, usually the package name.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return fmt.Sprintf("%s.%s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}
