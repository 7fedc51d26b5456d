package extractor

import "time"

// SetClock replaces the clock used for cache expiry.
func (e *Extractor) SetClock(now func() time.Time) {
	e.now = now
}

var Summarize = summarize
