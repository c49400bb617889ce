// Package ingest contains the sync and promote orchestrators. Each run is
// single-threaded and idempotent: correctness under overlapping runs comes
// from content-hash upserts, not locking.
package ingest

import (
	"regexp"
	"time"
)

// forwardPrefix matches forwarded/reply subject prefixes, which are never
// issuer alerts.
var forwardPrefix = regexp.MustCompile(`(?i)^\s*(?:re|fwd?|rv)\s*:`)

// LocalDate converts a server-assigned arrival timestamp to a calendar date
// in the business timezone.
func LocalDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}
