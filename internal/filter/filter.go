// Package filter derives the display list from a call snapshot.
package filter

import (
	"fmt"
	"strings"

	"dispatchdesk/internal/call"
)

// All is the criticality value that disables the criticality predicate.
const All = "all"

// DefaultLimit is the number of calls shown when no limit is configured.
const DefaultLimit = 20

// Criteria are the operator's current filter inputs.
type Criteria struct {
	Query string
	// Criticality is "all" or one of high, medium, low, matched exactly.
	// Empty means "all". Use ParseCriticality to normalize user input.
	Criticality string
	// Limit caps the result. Zero or negative yields no calls.
	Limit int
}

// Apply returns the calls in snapshot that match c, in snapshot order, capped
// at c.Limit. It has no side effects and never returns snapshot's backing
// array.
func Apply(snapshot []call.Call, c Criteria) []call.Call {
	out := make([]call.Call, 0, min(len(snapshot), max(c.Limit, 0)))
	if c.Limit <= 0 {
		return out
	}

	query := strings.ToLower(c.Query)
	crit := c.Criticality

	for _, cl := range snapshot {
		if query != "" && !matchesQuery(cl, query) {
			continue
		}
		if crit != "" && crit != All && string(cl.Criticality) != crit {
			continue
		}
		out = append(out, cl)
	}

	// The cap goes last so it always keeps the newest matches.
	if len(out) > c.Limit {
		out = out[:c.Limit]
	}
	return out
}

func matchesQuery(c call.Call, query string) bool {
	fields := [...]string{c.PhoneNumber, c.AddressLine(), c.Condition, c.CallID}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

// ParseCriticality validates a criticality filter value from user input.
func ParseCriticality(s string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" || v == All {
		return All, nil
	}
	if !call.Criticality(v).Valid() {
		return "", fmt.Errorf("invalid criticality %q (use all, high, medium or low)", s)
	}
	return v, nil
}

// Counts reports how many calls the criteria match before the cap and the
// snapshot size, for a "shown / total" header.
func Counts(snapshot []call.Call, c Criteria) (matched, total int) {
	uncapped := c
	uncapped.Limit = len(snapshot)
	return len(Apply(snapshot, uncapped)), len(snapshot)
}
