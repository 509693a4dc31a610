package app

import "strings"

// Span attributes get unwieldy past this size, migrations in particular.
const maxTracedQueryLength = 512

// formatDBQueryForTrace collapses runs of whitespace to single spaces and
// truncates long statements before they land on a span.
func formatDBQueryForTrace(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}

	flat := strings.Join(fields, " ")
	if len(flat) > maxTracedQueryLength {
		flat = flat[:maxTracedQueryLength] + "..."
	}
	return flat
}
