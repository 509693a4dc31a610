package app

import (
	"net/url"
	"strings"
)

// normalizeDBURL appends disable_prepared_binary_result=yes when the pq
// workaround is enabled and the DSN does not already pick a value. Both
// postgres:// URLs and key/value DSNs are handled.
func normalizeDBURL(raw string, disablePreparedBinaryResult bool) string {
	if !disablePreparedBinaryResult {
		return raw
	}

	if parsed := parseDBURL(raw); parsed != nil {
		q := parsed.Query()
		if q.Has("disable_prepared_binary_result") {
			return raw
		}
		q.Set("disable_prepared_binary_result", "yes")
		parsed.RawQuery = q.Encode()
		return parsed.String()
	}

	if dsnValue(raw, "disable_prepared_binary_result") != "" {
		return raw
	}
	return strings.TrimSpace(raw) + " disable_prepared_binary_result=yes"
}

// dbNameFromURL extracts the database name for log and trace attributes.
// It returns "" when the DSN does not name one.
func dbNameFromURL(raw string) string {
	if parsed := parseDBURL(raw); parsed != nil {
		return strings.Trim(parsed.Path, "/ ")
	}
	return dsnValue(raw, "dbname")
}

// parseDBURL returns the parsed URL form of the DSN, or nil for key/value
// style strings.
func parseDBURL(raw string) *url.URL {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" {
		return nil
	}
	return parsed
}

// dsnValue scans a key/value DSN for the given key.
func dsnValue(raw, key string) string {
	for _, token := range strings.Fields(raw) {
		k, v, ok := strings.Cut(token, "=")
		if !ok || k != key {
			continue
		}
		return strings.Trim(v, `"'`)
	}
	return ""
}
