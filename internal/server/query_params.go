package server

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const dateOnlyLayout = "2006-01-02"

// parseOptionalUnix accepts epoch seconds, RFC3339 or a plain date. A plain
// date resolves to the start of the day, or its last second when endOfDay.
func parseOptionalUnix(value string, endOfDay bool) (*int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if secs, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return &secs, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		secs := parsed.Unix()
		return &secs, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		if endOfDay {
			parsed = parsed.Add(24*time.Hour - time.Second)
		}
		secs := parsed.Unix()
		return &secs, nil
	}
	return nil, errors.New("invalid_time")
}
