package appointment

import (
	"fmt"
	"strings"
	"time"
)

// LoadZone returns the *time.Location for an IANA zone name. Unlike
// time.LoadLocation it rejects the empty string instead of mapping it to UTC.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("appointment: timezone is required")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("appointment: load timezone %q: %w", name, err)
	}
	return loc, nil
}

// ParseReferenceTime parses a caller supplied reference instant and converts
// it to loc. Accepted forms:
//   - RFC3339 with offset or Z: "2025-09-19T10:00:00+05:30"
//   - naive datetime: "2025-09-19T10:00:00", read as loc local time
//   - date only: "2025-09-19", read as midnight in loc
func ParseReferenceTime(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw = strings.TrimSpace(raw)

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", dateLayout} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("appointment: cannot parse reference time %q", raw)
}
