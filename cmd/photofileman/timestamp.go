package main

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Colon-separated EXIF date/time patterns with an explicit numeric
// offset, with and without a fractional-seconds group. The fraction is
// normalized to exactly six digits before these are tried.
var offsetLayouts = []string{
	"2006:01:02 15:04:05.000000-07:00",
	"2006:01:02 15:04:05-07:00",
	"2006:01:02 15:04:05.000000-0700",
	"2006:01:02 15:04:05-0700",
}

// Generic international formats. Layouts without an offset are
// localized with the process's current timezone.
var isoLayouts = []struct {
	layout    string
	hasOffset bool
}{
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05.999999999-0700", true},
	{"2006-01-02 15:04:05.999999999Z07:00", true},
	{"2006-01-02 15:04:05.999999999-0700", true},
	{"2006-01-02T15:04:05.999999999", false},
	{"2006-01-02 15:04:05.999999999", false},
	{"2006-01-02", false},
}

// Date-only forms with a numeric offset; the GPS date stamp ends up
// here once saveMetadata appends the assumed offset.
var dateOnlyLayouts = []string{
	"2006:01:02-07:00",
	"2006:01:02-0700",
}

const colonLayout = "2006:01:02 15:04:05"

// zoneAbbrevs resolves the named-timezone suffix some vendors write
// after the timestamp. Only the trailing three characters are
// consulted, mirroring how such strings appear in the wild.
var zoneAbbrevs = map[string]string{
	"UTC": "UTC",
	"GMT": "UTC",
	"EST": "America/New_York",
	"EDT": "America/New_York",
	"CST": "America/Chicago",
	"CDT": "America/Chicago",
	"MST": "America/Denver",
	"MDT": "America/Denver",
	"PST": "America/Los_Angeles",
	"PDT": "America/Los_Angeles",
	"HST": "Pacific/Honolulu",
	"BST": "Europe/London",
	"CET": "Europe/Paris",
	"EET": "Europe/Helsinki",
	"IST": "Asia/Kolkata",
	"JST": "Asia/Tokyo",
	"KST": "Asia/Seoul",
	"SGT": "Asia/Singapore",
	"HKT": "Asia/Hong_Kong",
}

// parseTimestamp converts a raw metadata timestamp into a
// timezone-aware instant. Values that are already instants pass through
// unchanged. Strategies are ordered by decreasing confidence: explicit
// numeric offset, then ISO forms, then a named zone, then the local
// zone, then date-only. Failure returns errUnparseableTimestamp; the
// caller treats the candidate as missing.
func parseTimestamp(value any) (time.Time, error) {
	if t, ok := value.(time.Time); ok {
		return t, nil
	}
	s, ok := value.(string)
	if !ok {
		return time.Time{}, errUnparseableTimestamp
	}
	s = strings.TrimSpace(s)

	// 1. Colon-separated pattern with numeric offset, fractional
	// seconds padded or truncated to microsecond precision.
	for _, sep := range []string{"-", "+"} {
		ds := normalizeFraction(s, sep)
		for _, layout := range offsetLayouts {
			if t, err := time.Parse(layout, ds); err == nil {
				return t, nil
			}
		}
	}

	// 2. Generic international formats.
	for _, iso := range isoLayouts {
		if iso.hasOffset {
			if t, err := time.Parse(iso.layout, s); err == nil {
				return t, nil
			}
		} else if t, err := time.ParseInLocation(iso.layout, s, time.Local); err == nil {
			return t, nil
		}
	}

	// 3. Colon-separated pattern followed by a named zone, resolved via
	// the timezone database keyed by the last three characters.
	if len(s) > 3 {
		if name, ok := zoneAbbrevs[s[len(s)-3:]]; ok {
			if loc, err := time.LoadLocation(name); err == nil {
				head := strings.TrimSpace(s[:len(s)-3])
				if t, err := time.ParseInLocation(colonLayout, head, loc); err == nil {
					return t, nil
				}
			}
		}
	}

	// 4. Assume the local zone for a bare colon-separated timestamp.
	// Less accurate than using GPS data to find the real zone, but it
	// keeps naive instants out of the comparison logic.
	if t, err := time.ParseInLocation(colonLayout, s, time.Local); err == nil {
		return t, nil
	}

	// 5. Date-only with offset.
	for _, layout := range dateOnlyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	log.Warn().Str("value", s).Msg("failed to parse timestamp")
	return time.Time{}, errUnparseableTimestamp
}

// normalizeFraction pads or truncates a fractional-seconds group to
// exactly six digits when the string carries one ahead of a numeric
// offset introduced by sep. Anything else is returned unchanged.
func normalizeFraction(s, sep string) string {
	head, tail, found := strings.Cut(s, sep)
	if !found || !strings.Contains(head, ".") {
		return s
	}
	base, frac, _ := strings.Cut(head, ".")
	for len(frac) < 6 {
		frac += "0"
	}
	return base + "." + frac[:6] + sep + tail
}

// parseSinceDate converts the optional since parameter to a date used
// to filter files. Returns the zero time when nothing matches.
func parseSinceDate(input string) time.Time {
	for _, layout := range []string{"2006-01-02", "01/02/06", "2006:01:02"} {
		if t, err := time.ParseInLocation(layout, input, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
