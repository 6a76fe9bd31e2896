package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// candidateDates assembles the four timestamp candidates. Any candidate
// missing from the metadata defaults to the first one found in priority
// order, so every slot is defined once any is known.
func candidateDates(fc *fileContext, first time.Time) []time.Time {
	dates := make([]time.Time, 0, len(timeKeys))
	for _, key := range timeKeys {
		if t, ok := fc.metadata[key].(time.Time); ok {
			dates = append(dates, t)
		} else {
			dates = append(dates, first)
		}
	}
	return dates
}

// firstCandidate returns the highest-priority timestamp present.
func firstCandidate(fc *fileContext) (time.Time, bool) {
	for _, key := range timeKeys {
		if t, ok := fc.metadata[key].(time.Time); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// getDate resolves the effective timestamp for the file: the earliest
// of the candidate fields. Vendors sometimes populate a digitized or
// preview field with an earlier, more accurate capture time than the
// nominal primary field, so the minimum wins, not the first priority.
func (app *application) getDate(fc *fileContext) (time.Time, error) {
	if t, ok := fc.firstDate(); ok {
		return t, nil
	}

	if len(fc.metadata) == 0 {
		raw, err := extractMetadata(fc)
		if err != nil {
			return time.Time{}, err
		}
		if err := saveMetadata(fc, raw); err != nil {
			return time.Time{}, err
		}
	}

	first, found := firstCandidate(fc)
	if !found && !fc.ranExiftool {
		// The native reader under-reports some fields; the external
		// tool may still find a timestamp.
		if raw, err := readExiftool(fc); err == nil {
			if err := saveMetadata(fc, raw); err != nil {
				return time.Time{}, err
			}
			first, found = firstCandidate(fc)
		}
	}
	if !found {
		info, err := os.Stat(fc.path)
		if err != nil {
			return time.Time{}, fmt.Errorf("stat %s: %w", fc.path, err)
		}
		log.Warn().Str("file", fc.path).Strs("candidates", timeKeys).
			Msg("no timestamp candidate found, using file modification time")
		// Modification time is inherently local; keep it aware.
		first = info.ModTime().In(time.Local)
	}

	rval := first
	for _, t := range candidateDates(fc, first) {
		if t.Before(rval) {
			rval = t
		}
	}
	fc.metadata["first_date"] = rval
	log.Debug().Str("file", fc.path).Time("first_date", rval).Msg("resolved effective timestamp")
	return rval, nil
}

// bucketDay returns the calendar day used for path placement. With a
// night cutoff configured, photos taken after midnight but before the
// cutoff hour belong to the previous day's outing.
func bucketDay(t time.Time, cutoff int) time.Time {
	if cutoff > 0 && t.Hour() < cutoff {
		return t.AddDate(0, 0, -1)
	}
	return t
}
