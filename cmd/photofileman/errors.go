package main

import (
	"errors"
	"fmt"
)

var (
	// errNoMetadata reports that no extraction backend produced usable tags.
	errNoMetadata = errors.New("no metadata found")
	// errUnparseableTimestamp is absorbed by the date resolver; the
	// affected candidate is treated as missing.
	errUnparseableTimestamp = errors.New("unparseable timestamp")
)

// malformedCoordinateError reports a GPS string that cannot be turned
// into a valid decimal coordinate.
type malformedCoordinateError struct {
	input  string
	reason string
}

func (e *malformedCoordinateError) Error() string {
	return fmt.Sprintf("cannot parse coordinate %q: %s", e.input, e.reason)
}

// targetConflictError reports an existing destination whose content
// differs from the source, without force set.
type targetConflictError struct {
	source string
	target string
}

func (e *targetConflictError) Error() string {
	return fmt.Sprintf("%s exists, but is different than %s", e.target, e.source)
}

// selfTargetError reports a computed destination equal to the source.
type selfTargetError struct {
	path string
}

func (e *selfTargetError) Error() string {
	return fmt.Sprintf("calculated target is the same as the source: %s", e.path)
}
