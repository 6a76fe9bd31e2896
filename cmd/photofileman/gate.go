package main

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// outcome is the terminal state of the per-file gate. Conflicts and
// self-targets surface as errors, not outcomes.
type outcome int

const (
	proceed outcome = iota
	skipOld
	skipDuplicate
)

// tooOld reports whether t predates the configured since cutoff.
func (app *application) tooOld(t time.Time) bool {
	return !app.since.IsZero() && t.Before(app.since)
}

// checkSource is the cheap pre-extraction gate: a modification time
// older than the cutoff skips the file before any metadata cost is
// paid. Files that pass are re-checked once the effective timestamp is
// known, since mtimes lie after copies and restores.
func (app *application) checkSource(fc *fileContext) (outcome, error) {
	if app.since.IsZero() {
		return proceed, nil
	}
	info, err := os.Stat(fc.path)
	if err != nil {
		return proceed, err
	}
	if info.ModTime().Before(app.since) {
		log.Debug().Str("file", fc.path).Msg("modified before the since date, skipping")
		return skipOld, nil
	}
	return proceed, nil
}

// checkTarget decides what to do about an already-existing destination.
// Identical content is a duplicate: skip, and for a move also delete
// the now-redundant source. Differing content is a conflict unless
// force is set.
func (app *application) checkTarget(fc *fileContext, target string) (outcome, error) {
	if target == fc.path {
		return proceed, &selfTargetError{path: fc.path}
	}
	if !exists(target) {
		return proceed, nil
	}

	srcHash, err := hashFile(fc.path)
	if err != nil {
		return proceed, err
	}
	dstHash, err := hashFile(target)
	if err != nil {
		return proceed, err
	}

	if srcHash == dstHash {
		log.Info().Str("file", fc.path).Str("target", target).Msg("duplicate, skipping")
		if app.cfg.Command == "move" && !app.cfg.DryRun {
			if err := os.Remove(fc.path); err != nil {
				return skipDuplicate, err
			}
		}
		return skipDuplicate, nil
	}

	if !app.cfg.Force {
		return proceed, &targetConflictError{source: fc.path, target: target}
	}
	log.Warn().Str("target", target).Msg("overwriting existing file")
	if !app.cfg.DryRun {
		if err := os.Remove(target); err != nil {
			return proceed, err
		}
	}
	return proceed, nil
}
