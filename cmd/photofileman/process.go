package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// application ties the configuration to the place cache and the since
// cutoff for one sequential run. Files are processed one at a time;
// the place cache is not safe for concurrent mutation.
type application struct {
	cfg    config
	places *placeCache
	since  time.Time
}

func newApplication(cfg config) (*application, error) {
	app := &application{cfg: cfg}
	if cfg.Since != "" {
		app.since = parseSinceDate(cfg.Since)
	}

	cachePath, err := defaultCachePath()
	if err != nil {
		return nil, err
	}
	var geocoder reverseGeocoder
	if cfg.GeoGroup {
		geocoder = newNominatimClient()
	}
	app.places = newPlaceCache(cachePath, geocoder)
	if err := app.places.load(); err != nil {
		return nil, err
	}

	if cfg.ScanDirs {
		app.places.scanDestination(cfg.Destination)
	}
	return app, nil
}

// inPlace reports whether the command rewrites files where they are
// instead of relocating them under the destination root.
func (app *application) inPlace() bool {
	switch app.cfg.Command {
	case "convert", "rename", "touch":
		return true
	}
	return false
}

// processAll walks the source tree and processes every media file.
// The place cache is flushed even when the batch aborts early.
func (app *application) processAll() error {
	defer func() {
		if err := app.places.save(); err != nil {
			log.Error().Err(err).Msg("saving place cache")
		}
	}()

	var processed, skipped, duplicates, failed int
	walkErr := filepath.WalkDir(app.cfg.Source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".Spotlight-V100", ".fseventsd", ".comments":
				return filepath.SkipDir
			}
			return nil
		}
		if category, _ := getMediaTypeInfo(d.Name()); category == "" {
			return nil
		}
		if app.cfg.Command == "convert" && !isHEIF(path) {
			return nil
		}

		out, err := app.processFile(path)
		switch {
		case err != nil:
			failed++
			log.Warn().Err(err).Str("file", path).Msg("processing failed")
			if !app.cfg.KeepGoing {
				return err
			}
		case out == skipOld:
			skipped++
		case out == skipDuplicate:
			duplicates++
		default:
			processed++
		}
		return nil
	})

	log.Info().Int("processed", processed).Int("skipped", skipped).
		Int("duplicates", duplicates).Int("failed", failed).Msg("finished")

	if walkErr != nil {
		return walkErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, processed+skipped+duplicates+failed)
	}
	return nil
}

// processFile resolves one file's metadata, decides whether to act,
// and dispatches the configured command.
func (app *application) processFile(path string) (outcome, error) {
	fc := newFileContext(path)

	if out, err := app.checkSource(fc); out != proceed || err != nil {
		return out, err
	}

	date, err := app.getDate(fc)
	if err != nil {
		return proceed, err
	}
	if app.tooOld(date) {
		log.Debug().Str("file", path).Time("date", date).Msg("captured before the since date, skipping")
		return skipOld, nil
	}

	if app.cfg.Command == "touch" {
		return proceed, app.touch(path, date)
	}

	target, err := app.getTarget(fc)
	if err != nil {
		return proceed, err
	}

	out, err := app.checkTarget(fc, target)
	if out != proceed || err != nil {
		return out, err
	}

	log.Info().Str("source", path).Str("target", target).Msg(app.cfg.Command)
	if app.cfg.DryRun {
		return proceed, nil
	}

	switch app.cfg.Command {
	case "copy", "move":
		err = app.copyMove(fc, target)
	case "convert":
		err = convertFile(path, target)
	case "rename":
		err = os.Rename(path, target)
	}
	if err != nil {
		return proceed, err
	}

	if app.cfg.Touch {
		return proceed, app.touch(target, date)
	}
	return proceed, nil
}

func (app *application) copyMove(fc *fileContext, target string) error {
	if app.cfg.Convert && isHEIF(fc.path) {
		if err := convertFile(fc.path, target); err != nil {
			return err
		}
		if app.cfg.Command == "move" {
			return os.Remove(fc.path)
		}
		return nil
	}

	if app.cfg.Command == "move" {
		return moveFile(fc.path, target)
	}
	return copyFile(fc.path, target)
}

func (app *application) touch(path string, date time.Time) error {
	log.Debug().Str("file", path).Time("date", date).Msg("setting file times")
	if app.cfg.DryRun {
		return nil
	}
	return touchFile(path, date)
}
