package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	renameTimeFormat          = "2006-01-02T15:04"
	phoneSafeRenameTimeFormat = "2006-01-02T15-04"
)

// makePath builds and creates the destination directory for a file
// bucketed on day. Layouts are mutually exclusive: nested date
// directories, a single flat directory, or mirroring the source file's
// parent directory name.
func (app *application) makePath(fc *fileContext, day time.Time) (string, error) {
	place := ""
	if app.cfg.GeoGroup {
		if lat, lon, ok := fc.coordinates(); ok {
			if name, ok := app.places.resolve(lat, lon); ok {
				place = name
			}
		}
	}

	var dir string
	switch app.cfg.Layout {
	case LayoutFlat:
		name := day.Format("2006-01")
		if !app.cfg.Month {
			name = day.Format("2006-01-02")
		}
		if place != "" {
			name += "-" + place
		}
		dir = filepath.Join(app.cfg.Destination, name)
	case LayoutMirror:
		dir = filepath.Join(app.cfg.Destination, filepath.Base(filepath.Dir(fc.path)))
	default:
		dir = filepath.Join(app.cfg.Destination, day.Format("2006"), day.Format("01"))
		if !app.cfg.Month {
			dir = filepath.Join(dir, day.Format("02"))
		}
		if place != "" {
			dir = filepath.Join(dir, place)
		}
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Info().Str("dir", dir).Msg("creating directory")
		if app.cfg.DryRun {
			return dir, nil
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return dir, nil
}

// getTarget computes the full destination path for a file. The
// effective timestamp is resolved as a side effect and left in the
// metadata map for later steps.
func (app *application) getTarget(fc *fileContext) (string, error) {
	date, err := app.getDate(fc)
	if err != nil {
		return "", err
	}
	day := bucketDay(date, app.cfg.NightCutoff)

	var dir string
	if app.inPlace() {
		// rename and convert never relocate the file.
		dir = filepath.Dir(fc.path)
	} else {
		dir, err = app.makePath(fc, day)
		if err != nil {
			return "", err
		}
	}

	name := app.targetFilename(fc, date)
	return filepath.Join(dir, name), nil
}

func (app *application) targetFilename(fc *fileContext, date time.Time) string {
	base := filepath.Base(fc.path)
	ext := filepath.Ext(base)
	name := ""

	if app.cfg.ImageDescription {
		if desc, ok := fc.stringTag("ImageDescription"); ok {
			name = desc
		} else if title, ok := fc.stringTag("XPTitle"); ok {
			name = title
		}
		name = strings.ReplaceAll(name, " ", "")
	}
	if name != "" {
		name += ext
	} else {
		name = base
	}

	if app.cfg.Rename || app.cfg.Command == "rename" {
		format := renameTimeFormat
		if app.cfg.PhoneSafe {
			format = phoneSafeRenameTimeFormat
		}
		prefix := date.Format(format) + "-"
		if !strings.HasPrefix(name, prefix) {
			// An already-prefixed name is left alone: sanitizing it
			// again would mangle the prefix's separator.
			name = prefix + sanitizeFilename(name, app.cfg.PhoneSafe)
		}
	} else {
		name = sanitizeFilename(name, app.cfg.PhoneSafe)
	}

	if (app.cfg.Convert || app.cfg.Command == "convert") && isHEIF(name) {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
	}
	return name
}

// sanitizeFilename makes a filename safe for the destination
// filesystem. Phone-safe mode is for FAT-like media and keeps only
// letters, digits and underscore; otherwise only path-hostile
// characters are replaced. The extension's dot survives either way.
func sanitizeFilename(name string, phoneSafe bool) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	if !phoneSafe {
		replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-")
		return replacer.Replace(stem) + ext
	}

	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String() + ext
}
