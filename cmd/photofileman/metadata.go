package main

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/abema/go-mp4"
	"github.com/evanoberholster/imagemeta"
	"github.com/evanoberholster/imagemeta/exif2"
	"github.com/rs/zerolog/log"
)

// Rational is the (numerator, denominator) representation integer-ratio
// EXIF fields use. Integer-valued tags are normalized to Rational{N, 1}
// so both backends report dimensions the same way.
type Rational struct {
	Num int
	Den int
}

// timeKeys are the effective-timestamp candidate fields, most preferred
// first.
var timeKeys = []string{"DateTime", "DateTimeOriginal", "DateTimeDigitized", "PreviewDateTime"}

// fileContext carries all per-file state through the pipeline. A fresh
// one is built for every file, so no stage ever sees another file's
// metadata.
type fileContext struct {
	path string

	// metadata is the canonical tag map: values are string, Rational,
	// float64 (decimal coordinates) or time.Time (parsed timestamps).
	metadata map[string]any

	// exiftool is the merged raw dump from the external tool. Labels
	// already merged here are skipped on later lines.
	exiftool map[string]any

	// ranExiftool records whether the external tool was already invoked
	// for this file, so the date resolver knows a retry is pointless.
	ranExiftool bool
}

func newFileContext(path string) *fileContext {
	return &fileContext{
		path:     path,
		metadata: make(map[string]any),
		exiftool: make(map[string]any),
	}
}

// firstDate returns the resolved effective timestamp, if any.
func (fc *fileContext) firstDate() (time.Time, bool) {
	t, ok := fc.metadata["first_date"].(time.Time)
	return t, ok
}

func (fc *fileContext) stringTag(key string) (string, bool) {
	s, ok := fc.metadata[key].(string)
	return s, ok
}

func (fc *fileContext) coordinates() (lat, lon float64, ok bool) {
	lat, latOK := fc.metadata["Latitude"].(float64)
	lon, lonOK := fc.metadata["Longitude"].(float64)
	return lat, lon, latOK && lonOK
}

// exiftoolTags maps the external tool's labels to canonical tag names.
// Lines with any other label are dropped.
var exiftoolTags = map[string]string{
	"Aperture Value":                  "ApertureValue",
	"Brightness Value":                "BrightnessValue",
	"Camera Model Name":               "Model",
	"Color Space":                     "ColorSpace",
	"Create Date":                     "DateTime",
	"Date/Time Original":              "DateTimeOriginal",
	"Exif Image Height":               "ExifImageHeight",
	"Exif Image Width":                "ExifImageWidth",
	"Exif Version":                    "ExifVersion",
	"Exposure Mode":                   "ExposureMode",
	"Exposure Program":                "ExposureProgram",
	"Exposure Time":                   "ExposureTime",
	"F Number":                        "FNumber",
	"File Modification Date/Time":     "DateTimeDigitized",
	"Flash":                           "Flash",
	"Focal Length":                    "FocalLength",
	"Focal Length In 35mm Format":     "FocalLengthIn35mmFilm",
	"GPS Altitude":                    "GPSAltitude",
	"GPS Altitude Ref":                "GPSAltitudeRef",
	"GPS Date Stamp":                  "DateTime", // overrides Create Date, see mergeExiftoolLine
	"GPS Dest Bearing":                "GPSDestBearing",
	"GPS Dest Bearing Ref":            "GPSDestBearingRef",
	"GPS Horizontal Positioning Error": "GPSHPositioningError",
	"GPS Img Direction":               "GPSImgDirection",
	"GPS Img Direction Ref":           "GPSImgDirectionRef",
	"GPS Latitude":                    "GPSLatitude",
	"GPS Latitude Ref":                "GPSLatitudeRef",
	"GPS Longitude":                   "GPSLongitude",
	"GPS Longitude Ref":               "GPSLongitudeRef",
	"GPS Speed":                       "GPSSpeed",
	"GPS Speed Ref":                   "GPSSpeedRef",
	"Host Computer":                   "HostComputer",
	"ISO":                             "ISOSpeed",
	"Image Description":               "ImageDescription",
	"Image Height":                    "ImageLength",
	"Image Width":                     "ImageWidth",
	"Lens ID":                         "LensSpecification",
	"Lens Make":                       "LensMake",
	"Lens Model":                      "LensModel",
	"Make":                            "Make",
	"Offset Time":                     "OffsetTime",
	"Offset Time Digitized":           "OffsetTimeDigitized",
	"Offset Time Original":            "OffsetTimeOriginal",
	"Orientation":                     "Orientation",
	"Preview Date/Time":               "PreviewDateTime",
	"Profile Copyright":               "ProfileCopyright",
	"Profile Description":             "ProfileName",
	"Resolution Unit":                 "ResolutionUnit",
	"Scene Type":                      "SceneType",
	"Shutter Speed Value":             "ShutterSpeedValue",
	"Software":                        "Software",
	"Sub Sec Time Digitized":          "SubsecTimeDigitized",
	"Sub Sec Time Original":           "SubsecTimeOriginal",
	"Warning":                         "UserComment",
	"X Resolution":                    "XResolution",
	"XP Title":                        "XPTitle",
	"Y Resolution":                    "YResolution",
}

// exiftoolInts are canonical names whose values are whole numbers; they
// get normalized to Rational{N, 1}.
var exiftoolInts = map[string]bool{
	"ImageWidth":  true,
	"ImageLength": true,
	"XResolution": true,
	"YResolution": true,
}

// gpsDateLabel is the one label allowed to overwrite an already-merged
// tag: its value reliably carries a timezone indicator, unlike the
// default creation-time tag it shadows.
const gpsDateLabel = "GPS Date Stamp"

// exiftoolValueOffset is the byte offset at which the value substring
// starts in the tool's "Label : Value" output lines.
const exiftoolValueOffset = 34

// extractMetadata tries the extraction backends in order, stopping at
// the first that yields at least one usable tag. HEIF-family files go
// straight to the external tool: its dump is also needed later when
// converting, while the container parse would only surface a creation
// date.
func extractMetadata(fc *fileContext) (map[string]any, error) {
	if isHEIF(fc.path) {
		log.Debug().Str("file", fc.path).Msg("HEIF file, using external tool")
		return readExiftool(fc)
	}

	if raw, err := readImageMeta(fc.path); err == nil {
		return raw, nil
	} else {
		log.Debug().Str("file", fc.path).Err(err).Msg("native reader failed")
	}

	if raw, err := readExiftool(fc); err == nil {
		return raw, nil
	} else {
		log.Debug().Str("file", fc.path).Err(err).Msg("external tool failed")
	}

	// The container parse has minimal metadata, so try it last.
	if raw, err := readContainer(fc.path); err == nil {
		return raw, nil
	} else {
		log.Debug().Str("file", fc.path).Err(err).Msg("container parse failed")
	}

	return nil, errNoMetadata
}

// readImageMeta is the native image-metadata backend.
func readImageMeta(path string) (map[string]any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	exif, err := decodeExifSafe(file, path)
	if err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	raw := make(map[string]any)
	if t := exif.ModifyDate(); !t.IsZero() {
		raw["DateTime"] = t
	}
	if t := exif.DateTimeOriginal(); !t.IsZero() {
		raw["DateTimeOriginal"] = t
	}
	if t := exif.CreateDate(); !t.IsZero() {
		raw["DateTimeDigitized"] = t
	}
	if lat, lon := exif.GPS.Latitude(), exif.GPS.Longitude(); lat != 0 || lon != 0 {
		raw["Latitude"] = lat
		raw["Longitude"] = lon
	}
	if exif.Make != "" {
		raw["Make"] = strings.TrimSpace(exif.Make)
	}
	if exif.Model != "" {
		raw["Model"] = strings.TrimSpace(exif.Model)
	}
	if exif.Software != "" {
		raw["Software"] = strings.TrimSpace(exif.Software)
	}
	if exif.ImageWidth != 0 {
		raw["ImageWidth"] = Rational{int(exif.ImageWidth), 1}
	}
	if exif.ImageHeight != 0 {
		raw["ImageLength"] = Rational{int(exif.ImageHeight), 1}
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("no usable tags in %s", path)
	}
	return raw, nil
}

// decodeExifSafe protects against panics from the decoder on malformed
// files.
func decodeExifSafe(f *os.File, path string) (ex exif2.Exif, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while decoding %s: %v", path, rec)
		}
	}()

	ex, err = imagemeta.Decode(f)
	return ex, err
}

// readExiftool is the external metadata-dump backend. It runs exiftool
// against the file and merges the line-oriented output into the file
// context's raw dump.
func readExiftool(fc *fileContext) (map[string]any, error) {
	fc.ranExiftool = true
	out, err := exec.Command("exiftool", "-sort", fc.path).Output()
	if err != nil {
		return nil, fmt.Errorf("exiftool %s: %w", fc.path, err)
	}
	raw := parseExiftoolOutput(fc, string(out))
	if len(raw) == 0 {
		return nil, fmt.Errorf("no usable tags from exiftool for %s", fc.path)
	}
	return raw, nil
}

// parseExiftoolOutput merges the tool's "Label : Value" lines into
// fc.exiftool and returns the newly recognized tags. A tag already in
// the dump is not overwritten: the same logical timestamp is frequently
// reported under multiple synonymous labels, so duplicates are logged
// and skipped. The one exception is the GPS date stamp, which replaces
// the default creation-time tag.
func parseExiftoolOutput(fc *fileContext, output string) map[string]any {
	raw := make(map[string]any)
	for _, line := range strings.Split(output, "\n") {
		label, _, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		label = strings.TrimSpace(label)
		name, ok := exiftoolTags[label]
		if !ok {
			continue
		}
		if len(line) <= exiftoolValueOffset {
			continue
		}
		if _, present := fc.exiftool[name]; present {
			if label != gpsDateLabel {
				log.Warn().Str("label", label).Str("tag", name).Msg("duplicate label")
				continue
			}
		}
		var val any = strings.TrimSpace(line[exiftoolValueOffset:])
		if exiftoolInts[name] {
			n, err := strconv.Atoi(val.(string))
			if err != nil {
				log.Warn().Str("tag", name).Str("value", val.(string)).Msg("expected integer value")
				continue
			}
			val = Rational{n, 1}
		}
		raw[name] = val
		fc.exiftool[name] = val
	}
	return raw
}

// appleEpochOffset is the difference in seconds between the ISO-BMFF
// epoch (1904-01-01) and the Unix epoch (1970-01-01).
const appleEpochOffset = 2082844800

// readContainer is the generic container-metadata backend, used only as
// a last resort. It surfaces the mvhd creation date and nothing else.
func readContainer(path string) (map[string]any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	boxes, err := mp4.ExtractBoxWithPayload(file, nil,
		mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()})
	if err != nil {
		return nil, fmt.Errorf("extract mvhd from %s: %w", path, err)
	}
	if len(boxes) == 0 {
		return nil, fmt.Errorf("no mvhd box in %s", path)
	}
	mvhd, ok := boxes[0].Payload.(*mp4.Mvhd)
	if !ok {
		return nil, fmt.Errorf("unexpected mvhd payload in %s", path)
	}

	var creation uint64
	if mvhd.Version > 0 {
		creation = mvhd.CreationTimeV1
	} else {
		creation = uint64(mvhd.CreationTimeV0)
	}
	if creation == 0 {
		return nil, fmt.Errorf("zero creation time in %s", path)
	}

	created := time.Unix(int64(creation)-appleEpochOffset, 0).UTC()
	return map[string]any{"DateTime": created}, nil
}

// saveMetadata normalizes a backend's raw tag map into the canonical
// metadata map. Timestamp candidates are parsed to instants, GPS
// strings become signed decimal degrees, and everything that does not
// participate in date or place resolution is dropped.
func saveMetadata(fc *fileContext, raw map[string]any) error {
	if raw == nil {
		log.Warn().Msg("got an unexpected nil tag map")
		return nil
	}
	for key, value := range raw {
		switch key {
		case "GPSLatitude", "GPSLongitude":
			s, ok := value.(string)
			if !ok {
				continue
			}
			dec, err := convertToDecimal(s)
			if err != nil {
				return err
			}
			fc.metadata[strings.TrimPrefix(key, "GPS")] = dec
			continue
		case "ImageDescription", "XPTitle", "Latitude", "Longitude":
			fc.metadata[key] = value
			continue
		}
		if !isTimeKey(key) {
			continue
		}
		switch v := value.(type) {
		case time.Time:
			fc.metadata[key] = v
		case string:
			// Bare EXIF timestamps carry no offset. Prefer the
			// camera-reported offset tag, else assume UTC.
			if !strings.ContainsAny(v, "+-") {
				if offset, ok := raw["OffsetTime"].(string); ok {
					v += offset
				} else {
					v += "+0000"
				}
			}
			t, err := parseTimestamp(v)
			if err != nil {
				log.Warn().Str("file", fc.path).Str("value", v).Msg("failed to parse timestamp")
				continue
			}
			fc.metadata[key] = t
		}
	}
	return nil
}

func isTimeKey(key string) bool {
	for _, k := range timeKeys {
		if k == key {
			return true
		}
	}
	return false
}
