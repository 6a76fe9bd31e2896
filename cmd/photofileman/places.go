package main

import (
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// placeBuffer is the default containment radius, in degrees, around a
// record's anchor. The disk is a same-place test, not a boundary.
const placeBuffer = 0.05

// geocodeThrottle is the courtesy delay after each reverse-geocoding
// query. Not a retry or backoff mechanism, just rate limiting.
const geocodeThrottle = 2 * time.Second

// placeRecord anchors a place name at a point with a containment
// radius. The anchor never moves once set.
type placeRecord struct {
	Lat    float64 `yaml:"lat"`
	Lon    float64 `yaml:"lon"`
	Radius float64 `yaml:"radius"`
}

// UnmarshalYAML accepts both the current mapping form and the legacy
// form, a bare [lon, lat] pair without a radius.
func (r *placeRecord) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		var pair []float64
		if err := value.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("legacy place entry must be [lon, lat], got %d values", len(pair))
		}
		r.Lon, r.Lat = pair[0], pair[1]
		r.Radius = placeBuffer
		return nil
	}
	type plain placeRecord
	if err := value.Decode((*plain)(r)); err != nil {
		return err
	}
	if r.Radius == 0 {
		r.Radius = placeBuffer
	}
	return nil
}

func (r *placeRecord) contains(lat, lon float64) bool {
	return math.Hypot(lat-r.Lat, lon-r.Lon) <= r.Radius
}

func (r *placeRecord) distance(lat, lon float64) float64 {
	return math.Hypot(lat-r.Lat, lon-r.Lon)
}

// placeCache maps place names to geographic regions. Lookup iterates
// records in insertion order and returns the first containing region;
// with overlapping regions the answer depends on load order, which is
// preserved from the cache file.
type placeCache struct {
	path     string
	names    []string
	records  map[string]*placeRecord
	geocoder reverseGeocoder
	throttle time.Duration
}

func newPlaceCache(path string, geocoder reverseGeocoder) *placeCache {
	return &placeCache{
		path:     path,
		records:  make(map[string]*placeRecord),
		geocoder: geocoder,
		throttle: geocodeThrottle,
	}
}

// defaultCachePath is the per-user location of the serialized cache.
func defaultCachePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating user cache directory: %w", err)
	}
	return filepath.Join(dir, "photofileman", "places.yaml"), nil
}

// load reads the persisted cache. A missing file means an empty cache,
// not an error. Entry order in the file is preserved for lookup.
func (pc *placeCache) load() error {
	data, err := os.ReadFile(pc.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading place cache %s: %w", pc.path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing place cache %s: %w", pc.path, err)
	}
	if len(doc.Content) == 0 {
		return nil
	}
	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return fmt.Errorf("place cache %s is not a mapping", pc.path)
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		name := mapping.Content[i].Value
		record := &placeRecord{}
		if err := mapping.Content[i+1].Decode(record); err != nil {
			return fmt.Errorf("place cache entry %q: %w", name, err)
		}
		pc.insert(name, record)
	}
	log.Debug().Int("places", len(pc.names)).Str("file", pc.path).Msg("loaded place cache")
	return nil
}

// save persists the whole cache. Called once at process end; in-memory
// updates are lost on abnormal exit.
func (pc *placeCache) save() error {
	if len(pc.records) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(pc.path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	// Emit entries in insertion order; lookup order must survive a
	// save/load cycle.
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range pc.names {
		var key, val yaml.Node
		if err := key.Encode(name); err != nil {
			return fmt.Errorf("serializing place cache: %w", err)
		}
		if err := val.Encode(pc.records[name]); err != nil {
			return fmt.Errorf("serializing place cache: %w", err)
		}
		doc.Content = append(doc.Content, &key, &val)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("serializing place cache: %w", err)
	}
	if err := os.WriteFile(pc.path, data, 0644); err != nil {
		return fmt.Errorf("writing place cache %s: %w", pc.path, err)
	}
	return nil
}

func (pc *placeCache) insert(name string, record *placeRecord) {
	if _, ok := pc.records[name]; !ok {
		pc.names = append(pc.names, name)
	}
	pc.records[name] = record
}

func (pc *placeCache) add(name string, lat, lon float64) {
	pc.insert(name, &placeRecord{Lat: lat, Lon: lon, Radius: placeBuffer})
	log.Debug().Str("place", name).Float64("lat", lat).Float64("lon", lon).Msg("adding place to cache")
}

// resolve assigns a place name to the coordinates: first record whose
// region contains the point wins. On a miss, the configured
// reverse-geocoding service is queried, followed by a fixed courtesy
// sleep. An empty geocoding result means the file proceeds without
// geo-grouping.
func (pc *placeCache) resolve(lat, lon float64) (string, bool) {
	for _, name := range pc.names {
		if pc.records[name].contains(lat, lon) {
			return name, true
		}
	}

	if pc.geocoder == nil {
		return "", false
	}

	log.Debug().Float64("lat", lat).Float64("lon", lon).Msg("querying reverse geocoder")
	addr, err := pc.geocoder.reverse(lat, lon)
	time.Sleep(pc.throttle)
	if err != nil {
		log.Error().Err(err).Msg("reverse geocoding failed")
		return "", false
	}

	name := placeName(addr)
	if name == "" {
		log.Error().Float64("lat", lat).Float64("lon", lon).
			Msg("cannot find a geography name for coordinates")
		return "", false
	}

	if existing, ok := pc.records[name]; ok {
		if !existing.contains(lat, lon) {
			log.Warn().Str("place", name).
				Float64("distance", existing.distance(lat, lon)).
				Msg("place exists in the cache, but the location doesn't match")
		}
		return name, true
	}

	pc.add(name, lat, lon)
	return name, true
}

// scanDestination walks the destination tree for existing name/location
// pairs. Each non-numeric first-level subdirectory becomes a candidate
// place named after itself, anchored at the coordinates of the first
// file found beneath it. Files whose coordinates fall outside the
// region only produce a warning; the record is never corrected.
func (pc *placeCache) scanDestination(dest string) {
	log.Debug().Str("dir", dest).Msg("scanning for locations")
	entries, err := os.ReadDir(dest)
	if err != nil {
		log.Warn().Err(err).Str("dir", dest).Msg("cannot scan destination")
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == ".comments" {
			continue
		}
		if _, err := strconv.Atoi(entry.Name()); err == nil {
			// Date-layout directories are numbers, not places.
			continue
		}
		pc.scanPlaceDir(filepath.Join(dest, entry.Name()), entry.Name())
	}
}

func (pc *placeCache) scanPlaceDir(dir, name string) {
	anchored := pc.records[name] != nil
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".xml") {
			return nil
		}

		fc := newFileContext(path)
		raw, err := extractMetadata(fc)
		if err != nil {
			return nil
		}
		if err := saveMetadata(fc, raw); err != nil {
			log.Debug().Err(err).Str("file", path).Msg("skipping file during scan")
			return nil
		}
		lat, lon, ok := fc.coordinates()
		if !ok {
			return nil
		}

		if !anchored {
			pc.add(name, lat, lon)
			anchored = true
			return nil
		}
		if !pc.records[name].contains(lat, lon) {
			log.Warn().Str("file", path).Str("place", name).
				Msg("file is not near expected location")
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("scan failed")
	}
}
