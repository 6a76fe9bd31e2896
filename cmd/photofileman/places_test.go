package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// TestPlaceCacheResolveContainment tests first-containment lookup
func TestPlaceCacheResolveContainment(t *testing.T) {
	pc := newPlaceCache("unused", nil)
	pc.add("Norway-Oslo", 59.9139, 10.7522)
	pc.add("Norway-Bergen", 60.3913, 5.3221)

	name, ok := pc.resolve(59.92, 10.76)
	if !ok || name != "Norway-Oslo" {
		t.Errorf("resolve = %q, %v, expected Norway-Oslo", name, ok)
	}

	name, ok = pc.resolve(60.39, 5.32)
	if !ok || name != "Norway-Bergen" {
		t.Errorf("resolve = %q, %v, expected Norway-Bergen", name, ok)
	}
}

// TestPlaceCacheResolveMiss tests a miss without a geocoder
func TestPlaceCacheResolveMiss(t *testing.T) {
	pc := newPlaceCache("unused", nil)
	pc.add("Norway-Oslo", 59.9139, 10.7522)

	if name, ok := pc.resolve(48.8566, 2.3522); ok {
		t.Errorf("resolve should miss without a geocoder, got %q", name)
	}
}

// TestPlaceCacheResolveOrder tests that overlapping regions resolve to
// the earlier insertion
func TestPlaceCacheResolveOrder(t *testing.T) {
	pc := newPlaceCache("unused", nil)
	pc.add("first", 10.0, 10.0)
	pc.add("second", 10.01, 10.01)

	name, ok := pc.resolve(10.005, 10.005)
	if !ok || name != "first" {
		t.Errorf("resolve = %q, %v, expected the first inserted record", name, ok)
	}
}

func newTestGeocoder(t *testing.T, handler http.HandlerFunc) (*nominatimClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &nominatimClient{baseURL: server.URL, client: server.Client()}, server
}

// TestPlaceCacheResolveGeocodes tests the geocoding miss path
func TestPlaceCacheResolveGeocodes(t *testing.T) {
	var queries int
	geocoder, _ := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		queries++
		w.Write([]byte(`{"address": {"state": "Western Norway", "country": "Norway", "city": "Bergen"}}`))
	})

	pc := newPlaceCache("unused", geocoder)
	pc.throttle = 0

	name, ok := pc.resolve(60.3913, 5.3221)
	if !ok || name != "Western_Norway-Norway-Bergen" {
		t.Fatalf("resolve = %q, %v", name, ok)
	}
	if queries != 1 {
		t.Errorf("expected 1 geocoding query, got %d", queries)
	}

	// The new record must serve nearby lookups without another query.
	name, ok = pc.resolve(60.392, 5.323)
	if !ok || name != "Western_Norway-Norway-Bergen" {
		t.Errorf("cached resolve = %q, %v", name, ok)
	}
	if queries != 1 {
		t.Errorf("expected the cache to absorb the second lookup, got %d queries", queries)
	}
}

// TestPlaceCacheResolveEmptyAddress tests an unresolvable location
func TestPlaceCacheResolveEmptyAddress(t *testing.T) {
	geocoder, _ := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"address": {}}`))
	})

	pc := newPlaceCache("unused", geocoder)
	pc.throttle = 0

	if name, ok := pc.resolve(0, 0); ok {
		t.Errorf("resolve should fail on an empty address, got %q", name)
	}
	if len(pc.names) != 0 {
		t.Error("no record should be added for an empty address")
	}
}

// TestPlaceCacheResolveConflict tests that a name collision keeps the
// existing anchor
func TestPlaceCacheResolveConflict(t *testing.T) {
	geocoder, _ := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"address": {"country": "Norway", "city": "Bergen"}}`))
	})

	pc := newPlaceCache("unused", geocoder)
	pc.throttle = 0
	pc.add("Norway-Bergen", 60.3913, 5.3221)

	// Far from the existing anchor, but geocoding to the same name.
	name, ok := pc.resolve(59.0, 4.0)
	if !ok || name != "Norway-Bergen" {
		t.Fatalf("resolve = %q, %v", name, ok)
	}
	record := pc.records["Norway-Bergen"]
	if record.Lat != 60.3913 || record.Lon != 5.3221 {
		t.Errorf("the existing anchor was modified: %+v", record)
	}
}

// TestPlaceCacheSaveLoad tests the persistence roundtrip, including
// lookup order
func TestPlaceCacheSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "places.yaml")

	pc := newPlaceCache(path, nil)
	pc.add("zulu", 10.0, 10.0)
	pc.add("alpha", 10.01, 10.01)
	if err := pc.save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded := newPlaceCache(path, nil)
	if err := loaded.load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.names) != 2 {
		t.Fatalf("expected 2 records, got %d", len(loaded.names))
	}
	if loaded.names[0] != "zulu" || loaded.names[1] != "alpha" {
		t.Errorf("insertion order not preserved: %v", loaded.names)
	}
	if name, ok := loaded.resolve(10.005, 10.005); !ok || name != "zulu" {
		t.Errorf("resolve after reload = %q, %v", name, ok)
	}
}

// TestPlaceCacheLoadMissing tests that a missing cache file is not an error
func TestPlaceCacheLoadMissing(t *testing.T) {
	pc := newPlaceCache(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	if err := pc.load(); err != nil {
		t.Errorf("load of a missing file should succeed: %v", err)
	}
	if len(pc.names) != 0 {
		t.Errorf("expected an empty cache, got %v", pc.names)
	}
}

// TestPlaceCacheLoadLegacy tests upgrading bare [lon, lat] entries
func TestPlaceCacheLoadLegacy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.yaml")
	legacy := "Norway-Oslo: [10.7522, 59.9139]\nNorway-Bergen:\n  lat: 60.3913\n  lon: 5.3221\n  radius: 0.1\n"
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	pc := newPlaceCache(path, nil)
	if err := pc.load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	oslo := pc.records["Norway-Oslo"]
	if oslo == nil || oslo.Lat != 59.9139 || oslo.Lon != 10.7522 || oslo.Radius != placeBuffer {
		t.Errorf("legacy entry not upgraded: %+v", oslo)
	}
	bergen := pc.records["Norway-Bergen"]
	if bergen == nil || bergen.Radius != 0.1 {
		t.Errorf("mapping entry mangled: %+v", bergen)
	}
}

// TestScanDestinationSkipsDateDirs tests that numeric directories are
// not treated as places
func TestScanDestinationSkipsDateDirs(t *testing.T) {
	dest := t.TempDir()
	for _, dir := range []string{"2023", ".comments", "Norway-Oslo"} {
		if err := os.Mkdir(filepath.Join(dest, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}

	pc := newPlaceCache("unused", nil)
	pc.scanDestination(dest)

	if len(pc.names) != 0 {
		// Norway-Oslo is empty, so no anchoring file was found either.
		t.Errorf("expected no records from an empty tree, got %v", pc.names)
	}
}
