package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestGetDateMinimumOfCandidates tests that the earliest defined
// candidate wins, with missing candidates defaulting to the first found
func TestGetDateMinimumOfCandidates(t *testing.T) {
	base := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

	fc := newFileContext("irrelevant")
	fc.metadata["DateTime"] = base.Add(2 * time.Hour)
	fc.metadata["DateTimeOriginal"] = base.Add(1 * time.Hour)
	fc.metadata["DateTimeDigitized"] = base
	// PreviewDateTime left missing: it defaults to DateTime and must
	// not become the minimum.

	app := &application{}
	got, err := app.getDate(fc)
	if err != nil {
		t.Fatalf("getDate failed: %v", err)
	}
	if !got.Equal(base) {
		t.Errorf("getDate = %v, expected %v", got, base)
	}
}

// TestGetDateMemoized tests that a resolved timestamp is reused
func TestGetDateMemoized(t *testing.T) {
	resolved := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	fc := newFileContext("irrelevant")
	fc.metadata["first_date"] = resolved

	app := &application{}
	got, err := app.getDate(fc)
	if err != nil {
		t.Fatalf("getDate failed: %v", err)
	}
	if !got.Equal(resolved) {
		t.Errorf("getDate = %v, expected the memoized %v", got, resolved)
	}
}

// TestGetDateModTimeFallback tests the file modification time fallback
func TestGetDateModTimeFallback(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "dates")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "photo.jpg")
	if err := os.WriteFile(path, []byte("not a real image"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	mtime := time.Date(2022, 3, 4, 5, 6, 7, 0, time.Local)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Failed to set file times: %v", err)
	}

	fc := newFileContext(path)
	// Pretend extraction already ran and found nothing usable.
	fc.metadata["Make"] = "Acme"
	fc.ranExiftool = true

	app := &application{}
	got, err := app.getDate(fc)
	if err != nil {
		t.Fatalf("getDate failed: %v", err)
	}
	if !got.Equal(mtime) {
		t.Errorf("getDate = %v, expected the modification time %v", got, mtime)
	}
}

// TestBucketDay tests the night-boundary day assignment
func TestBucketDay(t *testing.T) {
	tests := []struct {
		hour     int
		cutoff   int
		expected int // day of month
	}{
		{3, 4, 14},  // before the cutoff, previous day
		{4, 4, 15},  // at the cutoff, same day
		{23, 4, 15}, // evening, same day
		{3, 0, 15},  // cutoff disabled
		{0, 1, 14},  // midnight with a 1am cutoff
	}

	for _, tc := range tests {
		in := time.Date(2023, 6, 15, tc.hour, 30, 0, 0, time.UTC)
		got := bucketDay(in, tc.cutoff)
		if got.Day() != tc.expected {
			t.Errorf("bucketDay(hour=%d, cutoff=%d) day = %d, expected %d",
				tc.hour, tc.cutoff, got.Day(), tc.expected)
		}
	}
}
