package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestHashFile tests content hashing
func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	c := filepath.Join(dir, "c")
	writeTestFile(t, a, "identical content")
	writeTestFile(t, b, "identical content")
	writeTestFile(t, c, "different content")

	hashA, err := hashFile(a)
	if err != nil {
		t.Fatalf("hashFile failed: %v", err)
	}
	hashB, _ := hashFile(b)
	hashC, _ := hashFile(c)

	if hashA != hashB {
		t.Errorf("identical files hashed differently: %s != %s", hashA, hashB)
	}
	if hashA == hashC {
		t.Error("different files produced the same hash")
	}
	if len(hashA) != 16 {
		t.Errorf("unexpected digest length: %q", hashA)
	}

	if _, err := hashFile(filepath.Join(dir, "absent")); err == nil {
		t.Error("hashing a missing file should fail")
	}
}

// TestCopyFile tests copying with modification-time preservation
func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")
	writeTestFile(t, src, "payload")
	mtime := time.Date(2022, 5, 6, 7, 8, 9, 0, time.Local)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	if err := copyFile(src, dst); err != nil {
		t.Fatalf("copyFile failed: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "payload" {
		t.Errorf("copied content = %q, %v", data, err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("modification time not preserved: %v != %v", info.ModTime(), mtime)
	}
}

// TestMoveFile tests the rename path
func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "sub", "dst.jpg")
	writeTestFile(t, src, "payload")
	if err := os.Mkdir(filepath.Dir(dst), 0755); err != nil {
		t.Fatal(err)
	}

	if err := moveFile(src, dst); err != nil {
		t.Fatalf("moveFile failed: %v", err)
	}
	if exists(src) {
		t.Error("source still exists after move")
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "payload" {
		t.Errorf("moved content = %q, %v", data, err)
	}
}

// TestTouchFile tests setting file times
func TestTouchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.jpg")
	writeTestFile(t, path, "x")

	stamp := time.Date(2021, 2, 3, 4, 5, 6, 0, time.Local)
	if err := touchFile(path, stamp); err != nil {
		t.Fatalf("touchFile failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(stamp) {
		t.Errorf("modification time = %v, expected %v", info.ModTime(), stamp)
	}
}

// TestHumanReadableSize tests size formatting
func TestHumanReadableSize(t *testing.T) {
	tests := []struct {
		size     int64
		expected string
	}{
		{500, "500 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
	}
	for _, tc := range tests {
		if got := humanReadableSize(tc.size); got != tc.expected {
			t.Errorf("humanReadableSize(%d) = %q, expected %q", tc.size, got, tc.expected)
		}
	}
}
