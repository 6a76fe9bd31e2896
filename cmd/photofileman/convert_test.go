package main

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// TestWriteJPEGWithExif tests APP1 segment splicing
func TestWriteJPEGWithExif(t *testing.T) {
	jpg := []byte{0xff, 0xd8, 0xff, 0xdb, 0x00, 0x04, 0x01, 0x02}
	exifData := []byte("Exif\x00\x00payload")

	var buf bytes.Buffer
	if err := writeJPEGWithExif(&buf, jpg, exifData); err != nil {
		t.Fatalf("writeJPEGWithExif failed: %v", err)
	}
	out := buf.Bytes()

	if !bytes.Equal(out[0:2], []byte{0xff, 0xd8}) {
		t.Error("missing SOI marker")
	}
	if !bytes.Equal(out[2:4], []byte{0xff, 0xe1}) {
		t.Error("missing APP1 marker after SOI")
	}
	wantLen := uint16(len(exifData) + 2)
	if got := binary.BigEndian.Uint16(out[4:6]); got != wantLen {
		t.Errorf("segment length = %d, expected %d", got, wantLen)
	}
	if !bytes.Equal(out[6:6+len(exifData)], exifData) {
		t.Error("EXIF payload mangled")
	}
	if !bytes.Equal(out[6+len(exifData):], jpg[2:]) {
		t.Error("remaining JPEG stream mangled")
	}
}

// TestWriteJPEGWithExifNoExif tests passthrough without an EXIF block
func TestWriteJPEGWithExifNoExif(t *testing.T) {
	jpg := []byte{0xff, 0xd8, 0x01, 0x02}

	var buf bytes.Buffer
	if err := writeJPEGWithExif(&buf, jpg, nil); err != nil {
		t.Fatalf("writeJPEGWithExif failed: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), jpg) {
		t.Error("stream should pass through unchanged without EXIF")
	}
}

// TestWriteJPEGWithExifShortStream tests rejection of a truncated stream
func TestWriteJPEGWithExifShortStream(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJPEGWithExif(&buf, []byte{0xff}, []byte("Exif\x00\x00x")); err == nil {
		t.Error("expected an error for a truncated stream")
	}
}
