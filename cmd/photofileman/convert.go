package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image/jpeg"
	"io"
	"os"

	"github.com/adrium/goheif"
	"github.com/rs/zerolog/log"
)

const jpegQuality = 90

// convertFile decodes a HEIF-family file and writes it as JPEG at dst.
// The source's EXIF block is carried over into the output so capture
// metadata survives conversion; a source without EXIF converts anyway.
func convertFile(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	exifData, err := goheif.ExtractExif(f)
	if err != nil {
		log.Debug().Err(err).Str("file", src).Msg("no EXIF block to carry over")
		exifData = nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	img, err := goheif.Decode(f)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", src, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("encoding %s: %w", dst, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := writeJPEGWithExif(out, buf.Bytes(), exifData); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return out.Close()
}

// writeJPEGWithExif writes a JPEG stream with an APP1 EXIF segment
// spliced in directly after the SOI marker. exifData is the payload as
// extracted from the container, already carrying the Exif header.
func writeJPEGWithExif(w io.Writer, jpg, exifData []byte) error {
	if len(exifData) == 0 {
		_, err := w.Write(jpg)
		return err
	}
	if len(jpg) < 2 {
		return fmt.Errorf("encoded image too short")
	}

	if _, err := w.Write(jpg[:2]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{0xff, 0xe1}); err != nil {
		return err
	}
	// Segment length counts its own two bytes.
	if err := binary.Write(w, binary.BigEndian, uint16(len(exifData)+2)); err != nil {
		return err
	}
	if _, err := w.Write(exifData); err != nil {
		return err
	}
	_, err := w.Write(jpg[2:])
	return err
}
