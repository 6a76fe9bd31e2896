package main

import (
	"path/filepath"
	"strings"
)

type FileType string

const (
	// Picture Types
	JPEG FileType = "jpeg"
	PNG  FileType = "png"
	GIF  FileType = "gif"
	BMP  FileType = "bmp"
	TIFF FileType = "tiff"
	WEBP FileType = "webp"
	HEIF FileType = "heif"

	// Raw Picture Types
	RAW FileType = "raw"

	// Video Types
	MP4     FileType = "mp4"
	AVI     FileType = "avi"
	MOV     FileType = "mov"
	MKV     FileType = "mkv"
	WEBM    FileType = "webm"
	M4V     FileType = "m4v"
	THREEGP FileType = "3gp"
	MTS     FileType = "mts"
)

type MediaCategory string

const (
	Picture    MediaCategory = "picture"
	RawPicture MediaCategory = "raw_picture"
	Video      MediaCategory = "video"
)

var fileExtensionToFileType = map[string]FileType{
	// Picture Types
	"jpg": JPEG, "jpeg": JPEG, "jpe": JPEG, "jif": JPEG, "jfif": JPEG,
	"png":  PNG,
	"gif":  GIF,
	"bmp":  BMP,
	"tiff": TIFF, "tif": TIFF,
	"webp": WEBP,
	"heif": HEIF, "heifs": HEIF, "heic": HEIF, "heics": HEIF, "hif": HEIF,

	// Raw Picture Types
	"arw": RAW, "cr2": RAW, "cr3": RAW, "crw": RAW, "dng": RAW, "erf": RAW, "kdc": RAW, "mrw": RAW,
	"nef": RAW, "orf": RAW, "pef": RAW, "raf": RAW, "raw": RAW, "rw2": RAW, "sr2": RAW, "srf": RAW, "x3f": RAW,

	// Video Types
	"mp4":  MP4,
	"avi":  AVI,
	"mov":  MOV,
	"mkv":  MKV,
	"webm": WEBM,
	"m4v":  M4V,
	"3gp":  THREEGP,
	"mts":  MTS, "m2ts": MTS,
}

var fileTypeToMediaCategory = map[FileType]MediaCategory{
	JPEG: Picture,
	PNG:  Picture,
	GIF:  Picture,
	BMP:  Picture,
	TIFF: Picture,
	WEBP: Picture,
	HEIF: Picture,

	RAW: RawPicture,

	MP4:     Video,
	AVI:     Video,
	MOV:     Video,
	MKV:     Video,
	WEBM:    Video,
	M4V:     Video,
	THREEGP: Video,
	MTS:     Video,
}

// isobmffTypes are container formats whose creation time lives in the
// moov/mvhd box.
var isobmffTypes = map[FileType]bool{
	MP4:     true,
	MOV:     true,
	M4V:     true,
	THREEGP: true,
	HEIF:    true,
}

func getMediaTypeInfo(name string) (MediaCategory, FileType) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "", ""
	}

	fileType, ok := fileExtensionToFileType[ext[1:]] // Remove the leading dot
	if !ok {
		return "", ""
	}

	category, ok := fileTypeToMediaCategory[fileType]
	if !ok {
		return "", ""
	}

	return category, fileType
}

// isHEIF reports whether the file name carries a HEIF-family extension.
// These need special handling: the native metadata reader is skipped
// for them, and conversion rewrites the suffix to .jpg.
func isHEIF(name string) bool {
	_, fileType := getMediaTypeInfo(name)
	return fileType == HEIF
}
