// Package filehandler provides image file handling for the caption client.
//
// It owns the table of accepted image types, turns files from disk, multipart
// uploads or raw bytes into Candidates, and derives the displayable artefacts
// of a staged image: a data-URI preview, a downscaled thumbnail and EXIF
// details.
package filehandler

import (
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// MaxImageSize is the largest image accepted for captioning (10 MiB).
const MaxImageSize int64 = 10 * 1024 * 1024

// SupportedImageExtensions defines the file extensions that are accepted for captioning.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// supportedMIMETypes is the media-type allowlist. image/jpg is a common
// browser misspelling of image/jpeg.
var supportedMIMETypes = map[string]string{
	"image/jpeg": "image/jpeg",
	"image/jpg":  "image/jpeg",
	"image/png":  "image/png",
	"image/gif":  "image/gif",
}

// GetMIMEType returns the MIME type for a given file extension.
func GetMIMEType(ext string) (string, error) {
	ext = strings.ToLower(ext)

	if mimeType, ok := SupportedImageExtensions[ext]; ok {
		return mimeType, nil
	}

	return "", fmt.Errorf("unsupported file extension: %s", ext)
}

// IsImage returns true if the file extension corresponds to an accepted image.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(ext)]
	return ok
}

// NormalizeMIMEType strips parameters and case from a media type and maps
// aliases to their canonical form. Unknown types are returned lowercased.
func NormalizeMIMEType(mediaType string) string {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mediaType))
	}
	if canonical, ok := supportedMIMETypes[mt]; ok {
		return canonical
	}
	return mt
}

// IsSupportedMIMEType reports whether mediaType is one of the accepted image types.
func IsSupportedMIMEType(mediaType string) bool {
	_, ok := supportedMIMETypes[NormalizeMIMEType(mediaType)]
	return ok
}

// SniffMIMEType inspects the leading bytes of data and returns the detected
// media type without parameters.
func SniffMIMEType(data []byte) string {
	return NormalizeMIMEType(http.DetectContentType(data))
}
