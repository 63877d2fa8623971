package filehandler

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// ImageMetadata contains the EXIF details shown next to a staged image.
//
// Extraction uses evanoberholster/imagemeta, which auto-detects the container
// from the file header. JPEG carries EXIF reliably; PNG and GIF usually do
// not, in which case extraction fails and the image is staged without details.
type ImageMetadata struct {
	Latitude  float64
	Longitude float64
	HasGPS    bool

	DateTaken time.Time
	HasDate   bool

	CameraMake  string
	CameraModel string
}

// ExtractImageMetadata decodes EXIF metadata from in-memory image bytes.
func ExtractImageMetadata(data []byte) (*ImageMetadata, error) {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	metadata := &ImageMetadata{}

	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		metadata.Latitude = gps.Latitude()
		metadata.Longitude = gps.Longitude()
		metadata.HasGPS = true
	}

	// Priority: DateTimeOriginal > CreateDate > ModifyDate
	switch {
	case !exifData.DateTimeOriginal().IsZero():
		metadata.DateTaken = exifData.DateTimeOriginal()
		metadata.HasDate = true
	case !exifData.CreateDate().IsZero():
		metadata.DateTaken = exifData.CreateDate()
		metadata.HasDate = true
	case !exifData.ModifyDate().IsZero():
		metadata.DateTaken = exifData.ModifyDate()
		metadata.HasDate = true
	}

	metadata.CameraMake = strings.TrimSpace(exifData.Make)
	metadata.CameraModel = strings.TrimSpace(exifData.Model)

	log.Debug().
		Bool("has_gps", metadata.HasGPS).
		Bool("has_date", metadata.HasDate).
		Str("camera", metadata.Camera()).
		Msg("Image metadata extraction complete")

	return metadata, nil
}

// Camera returns "make model", or an empty string when neither is known.
func (m *ImageMetadata) Camera() string {
	return strings.TrimSpace(m.CameraMake + " " + m.CameraModel)
}

// Summary renders the known details on one line, e.g.
// "Apple iPhone 15 Pro · 31 Dec 2024 10:30 · 40°42'46.08"N, 74°0'21.60"W".
// It returns an empty string when nothing is known.
func (m *ImageMetadata) Summary() string {
	if m == nil {
		return ""
	}

	var parts []string
	if camera := m.Camera(); camera != "" {
		parts = append(parts, camera)
	}
	if m.HasDate {
		parts = append(parts, m.DateTaken.Format("2 Jan 2006 15:04"))
	}
	if m.HasGPS {
		parts = append(parts, CoordinatesToDMS(m.Latitude, m.Longitude))
	}
	return strings.Join(parts, " · ")
}

// CoordinatesToDMS converts decimal degrees to degrees, minutes, seconds format.
func CoordinatesToDMS(lat, lon float64) string {
	latDir := "N"
	if lat < 0 {
		latDir = "S"
		lat = -lat
	}

	lonDir := "E"
	if lon < 0 {
		lonDir = "W"
		lon = -lon
	}

	latDeg, latMin, latSec := splitDegrees(lat)
	lonDeg, lonMin, lonSec := splitDegrees(lon)

	return fmt.Sprintf("%d°%d'%.2f\"%s, %d°%d'%.2f\"%s",
		latDeg, latMin, latSec, latDir,
		lonDeg, lonMin, lonSec, lonDir)
}

func splitDegrees(v float64) (int, int, float64) {
	deg := int(v)
	minutes := (v - float64(deg)) * 60
	mins := int(minutes)
	sec := (minutes - float64(mins)) * 60
	return deg, mins, sec
}
