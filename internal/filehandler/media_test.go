package filehandler

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

func TestIsImage(t *testing.T) {
	tests := []struct {
		ext      string
		expected bool
	}{
		{".jpg", true},
		{".jpeg", true},
		{".JPG", true},
		{".JPEG", true},
		{".png", true},
		{".PNG", true},
		{".gif", true},
		{".webp", false},
		{".heic", false},
		{".mp4", false},
		{".txt", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			result := IsImage(tt.ext)
			if result != tt.expected {
				t.Errorf("IsImage(%q) = %v, want %v", tt.ext, result, tt.expected)
			}
		})
	}
}

func TestGetMIMEType(t *testing.T) {
	tests := []struct {
		ext          string
		expectedMIME string
		expectError  bool
	}{
		{".jpg", "image/jpeg", false},
		{".jpeg", "image/jpeg", false},
		{".png", "image/png", false},
		{".gif", "image/gif", false},
		{".webp", "", true},
		{".mp4", "", true},
		{".txt", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			mime, err := GetMIMEType(tt.ext)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error for %q, got nil", tt.ext)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.ext, err)
			}
			if mime != tt.expectedMIME {
				t.Errorf("GetMIMEType(%q) = %q, want %q", tt.ext, mime, tt.expectedMIME)
			}
		})
	}
}

func TestIsSupportedMIMEType(t *testing.T) {
	tests := []struct {
		mediaType string
		expected  bool
	}{
		{"image/jpeg", true},
		{"IMAGE/JPEG", true},
		{"image/jpg", true},
		{"image/png", true},
		{"image/gif", true},
		{"image/png; charset=binary", true},
		{"image/webp", false},
		{"image/svg+xml", false},
		{"text/plain; charset=utf-8", false},
		{"application/octet-stream", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mediaType, func(t *testing.T) {
			if got := IsSupportedMIMEType(tt.mediaType); got != tt.expected {
				t.Errorf("IsSupportedMIMEType(%q) = %v, want %v", tt.mediaType, got, tt.expected)
			}
		})
	}
}

func TestSniffMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", encodeTestJPEG(t, 8, 8), "image/jpeg"},
		{"png", encodeTestPNG(t, 8, 8), "image/png"},
		{"gif", encodeTestGIF(t, 8, 8), "image/gif"},
		{"text", []byte("hello, world"), "text/plain"},
		{"empty", nil, "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SniffMIMEType(tt.data); got != tt.expected {
				t.Errorf("SniffMIMEType() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDataURI(t *testing.T) {
	got := DataURI("image/png", []byte("abc"))
	if got != "data:image/png;base64,YWJj" {
		t.Errorf("DataURI() = %q", got)
	}
}

func TestImageDimensions(t *testing.T) {
	w, h, err := ImageDimensions(encodeTestPNG(t, 40, 25))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != 40 || h != 25 {
		t.Errorf("ImageDimensions() = (%d, %d), want (40, 25)", w, h)
	}

	if _, _, err := ImageDimensions([]byte("not an image")); err == nil {
		t.Error("expected error for non-image data")
	}
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(w, h), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeTestGIF(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, testImage(w, h), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}

// pngHeader returns a PNG that declares w x h grayscale pixels but carries no
// image data. Header decoding succeeds; full decoding does not.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := func(typ string, data []byte) {
		binary.Write(&buf, binary.BigEndian, uint32(len(data)))
		body := append([]byte(typ), data...)
		buf.Write(body)
		binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(body))
	}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth; color type, compression, filter, interlace stay 0
	chunk("IHDR", ihdr)
	chunk("IEND", nil)
	return buf.Bytes()
}
