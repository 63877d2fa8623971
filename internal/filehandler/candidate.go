package filehandler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrTooLarge is returned by Candidate.ReadAll when the content exceeds the limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// Candidate is a file offered for staging. Size and MIMEType are what the
// source claims; the acquirer re-checks both against the bytes it reads.
type Candidate struct {
	Name     string
	MIMEType string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// CandidateFromPath builds a Candidate for a file on disk. The MIME type comes
// from the extension table; unknown extensions yield application/octet-stream
// so that validation, not loading, rejects them.
func CandidateFromPath(filePath string) (Candidate, error) {
	log.Debug().Str("path", filePath).Msg("Loading candidate file")

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return Candidate{}, fmt.Errorf("file not found: %s", filePath)
		}
		return Candidate{}, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.IsDir() {
		return Candidate{}, fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	mimeType, err := GetMIMEType(filepath.Ext(filePath))
	if err != nil {
		mimeType = "application/octet-stream"
	}

	return Candidate{
		Name:     filepath.Base(filePath),
		MIMEType: mimeType,
		Size:     info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(filePath)
		},
	}, nil
}

// CandidateFromFileHeader builds a Candidate from a multipart upload. The
// part's Content-Type wins; the extension table is the fallback.
func CandidateFromFileHeader(fh *multipart.FileHeader) Candidate {
	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || strings.HasPrefix(mimeType, "application/octet-stream") {
		if byExt, err := GetMIMEType(filepath.Ext(fh.Filename)); err == nil {
			mimeType = byExt
		}
	}

	return Candidate{
		Name:     filepath.Base(fh.Filename),
		MIMEType: mimeType,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// CandidateFromBytes builds a Candidate from in-memory content.
func CandidateFromBytes(name, mimeType string, data []byte) Candidate {
	return Candidate{
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// ReadAll reads the candidate's content, never more than limit+1 bytes.
// It returns ErrTooLarge when the content is longer than limit.
func (c Candidate) ReadAll(limit int64) ([]byte, error) {
	if c.Open == nil {
		return nil, fmt.Errorf("candidate %q has no content", c.Name)
	}

	rc, err := c.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", c.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
