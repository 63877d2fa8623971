package session

import (
	"errors"
	"fmt"

	"github.com/fpang/captioncraft/internal/filehandler"
	"github.com/rs/zerolog/log"
)

// Validation messages shown when a file is refused.
const (
	MessageInvalidType  = "File type must be JPEG, PNG or GIF"
	MessageTooLarge     = "File is larger than 10 MB"
	MessageTooManyFiles = "Too many files: drop a single image"
	MessageUnreadable   = "Unable to read file"
)

// Rejection is a file the front end refused before it became a Candidate
// (e.g. a multipart part that could not be opened).
type Rejection struct {
	Name    string
	Message string
}

// Submit offers files for staging. Exactly one file must be offered in
// total; it is staged when it is a JPEG, PNG or GIF of at most 10 MiB.
// Otherwise a validation notice is raised and the staged image is left
// untouched. Submit reports whether a new image was staged.
func (s *Session) Submit(candidates []filehandler.Candidate, rejected []Rejection) bool {
	offered := len(candidates) + len(rejected)
	switch {
	case offered == 0:
		return false
	case offered > 1:
		s.reject(MessageTooManyFiles, "", offered)
		return false
	case len(rejected) == 1:
		msg := rejected[0].Message
		if msg == "" {
			msg = MessageUnreadable
		}
		s.reject(msg, rejected[0].Name, 1)
		return false
	}

	img, msg, err := s.load(candidates[0])
	if err != nil {
		log.Debug().Err(err).Str("file", candidates[0].Name).Msg("Candidate refused")
		s.reject(msg, candidates[0].Name, 1)
		return false
	}

	s.stage(img)
	return true
}

func (s *Session) reject(msg, name string, offered int) {
	log.Info().
		Str("file", name).
		Int("offered", offered).
		Str("reason", msg).
		Msg("File rejected")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = &Notice{Kind: ValidationNotice, Message: msg}
	s.broadcastLocked()
}

// load validates a candidate and builds its StagedImage. On failure it
// returns the validation message to show.
func (s *Session) load(c filehandler.Candidate) (*StagedImage, string, error) {
	if !filehandler.IsSupportedMIMEType(c.MIMEType) {
		return nil, MessageInvalidType, fmt.Errorf("unsupported media type %q", c.MIMEType)
	}
	if c.Size > filehandler.MaxImageSize {
		return nil, MessageTooLarge, fmt.Errorf("declared size %d exceeds limit", c.Size)
	}

	data, err := c.ReadAll(filehandler.MaxImageSize)
	if errors.Is(err, filehandler.ErrTooLarge) {
		return nil, MessageTooLarge, err
	}
	if err != nil {
		return nil, MessageUnreadable, err
	}

	sniffed := filehandler.SniffMIMEType(data)
	if !filehandler.IsSupportedMIMEType(sniffed) {
		return nil, MessageInvalidType, fmt.Errorf("content sniffed as %q", sniffed)
	}

	img := &StagedImage{
		Name:     c.Name,
		MIMEType: sniffed,
		Data:     data,
		Preview:  filehandler.DataURI(sniffed, data),
	}

	if w, h, err := filehandler.ImageDimensions(data); err == nil {
		img.Width, img.Height = w, h
	}
	if thumb, thumbMIME, err := filehandler.GenerateThumbnail(data, sniffed, s.opts.ThumbnailSize); err == nil {
		img.Thumbnail = filehandler.DataURI(thumbMIME, thumb)
	} else {
		log.Debug().Err(err).Str("file", c.Name).Msg("Thumbnail unavailable, using full preview")
	}
	if sniffed == "image/jpeg" {
		if meta, err := filehandler.ExtractImageMetadata(data); err == nil {
			img.Metadata = meta
		}
	}
	return img, "", nil
}

// stage publishes img, clears the notice and supersedes the request cycle:
// an in-flight request is cancelled and its result will be discarded, and
// any revealed caption is hidden.
func (s *Session) stage(img *StagedImage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.request.Phase == InFlight {
		log.Info().
			Uint64("seq", s.request.Seq).
			Str("file", img.Name).
			Msg("New image staged, cancelling in-flight caption request")
	}
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
	s.seq++
	s.request = RequestState{Phase: Idle, Seq: s.seq}

	s.image = img
	s.notice = nil
	s.broadcastLocked()

	log.Info().
		Str("file", img.Name).
		Str("mime_type", img.MIMEType).
		Int64("size_bytes", img.Size()).
		Int("width", img.Width).
		Int("height", img.Height).
		Msg("Image staged")
}
