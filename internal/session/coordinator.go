package session

import (
	"context"
	"errors"

	"github.com/fpang/captioncraft/internal/captionapi"
	"github.com/rs/zerolog/log"
)

// Generate starts a caption request for the staged image. It is a no-op
// returning false unless an image is staged, no request is in flight and
// the backend is not known to be unavailable. A probe that is still
// running does not block submission.
func (s *Session) Generate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.snapshotLocked()
	if !st.CanSubmit() {
		log.Debug().
			Bool("has_image", st.Image != nil).
			Stringer("phase", st.Request.Phase).
			Stringer("backend", st.Backend.Availability).
			Msg("Generate ignored")
		return false
	}

	s.seq++
	seq := s.seq
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})

	s.inflight = cancel
	s.done = done
	s.request = RequestState{Phase: InFlight, Seq: seq, StartedAt: s.opts.Now()}
	s.notice = nil
	s.broadcastLocked()

	img := s.image
	log.Info().
		Uint64("seq", seq).
		Str("file", img.Name).
		Stringer("backend", st.Backend.Availability).
		Msg("Caption request started")

	go s.run(ctx, cancel, seq, img, done)
	return true
}

// Wait blocks until the most recently started request has resolved (or been
// superseded) or ctx ends.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, seq uint64, img *StagedImage, done chan struct{}) {
	defer close(done)
	defer cancel()

	caption, err := s.backend.GenerateCaption(ctx, captionapi.Upload{
		Filename: img.Name,
		MIMEType: img.MIMEType,
		Data:     img.Data,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		log.Debug().
			Uint64("seq", seq).
			Uint64("latest", s.seq).
			Bool("cancelled", errors.Is(err, context.Canceled)).
			Msg("Discarding superseded caption result")
		return
	}
	s.inflight = nil

	req := RequestState{Seq: seq, StartedAt: s.request.StartedAt, EndedAt: s.opts.Now()}
	if err != nil {
		req.Phase = Failed
		req.Message = captionapi.FailureMessage(err)
		s.notice = &Notice{Kind: RequestNotice, Message: req.Message}
		log.Warn().Err(err).
			Uint64("seq", seq).
			Str("message", req.Message).
			Msg("Caption request failed")
	} else {
		req.Phase = Succeeded
		req.Caption = caption
		log.Info().
			Uint64("seq", seq).
			Dur("duration", req.EndedAt.Sub(req.StartedAt)).
			Msg("Caption request succeeded")
	}
	s.request = req
	s.broadcastLocked()
}
