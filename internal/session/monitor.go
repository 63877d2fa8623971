package session

import (
	"context"

	"github.com/rs/zerolog/log"
)

// UnavailableMessage is the persistent banner shown when the probe failed.
const UnavailableMessage = "Backend API is not available. Please ensure the backend server is running."

// StartProbe runs the liveness probe in the background. Only the first call
// has any effect; the outcome is never re-checked.
func (s *Session) StartProbe() {
	s.probeOnce.Do(func() {
		go s.probe()
	})
}

// WaitProbe blocks until the probe has resolved or ctx ends. It returns
// immediately with ctx's error if StartProbe was never called and ctx ends.
func (s *Session) WaitProbe(ctx context.Context) error {
	select {
	case <-s.probeDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) probe() {
	defer close(s.probeDone)

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.ProbeTimeout)
	defer cancel()

	health, err := s.backend.Health(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Msg("Backend unavailable")
		s.status = BackendStatus{Availability: Unavailable}
		s.broadcastLocked()
		return
	}

	s.status = BackendStatus{
		Availability: Available,
		Reported:     health.Status,
		ModelLoaded:  health.ModelLoaded,
	}
	s.broadcastLocked()

	evt := log.Info()
	if health.ModelLoaded != nil && !*health.ModelLoaded {
		evt = log.Warn()
	}
	evt.Str("status", health.Status).
		Interface("model_loaded", health.ModelLoaded).
		Msg("Backend available")
}
