// Package session holds the client-side state of one captioning session:
// the staged image, the backend availability, the caption request cycle and
// the transient notice. Every mutation goes through one mutex; asynchronous
// work (probe, upload) runs in goroutines and applies its result under it.
//
// Front ends read a State with Snapshot or a rendered View with View, and
// wait for the next mutation on the channel returned by Changed.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/fpang/captioncraft/internal/captionapi"
	"github.com/fpang/captioncraft/internal/filehandler"
)

// Backend is the captioning service as seen by the session.
type Backend interface {
	Health(ctx context.Context) (*captionapi.Health, error)
	GenerateCaption(ctx context.Context, upload captionapi.Upload) (string, error)
}

// Options configures a Session.
type Options struct {
	// ProbeTimeout bounds the liveness probe (default 10s).
	ProbeTimeout time.Duration
	// ThumbnailSize is the longest edge of preview thumbnails (default 300).
	ThumbnailSize int
	// Now is the clock, for tests.
	Now func() time.Time
}

// Session is one interactive captioning session.
type Session struct {
	backend Backend
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc

	probeOnce sync.Once
	probeDone chan struct{}

	mu       sync.Mutex
	image    *StagedImage
	status   BackendStatus
	request  RequestState
	notice   *Notice
	version  uint64
	changed  chan struct{}
	seq      uint64
	inflight context.CancelFunc
	done     chan struct{}
}

// New creates a session. Cancelling ctx (or calling Close) cancels the probe
// and any in-flight request.
func New(ctx context.Context, backend Backend, opts Options) *Session {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 10 * time.Second
	}
	if opts.ThumbnailSize <= 0 {
		opts.ThumbnailSize = filehandler.DefaultThumbnailMaxDimension
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		backend:   backend,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		probeDone: make(chan struct{}),
		changed:   make(chan struct{}),
	}
}

// Close cancels the probe and any in-flight request.
func (s *Session) Close() {
	s.cancel()
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	return State{
		Image:   s.image,
		Backend: s.status,
		Request: s.request,
		Notice:  s.notice,
		Version: s.version,
	}
}

// View projects the current state for display.
func (s *Session) View() View {
	return Project(s.Snapshot(), s.opts.Now())
}

// Changed returns a channel that is closed on the next mutation.
func (s *Session) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// WaitChange blocks until the state version moves past version or ctx ends,
// and returns the state at that point.
func (s *Session) WaitChange(ctx context.Context, version uint64) State {
	for {
		s.mu.Lock()
		st := s.snapshotLocked()
		ch := s.changed
		s.mu.Unlock()

		if st.Version != version {
			return st
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st
		}
	}
}

// DismissNotice clears the transient notice, if any.
func (s *Session) DismissNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice == nil {
		return
	}
	s.notice = nil
	s.broadcastLocked()
}

// broadcastLocked publishes a mutation. Callers hold s.mu.
func (s *Session) broadcastLocked() {
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
}
