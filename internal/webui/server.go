// Package webui serves the browser front end: an HTML page rendered from the
// session view and a small JSON API that drives the session.
package webui

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/fpang/captioncraft/internal/cli"
	"github.com/fpang/captioncraft/internal/filehandler"
	"github.com/fpang/captioncraft/internal/session"
	"github.com/rs/zerolog/log"
)

//go:embed templates static
var assets embed.FS

const (
	// maxUploadBody bounds a whole /api/stage request. Larger than one image
	// so oversized files still reach validation and get a readable message.
	maxUploadBody = 64 << 20
	// multipartMemory is how much of an upload is held in memory before
	// spilling to temporary files.
	multipartMemory = 16 << 20

	defaultMaxWait = 60 * time.Second
)

// Picker opens a native file dialog and returns the chosen path. It returns
// cli.ErrPickCanceled when the user closes the dialog.
type Picker func() (string, error)

// Options configures a Server.
type Options struct {
	// Picker enables POST /api/pick when set.
	Picker Picker
	// MaxWait caps the long-poll duration of GET /api/state.
	MaxWait time.Duration
}

// Server is the HTTP front end for one session.
type Server struct {
	sess    *session.Session
	opts    Options
	page    *template.Template
	handler http.Handler
}

// NewServer builds the handler tree for sess.
func NewServer(sess *session.Session, opts Options) (*Server, error) {
	if opts.MaxWait <= 0 {
		opts.MaxWait = defaultMaxWait
	}

	page, err := template.New("index.html").Funcs(template.FuncMap{
		"dataURL":  func(s string) template.URL { return template.URL(s) },
		"duration": cli.FormatDurationShort,
		"size":     cli.FormatSize,
	}).ParseFS(assets, "templates/index.html")
	if err != nil {
		return nil, err
	}

	staticFS, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, err
	}

	s := &Server{sess: sess, opts: opts, page: page}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/stage", s.handleStage)
	mux.HandleFunc("/api/pick", s.handlePick)
	mux.HandleFunc("/api/generate", s.handleGenerate)
	mux.HandleFunc("/api/dismiss", s.handleDismiss)

	s.handler = withLogging(withSecurityHeaders(withCORS(withOriginCheck(withCompression(mux)))))
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type pageData struct {
	View      session.View
	CanPick   bool
	Refreshes bool
}

// GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	v := s.sess.View()
	data := pageData{
		View:      v,
		CanPick:   s.opts.Picker != nil,
		Refreshes: v.BackendChecking || v.Submit.Spinner,
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		log.Error().Err(err).Msg("Failed to render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// GET /api/state?wait=30s&version=N
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	if waitParam := q.Get("wait"); waitParam != "" {
		wait, err := time.ParseDuration(waitParam)
		if err != nil || wait < 0 {
			httpError(w, http.StatusBadRequest, "wait must be a duration such as 30s")
			return
		}
		wait = min(wait, s.opts.MaxWait)

		version := s.sess.Snapshot().Version
		if vp := q.Get("version"); vp != "" {
			version, err = strconv.ParseUint(vp, 10, 64)
			if err != nil {
				httpError(w, http.StatusBadRequest, "version must be a number")
				return
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), wait)
		defer cancel()
		s.sess.WaitChange(ctx, version)
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, s.sess.View())
}

// POST /api/stage (multipart, one or more "file" fields)
func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.sess.Submit(nil, []session.Rejection{{Message: session.MessageTooLarge}})
			s.respondView(w, r)
			return
		}
		httpError(w, http.StatusBadRequest, "expected a multipart upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		httpError(w, http.StatusBadRequest, "file is required")
		return
	}

	candidates := make([]filehandler.Candidate, 0, len(headers))
	for _, fh := range headers {
		candidates = append(candidates, filehandler.CandidateFromFileHeader(fh))
	}
	s.sess.Submit(candidates, nil)
	s.respondView(w, r)
}

// POST /api/pick
func (s *Server) handlePick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.opts.Picker == nil {
		httpError(w, http.StatusNotImplemented, "native file picker is not available")
		return
	}

	path, err := s.opts.Picker()
	if err != nil {
		if errors.Is(err, cli.ErrPickCanceled) {
			s.respondView(w, r)
			return
		}
		httpError(w, http.StatusInternalServerError, "file picker failed")
		return
	}

	candidate, err := filehandler.CandidateFromPath(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Picked file could not be loaded")
		s.sess.Submit(nil, []session.Rejection{{Name: path, Message: session.MessageUnreadable}})
	} else {
		s.sess.Submit([]filehandler.Candidate{candidate}, nil)
	}
	s.respondView(w, r)
}

// POST /api/generate
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.sess.Generate()
	s.respondView(w, r)
}

// POST /api/dismiss
func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.sess.DismissNotice()
	s.respondView(w, r)
}

// respondView answers a mutation: the view for JSON clients, a redirect back
// to the page for form posts.
func (s *Server) respondView(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		respondJSON(w, http.StatusOK, s.sess.View())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
