// Package captionapi provides a client for the captioning backend.
//
// The backend exposes two endpoints:
//   - GET /health: liveness probe, {"status": "..."} on success
//   - POST /generate-caption/: multipart upload of a single "file" field,
//     {"caption": "..."} on success, {"error": "..."} or {"detail": ...} on failure
//
// Non-2xx responses are returned as *APIError so callers can pick the most
// specific message with FailureMessage.
package captionapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is where the backend listens in a local setup.
	DefaultBaseURL = "http://localhost:8000"

	healthPath  = "/health"
	captionPath = "/generate-caption/"

	// maxResponseBody bounds how much of any response body is read.
	maxResponseBody = 1 << 20
)

// ErrEmptyCaption is returned when the backend answers 2xx without a caption.
var ErrEmptyCaption = errors.New("backend returned an empty caption")

// Client talks to the captioning backend.
//
// The underlying http.Client has no overall timeout: caption generation is
// bounded only by the caller's context and the transport's own deadlines.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a backend client for baseURL (e.g. "http://localhost:8000").
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the backend base URL the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health is the body of a successful GET /health.
type Health struct {
	Status      string `json:"status"`
	ModelLoaded *bool  `json:"model_loaded,omitempty"`
}

// Upload is the image sent to the caption endpoint.
type Upload struct {
	Filename string
	MIMEType string
	Data     []byte
}

type captionResponse struct {
	Caption  string `json:"caption"`
	Filename string `json:"filename,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Health probes the backend liveness endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create health request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp)
	}

	var health Health
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&health); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}

	log.Debug().Str("status", health.Status).Msg("Backend health probe succeeded")
	return &health, nil
}

// GenerateCaption uploads an image and returns the generated caption.
func (c *Client) GenerateCaption(ctx context.Context, upload Upload) (string, error) {
	body, contentType, err := encodeUpload(upload)
	if err != nil {
		return "", fmt.Errorf("encode upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+captionPath, body)
	if err != nil {
		return "", fmt.Errorf("create caption request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	log.Debug().
		Str("requestId", requestID).
		Str("filename", upload.Filename).
		Int("size_bytes", len(upload.Data)).
		Msg("Sending caption request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("caption request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp)
		log.Warn().
			Str("requestId", requestID).
			Int("status", apiErr.StatusCode).
			Msg("Caption request rejected by backend")
		return "", apiErr
	}

	var result captionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&result); err != nil {
		return "", fmt.Errorf("decode caption response: %w", err)
	}
	if strings.TrimSpace(result.Caption) == "" {
		return "", ErrEmptyCaption
	}

	log.Info().
		Str("requestId", requestID).
		Int("caption_length", len(result.Caption)).
		Msg("Caption generated")
	return result.Caption, nil
}

// encodeUpload builds the multipart body. The part carries the image's real
// media type because the backend rejects parts that are not image/*.
func encodeUpload(upload Upload) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	filename := upload.Filename
	if filename == "" {
		filename = "image"
	}
	mimeType := upload.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	header.Set("Content-Type", mimeType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(upload.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
