package session

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fpang/captioncraft/internal/captionapi"
	"github.com/fpang/captioncraft/internal/filehandler"
)

// fakeBackend is a scriptable Backend. Nil funcs answer healthy / "a caption".
type fakeBackend struct {
	health  func(ctx context.Context) (*captionapi.Health, error)
	caption func(ctx context.Context, upload captionapi.Upload) (string, error)

	mu           sync.Mutex
	healthCalls  int
	captionCalls int
	uploads      []captionapi.Upload
}

func (f *fakeBackend) Health(ctx context.Context) (*captionapi.Health, error) {
	f.mu.Lock()
	f.healthCalls++
	f.mu.Unlock()
	if f.health == nil {
		return &captionapi.Health{Status: "ok"}, nil
	}
	return f.health(ctx)
}

func (f *fakeBackend) GenerateCaption(ctx context.Context, upload captionapi.Upload) (string, error) {
	f.mu.Lock()
	f.captionCalls++
	f.uploads = append(f.uploads, upload)
	f.mu.Unlock()
	if f.caption == nil {
		return "a caption", nil
	}
	return f.caption(ctx, upload)
}

func (f *fakeBackend) calls() (health, caption int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthCalls, f.captionCalls
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// newProbedSession returns a session whose probe has already resolved.
func newProbedSession(t *testing.T, backend *fakeBackend) *Session {
	t.Helper()
	s := New(context.Background(), backend, Options{})
	t.Cleanup(s.Close)
	s.StartProbe()
	if err := s.WaitProbe(testContext(t)); err != nil {
		t.Fatalf("probe did not resolve: %v", err)
	}
	return s
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(32, 24)); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, padTo int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(64, 48), &jpeg.Options{Quality: 80}); err != nil {
		t.Fatal(err)
	}
	if padTo > buf.Len() {
		buf.Write(make([]byte, padTo-buf.Len()))
	}
	return buf.Bytes()
}

func gifBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, testImage(16, 16), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// hugePNG declares w x h pixels in its header and carries no pixel data.
func hugePNG(w, h uint32) []byte {
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
	ihdr[8] = 8
	chunk("IHDR", ihdr)
	chunk("IEND", nil)
	return buf.Bytes()
}

func pngCandidate(t *testing.T, name string) filehandler.Candidate {
	return filehandler.CandidateFromBytes(name, "image/png", pngBytes(t))
}

func TestSubmit_AcceptsSupportedImages(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		data     []byte
	}{
		{"photo.jpg", "image/jpeg", jpegBytes(t, 0)},
		{"photo.jpeg", "image/jpg", jpegBytes(t, 0)},
		{"shot.png", "image/png", pngBytes(t)},
		{"anim.gif", "image/gif", gifBytes(t)},
		{"exactly-10mb.jpg", "image/jpeg", jpegBytes(t, int(filehandler.MaxImageSize))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(context.Background(), &fakeBackend{}, Options{})
			defer s.Close()

			if !s.Submit([]filehandler.Candidate{filehandler.CandidateFromBytes(tt.name, tt.mimeType, tt.data)}, nil) {
				t.Fatal("expected file to be staged")
			}

			st := s.Snapshot()
			if st.Image == nil {
				t.Fatal("expected staged image")
			}
			if st.Image.Name != tt.name {
				t.Errorf("expected name %s, got %s", tt.name, st.Image.Name)
			}
			if !bytes.Equal(st.Image.Data, tt.data) {
				t.Error("staged payload differs from input")
			}
			wantPrefix := "data:" + st.Image.MIMEType + ";base64,"
			if !strings.HasPrefix(st.Image.Preview, wantPrefix) || len(st.Image.Preview) <= len(wantPrefix) {
				t.Errorf("expected non-empty data URI preview, got %.40q", st.Image.Preview)
			}
			if st.Image.Width == 0 || st.Image.Height == 0 {
				t.Errorf("expected dimensions, got %dx%d", st.Image.Width, st.Image.Height)
			}
			if st.Notice != nil {
				t.Errorf("expected no notice, got %+v", st.Notice)
			}
		})
	}
}

type errOpener struct{}

func (errOpener) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }
func (errOpener) Close() error             { return nil }

func TestSubmit_Rejections(t *testing.T) {
	big := jpegBytes(t, 15*1024*1024)

	tests := []struct {
		name       string
		candidates []filehandler.Candidate
		rejected   []Rejection
		want       string
	}{
		{
			name:       "unsupported type",
			candidates: []filehandler.Candidate{filehandler.CandidateFromBytes("notes.txt", "text/plain", []byte("hello"))},
			want:       MessageInvalidType,
		},
		{
			name:       "webp is not accepted",
			candidates: []filehandler.Candidate{filehandler.CandidateFromBytes("a.webp", "image/webp", []byte("RIFF....WEBPVP8 "))},
			want:       MessageInvalidType,
		},
		{
			name:       "content does not match declared type",
			candidates: []filehandler.Candidate{filehandler.CandidateFromBytes("fake.png", "image/png", []byte("<html>not an image</html>"))},
			want:       MessageInvalidType,
		},
		{
			name:       "15 MB file",
			candidates: []filehandler.Candidate{filehandler.CandidateFromBytes("huge.jpg", "image/jpeg", big)},
			want:       MessageTooLarge,
		},
		{
			name: "size understated by source",
			candidates: []filehandler.Candidate{{
				Name: "liar.jpg", MIMEType: "image/jpeg", Size: 100,
				Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(big)), nil },
			}},
			want: MessageTooLarge,
		},
		{
			name:       "two files",
			candidates: []filehandler.Candidate{pngCandidate(t, "a.png"), pngCandidate(t, "b.png")},
			want:       MessageTooManyFiles,
		},
		{
			name:       "one accepted plus one rejected",
			candidates: []filehandler.Candidate{pngCandidate(t, "a.png")},
			rejected:   []Rejection{{Name: "b.txt", Message: MessageInvalidType}},
			want:       MessageTooManyFiles,
		},
		{
			name:     "pre-rejected by front end",
			rejected: []Rejection{{Name: "broken.png"}},
			want:     MessageUnreadable,
		},
		{
			name: "read failure",
			candidates: []filehandler.Candidate{{
				Name: "flaky.png", MIMEType: "image/png", Size: 10,
				Open: func() (io.ReadCloser, error) { return errOpener{}, nil },
			}},
			want: MessageUnreadable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(context.Background(), &fakeBackend{}, Options{})
			defer s.Close()

			if !s.Submit([]filehandler.Candidate{pngCandidate(t, "existing.png")}, nil) {
				t.Fatal("setup: expected initial image to be staged")
			}
			before := s.Snapshot().Image

			if s.Submit(tt.candidates, tt.rejected) {
				t.Fatal("expected submission to be rejected")
			}

			st := s.Snapshot()
			if st.Image != before {
				t.Error("rejection must leave the staged image untouched")
			}
			if st.Notice == nil {
				t.Fatal("expected validation notice")
			}
			if st.Notice.Kind != ValidationNotice {
				t.Errorf("expected validation notice, got %s", st.Notice.Kind)
			}
			if st.Notice.Message != tt.want {
				t.Errorf("expected %q, got %q", tt.want, st.Notice.Message)
			}
		})
	}
}

func TestSubmit_LargeDimensionsSkipThumbnail(t *testing.T) {
	s := New(context.Background(), &fakeBackend{}, Options{})
	defer s.Close()

	data := hugePNG(20000, 20000)
	if !s.Submit([]filehandler.Candidate{filehandler.CandidateFromBytes("huge.png", "image/png", data)}, nil) {
		t.Fatal("expected file to be staged")
	}

	img := s.Snapshot().Image
	if img == nil {
		t.Fatal("expected staged image")
	}
	if img.Thumbnail != "" {
		t.Error("expected no thumbnail for an image over the pixel budget")
	}
	if img.Width != 20000 || img.Height != 20000 {
		t.Errorf("expected 20000x20000, got %dx%d", img.Width, img.Height)
	}
	if img.Preview == "" {
		t.Error("expected full preview")
	}
}

func TestSubmit_RejectionWithoutStagedImage(t *testing.T) {
	s := New(context.Background(), &fakeBackend{}, Options{})
	defer s.Close()

	big := jpegBytes(t, 15*1024*1024)
	s.Submit([]filehandler.Candidate{filehandler.CandidateFromBytes("huge.jpg", "image/jpeg", big)}, nil)

	v := s.View()
	if v.Preview != nil || v.Dropzone == nil {
		t.Error("expected dropzone and no preview after rejected first file")
	}
	if v.ErrorBanner == nil || v.ErrorBanner.Message != MessageTooLarge {
		t.Errorf("expected size-limit banner, got %+v", v.ErrorBanner)
	}
}

func TestSubmit_NothingOffered(t *testing.T) {
	s := New(context.Background(), &fakeBackend{}, Options{})
	defer s.Close()

	version := s.Snapshot().Version
	if s.Submit(nil, nil) {
		t.Error("expected false for empty submission")
	}
	if s.Snapshot().Version != version {
		t.Error("empty submission must not mutate state")
	}
}

func TestSubmit_IdempotentRestaging(t *testing.T) {
	s := newProbedSession(t, &fakeBackend{})
	data := pngBytes(t)
	stage := func() *StagedImage {
		t.Helper()
		if !s.Submit([]filehandler.Candidate{filehandler.CandidateFromBytes("same.png", "image/png", data)}, nil) {
			t.Fatal("expected file to be staged")
		}
		return s.Snapshot().Image
	}

	first := stage()

	// Leave a caption and then a notice behind; each restage clears them.
	s.Generate()
	s.Wait(testContext(t))
	if s.View().Caption == nil {
		t.Fatal("setup: expected caption")
	}
	second := stage()
	if s.View().Caption != nil {
		t.Error("restaging must hide the caption")
	}

	s.Submit(nil, []Rejection{{Name: "x", Message: MessageInvalidType}})
	third := stage()
	if s.Snapshot().Notice != nil {
		t.Error("restaging must clear the notice")
	}

	for i, img := range []*StagedImage{second, third} {
		if img.Name != first.Name || img.MIMEType != first.MIMEType ||
			img.Preview != first.Preview || !bytes.Equal(img.Data, first.Data) {
			t.Errorf("restage %d produced different content", i+1)
		}
	}
}

func TestDismissNotice(t *testing.T) {
	s := New(context.Background(), &fakeBackend{}, Options{})
	defer s.Close()

	s.Submit(nil, []Rejection{{Name: "a", Message: MessageTooLarge}})
	if s.Snapshot().Notice == nil {
		t.Fatal("setup: expected notice")
	}

	s.DismissNotice()
	if s.Snapshot().Notice != nil {
		t.Error("expected notice to be cleared")
	}

	version := s.Snapshot().Version
	s.DismissNotice()
	if s.Snapshot().Version != version {
		t.Error("dismissing with no notice must not mutate state")
	}
}

func TestChangedAndWaitChange(t *testing.T) {
	s := New(context.Background(), &fakeBackend{}, Options{})
	defer s.Close()

	ch := s.Changed()
	version := s.Snapshot().Version

	c := pngCandidate(t, "a.png")
	go s.Submit([]filehandler.Candidate{c}, nil)

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("Changed channel was not closed")
	}

	st := s.WaitChange(testContext(t), version)
	if st.Version == version {
		t.Error("expected a newer version")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if got := s.WaitChange(ctx, s.Snapshot().Version); got.Version != s.Snapshot().Version {
		t.Error("expected WaitChange to return current state on timeout")
	}
}
