package session

import (
	"fmt"
	"time"
)

// Labels and prompts shown by every front end.
const (
	LabelGenerate   = "Generate Caption"
	LabelGenerating = "Generating Caption..."
	DropzonePrompt  = "Drag & drop an image here, or click to select"
	DropzoneHint    = "Supports JPG, PNG, GIF (max 10 MB)"
)

// View is everything a front end shows, derived from a State.
type View struct {
	Version uint64 `json:"version"`

	Submit SubmitControl `json:"submit"`

	// Exactly one of Dropzone and Preview is set.
	Dropzone *DropzoneView `json:"dropzone,omitempty"`
	Preview  *PreviewView  `json:"preview,omitempty"`

	BackendChecking   bool   `json:"backendChecking"`
	BackendStatus     string `json:"backendStatus"`
	ModelLoaded       *bool  `json:"modelLoaded,omitempty"`
	UnavailableBanner string `json:"unavailableBanner,omitempty"`

	ErrorBanner *NoticeView  `json:"errorBanner,omitempty"`
	Caption     *CaptionView `json:"caption,omitempty"`
}

// SubmitControl is the generate button.
type SubmitControl struct {
	Enabled bool          `json:"enabled"`
	Label   string        `json:"label"`
	Spinner bool          `json:"spinner"`
	Elapsed time.Duration `json:"elapsedNs,omitempty"`
}

type DropzoneView struct {
	Prompt string `json:"prompt"`
	Hint   string `json:"hint"`
}

type PreviewView struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	// Src is a data URI: the thumbnail when one exists, else the full image.
	Src     string `json:"src"`
	Details string `json:"details,omitempty"`
}

type NoticeView struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// CaptionView is the revealed caption. RevealKey changes with every
// successful request so renderers can replay the reveal transition.
type CaptionView struct {
	Text      string `json:"text"`
	RevealKey string `json:"revealKey"`
}

// Project derives the View for st. now is only used for the elapsed time
// of an in-flight request.
func Project(st State, now time.Time) View {
	v := View{
		Version:         st.Version,
		BackendChecking: st.Backend.Availability == Checking,
		BackendStatus:   backendStatusText(st.Backend),
		ModelLoaded:     st.Backend.ModelLoaded,
	}

	inFlight := st.Request.Phase == InFlight
	v.Submit = SubmitControl{
		Enabled: st.CanSubmit(),
		Label:   LabelGenerate,
		Spinner: inFlight,
	}
	if inFlight {
		v.Submit.Label = LabelGenerating
		if !st.Request.StartedAt.IsZero() {
			v.Submit.Elapsed = max(now.Sub(st.Request.StartedAt), 0)
		}
	}

	if img := st.Image; img != nil {
		src := img.Thumbnail
		if src == "" {
			src = img.Preview
		}
		v.Preview = &PreviewView{
			Filename: img.Name,
			MIMEType: img.MIMEType,
			Size:     img.Size(),
			Width:    img.Width,
			Height:   img.Height,
			Src:      src,
			Details:  img.Metadata.Summary(),
		}
	} else {
		v.Dropzone = &DropzoneView{Prompt: DropzonePrompt, Hint: DropzoneHint}
	}

	if st.Backend.Availability == Unavailable {
		v.UnavailableBanner = UnavailableMessage
	}

	if n := st.Notice; n != nil {
		v.ErrorBanner = &NoticeView{Kind: n.Kind.String(), Message: n.Message}
	}

	if st.Request.Phase == Succeeded {
		v.Caption = &CaptionView{
			Text:      st.Request.Caption,
			RevealKey: fmt.Sprintf("caption-%d", st.Request.Seq),
		}
	}
	return v
}

func backendStatusText(b BackendStatus) string {
	switch b.Availability {
	case Checking:
		return "checking"
	case Unavailable:
		return "unavailable"
	}
	if b.Reported != "" {
		return b.Reported
	}
	return "available"
}
