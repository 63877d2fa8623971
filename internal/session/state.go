package session

import (
	"time"

	"github.com/fpang/captioncraft/internal/filehandler"
)

// Availability is the outcome of the startup liveness probe.
type Availability int

const (
	Checking Availability = iota
	Available
	Unavailable
)

func (a Availability) String() string {
	switch a {
	case Checking:
		return "checking"
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Phase is the stage of the caption request cycle.
type Phase int

const (
	Idle Phase = iota
	InFlight
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case InFlight:
		return "in_flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// StagedImage is the single image selected for captioning. A StagedImage is
// never modified after it is published; a new acquisition replaces it.
type StagedImage struct {
	Name     string
	MIMEType string
	Data     []byte

	// Preview is the full image as a data URI.
	Preview string
	// Thumbnail is a downscaled data URI, empty when it could not be built.
	Thumbnail string

	Width, Height int
	Metadata      *filehandler.ImageMetadata
}

// Size returns the payload size in bytes.
func (img *StagedImage) Size() int64 {
	return int64(len(img.Data))
}

// BackendStatus records what the probe found.
type BackendStatus struct {
	Availability Availability
	// Reported is the literal status string from the health endpoint.
	Reported    string
	ModelLoaded *bool
}

// RequestState is the caption request cycle. Caption is set only when
// Succeeded and Message only when Failed.
type RequestState struct {
	Phase     Phase
	Caption   string
	Message   string
	Seq       uint64
	StartedAt time.Time
	EndedAt   time.Time
}

// NoticeKind tells which component raised a Notice.
type NoticeKind int

const (
	ValidationNotice NoticeKind = iota
	RequestNotice
)

func (k NoticeKind) String() string {
	if k == RequestNotice {
		return "request"
	}
	return "validation"
}

// Notice is a transient, dismissible error message.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// State is a consistent copy of every session cell.
type State struct {
	Image   *StagedImage
	Backend BackendStatus
	Request RequestState
	Notice  *Notice
	Version uint64
}

// CanSubmit reports whether a caption request may be started.
func (s State) CanSubmit() bool {
	return s.Image != nil &&
		s.Request.Phase != InFlight &&
		s.Backend.Availability != Unavailable
}
