package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fpang/captioncraft/internal/session"
)

// RenderView prints a session view as plain text for terminal front ends.
func RenderView(w io.Writer, v session.View) {
	var b strings.Builder

	fmt.Fprintf(&b, "Backend: %s", v.BackendStatus)
	if v.ModelLoaded != nil && !*v.ModelLoaded {
		b.WriteString(" (model not loaded)")
	}
	b.WriteString("\n")

	if v.UnavailableBanner != "" {
		fmt.Fprintf(&b, "!! %s\n", v.UnavailableBanner)
	}
	if v.ErrorBanner != nil {
		fmt.Fprintf(&b, "Error: %s\n", v.ErrorBanner.Message)
	}

	if p := v.Preview; p != nil {
		fmt.Fprintf(&b, "Image: %s (%s, %s", p.Filename, p.MIMEType, FormatSize(p.Size))
		if p.Width > 0 && p.Height > 0 {
			fmt.Fprintf(&b, ", %dx%d", p.Width, p.Height)
		}
		b.WriteString(")\n")
		if p.Details != "" {
			fmt.Fprintf(&b, "       %s\n", p.Details)
		}
	} else if v.Dropzone != nil {
		fmt.Fprintf(&b, "No image staged. %s\n", v.Dropzone.Hint)
	}

	switch {
	case v.Submit.Spinner:
		fmt.Fprintf(&b, "%s %s\n", v.Submit.Label, FormatDurationShort(v.Submit.Elapsed))
	case v.Submit.Enabled:
		fmt.Fprintf(&b, "Ready: %s\n", v.Submit.Label)
	}

	if v.Caption != nil {
		fmt.Fprintf(&b, "\nCaption: %s\n", v.Caption.Text)
	}

	io.WriteString(w, b.String())
}
