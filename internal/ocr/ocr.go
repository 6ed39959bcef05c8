package ocr

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrEmptyImage is returned when an image has no bytes.
	ErrEmptyImage = errors.New("ocr: image is empty")
	// ErrUnsupportedImage is returned for content types that are not images.
	ErrUnsupportedImage = errors.New("ocr: unsupported image type")
	// ErrNoText is returned when recognition succeeded but found no text.
	ErrNoText = errors.New("ocr: no text recognised")
)

// DefaultConfidence is reported when a provider cannot score its output.
const DefaultConfidence = 0.6

// Image is an uploaded or fetched picture to recognise.
type Image struct {
	Data        []byte
	ContentType string
	Name        string
}

// Result is the recognised text with a 0..1 confidence.
type Result struct {
	Text       string
	Confidence float64
	Provider   string
	Duration   time.Duration
}

// Recognizer turns image bytes into text. Implementations must honour ctx
// cancellation and must not retry.
type Recognizer interface {
	Recognize(ctx context.Context, img Image) (Result, error)
}

// Validate checks the image before it is handed to a provider.
func (img Image) Validate() error {
	if len(img.Data) == 0 {
		return ErrEmptyImage
	}
	if ct := strings.ToLower(strings.TrimSpace(img.ContentType)); ct != "" && !strings.HasPrefix(ct, "image/") {
		return ErrUnsupportedImage
	}
	return nil
}

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^[ \t]*[_\-|]{3,}[ \t]*$`)
)

// Normalize collapses noisy whitespace and drops ruled lines. Line breaks are
// kept; runs of blank lines collapse to one.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
