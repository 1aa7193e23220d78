// Package generator turns a text prompt into image bytes through a hosted
// image model and normalizes the model's output shape.
package generator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrEmptyPrompt      = errors.New("prompt is empty")
	ErrUnexpectedOutput = errors.New("unexpected generator output")
	ErrInvalidDataURL   = errors.New("invalid data url")
	ErrImageTooLarge    = errors.New("generated image exceeds size limit")
)

// Image is normalized generator output.
type Image struct {
	Bytes     []byte
	MimeType  string
	SourceURL string
}

// Generator produces one image for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Image, error)
}

// StylePrompt inserts the user prompt into template at %s. A template
// without a verb gets the prompt appended.
func StylePrompt(template, prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if template == "" {
		return prompt
	}
	if strings.Contains(template, "%s") {
		return strings.Replace(template, "%s", prompt, 1)
	}
	return template + " " + prompt
}

var dataURLPattern = regexp.MustCompile(`^data:([A-Za-z0-9.+-]+/[A-Za-z0-9.+-]+);base64,(.+)$`)

// DecodeDataURL parses a base64 data URL.
func DecodeDataURL(s string) (Image, error) {
	m := dataURLPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Image{}, ErrInvalidDataURL
	}
	b, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return Image{Bytes: b, MimeType: m[1]}, nil
}

// Extension returns the file extension used for objects of this MIME type.
func Extension(mime string) string {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
