// Package imagecodec converts captured images to and from the base64 transport
// encoding used in model requests, and rejects inputs that are too small or
// corrupt to be worth sending to a paid remote call.
package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	_ "golang.org/x/image/webp"
)

// MinEncodedLength is the shortest encoding accepted as a plausible image.
const MinEncodedLength = 100

const defaultMIMEType = "image/jpeg"

// ErrInvalidInput is returned for encodings that must never reach a remote model.
var ErrInvalidInput = errors.New("invalid image input")

// Image is a validated, decoded image ready to be attached to a model request.
type Image struct {
	Encoded  string
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// Encode returns the standard base64 encoding of data.
func Encode(data []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(data)
	if err := Validate(encoded); err != nil {
		return "", err
	}
	return encoded, nil
}

// Validate checks that encoded looks like a base64 image payload. An optional
// data URL prefix ("data:image/png;base64,") is accepted and ignored.
func Validate(encoded string) error {
	_, body := splitDataURL(encoded)
	if len(body) < MinEncodedLength {
		return fmt.Errorf("%w: encoding is %d characters, need at least %d", ErrInvalidInput, len(body), MinEncodedLength)
	}
	for i := 0; i < len(body); i++ {
		if !inAlphabet(body[i]) {
			return fmt.Errorf("%w: unexpected character %q at offset %d", ErrInvalidInput, body[i], i)
		}
	}
	return nil
}

// Strip removes a data URL prefix, returning the bare base64 body.
func Strip(encoded string) string {
	_, body := splitDataURL(encoded)
	return body
}

// Decode validates encoded and returns the decoded image with its MIME type
// and, when the format is recognised, its pixel dimensions.
func Decode(encoded string) (Image, error) {
	if err := Validate(encoded); err != nil {
		return Image{}, err
	}
	declared, body := splitDataURL(encoded)

	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	img := Image{
		Encoded:  body,
		Data:     data,
		MIMEType: sniffMIME(data, declared),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.Width = cfg.Width
		img.Height = cfg.Height
	}
	return img, nil
}

func splitDataURL(s string) (mime, body string) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return "", s
	}
	header, rest, ok := strings.Cut(s, ",")
	if !ok {
		return "", s
	}
	header = strings.TrimPrefix(header, "data:")
	header = strings.TrimSuffix(header, ";base64")
	return header, rest
}

func sniffMIME(data []byte, declared string) string {
	detected := http.DetectContentType(data)
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	return defaultMIMEType
}

func inAlphabet(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '+', c == '/', c == '=':
		return true
	}
	return false
}
