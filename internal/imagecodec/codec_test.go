package imagecodec

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 40, G: uint8(100 + x%100), B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestValidate_AcceptsAlphabetAtMinimumLength(t *testing.T) {
	alphabet := "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/="
	for _, n := range []int{MinEncodedLength, MinEncodedLength + 1, 4096} {
		var sb strings.Builder
		for i := 0; i < n; i++ {
			sb.WriteByte(alphabet[(i*7)%len(alphabet)])
		}
		assert.NoError(t, Validate(sb.String()), "length %d", n)
	}
}

func TestValidate_RejectsShort(t *testing.T) {
	for _, s := range []string{"", "abc", strings.Repeat("A", MinEncodedLength-1)} {
		err := Validate(s)
		assert.ErrorIs(t, err, ErrInvalidInput, "input %q", s)
	}
}

func TestValidate_RejectsOutOfAlphabet(t *testing.T) {
	base := strings.Repeat("QUJD", 40)
	for _, bad := range []string{"-", "_", " ", "é", "\n", "!"} {
		s := base[:60] + bad + base[60:]
		assert.ErrorIs(t, Validate(s), ErrInvalidInput, "char %q", bad)
	}
}

func TestValidate_DataURLPrefix(t *testing.T) {
	body := base64.StdEncoding.EncodeToString(testPNG(t, 8, 8))
	assert.NoError(t, Validate("data:image/png;base64,"+body))
	assert.Equal(t, body, Strip("data:image/png;base64,"+body))
}

func TestEncode_RoundTrip(t *testing.T) {
	raw := testPNG(t, 12, 7)
	enc, err := Encode(raw)
	require.NoError(t, err)

	img, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, raw, img.Data)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, 12, img.Width)
	assert.Equal(t, 7, img.Height)
}

func TestEncode_TooSmall(t *testing.T) {
	_, err := Encode([]byte{0xff, 0xd8})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDecode_UnknownFormatFallsBackToDeclaredMIME(t *testing.T) {
	raw := bytes.Repeat([]byte("leafdata"), 20)
	body := base64.StdEncoding.EncodeToString(raw)

	img, err := Decode("data:image/webp;base64," + body)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", img.MIMEType)
	assert.Zero(t, img.Width)

	img, err = Decode(body)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)
}
