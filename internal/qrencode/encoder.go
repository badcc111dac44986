// server/internal/qrencode/encoder.go
package qrencode

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Encoder renders a payload as a QR symbol and returns it as a PNG data URL,
// ready to be stored on the record and dropped into an <img> tag.
type Encoder struct {
	// Size is the rendered image width/height in pixels.
	Size int
}

func New() *Encoder {
	return &Encoder{Size: 256}
}

func (e *Encoder) Encode(payload []byte) (string, error) {
	size := e.Size
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(string(payload), qrcode.Medium, size)
	if err != nil {
		return "", fmt.Errorf("failed to render QR symbol: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
