// server/internal/qrencode/encoder_test.go
package qrencode

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeProducesPNGDataURL(t *testing.T) {
	out, err := New().Encode([]byte(`{"batchId":"BATCH-20260810-X4T9"}`))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(out, "data:image/png;base64,"))
	require.NoError(t, err)
	require.Greater(t, len(raw), 8)
	require.Equal(t, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, raw[:8])
}

func TestEncodeZeroSizeFallsBack(t *testing.T) {
	out, err := (&Encoder{}).Encode([]byte("hello"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "data:image/png;base64,"))
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	// QR capacity at medium error correction tops out well under 3KB.
	_, err := New().Encode([]byte(strings.Repeat("x", 4096)))
	require.Error(t, err)
}
