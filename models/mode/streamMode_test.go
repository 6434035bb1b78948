package mode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	m, err := Resolve("realtime-media")
	require.NoError(t, err)
	assert.Equal(t, RealtimeMedia, m)

	m, err = Resolve("socket")
	require.NoError(t, err)
	assert.Equal(t, Socket, m)
}

func TestResolveInvalid(t *testing.T) {
	for _, raw := range []string{"", "video-call", "WebRTC", "webrtc", "Socket", " socket", "socket\n", "REALTIME-MEDIA", "websockets"} {
		m, err := Resolve(raw)
		require.Error(t, err, raw)
		assert.Equal(t, StreamingMode(""), m)

		var invalid *InvalidModeError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, raw, invalid.Raw)
	}
}

func TestInvalidModeErrorMessage(t *testing.T) {
	_, err := Resolve("video-call")
	assert.Contains(t, err.Error(), `"video-call"`)
	assert.Contains(t, err.Error(), "realtime-media, socket")

	_, err = Resolve("")
	assert.Contains(t, err.Error(), "not set")
}
