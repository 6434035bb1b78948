package data

import (
	"testing"

	"github.com/pion/webrtc/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalMessageOffer(t *testing.T) {
	msg := SignalMessage{}
	err := msg.FromBytes([]byte(`{"sdp": {"type": "offer", "sdp": "v=0\r\n"}}`))
	require.NoError(t, err)

	require.NotNil(t, msg.SDP)
	assert.Nil(t, msg.ICE)
	assert.Equal(t, webrtc.SDPTypeOffer, msg.SDP.Type)
	assert.Equal(t, "v=0\r\n", msg.SDP.SDP)
}

func TestSignalMessageICE(t *testing.T) {
	msg := SignalMessage{}
	err := msg.FromBytes([]byte(`{"ice": {"candidate": "candidate:1 1 udp 2122260223 10.0.0.2 50000 typ host", "sdpMLineIndex": 0}}`))
	require.NoError(t, err)

	require.NotNil(t, msg.ICE)
	assert.Nil(t, msg.SDP)
	require.NotNil(t, msg.ICE.SDPMLineIndex)
	assert.Equal(t, uint16(0), *msg.ICE.SDPMLineIndex)
}

func TestSignalMessageAnswerBytes(t *testing.T) {
	msg := SignalMessage{SDP: &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0\r\n"}}
	b, err := msg.ToBytes()
	require.NoError(t, err)
	assert.JSONEq(t, `{"sdp": {"type": "answer", "sdp": "v=0\r\n"}}`, string(b))
}

func TestSignalMessageInvalid(t *testing.T) {
	msg := SignalMessage{}
	assert.Error(t, msg.FromBytes([]byte(`{"other": 1}`)))
	assert.Error(t, msg.FromBytes([]byte(`not json`)))
}
