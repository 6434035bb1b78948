package data

import (
	"encoding/json"
	"errors"

	"github.com/pion/webrtc/v2"
)

// SignalMessage is one JSON message on the signalling socket. Exactly one of
// SDP and ICE is set.
type SignalMessage struct {
	SDP *webrtc.SessionDescription `json:"sdp,omitempty"`
	ICE *webrtc.ICECandidateInit   `json:"ice,omitempty"`
}

func (s *SignalMessage) ToBytes() ([]byte, error) {
	return json.Marshal(s)
}

func (s *SignalMessage) FromBytes(b []byte) error {
	*s = SignalMessage{}
	if err := json.Unmarshal(b, s); err != nil {
		return err
	}
	if s.SDP == nil && s.ICE == nil {
		return errors.New("signalling message has neither sdp nor ice")
	}
	return nil
}
