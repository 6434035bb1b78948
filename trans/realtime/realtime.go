package realtime

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"RemoteDisplay/base"
	"RemoteDisplay/consts"
	"RemoteDisplay/log"
	"RemoteDisplay/media"
	"RemoteDisplay/models/config"
	"RemoteDisplay/models/data"

	"github.com/fwhezfwhez/errorx"
	"github.com/gorilla/websocket"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v2"
	"github.com/sirupsen/logrus"
)

var (
	errNotConnected  = errors.New("signalling socket is not open")
	errInputNotReady = errors.New("input data channel is not open")
)

func NewService(conf *config.CommonConfig, streamConf *config.StreamConfig, sink media.Sink, input <-chan string) (service *Service, err error) {
	if sink == nil {
		return nil, errors.New("realtime transport needs a media sink")
	}

	servers, err := iceServers(conf)
	if err != nil {
		return nil, err
	}

	service = &Service{
		streamConf:  streamConf,
		sink:        sink,
		webrtcConf:  webrtc.Configuration{ICEServers: servers},
		videoTracks: make(chan videoTrack, 8),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}

	service.Conf = conf
	service.Input = input
	return
}

// Service receives the remote display over a WebRTC peer connection
// negotiated through the signalling server. It answers the server's offer.
type Service struct {
	base.Service

	streamConf *config.StreamConfig
	sink       media.Sink
	webrtcConf webrtc.Configuration
	dialer     *websocket.Dialer

	ws      *websocket.Conn
	wsMu    sync.Mutex
	writeMu sync.Mutex

	peerConnection *webrtc.PeerConnection
	inputChannel   textSender
	pendingICE     []webrtc.ICECandidateInit
	peerMu         sync.Mutex

	videoTracks chan videoTrack
}

// textSender is the part of a data channel used for input.
type textSender interface {
	SendText(s string) error
}

type videoTrack struct {
	pc   *webrtc.PeerConnection
	ssrc uint32
}

func (s *Service) SignallingURL() string {
	host := net.JoinHostPort(s.Conf.ServerHost, strconv.Itoa(s.Conf.ServerPort))
	return fmt.Sprintf("ws://%s%s", host, s.streamConf.SignallingPath)
}

func (s *Service) Start() {
	if !s.Begin() {
		log.Logger.Warn("realtime transport already started or stopped, ignoring start")
		return
	}

	log.Logger.Info("realtime service starting...")
	s.Go(s.run)
}

func (s *Service) Stop() {
	if !s.End() {
		return
	}

	s.wsMu.Lock()
	ws := s.ws
	s.ws = nil
	s.wsMu.Unlock()

	if ws != nil {
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = ws.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
		_ = ws.Close()
	}

	s.peerMu.Lock()
	pc := s.peerConnection
	s.peerConnection = nil
	s.inputChannel = nil
	s.pendingICE = nil
	s.peerMu.Unlock()

	if pc != nil {
		if err := pc.Close(); err != nil {
			log.Logger.Error(err)
		}
	}

	s.Wait()
	log.Logger.Info("realtime service stopped")
}

func (s *Service) run() {
	ctx, cancel := s.Context()
	defer cancel()

	url := s.SignallingURL()
	ws, _, err := s.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if !s.Stopped() {
			s.Report(errorx.Wrap(err))
		}
		return
	}

	s.wsMu.Lock()
	if s.Stopped() {
		s.wsMu.Unlock()
		_ = ws.Close()
		return
	}
	s.ws = ws
	s.wsMu.Unlock()

	log.Logger.WithFields(logrus.Fields{
		"url": url,
	}).Info("signalling socket open")

	if err = s.sendRaw(fmt.Sprintf("%s %d", consts.SignalHello, s.Conf.PeerId)); err != nil {
		s.Report(errorx.Wrap(err))
		return
	}

	s.Go(func() {
		s.ForwardInput(s.sendInput)
	})
	s.Go(s.requestKeyframes)

	s.recvSignal(ws)
}

func (s *Service) recvSignal(ws *websocket.Conn) {
	log.Logger.Info("start receive signalling task")
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			switch {
			case s.Stopped():
			case websocket.IsCloseError(err, websocket.CloseNormalClosure):
				log.Logger.Info("signalling socket closed by server")
			default:
				s.Report(errorx.Wrap(err))
			}
			return
		}

		text := string(raw)
		switch {
		case text == consts.SignalHello:
			log.Logger.Info("registered with signalling server")
			continue
		case strings.HasPrefix(text, "ERROR"):
			s.Report(fmt.Errorf("signalling server: %s", text))
			continue
		}

		msg := data.SignalMessage{}
		if err = msg.FromBytes(raw); err != nil {
			s.Report(errorx.Wrap(err))
			continue
		}

		if msg.SDP != nil {
			if err = s.handleSDP(*msg.SDP); err != nil {
				s.Report(errorx.Wrap(err))
			}
		}
		if msg.ICE != nil {
			if err = s.handleICE(*msg.ICE); err != nil {
				s.Report(errorx.Wrap(err))
			}
		}
	}
}

func (s *Service) handleSDP(sdp webrtc.SessionDescription) error {
	if sdp.Type != webrtc.SDPTypeOffer {
		return fmt.Errorf("unexpected sdp type %q, this client only answers offers", sdp.Type.String())
	}
	log.Logger.Info("received SDP offer from remote")

	s.peerMu.Lock()
	defer s.peerMu.Unlock()

	if s.Stopped() {
		return nil
	}

	if s.peerConnection == nil {
		pc, err := s.newPeerConnection()
		if err != nil {
			return err
		}
		s.peerConnection = pc
	}
	pc := s.peerConnection

	if err := pc.SetRemoteDescription(sdp); err != nil {
		return err
	}

	for _, candidate := range s.pendingICE {
		if err := pc.AddICECandidate(candidate); err != nil {
			log.Logger.Error(err)
		}
	}
	s.pendingICE = nil

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return err
	}
	if err = pc.SetLocalDescription(answer); err != nil {
		return err
	}

	return s.sendSignal(data.SignalMessage{SDP: &answer})
}

func (s *Service) handleICE(candidate webrtc.ICECandidateInit) error {
	s.peerMu.Lock()
	defer s.peerMu.Unlock()

	if s.peerConnection == nil || s.peerConnection.RemoteDescription() == nil {
		s.pendingICE = append(s.pendingICE, candidate)
		return nil
	}
	return s.peerConnection.AddICECandidate(candidate)
}

func (s *Service) newPeerConnection() (*webrtc.PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(s.webrtcConf)
	if err != nil {
		return nil, err
	}

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		candidateInit := candidate.ToJSON()
		if err := s.sendSignal(data.SignalMessage{ICE: &candidateInit}); err != nil {
			log.Logger.Debug(err)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Logger.WithFields(logrus.Fields{
			"state": state.String(),
		}).Info("peer connection state has changed")

		if state == webrtc.PeerConnectionStateFailed {
			s.Report(errors.New("peer connection failed"))
			go s.dropPeer(pc)
		}
	})

	pc.OnDataChannel(s.onDataChannel)

	pc.OnTrack(func(track *webrtc.Track, receiver *webrtc.RTPReceiver) {
		s.onTrack(pc, track)
	})

	return pc, nil
}

// dropPeer forgets pc if it is still the current connection and closes it.
// The next offer then builds a fresh connection.
func (s *Service) dropPeer(pc *webrtc.PeerConnection) {
	s.peerMu.Lock()
	if s.peerConnection == pc {
		s.peerConnection = nil
		s.inputChannel = nil
		s.pendingICE = nil
	}
	s.peerMu.Unlock()

	if err := pc.Close(); err != nil {
		log.Logger.Debug(err)
	}
}

func (s *Service) onDataChannel(dc *webrtc.DataChannel) {
	label := dc.Label()
	if label != consts.InputChannel {
		log.Logger.WithFields(logrus.Fields{
			"label": label,
		}).Info("auxiliary data channel opened")
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			log.Logger.WithFields(logrus.Fields{
				"label": label,
				"bytes": len(msg.Data),
			}).Debug("auxiliary data channel message")
		})
		dc.OnClose(func() {
			log.Logger.Info("auxiliary data channel closed")
		})
		return
	}

	dc.OnOpen(func() {
		log.Logger.Info("input data channel open")
		s.peerMu.Lock()
		s.inputChannel = dc
		s.peerMu.Unlock()
	})
	dc.OnClose(func() {
		log.Logger.Info("input data channel closed")
		s.peerMu.Lock()
		if s.inputChannel == textSender(dc) {
			s.inputChannel = nil
		}
		s.peerMu.Unlock()
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		log.Logger.WithFields(logrus.Fields{
			"message": string(msg.Data),
		}).Debug("received server message")
	})
}

func (s *Service) onTrack(pc *webrtc.PeerConnection, track *webrtc.Track) {
	kind := media.Audio
	if track.Kind() == webrtc.RTPCodecTypeVideo {
		kind = media.Video
		select {
		case s.videoTracks <- videoTrack{pc: pc, ssrc: track.SSRC()}:
		default:
			log.Logger.Warn("too many video tracks, no keyframe requests for this one")
		}
	}

	log.Logger.WithFields(logrus.Fields{
		"kind":  kind.String(),
		"codec": track.Codec().Name,
	}).Info("track has started")

	s.readTrack(kind, track.Read)
}

// readTrack pushes every payload from read to the sink until read fails.
func (s *Service) readTrack(kind media.Kind, read func(b []byte) (int, error)) {
	buf := make([]byte, 1500)
	for {
		n, err := read(buf)
		if err != nil {
			if err != io.EOF && !s.Stopped() {
				s.Report(errorx.Wrap(err))
			}
			return
		}
		if err = s.sink.Push(kind, buf[:n]); err != nil {
			log.Logger.Error(err)
		}
	}
}

// requestKeyframes sends a PLI on an interval for every video track so the
// sender keeps pushing keyframes.
func (s *Service) requestKeyframes() {
	interval := time.Duration(s.streamConf.PliInterval) * time.Second
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var tracks []videoTrack
	done := s.Done()
	for {
		select {
		case <-done:
			return
		case track := <-s.videoTracks:
			tracks = append(tracks, track)
		case <-ticker.C:
			live := tracks[:0]
			for _, track := range tracks {
				if track.pc.ConnectionState() == webrtc.PeerConnectionStateClosed {
					continue
				}
				live = append(live, track)
				if err := track.pc.WriteRTCP([]rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: track.ssrc}}); err != nil {
					log.Logger.Debug(err)
				}
			}
			tracks = live
		}
	}
}

func (s *Service) sendInput(msg string) error {
	s.peerMu.Lock()
	dc := s.inputChannel
	s.peerMu.Unlock()
	if dc == nil {
		return errInputNotReady
	}
	return dc.SendText(msg)
}

func (s *Service) sendSignal(msg data.SignalMessage) error {
	b, err := msg.ToBytes()
	if err != nil {
		return err
	}
	return s.sendRaw(string(b))
}

func (s *Service) sendRaw(msg string) error {
	s.wsMu.Lock()
	ws := s.ws
	s.wsMu.Unlock()
	if ws == nil {
		return errNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return ws.WriteMessage(websocket.TextMessage, []byte(msg))
}
