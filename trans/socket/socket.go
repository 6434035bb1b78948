package socket

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"RemoteDisplay/base"
	"RemoteDisplay/consts"
	"RemoteDisplay/log"
	"RemoteDisplay/media"
	"RemoteDisplay/models/config"

	"github.com/fwhezfwhez/errorx"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var errNotConnected = errors.New("socket session is not open")

func NewService(conf *config.CommonConfig, streamConf *config.StreamConfig, sink media.Sink, input <-chan string) (service *Service, err error) {
	if sink == nil {
		return nil, errors.New("socket transport needs a media sink")
	}

	service = &Service{
		streamConf: streamConf,
		sink:       sink,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}

	service.Conf = conf
	service.Input = input
	return
}

// Service streams media over one persistent websocket session.
type Service struct {
	base.Service

	streamConf *config.StreamConfig
	sink       media.Sink
	dialer     *websocket.Dialer

	conn    *websocket.Conn
	connMu  sync.Mutex
	writeMu sync.Mutex
}

func (s *Service) URL() string {
	host := net.JoinHostPort(s.Conf.ServerHost, strconv.Itoa(s.Conf.ServerPort))
	return fmt.Sprintf("ws://%s%s", host, s.streamConf.SocketPath)
}

func (s *Service) Start() {
	if !s.Begin() {
		log.Logger.Warn("socket transport already started or stopped, ignoring start")
		return
	}

	log.Logger.Info("socket service starting...")
	s.Go(s.run)
}

func (s *Service) Stop() {
	if !s.End() {
		return
	}

	s.connMu.Lock()
	conn := s.conn
	s.conn = nil
	s.connMu.Unlock()

	if conn != nil {
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
		_ = conn.Close()
	}

	s.Wait()
	log.Logger.Info("socket service stopped")
}

func (s *Service) run() {
	ctx, cancel := s.Context()
	defer cancel()

	url := s.URL()
	conn, _, err := s.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if !s.Stopped() {
			s.Report(errorx.Wrap(err))
		}
		return
	}

	s.connMu.Lock()
	if s.Stopped() {
		s.connMu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.connMu.Unlock()

	log.Logger.WithFields(logrus.Fields{
		"url": url,
	}).Info("socket session open")

	if err = s.SendText(consts.SocketHello); err != nil {
		s.Report(errorx.Wrap(err))
	}

	s.Go(func() {
		s.ForwardInput(s.SendText)
	})

	s.recv(conn)
}

func (s *Service) recv(conn *websocket.Conn) {
	log.Logger.Info("socket receive task starting...")
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			switch {
			case s.Stopped():
			case websocket.IsCloseError(err, websocket.CloseNormalClosure):
				log.Logger.Info("socket session closed by server")
			default:
				s.Report(errorx.Wrap(err))
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			s.handleFrame(data)
		case websocket.TextMessage:
			log.Logger.WithFields(logrus.Fields{
				"message": string(data),
			}).Info("received server message")
		}
	}
}

func (s *Service) handleFrame(data []byte) {
	if len(data) == 0 {
		log.Logger.Debug("empty media frame")
		return
	}

	var kind media.Kind
	switch data[0] {
	case consts.FrameVideo:
		kind = media.Video
	case consts.FrameAudio:
		kind = media.Audio
	default:
		log.Logger.WithFields(logrus.Fields{
			"kind": data[0],
		}).Debug("unknown media frame")
		return
	}

	if err := s.sink.Push(kind, data[1:]); err != nil {
		log.Logger.Error(err)
	}
}

// SendText writes msg as a text frame on the open session.
func (s *Service) SendText(msg string) error {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn == nil {
		return errNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, []byte(msg))
}
