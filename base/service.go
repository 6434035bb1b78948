package base

import (
	"context"
	"sync"

	"RemoteDisplay/log"
	"RemoteDisplay/models/config"

	"github.com/sirupsen/logrus"
)

const errBuffer = 16

// Service is the lifecycle scaffold embedded by every transport.
type Service struct {
	Conf  *config.CommonConfig
	Input <-chan string

	mu      sync.Mutex
	started bool
	stopped bool
	done    chan struct{}
	errs    chan error

	wg sync.WaitGroup
}

// Begin marks the service started. It returns false when the service was
// already started or stopped, in which case the caller must not start again.
func (s *Service) Begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return false
	}
	s.started = true
	s.done = make(chan struct{})
	return true
}

// End marks the service stopped and closes Done. Only the first call after
// Begin returns true; every other call is a no-op.
func (s *Service) End() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		return false
	}
	s.stopped = true
	close(s.done)
	return true
}

func (s *Service) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Service) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Context returns a context that is cancelled once the service stops.
func (s *Service) Context() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	done := s.Done()
	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Errors carries the failures of the transport's own run sequence.
func (s *Service) Errors() <-chan error {
	return s.errChan()
}

func (s *Service) errChan() chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errs == nil {
		s.errs = make(chan error, errBuffer)
	}
	return s.errs
}

// Report logs err and queues it on Errors. Errors are dropped once the buffer is full.
func (s *Service) Report(err error) {
	if err == nil {
		return
	}
	log.Logger.Error(err)

	select {
	case s.errChan() <- err:
	default:
		log.Logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("error channel full, dropping error")
	}
}

// Go runs f as a goroutine owned by the service.
func (s *Service) Go(f func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		f()
	}()
}

// Wait blocks until every goroutine started with Go has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// ForwardInput hands every input message to send until the service stops.
func (s *Service) ForwardInput(send func(msg string) error) {
	if s.Input == nil {
		return
	}
	done := s.Done()

	log.Logger.Info("input forward task starting...")
	for {
		select {
		case <-done:
			return
		case msg, ok := <-s.Input:
			if !ok {
				return
			}
			if err := send(msg); err != nil {
				log.Logger.WithFields(logrus.Fields{
					"message": msg,
				}).Debug(err)
			}
		}
	}
}
