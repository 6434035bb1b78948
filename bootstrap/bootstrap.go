// Package bootstrap selects the stream transport for this process and starts it.
//
// The mode is resolved once from the stream config, published for outside
// observers on a best effort basis, and then exactly one transport is built
// and started. A bad mode stops everything before any transport exists.
package bootstrap

import (
	"errors"
	"fmt"
	"sync"

	"RemoteDisplay/log"
	"RemoteDisplay/models/config"
	"RemoteDisplay/models/mode"
	"RemoteDisplay/store"
	"RemoteDisplay/trans"

	"github.com/sirupsen/logrus"
)

type State int

const (
	Unresolved State = iota
	Resolved
	Published
	Started
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolved:
		return "resolved"
	case Published:
		return "published"
	case Started:
		return "started"
	default:
		return "unknown"
	}
}

var ErrAlreadyRun = errors.New("bootstrap already ran")

type Bootstrap struct {
	conf      *config.StreamConfig
	publisher store.Publisher
	registry  trans.Registry

	mu    sync.Mutex
	ran   bool
	state State
	mode  mode.StreamingMode
}

func New(conf *config.StreamConfig, publisher store.Publisher, registry trans.Registry) *Bootstrap {
	return &Bootstrap{
		conf:      conf,
		publisher: publisher,
		registry:  registry,
	}
}

func (b *Bootstrap) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Mode returns the resolved mode, or "" before resolution.
func (b *Bootstrap) Mode() mode.StreamingMode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

func (b *Bootstrap) advance(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
	log.Logger.WithFields(logrus.Fields{
		"state": s.String(),
	}).Debug("bootstrap state changed")
}

// Run resolves the mode, publishes it, builds the matching transport and
// starts it. It returns the started transport. Run works only once.
func (b *Bootstrap) Run() (trans.Strategy, error) {
	b.mu.Lock()
	if b.ran {
		b.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	b.ran = true
	b.mu.Unlock()

	m, err := mode.Resolve(b.conf.Mode)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.mode = m
	b.mu.Unlock()
	b.advance(Resolved)
	log.Logger.WithFields(logrus.Fields{
		"mode": m.String(),
	}).Info("streaming mode resolved")

	b.publish(m)
	b.advance(Published)

	construct, ok := b.registry.Lookup(m)
	if !ok {
		return nil, fmt.Errorf("no transport registered for streaming mode %q", m)
	}
	strategy, err := construct()
	if err != nil {
		return nil, fmt.Errorf("build %s transport: %w", m, err)
	}
	if strategy == nil {
		return nil, fmt.Errorf("build %s transport: constructor returned no transport", m)
	}

	strategy.Start()
	b.advance(Started)
	log.Logger.WithFields(logrus.Fields{
		"mode": m.String(),
	}).Info("transport started")

	return strategy, nil
}

// publish never fails the bootstrap; the record is only for observers.
func (b *Bootstrap) publish(m mode.StreamingMode) {
	if b.publisher == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Logger.WithFields(logrus.Fields{
				"mode":  m.String(),
				"panic": r,
			}).Warn("publishing streaming mode panicked")
		}
	}()

	if err := b.publisher.Publish(m); err != nil {
		log.Logger.WithFields(logrus.Fields{
			"mode":  m.String(),
			"error": err.Error(),
		}).Warn("could not publish streaming mode")
	}
}
