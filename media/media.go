package media

import (
	"sync"

	"RemoteDisplay/log"

	"github.com/sirupsen/logrus"
)

type Kind uint8

const (
	Video Kind = iota
	Audio
)

func (k Kind) String() string {
	switch k {
	case Video:
		return "video"
	case Audio:
		return "audio"
	default:
		return "unknown"
	}
}

// Sink receives encoded media payloads from a transport.
type Sink interface {
	Push(kind Kind, payload []byte) error
}

type Stats struct {
	Frames uint64
	Bytes  uint64
}

// Counter is the sink used when no decoder pipeline is plugged in. It only
// keeps per kind totals.
type Counter struct {
	mu    sync.Mutex
	stats map[Kind]Stats
}

func NewCounter() *Counter {
	return &Counter{stats: make(map[Kind]Stats)}
}

func (c *Counter) Push(kind Kind, payload []byte) error {
	c.mu.Lock()
	s := c.stats[kind]
	s.Frames++
	s.Bytes += uint64(len(payload))
	c.stats[kind] = s
	c.mu.Unlock()

	if s.Frames%1000 == 0 {
		log.Logger.WithFields(logrus.Fields{
			"kind":   kind.String(),
			"frames": s.Frames,
			"bytes":  s.Bytes,
		}).Debug("media received")
	}
	return nil
}

func (c *Counter) Stats(kind Kind) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats[kind]
}
