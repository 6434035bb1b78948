// Package trans defines the lifecycle shared by every stream transport and
// the factory boundary used to build one from a resolved mode.
package trans

import (
	"RemoteDisplay/models/mode"
)

// Strategy is a stream transport. Start begins the transport's own run
// sequence and returns without waiting for it; failures after that are
// reported by the transport itself. Stop releases whatever Start acquired.
// Stop is safe to call before Start and more than once.
type Strategy interface {
	Start()
	Stop()
}

// Constructor builds a transport without starting it.
type Constructor func() (Strategy, error)

// Registry maps each streaming mode to the constructor of its transport.
type Registry map[mode.StreamingMode]Constructor

// Lookup returns the constructor registered for m.
func (r Registry) Lookup(m mode.StreamingMode) (Constructor, bool) {
	c, ok := r[m]
	if !ok || c == nil {
		return nil, false
	}
	return c, true
}
