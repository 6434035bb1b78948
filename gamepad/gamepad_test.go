package gamepad

import (
	"errors"
	"sync"
	"testing"
	"time"

	"RemoteDisplay/models/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func report(lx, ly, rx, ry int16) []byte {
	b := make([]byte, reportLen)
	for i, v := range []int16{lx, ly, rx, ry} {
		u := uint16(v)
		b[axisOffset+i*2] = byte(u)
		b[axisOffset+i*2+1] = byte(u >> 8)
	}
	return b
}

func TestDecodeAxes(t *testing.T) {
	axes, err := DecodeAxes(report(0, 32767, -32768, -16384))
	require.NoError(t, err)

	assert.Equal(t, 0.0, axes[0])
	assert.Equal(t, 1.0, axes[1])
	assert.Equal(t, -1.0, axes[2])
	assert.InDelta(t, -0.5, axes[3], 0.001)
}

func TestDecodeAxesShort(t *testing.T) {
	_, err := DecodeAxes([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestAxisMessages(t *testing.T) {
	prev := Axes{0, 0, 0, 0}
	cur := Axes{0, 0.5, 0, -1}

	assert.Equal(t, []string{"js,a,0,1,0.5000", "js,a,0,3,-1.0000"}, AxisMessages(0, prev, cur))
	assert.Empty(t, AxisMessages(0, cur, cur))
	assert.Empty(t, AxisMessages(0, Axes{0.00001}, Axes{0.00002}))
}

func TestNewGamepadNeedsChannel(t *testing.T) {
	conf := config.GetDefaultGamepadConfig()
	_, err := NewGamepad(&conf, nil)
	assert.Error(t, err)
}

func TestReadOnceNotOpen(t *testing.T) {
	conf := config.GetDefaultGamepadConfig()
	g, err := NewGamepad(&conf, make(chan string))
	require.NoError(t, err)

	_, err = g.ReadOnce()
	assert.Error(t, err)

	g.Close()
	g.Close()
}

// blockingDevice delivers one report per send on reports and blocks in
// between, like a pad nobody touches.
type blockingDevice struct {
	reports chan []byte
	reading chan struct{}

	mu     sync.Mutex
	closed bool
}

func (d *blockingDevice) Read(b []byte) (int, error) {
	select {
	case d.reading <- struct{}{}:
	default:
	}
	r, ok := <-d.reports
	if !ok {
		return 0, errors.New("device gone")
	}
	return copy(b, r), nil
}

func (d *blockingDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *blockingDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func TestRunEmitsAxisMessages(t *testing.T) {
	conf := config.GetDefaultGamepadConfig()
	conf.ReadFreq = 1000
	data := make(chan string, 4)
	g, err := NewGamepad(&conf, data)
	require.NoError(t, err)

	dev := &blockingDevice{reports: make(chan []byte, 1), reading: make(chan struct{}, 1)}
	g.device = dev
	dev.reports <- report(32767, 0, 0, 0)

	go g.Run()
	defer g.Close()

	select {
	case msg := <-data:
		assert.Equal(t, "js,a,0,0,1.0000", msg)
	case <-time.After(5 * time.Second):
		t.Fatal("no axis message")
	}
}

func TestCloseDuringBlockedRead(t *testing.T) {
	conf := config.GetDefaultGamepadConfig()
	conf.ReadFreq = 1000
	g, err := NewGamepad(&conf, make(chan string, 4))
	require.NoError(t, err)

	dev := &blockingDevice{reports: make(chan []byte), reading: make(chan struct{}, 1)}
	g.device = dev

	finished := make(chan struct{})
	go func() {
		g.Run()
		close(finished)
	}()

	select {
	case <-dev.reading:
	case <-time.After(5 * time.Second):
		t.Fatal("run never read the device")
	}

	closed := make(chan struct{})
	go func() {
		g.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("close blocked on a pending read")
	}
	assert.False(t, dev.isClosed())

	// the pending read returns, Run exits and releases the device
	close(dev.reports)
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not exit")
	}
	assert.True(t, dev.isClosed())
}

func TestCloseWithoutRun(t *testing.T) {
	conf := config.GetDefaultGamepadConfig()
	g, err := NewGamepad(&conf, make(chan string))
	require.NoError(t, err)

	dev := &blockingDevice{reports: make(chan []byte), reading: make(chan struct{}, 1)}
	g.device = dev

	g.Close()
	assert.True(t, dev.isClosed())

	// Run after Close returns at once
	g.Run()
}
