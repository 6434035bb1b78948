package gamepad

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"RemoteDisplay/log"
	"RemoteDisplay/models/config"

	"github.com/fwhezfwhez/errorx"
	"github.com/karalabe/hid"
	"github.com/sirupsen/logrus"
)

const (
	reportLen  = 14
	axisOffset = 6
	axisCount  = 4
	axisMax    = 32767
)

type Axes [axisCount]float64

// device is the part of *hid.Device the reader needs.
type device interface {
	Read(b []byte) (int, error)
	Close() error
}

// Gamepad reads a HID gamepad and emits input messages for axis changes.
type Gamepad struct {
	Conf     *config.GamepadConfig
	Data     chan<- string
	device   device
	deviceMu sync.Mutex
	running  bool

	stop     chan struct{}
	stopOnce sync.Once
}

func NewGamepad(conf *config.GamepadConfig, data chan<- string) (*Gamepad, error) {
	if data == nil {
		return nil, errorx.NewFromString("gamepad needs an output channel")
	}
	return &Gamepad{
		Conf: conf,
		Data: data,
		stop: make(chan struct{}),
	}, nil
}

// Init opens the first device matching the configured product id.
func (g *Gamepad) Init() error {
	if !hid.Supported() {
		return errorx.NewFromString("hid is not supported on this platform")
	}

	devices := hid.Enumerate(0, 0)
	for _, info := range devices {
		if int(info.ProductID) != g.Conf.ProductId {
			continue
		}
		device, err := info.Open()
		if err != nil {
			return errorx.Wrap(err)
		}
		log.Logger.WithFields(logrus.Fields{
			"manufacturer": info.Manufacturer,
			"product":      info.Product,
		}).Info("gamepad opened")

		g.deviceMu.Lock()
		g.device = device
		g.deviceMu.Unlock()
		return nil
	}

	names := make([]string, 0, len(devices))
	for _, info := range devices {
		names = append(names, fmt.Sprintf("%s %s (product %d)", info.Manufacturer, info.Product, info.ProductID))
	}
	return errorx.NewFromString(fmt.Sprintf("no gamepad with product id %d, found: [%s]", g.Conf.ProductId, strings.Join(names, "; ")))
}

func (g *Gamepad) ReadOnce() (Axes, error) {
	report := make([]byte, reportLen)

	g.deviceMu.Lock()
	device := g.device
	g.deviceMu.Unlock()
	if device == nil {
		return Axes{}, errorx.NewFromString("gamepad is not open")
	}

	// the read blocks until the next report, so it runs without the lock
	n, err := device.Read(report)
	if err != nil {
		return Axes{}, err
	}

	return DecodeAxes(report[:n])
}

// Run polls the device at the configured frequency until Close. The device
// is closed by Run once its last read returns.
func (g *Gamepad) Run() {
	g.deviceMu.Lock()
	select {
	case <-g.stop:
		g.deviceMu.Unlock()
		return
	default:
	}
	g.running = true
	g.deviceMu.Unlock()
	defer g.release()

	freq := g.Conf.ReadFreq
	if freq <= 0 {
		freq = config.GetDefaultGamepadConfig().ReadFreq
	}
	ticker := time.NewTicker(time.Second / time.Duration(freq))
	defer ticker.Stop()

	log.Logger.Info("gamepad read task starting...")
	var last Axes
	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
		}

		axes, err := g.ReadOnce()
		if err != nil {
			log.Logger.Debug(err)
			continue
		}
		for _, msg := range AxisMessages(0, last, axes) {
			select {
			case g.Data <- msg:
			case <-g.stop:
				return
			}
		}
		last = axes
	}
}

// Close stops Run without waiting for a pending read. When Run is not
// active the device is closed here.
func (g *Gamepad) Close() {
	g.stopOnce.Do(func() {
		g.deviceMu.Lock()
		close(g.stop)
		running := g.running
		g.deviceMu.Unlock()

		if !running {
			g.release()
		}
	})
}

func (g *Gamepad) release() {
	g.deviceMu.Lock()
	device := g.device
	g.device = nil
	g.running = false
	g.deviceMu.Unlock()

	if device != nil {
		if err := device.Close(); err != nil {
			log.Logger.Debug(err)
		}
	}
}

// DecodeAxes reads the left and right stick axes, little endian int16 at
// offsets 6, 8, 10 and 12 of a report, scaled to [-1, 1].
func DecodeAxes(report []byte) (Axes, error) {
	var axes Axes
	if len(report) < reportLen {
		return axes, fmt.Errorf("gamepad report too short: %d bytes", len(report))
	}

	for i := 0; i < axisCount; i++ {
		offset := axisOffset + i*2
		raw := int16(binary.LittleEndian.Uint16(report[offset : offset+2]))
		value := float64(raw) / axisMax
		if value < -1 {
			value = -1
		}
		axes[i] = value
	}
	return axes, nil
}

// AxisMessages returns one "js,a,<pad>,<axis>,<value>" message per axis that changed.
func AxisMessages(pad int, prev, cur Axes) []string {
	var msgs []string
	for i := range cur {
		if formatAxis(prev[i]) == formatAxis(cur[i]) {
			continue
		}
		msgs = append(msgs, strings.Join([]string{"js", "a", strconv.Itoa(pad), strconv.Itoa(i), formatAxis(cur[i])}, ","))
	}
	return msgs
}

func formatAxis(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
