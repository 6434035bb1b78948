package mode

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set"
)

// StreamingMode picks the transport for the whole process run.
type StreamingMode string

const (
	RealtimeMedia StreamingMode = "realtime-media"
	Socket        StreamingMode = "socket"
)

var known = mapset.NewSet(string(RealtimeMedia), string(Socket))

// Known returns the valid modes in a stable order.
func Known() []StreamingMode {
	return []StreamingMode{RealtimeMedia, Socket}
}

func (m StreamingMode) String() string {
	return string(m)
}

// InvalidModeError is returned for an absent or unrecognized mode value.
type InvalidModeError struct {
	Raw string
}

func (e *InvalidModeError) Error() string {
	names := make([]string, 0, 2)
	for _, m := range Known() {
		names = append(names, string(m))
	}
	if e.Raw == "" {
		return fmt.Sprintf("streaming mode is not set, expected one of: %s", strings.Join(names, ", "))
	}
	return fmt.Sprintf("invalid streaming mode %q, expected one of: %s", e.Raw, strings.Join(names, ", "))
}

// Resolve validates raw against the known modes. The comparison is exact.
func Resolve(raw string) (StreamingMode, error) {
	if raw == "" || !known.Contains(raw) {
		return "", &InvalidModeError{Raw: raw}
	}
	return StreamingMode(raw), nil
}
