package config

import (
	"github.com/vaughan0/go-ini"
)

// StreamConfig holds the streaming mode slot. Mode is kept raw; it is
// validated exactly once, by the bootstrap.
type StreamConfig struct {
	Mode           string `json:"mode"`
	StatePath      string `json:"statePath"`
	SignallingPath string `json:"signallingPath"`
	SocketPath     string `json:"socketPath"`
	PliInterval    int    `json:"pliInterval"`
}

func GetDefaultStreamConfig() StreamConfig {
	return StreamConfig{
		StatePath:      "state/stream.db",
		SignallingPath: "/webrtc/signalling/",
		SocketPath:     "/websocket",
		PliInterval:    3,
	}
}

func StreamConfigInit(filePath string) (streamConf StreamConfig, err error) {
	streamConf = GetDefaultStreamConfig()

	conf, err := ini.LoadFile(filePath)
	if err != nil {
		return StreamConfig{}, err
	}

	var (
		tempString string
		ok         bool
	)

	if tempString, ok = conf.Get("stream", "mode"); ok {
		streamConf.Mode = tempString
	}

	if tempString, ok = conf.Get("stream", "statePath"); ok {
		streamConf.StatePath = tempString
	}

	if tempString, ok = conf.Get("stream", "signallingPath"); ok {
		streamConf.SignallingPath = tempString
	}

	if tempString, ok = conf.Get("stream", "socketPath"); ok {
		streamConf.SocketPath = tempString
	}

	if err = getInt(conf, "stream", "pliInterval", &streamConf.PliInterval); err != nil {
		return
	}

	return
}
