package consts

// published mode record
const (
	ModeBucket = "settings"
	ModeKey    = "streamMode"
)

// environment
const (
	ModeEnv = "STREAM_MODE"
)

// media frame kind, first byte of a binary socket frame
const (
	FrameVideo = iota
	FrameAudio
)

// data channel labels
const (
	InputChannel = "input"
)

// signalling
const (
	SignalHello = "HELLO"
	SocketHello = "MODE socket"
)
