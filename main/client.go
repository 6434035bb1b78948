package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"RemoteDisplay/bootstrap"
	"RemoteDisplay/consts"
	"RemoteDisplay/gamepad"
	"RemoteDisplay/log"
	"RemoteDisplay/media"
	"RemoteDisplay/models/config"
	"RemoteDisplay/models/mode"
	"RemoteDisplay/store"
	"RemoteDisplay/trans"
	"RemoteDisplay/trans/realtime"
	"RemoteDisplay/trans/socket"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

const defaultConfPath = "conf/client.ini"

type options struct {
	confPath string
	mode     string
	logLevel string
	logFile  string
}

type configs struct {
	common  config.CommonConfig
	stream  config.StreamConfig
	gamepad config.GamepadConfig
}

func main() {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	opts := options{}
	fs.StringVarP(&opts.confPath, "config", "c", defaultConfPath, "Path to the ini config file")
	fs.StringVarP(&opts.mode, "mode", "m", "", fmt.Sprintf("Streaming mode: %s or %s", mode.RealtimeMedia, mode.Socket))
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level")
	fs.StringVar(&opts.logFile, "log-file", "", "Write logs to this file instead of stderr")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if err := log.Init(opts.logLevel, opts.logFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Logger.Warn(err)
	}

	log.Logger.Info("reading client config...")
	conf, err := loadConfigs(opts.confPath, fs.Changed("config"))
	if err != nil {
		log.Logger.Fatal(err)
	}

	envMode, envSet := os.LookupEnv(consts.ModeEnv)
	var modeSource string
	conf.stream.Mode, modeSource = modeSlot(opts.mode, fs.Changed("mode"), envMode, envSet, conf.stream.Mode)

	input := make(chan string, 64)
	pad := startGamepad(&conf.gamepad, input)

	sink := media.NewCounter()
	boot := bootstrap.New(&conf.stream, store.NewBoltPublisher(conf.stream.StatePath), newRegistry(&conf, sink, input))
	strategy, err := boot.Run()
	if err != nil {
		log.Logger.WithFields(logrus.Fields{
			"state":      boot.State().String(),
			"modeSource": modeSource,
		}).Fatal(err)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	sig := <-signals
	log.Logger.WithFields(logrus.Fields{
		"signal": sig.String(),
	}).Info("shutting down")

	strategy.Stop()
	if pad != nil {
		pad.Close()
	}
}

// loadConfigs reads every section from path. A missing file is only an error
// when the path was given explicitly.
func loadConfigs(path string, explicit bool) (conf configs, err error) {
	conf = configs{
		common:  config.GetDefaultCommonConfig(),
		stream:  config.GetDefaultStreamConfig(),
		gamepad: config.GetDefaultGamepadConfig(),
	}

	if _, statErr := os.Stat(path); os.IsNotExist(statErr) && !explicit {
		log.Logger.WithFields(logrus.Fields{
			"path": path,
		}).Warn("config file not found, using defaults")
		return conf, nil
	}

	if conf.common, err = config.CommonConfigInit(path); err != nil {
		return
	}
	if conf.stream, err = config.StreamConfigInit(path); err != nil {
		return
	}
	conf.gamepad, err = config.GamepadConfigInit(path)
	return
}

// modeSlot picks the raw mode value: the flag, then the environment, then the
// file. The second result names where the value came from.
func modeSlot(flagValue string, flagSet bool, envValue string, envSet bool, fileValue string) (string, string) {
	if flagSet {
		return flagValue, "flag --mode"
	}
	if envSet {
		return envValue, "env " + consts.ModeEnv
	}
	return fileValue, "ini [stream] mode"
}

func newRegistry(conf *configs, sink media.Sink, input <-chan string) trans.Registry {
	return trans.Registry{
		mode.RealtimeMedia: func() (trans.Strategy, error) {
			service, err := realtime.NewService(&conf.common, &conf.stream, sink, input)
			if err != nil {
				return nil, err
			}
			return service, nil
		},
		mode.Socket: func() (trans.Strategy, error) {
			service, err := socket.NewService(&conf.common, &conf.stream, sink, input)
			if err != nil {
				return nil, err
			}
			return service, nil
		},
	}
}

func startGamepad(conf *config.GamepadConfig, input chan<- string) *gamepad.Gamepad {
	if !conf.Enabled {
		return nil
	}

	pad, err := gamepad.NewGamepad(conf, input)
	if err != nil {
		log.Logger.Warn(err)
		return nil
	}
	if err = pad.Init(); err != nil {
		log.Logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("gamepad disabled")
		return nil
	}

	go pad.Run()
	return pad
}
