package config

import (
	"strconv"

	"github.com/vaughan0/go-ini"
)

type CommonConfig struct {
	ServerHost string `json:"serverHost"`
	ServerPort int    `json:"serverPort"`
	StunPort   int    `json:"stunPort"`
	TurnURI    string `json:"turnUri"`
	PeerId     int    `json:"peerId"`
}

func GetDefaultCommonConfig() CommonConfig {
	return CommonConfig{
		ServerHost: "127.0.0.1",
		ServerPort: 8080,
		StunPort:   3478,
		PeerId:     1,
	}
}

func CommonConfigInit(filePath string) (commonConf CommonConfig, err error) {
	commonConf = GetDefaultCommonConfig()

	conf, err := ini.LoadFile(filePath)
	if err != nil {
		return CommonConfig{}, err
	}

	var (
		tempString string
		ok         bool
	)

	if tempString, ok = conf.Get("common", "serverHost"); ok {
		commonConf.ServerHost = tempString
	}

	if err = getInt(conf, "common", "serverPort", &commonConf.ServerPort); err != nil {
		return
	}

	if err = getInt(conf, "common", "stunPort", &commonConf.StunPort); err != nil {
		return
	}

	if tempString, ok = conf.Get("common", "turnUri"); ok {
		commonConf.TurnURI = tempString
	}

	if err = getInt(conf, "common", "peerId", &commonConf.PeerId); err != nil {
		return
	}

	return
}

// getInt leaves dst untouched when the key is missing.
func getInt(conf ini.File, section, key string, dst *int) error {
	tempString, ok := conf.Get(section, key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(tempString)
	if err != nil {
		return err
	}
	*dst = value
	return nil
}

func getBool(conf ini.File, section, key string, dst *bool) error {
	tempString, ok := conf.Get(section, key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(tempString)
	if err != nil {
		return err
	}
	*dst = value
	return nil
}
