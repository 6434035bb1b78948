package config

import (
	"github.com/vaughan0/go-ini"
)

type GamepadConfig struct {
	Enabled   bool `json:"enabled"`
	ProductId int  `json:"productId"`
	ReadFreq  int  `json:"readFreq"`
}

func GetDefaultGamepadConfig() GamepadConfig {
	return GamepadConfig{
		ProductId: 654,
		ReadFreq:  50,
	}
}

func GamepadConfigInit(filePath string) (gamepadConf GamepadConfig, err error) {
	gamepadConf = GetDefaultGamepadConfig()

	conf, err := ini.LoadFile(filePath)
	if err != nil {
		return GamepadConfig{}, err
	}

	if err = getBool(conf, "gamepad", "enabled", &gamepadConf.Enabled); err != nil {
		return
	}

	if err = getInt(conf, "gamepad", "productId", &gamepadConf.ProductId); err != nil {
		return
	}

	if err = getInt(conf, "gamepad", "readFreq", &gamepadConf.ReadFreq); err != nil {
		return
	}

	return
}
