// Package config owns the viper configuration engine: defaults, environment binding and the TOML file.
package config

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/kinema-cli/kinema/constant"
	"github.com/kinema-cli/kinema/filesystem"
	"github.com/kinema-cli/kinema/key"
	"github.com/kinema-cli/kinema/where"
	"github.com/spf13/viper"
)

// EnvKeyReplacer maps configuration keys onto environment variable names.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup registers defaults, binds KINEMA_* environment variables and reads the config file if present.
func Setup() error {
	viper.SetConfigName(constant.Kinema)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.Fs())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.Kinema)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	return nil
}

// Persist writes the in-memory configuration, creating the file when it does not exist yet.
func Persist() error {
	err := viper.WriteConfig()

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return viper.SafeWriteConfig()
	}

	return err
}

// DeviceID returns the persistent device identifier reported to the media server,
// generating and saving one on first use.
func DeviceID() (string, error) {
	if id := viper.GetString(key.ServerDeviceID); id != "" {
		return id, nil
	}

	id := uuid.NewString()
	viper.Set(key.ServerDeviceID, id)

	if err := Persist(); err != nil {
		return id, err
	}

	return id, nil
}
