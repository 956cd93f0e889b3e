package cmd

import (
	"errors"

	"github.com/kinema-cli/kinema/adaptive"
	"github.com/kinema-cli/kinema/aniskip"
	"github.com/kinema-cli/kinema/auth"
	"github.com/kinema-cli/kinema/catalog"
	"github.com/kinema-cli/kinema/config"
	"github.com/kinema-cli/kinema/key"
	"github.com/kinema-cli/kinema/log"
	"github.com/kinema-cli/kinema/player"
	"github.com/kinema-cli/kinema/stream"
	"github.com/kinema-cli/kinema/tui"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

// newClient connects to the configured server with the stored token.
func newClient() (*catalog.Client, error) {
	server := viper.GetString(key.ServerURL)
	if server == "" {
		return nil, errors.New("no server configured, run `kinema auth login`")
	}

	userID := viper.GetString(key.ServerUserID)
	if userID == "" {
		return nil, errors.New("no user configured, run `kinema auth login`")
	}

	token, err := auth.GetToken(server)
	if err != nil {
		return nil, err
	}

	deviceID, err := config.DeviceID()
	if err != nil {
		log.Warnf("persist device id: %s", err)
	}

	client := catalog.New(server, userID, token, deviceID)
	if viper.GetBool(key.Aniskip) {
		client.AniSkip = aniskip.New()
	}

	return client, nil
}

func profile(deviceID string) stream.Profile {
	p := stream.DefaultProfile(deviceID)
	p.MaxBitrate = viper.GetInt(key.StreamMaxBitrate)
	p.MaxAudioChannels = viper.GetInt(key.StreamAudioChannels)
	p.SubtitleFormat = viper.GetString(key.StreamSubtitleFormat)
	return p
}

// newLauncher wires a launcher from the configuration.
func newLauncher(client *catalog.Client, surface *player.MPV, prefs tui.Preferences, resume bool) *tui.Launcher {
	engine := adaptive.NewHLS(viper.GetInt(key.StreamRetries))
	engine.Disabled = !viper.GetBool(key.StreamAdaptive)

	return &tui.Launcher{
		Catalog:         client,
		Surface:         surface,
		Engine:          engine,
		Profile:         profile(client.DeviceID),
		Resume:          resume && viper.GetBool(key.PlayerResume),
		FetchIntro:      viper.GetBool(key.PlayerIntroFetch),
		AutoAdvance:     viper.GetBool(key.PlayerAutoAdvance),
		SaveHistory:     viper.GetBool(key.HistorySaveOnRead),
		Volume:          mo.Some(viper.GetFloat64(key.PlayerVolume)),
		ControlsTimeout: viper.GetDuration(key.PlayerControlsTimeout),
		Preferences:     prefs,
	}
}
