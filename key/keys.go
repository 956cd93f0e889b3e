// Package key defines the canonical set of configuration identifiers.
package key

// Media server connection.
const (
	ServerURL      = "server.url"
	ServerUserID   = "server.user_id"
	ServerDeviceID = "server.device_id"
)

// Stream negotiation - these keys shape the transcoding profile sent with manifest requests.
const (
	StreamAdaptive       = "stream.adaptive"
	StreamMaxBitrate     = "stream.max_bitrate"
	StreamAudioChannels  = "stream.audio_channels"
	StreamSubtitleFormat = "stream.subtitle_format"
	StreamRetries        = "stream.retries"
)

// Playback session behaviour.
const (
	PlayerControlsTimeout = "player.controls_timeout"
	PlayerSeekStep        = "player.seek_step"
	PlayerVolume          = "player.volume"
	PlayerAutoAdvance     = "player.auto_advance"
	PlayerResume          = "player.resume"
	PlayerIntroFetch      = "player.intro_fetch"
	Aniskip               = "player.aniskip"
)

// History tracking.
const (
	HistorySaveOnRead = "history.save_on_read"
)

// Iconography.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
