// Package constant defines immutable application-level identifiers.
package constant

const (
	// Kinema is the canonical application identifier used for filesystem paths, env prefixes and CLI branding.
	Kinema = "kinema"

	// Version is the current application semantic version string.
	Version = "0.3.0"

	// ClientName is reported to the media server in the authorization header.
	ClientName = "kinema-cli"

	// UserAgent is sent with every request to the media server.
	UserAgent = ClientName + "/" + Version
)

// Platform identifiers for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// Media types understood by the rendering surface.
const (
	MimeHLS       = "application/vnd.apple.mpegurl"
	MimeHLSLegacy = "application/x-mpegURL"
	MimeMP4       = "video/mp4"
	MimeMatroska  = "video/x-matroska"
	MimeWebVTT    = "text/vtt"
)

// TicksPerSecond converts server tick positions (100ns units) to seconds.
const TicksPerSecond = 10_000_000

// Logo is the banner printed in the root command's long help.
const Logo = ` _    _
| | _(_)_ __   ___ _ __ ___   __ _
| |/ / | '_ \ / _ \ '_ ` + "`" + ` _ \ / _` + "`" + ` |
|   <| | | | |  __/ | | | | | (_| |
|_|\_\_|_| |_|\___|_| |_| |_|\__,_|`

// Build metadata, set with -ldflags "-X".
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
