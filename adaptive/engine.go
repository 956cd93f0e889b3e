// Package adaptive hosts the adaptive-bitrate engine and the adapter that binds
// one engine instance to one playback session.
package adaptive

import (
	"errors"

	"github.com/kinema-cli/kinema/constant"
)

// ErrUnsupported is returned when adaptive playback is requested from a disabled engine.
var ErrUnsupported = errors.New("adaptive playback unsupported")

// Surface is the rendering target an engine loads streams into.
type Surface interface {
	// Load replaces the current media with url, starting at start seconds.
	Load(url string, start float64) error
	// Position is the current playback position in seconds.
	Position() (float64, error)
	// CanPlayType reports whether the surface decodes mime by itself.
	CanPlayType(mime string) bool
}

// ErrorKind classifies engine errors.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindManifest
	KindParse
	KindMedia
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindManifest:
		return "manifest"
	case KindParse:
		return "parse"
	case KindMedia:
		return "media"
	default:
		return "unknown"
	}
}

// ErrorEvent is reported by an engine instance. Non-fatal errors are retried by
// the engine itself; fatal ones end the instance's usefulness.
type ErrorEvent struct {
	Fatal bool
	Kind  ErrorKind
	Err   error
}

// Listener receives engine events. Engines never call it from within Attach.
type Listener interface {
	ManifestParsed(levels []QualityLevel)
	Error(ev ErrorEvent)
}

// Instance is one live engine attachment.
type Instance interface {
	// SetLevel pins a rung by QualityLevel.Index, or AutoLevel.
	SetLevel(index int)
	// Destroy abandons in-flight requests. No surface load happens after it returns.
	Destroy()
}

// Engine is an adaptive streaming client.
type Engine interface {
	Supported() bool
	Attach(surface Surface, manifestURL string, start float64, l Listener) Instance
}

// Mode is how a session feeds its surface.
type Mode int

const (
	// ModeAdaptive runs an engine instance against the manifest.
	ModeAdaptive Mode = iota
	// ModeNative hands the manifest to the surface.
	ModeNative
	// ModeDirect plays the static file.
	ModeDirect
)

func (m Mode) String() string {
	switch m {
	case ModeAdaptive:
		return "adaptive"
	case ModeNative:
		return "native"
	case ModeDirect:
		return "direct"
	default:
		return "unknown"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Plan picks the mode before attaching: the engine when it runs here, the
// surface's own HLS support otherwise, and the direct stream as a last resort.
func Plan(engine Engine, surface Surface) Mode {
	switch {
	case engine != nil && engine.Supported():
		return ModeAdaptive
	case surface.CanPlayType(constant.MimeHLS):
		return ModeNative
	default:
		return ModeDirect
	}
}
