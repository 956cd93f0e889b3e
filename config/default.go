package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/kinema-cli/kinema/color"
	"github.com/kinema-cli/kinema/constant"
	"github.com/kinema-cli/kinema/key"
	"github.com/kinema-cli/kinema/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field is a registered configuration key with its default.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty renders the field for `kinema config info`.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable bound to this field.
func (f *Field) Env() string {
	return strings.ToUpper(constant.Kinema + "_" + EnvKeyReplacer.Replace(f.Key))
}

func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.TypeName(),
	})
}

// TypeName is the user-facing name of the field's value type.
func (f *Field) TypeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	default:
		return "unknown"
	}
}

// Default holds every registered field keyed by name.
var Default = make(map[string]Field)

// EnvExposed lists keys bound to environment variables.
var EnvExposed []string

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
		EnvExposed = append(EnvExposed, k)
	}

	register(key.ServerURL, "http://localhost:8096", "Base URL of the media server")
	register(key.ServerUserID, "", "User id on the media server.\nRequired for item lookups and next-up resolution")
	register(key.ServerDeviceID, "", "Device id reported to the media server.\nGenerated on first run when empty")
	register(key.StreamAdaptive, true, "Use the built-in HLS engine.\nWhen disabled the player opens the manifest itself")
	register(key.StreamMaxBitrate, 20_000_000, "Bitrate ceiling requested from the transcoder, in bits per second")
	register(key.StreamAudioChannels, 2, "Maximum audio channels requested from the transcoder")
	register(key.StreamSubtitleFormat, "vtt", "Format requested for external subtitle tracks")
	register(key.StreamRetries, 3, "Attempts made for a manifest request before giving up")
	register(key.PlayerControlsTimeout, "3s", "Idle time after which on-screen controls hide while playing")
	register(key.PlayerSeekStep, 10, "Seconds skipped by the arrow keys")
	register(key.PlayerVolume, 1.0, "Initial volume, from 0 to 1")
	register(key.PlayerAutoAdvance, true, "Start the next episode automatically when an episode ends")
	register(key.PlayerResume, true, "Resume items from the last known position")
	register(key.PlayerIntroFetch, true, "Fetch intro timestamps to offer skipping the intro")
	register(key.Aniskip, true, "Fall back to AniSkip for anime episodes without server intro timestamps")
	register(key.HistorySaveOnRead, true, "Keep local resume positions")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, nerd, plain")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Check for new releases when showing help")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"blue":     style.Fg(color.Blue),
	"purple":   style.Fg(color.Purple),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
