// Package icon renders status symbols in the variant chosen by icons.variant.
package icon

import (
	"github.com/kinema-cli/kinema/key"
	"github.com/spf13/viper"
)

const (
	emoji = "emoji"
	nerd  = "nerd"
	plain = "plain"
)

// AvailableVariants lists the accepted values of icons.variant.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain}
}

// Icon identifies a symbol.
type Icon int

const (
	Success Icon = iota
	Fail
	Play
	Pause
	Buffering
	Muted
	Volume
	Subtitle
	Next
)

type def struct {
	emoji, nerd, plain string
}

var icons = map[Icon]def{
	Success:   {"✅", "\uf00c", "✓"},
	Fail:      {"❌", "\uf00d", "✗"},
	Play:      {"▶️", "\uf04b", ">"},
	Pause:     {"⏸️", "\uf04c", "||"},
	Buffering: {"⏳", "\uf252", "..."},
	Muted:     {"🔇", "\uf026", "[muted]"},
	Volume:    {"🔊", "\uf028", "vol"},
	Subtitle:  {"💬", "\uf075", "sub"},
	Next:      {"⏭️", "\uf051", ">>"},
}

// Get renders i in the configured variant. Unknown variants render nothing.
func Get(i Icon) string {
	d, ok := icons[i]
	if !ok {
		return ""
	}

	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	default:
		return ""
	}
}
