package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
	"github.com/kinema-cli/kinema/adaptive"
	"github.com/kinema-cli/kinema/color"
	"github.com/kinema-cli/kinema/icon"
	"github.com/kinema-cli/kinema/playback"
	"github.com/kinema-cli/kinema/session"
	"github.com/kinema-cli/kinema/style"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

type settingKind int

const (
	audioSetting settingKind = iota
	subtitleSetting
	qualitySetting
)

func (k settingKind) String() string {
	switch k {
	case audioSetting:
		return "Audio"
	case subtitleSetting:
		return "Subtitles"
	default:
		return "Quality"
	}
}

// listItem is one choice of the settings panel.
type listItem struct {
	kind   settingKind
	index  mo.Option[int]
	label  string
	active bool
}

func (t *listItem) Title() string {
	if !t.active {
		return t.label
	}
	mark := lipgloss.NewStyle().Bold(true).Foreground(color.Accent).Render(icon.Get(icon.Success))
	return fmt.Sprintf("%s %s", t.label, mark)
}

func (t *listItem) Description() string {
	return style.Faint(t.kind.String())
}

func (t *listItem) FilterValue() string {
	return t.label
}

// settingsItems lists every choice the current state offers, the active one marked.
func settingsItems(s playback.State) []list.Item {
	var items []list.Item

	for _, tr := range s.Tracks.OfType(session.Audio) {
		items = append(items, &listItem{
			kind:   audioSetting,
			index:  mo.Some(tr.Index),
			label:  tr.String(),
			active: selected(s.AudioTrack, tr.Index),
		})
	}

	subs := s.Tracks.OfType(session.Subtitle)
	if len(subs) > 0 {
		items = append(items, &listItem{
			kind:   subtitleSetting,
			label:  "Off",
			active: s.SubtitleTrack.IsAbsent(),
		})
	}
	for _, tr := range subs {
		items = append(items, &listItem{
			kind:   subtitleSetting,
			index:  mo.Some(tr.Index),
			label:  tr.String(),
			active: selected(s.SubtitleTrack, tr.Index),
		})
	}

	if s.Mode == adaptive.ModeAdaptive && len(s.QualityLevels) > 0 {
		items = append(items, &listItem{
			kind:   qualitySetting,
			label:  "Auto",
			active: s.Quality.IsAbsent(),
		})
		items = append(items, lo.Map(s.QualityLevels, func(l adaptive.QualityLevel, _ int) list.Item {
			return &listItem{
				kind:   qualitySetting,
				index:  mo.Some(l.Index),
				label:  l.Label(),
				active: selected(s.Quality, l.Index),
			}
		})...)
	}

	return items
}

func selected(opt mo.Option[int], index int) bool {
	v, ok := opt.Get()
	return ok && v == index
}
