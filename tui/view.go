package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kinema-cli/kinema/adaptive"
	"github.com/kinema-cli/kinema/color"
	"github.com/kinema-cli/kinema/icon"
	"github.com/kinema-cli/kinema/playback"
	"github.com/kinema-cli/kinema/session"
	"github.com/kinema-cli/kinema/style"
	"github.com/kinema-cli/kinema/util"
	"github.com/muesli/reflow/wrap"
	"github.com/samber/lo"
)

var (
	listExtraPaddingStyle = lipgloss.NewStyle().Padding(1, 2, 1, 0)
	paddingStyle          = lipgloss.NewStyle().Padding(1, 2)
)

func (b *statefulBubble) View() string {
	switch b.state {
	case loadingState:
		return b.viewLoading()
	case playingState:
		return b.viewPlaying()
	case settingsState:
		return listExtraPaddingStyle.Render(b.settingsC.View())
	case errorState:
		return b.viewError()
	default:
		return "Unknown state"
	}
}

func (b *statefulBubble) viewLoading() string {
	return b.renderLines(
		[]string{
			style.Title("Loading"),
			"",
			b.spinnerC.View() + " " + b.title,
		},
	)
}

func (b *statefulBubble) viewPlaying() string {
	s := b.playback

	lines := []string{style.Title(lo.Ternary(s.Title != "", s.Title, b.title))}
	if s.Subtitle != "" {
		lines = append(lines, style.Faint(s.Subtitle))
	}

	lines = append(lines,
		"",
		fmt.Sprintf("%s %s  %s", phaseTag(s.Phase), phaseIcon(s.Phase), style.Faint(s.Mode.String())),
		"",
		b.progressC.ViewAs(ratio(s.CurrentTime, s.Duration)),
		fmt.Sprintf("%s / %s", util.FormatDuration(s.CurrentTime), util.FormatDuration(s.Duration)),
		"",
		trackLine(s),
	)

	if s.CanSkipIntro {
		lines = append(lines, "", style.Fg(color.Orange)("Intro playing, press i to skip"))
	}

	if next, ok := s.Next.Get(); ok && s.OfferNext {
		lines = append(lines, "", style.Fg(color.Orange)(fmt.Sprintf("%s Up next: %s, press n", icon.Get(icon.Next), next.Title)))
	}

	if s.Phase == playback.Ended && s.Next.IsAbsent() {
		lines = append(lines, "", style.Faint("Finished"))
	}

	if s.ControlsVisible {
		lines = append(lines, "", b.helpC.View(b.keymap))
	}

	return b.renderLines(lines)
}

func (b *statefulBubble) viewError() string {
	msg := "unknown error"
	if b.lastError != nil {
		msg = b.lastError.Error()
	}

	return b.renderLines(
		[]string{
			style.ErrorTitle("Error"),
			"",
			icon.Get(icon.Fail) + " " + msg,
			"",
			b.helpC.View(b.keymap),
		},
	)
}

func (b *statefulBubble) renderLines(lines []string) string {
	width := b.width
	if width <= 0 {
		width = 80
	}

	wrapped := lo.Map(lines, func(line string, _ int) string {
		return wrap.String(line, width)
	})

	return paddingStyle.Render(strings.Join(wrapped, "\n"))
}

func phaseTag(p playback.Phase) string {
	bg := map[playback.Phase]lipgloss.Color{
		playback.Initializing: color.Muted,
		playback.Buffering:    color.Yellow,
		playback.Playing:      color.Green,
		playback.Paused:       color.Blue,
		playback.Ended:        color.Purple,
		playback.Failed:       color.Red,
	}[p]

	return style.Tag(color.New("230"), bg)(util.Capitalize(p.String()))
}

func phaseIcon(p playback.Phase) string {
	switch p {
	case playback.Playing:
		return icon.Get(icon.Play)
	case playback.Paused:
		return icon.Get(icon.Pause)
	case playback.Buffering, playback.Initializing:
		return icon.Get(icon.Buffering)
	default:
		return ""
	}
}

func trackLine(s playback.State) string {
	label := func(t session.TrackType, idx int) string {
		if tr, ok := s.Tracks.Find(t, idx).Get(); ok {
			return tr.String()
		}
		return fmt.Sprintf("#%d", idx)
	}

	audio := "default"
	if idx, ok := s.AudioTrack.Get(); ok {
		audio = label(session.Audio, idx)
	}

	subtitle := "off"
	if idx, ok := s.SubtitleTrack.Get(); ok {
		subtitle = label(session.Subtitle, idx)
	}

	parts := []string{
		fmt.Sprintf("Audio: %s", audio),
		fmt.Sprintf("%s %s", icon.Get(icon.Subtitle), subtitle),
	}

	if s.Mode == adaptive.ModeAdaptive {
		quality := "auto"
		if idx, ok := s.Quality.Get(); ok {
			if l, found := lo.Find(s.QualityLevels, func(l adaptive.QualityLevel) bool { return l.Index == idx }); found {
				quality = l.Label()
			}
		}
		parts = append(parts, fmt.Sprintf("Quality: %s", quality))
	}

	if s.Muted {
		parts = append(parts, icon.Get(icon.Muted)+" muted")
	} else {
		parts = append(parts, fmt.Sprintf("%s %d%%", icon.Get(icon.Volume), int(s.Volume*100+0.5)))
	}

	return strings.Join(parts, style.Faint("  ·  "))
}

func ratio(current, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return util.Clamp(current/duration, 0, 1)
}
