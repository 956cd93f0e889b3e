package player

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kinema-cli/kinema/constant"
	"github.com/kinema-cli/kinema/log"
	"github.com/kinema-cli/kinema/session"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
)

// MPV is a rendering surface backed by an mpv process.
type MPV struct {
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}

	mu     sync.Mutex // serializes commands
	nextID atomic.Int64

	hub      hub
	listener *EventListener
}

// NewMPV creates a player. Nothing is started until Launch.
func NewMPV() *MPV {
	exited := make(chan struct{})
	close(exited)
	return &MPV{exited: exited}
}

// Launch starts an idle mpv window titled title and begins listening for events.
func (m *MPV) Launch(title string) error {
	if m.socketPath == "" {
		randomBytes := make([]byte, 4)
		if _, err := rand.Read(randomBytes); err != nil {
			return fmt.Errorf("generate socket name: %w", err)
		}
		m.socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("%s-%x.sock", constant.Kinema, randomBytes))
	}

	safeTitle := sanitizeTitle(title)

	// only the socket and window behaviour are forced, the user's mpv.conf decides the rest
	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--idle=yes",
		"--keep-open=yes",
		"--force-window=yes",
		fmt.Sprintf("--input-ipc-server=%s", m.socketPath),
		fmt.Sprintf("--force-media-title=%s", safeTitle),
		fmt.Sprintf("--title=%s", safeTitle),
		fmt.Sprintf("--user-agent=%s", constant.UserAgent),
	}

	m.cmd = exec.Command("mpv", args...)
	m.cmd.SysProcAttr = sysProcAttr()
	m.cmd.Stdout = nil
	m.cmd.Stderr = nil
	m.cmd.Stdin = nil

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	m.exited = make(chan struct{})
	go func() {
		_ = m.cmd.Wait()
		close(m.exited)
	}()

	if err := m.waitForSocket(); err != nil {
		select {
		case <-m.exited:
		default:
			log.Warnf("killing mpv: socket never became ready")
			_ = killProcess(m.cmd)
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	return m.Listen()
}

// Listen attaches the event listener to the socket.
func (m *MPV) Listen() error {
	if m.listener == nil {
		m.listener = NewEventListener(m.socketPath, m.hub.emit)
	}
	return m.listener.Start()
}

// Wait returns a channel that is closed when the mpv process exits.
func (m *MPV) Wait() <-chan struct{} {
	return m.exited
}

func (m *MPV) waitForSocket() error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-m.exited:
			return errors.New("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

// Subscribe registers fn for every surface event.
func (m *MPV) Subscribe(fn func(Event)) *Subscription {
	return m.hub.subscribe(fn)
}

// Load replaces the current file with rawURL starting at start seconds.
func (m *MPV) Load(rawURL string, start float64) error {
	safeURL, err := sanitizeMediaTarget(rawURL)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	if err := m.Set("start", strconv.FormatFloat(max(start, 0), 'f', 3, 64)); err != nil {
		return err
	}

	_, err = m.sendCommand("loadfile", safeURL, "replace")
	return err
}

// Position returns the current playback position in seconds.
func (m *MPV) Position() (float64, error) {
	return m.getFloatProperty("time-pos")
}

// Duration returns the length of the current file in seconds.
func (m *MPV) Duration() (float64, error) {
	return m.getFloatProperty("duration")
}

// CanPlayType reports the formats mpv demuxes on its own.
func (m *MPV) CanPlayType(mime string) bool {
	switch mime {
	case constant.MimeHLS, constant.MimeHLSLegacy, constant.MimeMP4, constant.MimeMatroska, constant.MimeWebVTT:
		return true
	default:
		return false
	}
}

func (m *MPV) SetTitle(title string) error {
	return m.Set("force-media-title", sanitizeTitle(title))
}

func (m *MPV) Play() error {
	return m.Set("pause", false)
}

func (m *MPV) Pause() error {
	return m.Set("pause", true)
}

// Seek moves playback to the given absolute position in seconds.
func (m *MPV) Seek(seconds float64) error {
	_, err := m.sendCommand("seek", seconds, "absolute")
	return err
}

// SetVolume takes a volume in [0,1].
func (m *MPV) SetVolume(v float64) error {
	return m.Set("volume", v*100)
}

func (m *MPV) SetMute(muted bool) error {
	return m.Set("mute", muted)
}

func (m *MPV) SetFullscreen(on bool) error {
	return m.Set("fullscreen", on)
}

// AddSubtitle loads an external text track and selects it.
func (m *MPV) AddSubtitle(rawURL, title, lang string) error {
	safeURL, err := sanitizeMediaTarget(rawURL)
	if err != nil {
		return fmt.Errorf("invalid subtitle target: %w", err)
	}

	_, err = m.sendCommand("sub-add", safeURL, "select", sanitizeTitle(title), lang)
	return err
}

// RemoveSubtitle drops the selected external track and turns subtitles off.
func (m *MPV) RemoveSubtitle() error {
	if _, err := m.sendCommand("sub-remove"); err != nil {
		log.Debugf("sub-remove: %s", err)
	}
	return m.Set("sid", "no")
}

// MarkIntro shows the intro window as chapters on the timeline.
func (m *MPV) MarkIntro(w session.IntroWindow) error {
	if !w.Valid() {
		return nil
	}

	chapters := []map[string]any{
		{"title": "Part A", "time": 0.0},
		{"title": "Opening", "time": w.Start},
		{"title": "Part B", "time": w.End},
	}

	if w.Start == 0 {
		chapters = chapters[1:]
	}

	return m.Set("chapter-list", chapters)
}

// IsRunning reports whether mpv is responding to IPC commands.
func (m *MPV) IsRunning() bool {
	if m.socketPath == "" {
		return false
	}

	_, err := m.sendCommand("get_property", "pid")
	return err == nil
}

// Close shuts down mpv and cleans up the socket.
func (m *MPV) Close() error {
	if m.socketPath == "" {
		return nil
	}

	if m.listener != nil {
		m.listener.Stop()
	}

	_, _ = m.sendCommand("quit")

	select {
	case <-m.exited:
	case <-time.After(3 * time.Second):
		_ = killProcess(m.cmd)
	}

	_ = os.Remove(m.socketPath)
	return nil
}

// Socket returns the IPC socket path.
func (m *MPV) Socket() string {
	return m.socketPath
}

// Set a property
func (m *MPV) Set(property string, value any) error {
	_, err := m.sendCommand("set_property", property, value)
	return err
}

func (m *MPV) getFloatProperty(name string) (float64, error) {
	data, err := m.sendCommand("get_property", name)
	if err != nil {
		return 0, err
	}

	if data == nil {
		return 0, fmt.Errorf("property %s: %w", name, errPropertyUnavailable)
	}

	val, ok := data.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: expected float64, got %T", name, data)
	}

	return val, nil
}

// sanitizeMediaTarget keeps URLs from being read as mpv flags.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", errors.New("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", errors.New("invalid control characters in URL")
	}

	if strings.HasPrefix(l, "-") {
		return "", errors.New("url must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

func sanitizeTitle(title string) string {
	t := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "\x00", "").Replace(title)
	return strings.TrimSpace(t)
}
