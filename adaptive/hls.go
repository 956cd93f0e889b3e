package adaptive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grafov/m3u8"
	"github.com/kinema-cli/kinema/log"
	"github.com/kinema-cli/kinema/network"
)

const (
	defaultRetries    = 3
	defaultRetryDelay = 500 * time.Millisecond
	maxManifestSize   = 4 << 20
)

// HLS is the built-in engine. It resolves the master playlist itself and feeds
// variant playlists to the surface, so rung selection stays on this side.
type HLS struct {
	Client     *http.Client
	Retries    int
	RetryDelay time.Duration
	Disabled   bool
}

// NewHLS returns an engine using the shared client.
func NewHLS(retries int) *HLS {
	return &HLS{
		Client:     network.Client,
		Retries:    retries,
		RetryDelay: defaultRetryDelay,
	}
}

func (h *HLS) Supported() bool {
	return h != nil && !h.Disabled
}

func (h *HLS) Attach(surface Surface, manifestURL string, start float64, l Listener) Instance {
	ctx, cancel := context.WithCancel(context.Background())

	inst := &hlsInstance{
		engine:   h,
		surface:  surface,
		manifest: manifestURL,
		start:    start,
		listener: l,
		ctx:      ctx,
		cancel:   cancel,
		level:    AutoLevel,
	}

	go inst.run()

	return inst
}

func (h *HLS) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return network.Client
}

func (h *HLS) retries() int {
	if h.Retries > 0 {
		return h.Retries
	}
	return defaultRetries
}

// statusError is a non-2xx manifest response.
type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("manifest status %d", e.Code)
}

func (e *statusError) transient() bool {
	return e.Code >= http.StatusInternalServerError || e.Code == http.StatusTooManyRequests
}

type hlsInstance struct {
	engine   *HLS
	surface  Surface
	manifest string
	start    float64
	listener Listener

	ctx    context.Context
	cancel context.CancelFunc

	// mu serializes surface loads with Destroy.
	mu        sync.Mutex
	destroyed bool
	ready     bool
	variants  map[int]string
	level     int
}

func (i *hlsInstance) run() {
	body, err := i.fetch()
	if err != nil {
		if i.ctx.Err() != nil {
			return
		}
		i.emitError(ErrorEvent{Fatal: true, Kind: KindManifest, Err: err})
		return
	}

	levels, variants, err := parseManifest(i.manifest, body)
	if err != nil {
		i.emitError(ErrorEvent{Fatal: true, Kind: KindParse, Err: err})
		return
	}

	i.mu.Lock()
	if i.destroyed {
		i.mu.Unlock()
		return
	}
	i.variants = variants
	i.ready = true
	err = i.surface.Load(i.urlFor(i.level), i.start)
	i.mu.Unlock()

	if err != nil {
		i.emitError(ErrorEvent{Fatal: true, Kind: KindMedia, Err: err})
		return
	}

	if i.alive() {
		i.listener.ManifestParsed(levels)
	}
}

func (i *hlsInstance) fetch() ([]byte, error) {
	var lastErr error
	retries := i.engine.retries()

	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			select {
			case <-i.ctx.Done():
				return nil, i.ctx.Err()
			case <-time.After(i.engine.RetryDelay):
			}
		}

		body, err := i.get()
		if err == nil {
			return body, nil
		}

		if i.ctx.Err() != nil {
			return nil, i.ctx.Err()
		}

		var se *statusError
		if errors.As(err, &se) && !se.transient() {
			return nil, err
		}

		lastErr = err
		log.Debugf("manifest attempt %d: %s", attempt+1, err)
		i.emitError(ErrorEvent{Kind: KindNetwork, Err: err})
	}

	return nil, fmt.Errorf("manifest failed after %d attempts: %w", retries, lastErr)
}

func (i *hlsInstance) get() ([]byte, error) {
	req, err := http.NewRequestWithContext(i.ctx, http.MethodGet, i.manifest, nil)
	if err != nil {
		return nil, err
	}

	res, err := i.engine.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &statusError{Code: res.StatusCode}
	}

	return io.ReadAll(io.LimitReader(res.Body, maxManifestSize))
}

// urlFor must be called with mu held.
func (i *hlsInstance) urlFor(level int) string {
	if u, ok := i.variants[level]; ok {
		return u
	}
	return i.manifest
}

func (i *hlsInstance) SetLevel(index int) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.destroyed || i.level == index {
		return
	}

	i.level = index
	if !i.ready {
		return
	}

	pos, err := i.surface.Position()
	if err != nil {
		pos = i.start
	}

	if err := i.surface.Load(i.urlFor(index), pos); err != nil {
		log.Warnf("switch to level %d: %s", index, err)
	}
}

func (i *hlsInstance) Destroy() {
	i.cancel()

	i.mu.Lock()
	i.destroyed = true
	i.mu.Unlock()
}

func (i *hlsInstance) alive() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return !i.destroyed
}

func (i *hlsInstance) emitError(ev ErrorEvent) {
	if i.alive() {
		i.listener.Error(ev)
	}
}

// parseManifest reads a master playlist into levels and their variant URLs.
// A media playlist yields no levels and plays as is.
func parseManifest(manifestURL string, body []byte) ([]QualityLevel, map[int]string, error) {
	playlist, kind, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		return nil, nil, fmt.Errorf("decode manifest: %w", err)
	}

	variants := make(map[int]string)
	if kind != m3u8.MASTER {
		return nil, variants, nil
	}

	master, ok := playlist.(*m3u8.MasterPlaylist)
	if !ok {
		return nil, nil, errors.New("decode manifest: unexpected playlist type")
	}

	base, err := url.Parse(manifestURL)
	if err != nil {
		return nil, nil, err
	}

	var levels []QualityLevel
	for index, v := range master.Variants {
		if v == nil || v.Iframe {
			continue
		}

		height := parseHeight(v.Resolution)
		if height <= 0 {
			continue
		}

		ref, err := url.Parse(v.URI)
		if err != nil {
			return nil, nil, fmt.Errorf("variant %d: %w", index, err)
		}

		variants[index] = base.ResolveReference(ref).String()
		levels = append(levels, QualityLevel{
			Index:   index,
			Height:  height,
			Bitrate: int(v.Bandwidth),
		})
	}

	return levels, variants, nil
}

// parseHeight reads the height out of a WIDTHxHEIGHT resolution.
func parseHeight(resolution string) int {
	_, h, found := strings.Cut(resolution, "x")
	if !found {
		return 0
	}

	height, err := strconv.Atoi(h)
	if err != nil {
		return 0
	}

	return height
}
