// Package scrobble reports playback progress to the media server and keeps
// local history in sync. Stopped reports that cannot be delivered are queued
// on disk and replayed on the next start.
package scrobble

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kinema-cli/kinema/adaptive"
	"github.com/kinema-cli/kinema/catalog"
	"github.com/kinema-cli/kinema/history"
	"github.com/kinema-cli/kinema/log"
	"github.com/kinema-cli/kinema/playback"
)

// ProgressInterval is the minimum time between two progress reports.
const ProgressInterval = 10 * time.Second

const requestTimeout = 10 * time.Second

// Client is the reporting side of the catalog.
type Client interface {
	ReportStart(ctx context.Context, r catalog.PlaybackReport) error
	ReportProgress(ctx context.Context, r catalog.PlaybackReport) error
	ReportStopped(ctx context.Context, r catalog.PlaybackReport) error
}

// Source publishes playback state.
type Source interface {
	Subscribe(fn func(playback.State)) *playback.Subscription
}

// Options configure a Reporter.
type Options struct {
	MediaSourceID string

	// SaveHistory records the final position locally as well.
	SaveHistory bool

	// Now defaults to time.Now.
	Now func() time.Time
}

// Reporter follows one playback session.
type Reporter struct {
	client        Client
	sessionID     string
	mediaSourceID string
	saveHistory   bool
	now           func() time.Time

	mu           sync.Mutex
	sub          *playback.Subscription
	last         playback.State
	seen         bool
	started      bool
	stopped      bool
	paused       bool
	lastProgress time.Time
}

// New returns a reporter with a fresh play session id.
func New(client Client, opts Options) *Reporter {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Reporter{
		client:        client,
		sessionID:     uuid.NewString(),
		mediaSourceID: opts.MediaSourceID,
		saveHistory:   opts.SaveHistory,
		now:           opts.Now,
	}
}

// SessionID is the play session id sent with every report.
func (r *Reporter) SessionID() string {
	return r.sessionID
}

// Attach starts following src until Stop.
func (r *Reporter) Attach(src Source) {
	sub := src.Subscribe(r.Observe)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sub = sub
}

// Observe consumes one state snapshot.
func (r *Reporter) Observe(state playback.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}

	r.last = state
	r.seen = true

	switch state.Phase {
	case playback.Initializing, playback.Failed:
		return
	case playback.Ended:
		if r.started {
			r.stopLocked()
		}
		return
	}

	paused := state.Phase == playback.Paused
	now := r.now()

	if !r.started {
		r.started = true
		r.paused = paused
		r.lastProgress = now
		r.send("start", r.client.ReportStart, r.reportLocked())
		return
	}

	if paused == r.paused && now.Sub(r.lastProgress) < ProgressInterval {
		return
	}

	r.paused = paused
	r.lastProgress = now
	r.send("progress", r.client.ReportProgress, r.reportLocked())
}

// Stop unsubscribes and sends the stopped report if playback ever started.
// A final state still in flight is observed before the report goes out.
func (r *Reporter) Stop() {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()

	sub.Unsubscribe()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started && !r.stopped {
		r.stopLocked()
	}
	r.stopped = true
}

func (r *Reporter) stopLocked() {
	r.stopped = true
	report := r.reportLocked()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := r.client.ReportStopped(ctx, report); err != nil {
		log.Warnf("report stopped for %s: %s, queueing", report.ItemID, err)
		if err := Enqueue(report); err != nil {
			log.Errorf("queue stopped report: %s", err)
		}
	}

	if !r.saveHistory || !r.seen {
		return
	}

	entry := history.Entry{
		ItemID:   r.last.ItemID,
		Title:    r.last.Title,
		Position: r.last.CurrentTime,
		Duration: r.last.Duration,
	}
	if r.last.Phase == playback.Ended {
		entry.Position = r.last.Duration
	}

	if err := history.Save(entry); err != nil {
		log.Warnf("save history: %s", err)
	}
}

func (r *Reporter) send(what string, fn func(context.Context, catalog.PlaybackReport) error, report catalog.PlaybackReport) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := fn(ctx, report); err != nil {
		log.Warnf("report %s for %s: %s", what, report.ItemID, err)
	}
}

func (r *Reporter) reportLocked() catalog.PlaybackReport {
	return catalog.PlaybackReport{
		ItemID:        r.last.ItemID,
		MediaSourceID: r.mediaSourceID,
		PlaySessionID: r.sessionID,
		PositionTicks: catalog.Ticks(r.last.CurrentTime),
		IsPaused:      r.last.Phase == playback.Paused,
		IsMuted:       r.last.Muted,
		PlayMethod:    playMethod(r.last.Mode),
		CanSeek:       r.last.Duration > 0,
	}
}

func playMethod(mode adaptive.Mode) string {
	if mode == adaptive.ModeDirect {
		return "DirectStream"
	}
	return "Transcode"
}
