package adaptive

import (
	"sync"

	"github.com/kinema-cli/kinema/log"
	"github.com/samber/mo"
)

// Events are the adapter's outward notifications. They run on the engine's goroutine.
type Events struct {
	OnManifestParsed func(levels []QualityLevel)
	OnFatal          func(err error)
}

// Adapter owns one engine instance for one session. The instance is destroyed
// exactly once, whether by a fatal error or by Destroy.
type Adapter struct {
	mu        sync.Mutex
	instance  Instance
	destroyed bool
	levels    []QualityLevel
	events    Events
}

// Attach binds engine to surface and starts loading manifestURL.
func Attach(engine Engine, surface Surface, manifestURL string, start float64, events Events) *Adapter {
	a := &Adapter{events: events}

	inst := engine.Attach(surface, manifestURL, start, adapterListener{a})

	a.mu.Lock()
	a.instance = inst
	destroyNow := a.destroyed
	a.mu.Unlock()

	if destroyNow {
		inst.Destroy()
	}

	return a
}

// Levels returns the normalized quality ladder, empty until the manifest is parsed.
func (a *Adapter) Levels() []QualityLevel {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]QualityLevel, len(a.levels))
	copy(out, a.levels)
	return out
}

// SetQuality pins a rung by index, or returns to automatic selection on None.
// It reports whether the instance was still alive.
func (a *Adapter) SetQuality(level mo.Option[int]) bool {
	a.mu.Lock()
	inst := a.instance
	dead := a.destroyed || inst == nil
	a.mu.Unlock()

	if dead {
		return false
	}

	inst.SetLevel(level.OrElse(AutoLevel))
	return true
}

// Destroyed reports whether the instance is gone.
func (a *Adapter) Destroyed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.destroyed
}

// Destroy tears the instance down. Further calls do nothing.
func (a *Adapter) Destroy() {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.destroyed = true
	inst := a.instance
	a.mu.Unlock()

	if inst != nil {
		inst.Destroy()
	}
}

func (a *Adapter) onManifestParsed(levels []QualityLevel) {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.levels = NormalizeLevels(levels)
	out := make([]QualityLevel, len(a.levels))
	copy(out, a.levels)
	a.mu.Unlock()

	if a.events.OnManifestParsed != nil {
		a.events.OnManifestParsed(out)
	}
}

func (a *Adapter) onError(ev ErrorEvent) {
	if !ev.Fatal {
		log.With("kind", ev.Kind.String()).Debugf("recoverable engine error: %s", ev.Err)
		return
	}

	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.destroyed = true
	inst := a.instance
	a.mu.Unlock()

	log.With("kind", ev.Kind.String()).Warnf("fatal engine error: %s", ev.Err)

	if inst != nil {
		inst.Destroy()
	}

	if a.events.OnFatal != nil {
		a.events.OnFatal(ev.Err)
	}
}

type adapterListener struct {
	a *Adapter
}

func (l adapterListener) ManifestParsed(levels []QualityLevel) { l.a.onManifestParsed(levels) }
func (l adapterListener) Error(ev ErrorEvent)                 { l.a.onError(ev) }
