// Package history keeps local resume positions, so an item can pick up where
// it stopped even when the server never heard about it.
package history

import (
	"sort"
	"sync"
	"time"

	"github.com/kinema-cli/kinema/filesystem"
	"github.com/kinema-cli/kinema/where"
	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

const (
	// MinResume is the earliest position worth resuming from, in seconds.
	MinResume = 5.0
	// MaxResumeRatio is the share of the runtime past which an item counts as watched.
	MaxResumeRatio = 0.95
)

var cacher = sync.OnceValue(func() *gache.Cache[map[string]*Entry] {
	return gache.New[map[string]*Entry](
		&gache.Options{
			Path:       where.History(),
			FileSystem: &filesystem.GacheFs{},
		},
	)
})

var mu sync.Mutex

// Get returns every record keyed by item id.
func Get() (map[string]*Entry, error) {
	cached, expired, err := cacher().Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Entry), nil
	}
	return cached, nil
}

// Save records the position reached in an item, replacing the previous record.
func Save(entry Entry) error {
	mu.Lock()
	defer mu.Unlock()

	saved, err := Get()
	if err != nil {
		return err
	}

	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}

	saved[entry.ItemID] = &entry
	return cacher().Set(saved)
}

// Resume returns where to pick an item up, if anywhere.
func Resume(itemID string) (mo.Option[float64], error) {
	saved, err := Get()
	if err != nil {
		return mo.None[float64](), err
	}

	entry, ok := saved[itemID]
	if !ok || !entry.Resumable() {
		return mo.None[float64](), nil
	}

	return mo.Some(entry.Position), nil
}

// Remove forgets one item.
func Remove(itemID string) error {
	mu.Lock()
	defer mu.Unlock()

	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, itemID)
	return cacher().Set(saved)
}

// Clear forgets everything.
func Clear() error {
	mu.Lock()
	defer mu.Unlock()

	return cacher().Set(make(map[string]*Entry))
}

// List returns all records, most recent first.
func List() ([]*Entry, error) {
	saved, err := Get()
	if err != nil {
		return nil, err
	}

	entries := lo.Values(saved)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})

	return entries, nil
}
