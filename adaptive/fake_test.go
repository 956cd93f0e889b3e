package adaptive

import (
	"sync"

	"github.com/kinema-cli/kinema/constant"
)

type load struct {
	URL   string
	Start float64
}

type fakeSurface struct {
	mu       sync.Mutex
	native   bool
	position float64
	loads    []load
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{}
}

func (s *fakeSurface) Load(url string, start float64) error {
	s.mu.Lock()
	s.loads = append(s.loads, load{url, start})
	s.mu.Unlock()
	return nil
}

func (s *fakeSurface) Position() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position, nil
}

func (s *fakeSurface) CanPlayType(mime string) bool {
	return s.native && mime == constant.MimeHLS
}

func (s *fakeSurface) Loads() []load {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]load(nil), s.loads...)
}

type fakeInstance struct {
	mu       sync.Mutex
	destroys int
	levels   []int
	listener Listener
}

func (i *fakeInstance) SetLevel(index int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.levels = append(i.levels, index)
}

func (i *fakeInstance) Destroy() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.destroys++
}

func (i *fakeInstance) Destroys() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.destroys
}

type fakeEngine struct {
	supported bool
	instances []*fakeInstance
}

func (e *fakeEngine) Supported() bool { return e.supported }

func (e *fakeEngine) Attach(_ Surface, _ string, _ float64, l Listener) Instance {
	inst := &fakeInstance{listener: l}
	e.instances = append(e.instances, inst)
	return inst
}
