package playback

import (
	"sync"

	"github.com/kinema-cli/kinema/player"
)

// Subscription detaches a state listener.
type Subscription = player.Subscription

// store fans snapshots out to subscribers. Every subscriber has its own
// goroutine and a one-slot mailbox holding the newest snapshot, so a slow
// listener skips intermediate states but never sees them out of order.
// Closing the store still hands every subscriber the last published state.
type store struct {
	mu     sync.Mutex
	seq    uint64
	latest State
	next   int
	boxes  map[int]*mailbox
	closed bool
}

type mailbox struct {
	mu      sync.Mutex
	state   State
	seq     uint64
	fresh   bool
	signal  chan struct{}
	done    chan struct{}
	final   chan struct{}
	stopped chan struct{}
}

func newStore(initial State) *store {
	return &store{latest: initial, boxes: make(map[int]*mailbox)}
}

func (s *store) publish(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.seq++
	s.latest = state
	for _, box := range s.boxes {
		box.put(state.clone(), s.seq)
	}
}

func (s *store) subscribe(fn func(State)) *Subscription {
	box := &mailbox{
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		final:   make(chan struct{}),
		stopped: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return player.NewSubscription(nil)
	}
	id := s.next
	s.next++
	s.boxes[id] = box
	box.put(s.latest.clone(), s.seq)
	s.mu.Unlock()

	go box.run(fn)

	// Unsubscribe returns once the listener has run for the last time.
	// It must not be called from inside the listener.
	return player.NewSubscription(func() {
		s.mu.Lock()
		if _, ok := s.boxes[id]; ok {
			delete(s.boxes, id)
			close(box.done)
		}
		s.mu.Unlock()

		<-box.stopped
	})
}

func (s *store) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for id, box := range s.boxes {
		close(box.final)
		delete(s.boxes, id)
	}
}

func (b *mailbox) put(state State, seq uint64) {
	b.mu.Lock()
	if seq < b.seq {
		b.mu.Unlock()
		return
	}
	b.state = state
	b.seq = seq
	b.fresh = true
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// take returns the pending snapshot if the listener has not seen it yet.
func (b *mailbox) take() (State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.fresh {
		return State{}, false
	}
	b.fresh = false
	return b.state, true
}

func (b *mailbox) run(fn func(State)) {
	defer close(b.stopped)

	for {
		select {
		case <-b.done:
			return
		case <-b.final:
			if state, ok := b.take(); ok {
				fn(state)
			}
			return
		case <-b.signal:
		}

		// done wins over a pending signal
		select {
		case <-b.done:
			return
		default:
		}

		if state, ok := b.take(); ok {
			fn(state)
		}
	}
}
