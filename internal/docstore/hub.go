package docstore

import (
	"sync"

	"go.uber.org/zap"
)

// hub fans snapshots out to the listeners of each document.
type hub struct {
	mu     sync.Mutex
	subs   map[DocumentRef]map[*subscription]struct{}
	logger *zap.Logger
}

func newHub(logger *zap.Logger) *hub {
	return &hub{
		subs:   make(map[DocumentRef]map[*subscription]struct{}),
		logger: logger,
	}
}

func (h *hub) add(ref DocumentRef, fn Listener) *subscription {
	sub := &subscription{
		hub:     h,
		ref:     ref,
		fn:      fn,
		offered: -1,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	set, ok := h.subs[ref]
	if !ok {
		set = make(map[*subscription]struct{})
		h.subs[ref] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	go sub.run()
	return sub
}

func (h *hub) remove(sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.ref]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.ref)
	}
}

func (h *hub) publish(snap Snapshot) {
	h.mu.Lock()
	targets := make([]*subscription, 0, len(h.subs[snap.Ref]))
	for sub := range h.subs[snap.Ref] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	for _, sub := range targets {
		sub.offer(snap)
	}
}

func (h *hub) refs() []DocumentRef {
	h.mu.Lock()
	defer h.mu.Unlock()
	refs := make([]DocumentRef, 0, len(h.subs))
	for ref := range h.subs {
		refs = append(refs, ref)
	}
	return refs
}

func (h *hub) count(ref DocumentRef) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[ref])
}

func (h *hub) closeAll() {
	h.mu.Lock()
	var all []*subscription
	for _, set := range h.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range all {
		sub.Unsubscribe()
	}
}

// subscription delivers snapshots to one listener on its own goroutine.
// Only the newest pending snapshot is kept; revisions never go backwards.
type subscription struct {
	hub *hub
	ref DocumentRef
	fn  Listener

	mu      sync.Mutex
	pending *Snapshot
	offered int64
	closed  bool

	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) offer(snap Snapshot) {
	s.mu.Lock()
	if s.closed || snap.Revision <= s.offered {
		s.mu.Unlock()
		return
	}
	s.offered = snap.Revision
	s.pending = &snap
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}

		// closed 与 pending 在同一把锁下读取，Unsubscribe 之后不会再开始投递
		s.mu.Lock()
		snap := s.pending
		s.pending = nil
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return
		}
		if snap != nil {
			s.deliver(*snap)
		}
	}
}

func (s *subscription) deliver(snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			s.hub.logger.Error("listener panicked", zap.String("ref", s.ref.String()), zap.Any("panic", r))
		}
	}()
	s.fn(snap)
}

// Unsubscribe never waits for the listener, so it is safe to call from
// inside it.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.pending = nil
		s.mu.Unlock()
		close(s.done)
		s.hub.remove(s)
	})
}
