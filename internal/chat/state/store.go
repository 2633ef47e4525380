// Package state maintains the observable conversation state behind the
// orchestrator: the session list, the active session, the transcript, and
// the stream lifecycle. Consumers read immutable snapshots and subscribe
// for change notifications instead of observing mutations in place.
package state

import (
	"sync"

	"github.com/doAIs/AgonX/internal/chat"
)

// StreamStatus is the lifecycle state of the single in-flight turn.
type StreamStatus string

const (
	StreamIdle       StreamStatus = "idle"
	StreamSending    StreamStatus = "sending"
	StreamStreaming  StreamStatus = "streaming"
	StreamFinalizing StreamStatus = "finalizing"
	StreamErrored    StreamStatus = "errored"
)

// Store owns the mutable conversation state. All mutation goes through
// Apply; all observation goes through Snapshot.
type Store struct {
	mu           sync.RWMutex
	sessions     []chat.Session
	active       *chat.Session
	transcript   []chat.Message
	streamStatus StreamStatus
	streamErr    error

	watchMu  sync.Mutex
	watchers map[int]chan struct{}
	nextID   int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		streamStatus: StreamIdle,
		watchers:     make(map[int]chan struct{}),
	}
}

// Update represents a mutation applied to the Store.
type Update interface {
	apply(store *Store)
}

// Apply mutates the store and notifies watchers.
func (s *Store) Apply(update Update) {
	if update == nil {
		return
	}
	s.mu.Lock()
	update.apply(s)
	s.mu.Unlock()
	s.notify()
}

// Snapshot is a copy of the store state, safe to hold across further
// mutations.
type Snapshot struct {
	Sessions     []chat.Session
	Active       *chat.Session
	Transcript   []chat.Message
	StreamStatus StreamStatus
	StreamErr    error
}

// Snapshot copies the current state so callers never see internal mutable
// references.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := Snapshot{
		Sessions:     make([]chat.Session, len(s.sessions)),
		Transcript:   make([]chat.Message, len(s.transcript)),
		StreamStatus: s.streamStatus,
		StreamErr:    s.streamErr,
	}
	copy(snapshot.Sessions, s.sessions)
	copy(snapshot.Transcript, s.transcript)
	for i, msg := range s.transcript {
		if msg.Images != nil {
			snapshot.Transcript[i].Images = append([]string(nil), msg.Images...)
		}
	}
	if s.active != nil {
		active := *s.active
		snapshot.Active = &active
	}
	return snapshot
}

// Watch registers for change notifications. The returned channel receives a
// signal (coalesced, capacity one) after every Apply; the cancel func must
// be called when done.
func (s *Store) Watch() (<-chan struct{}, func()) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan struct{}, 1)
	s.watchers[id] = ch

	cancel := func() {
		s.watchMu.Lock()
		defer s.watchMu.Unlock()
		delete(s.watchers, id)
	}
	return ch, cancel
}

func (s *Store) notify() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
