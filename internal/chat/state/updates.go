package state

import (
	"time"

	"github.com/doAIs/AgonX/internal/chat"
)

// SessionsReplace swaps the whole session list, preserving server order.
type SessionsReplace struct {
	Sessions []chat.Session
}

func (u SessionsReplace) apply(s *Store) {
	s.sessions = append([]chat.Session(nil), u.Sessions...)
}

// SessionPrepend inserts a freshly created session at the head of the list,
// regardless of its server-assigned timestamp.
type SessionPrepend struct {
	Session chat.Session
}

func (u SessionPrepend) apply(s *Store) {
	s.sessions = append([]chat.Session{u.Session}, s.sessions...)
}

// SessionRemove drops a session by id. Removing an absent id is a no-op so
// deletion stays idempotent client-side.
type SessionRemove struct {
	ID string
}

func (u SessionRemove) apply(s *Store) {
	kept := s.sessions[:0]
	for _, session := range s.sessions {
		if session.ID != u.ID {
			kept = append(kept, session)
		}
	}
	s.sessions = kept
}

// SessionSetTitle records a rename.
type SessionSetTitle struct {
	ID    string
	Title string
}

func (u SessionSetTitle) apply(s *Store) {
	for i := range s.sessions {
		if s.sessions[i].ID == u.ID {
			s.sessions[i].Title = u.Title
		}
	}
	if s.active != nil && s.active.ID == u.ID {
		s.active.Title = u.Title
	}
}

// SessionTurnCompleted refreshes message_count and updated_at after a turn
// finishes (one user message plus one assistant message).
type SessionTurnCompleted struct {
	ID string
	At time.Time
}

func (u SessionTurnCompleted) apply(s *Store) {
	for i := range s.sessions {
		if s.sessions[i].ID == u.ID {
			s.sessions[i].MessageCount += 2
			s.sessions[i].UpdatedAt = u.At
		}
	}
	if s.active != nil && s.active.ID == u.ID {
		s.active.MessageCount += 2
		s.active.UpdatedAt = u.At
	}
}

// ActiveSet selects the session whose transcript the store tracks. A nil
// session clears the selection.
type ActiveSet struct {
	Session *chat.Session
}

func (u ActiveSet) apply(s *Store) {
	if u.Session == nil {
		s.active = nil
		return
	}
	session := *u.Session
	s.active = &session
}

// TranscriptReplace swaps the transcript wholesale (history fetch, session
// switch, clear).
type TranscriptReplace struct {
	Messages []chat.Message
}

func (u TranscriptReplace) apply(s *Store) {
	s.transcript = append([]chat.Message(nil), u.Messages...)
}

// MessageAppend adds one message to the end of the transcript.
type MessageAppend struct {
	Message chat.Message
}

func (u MessageAppend) apply(s *Store) {
	s.transcript = append(s.transcript, u.Message)
}

// AssistantContentSet rewrites the content of the streaming assistant
// message identified by id.
type AssistantContentSet struct {
	MessageID string
	Content   string
}

func (u AssistantContentSet) apply(s *Store) {
	for i := range s.transcript {
		if s.transcript[i].ID == u.MessageID {
			s.transcript[i].Content = u.Content
		}
	}
}

// AssistantAgentSet records which agent is producing the streaming reply.
type AssistantAgentSet struct {
	MessageID string
	Agent     string
}

func (u AssistantAgentSet) apply(s *Store) {
	for i := range s.transcript {
		if s.transcript[i].ID == u.MessageID {
			s.transcript[i].AgentName = u.Agent
		}
	}
}

// StreamStatusSet transitions the stream lifecycle. Err is recorded only
// for StreamErrored and cleared otherwise.
type StreamStatusSet struct {
	Status StreamStatus
	Err    error
}

func (u StreamStatusSet) apply(s *Store) {
	s.streamStatus = u.Status
	if u.Status == StreamErrored {
		s.streamErr = u.Err
	} else {
		s.streamErr = nil
	}
}
