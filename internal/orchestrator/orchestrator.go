// Package orchestrator owns the active chat session: its transcript, the
// lifecycle of the single in-flight streaming turn, and the coordination
// with the retrieval path used to augment prompts. State is exposed through
// an observable snapshot store; the view layer never sees mutation in
// place.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/doAIs/AgonX/internal/api"
	"github.com/doAIs/AgonX/internal/chat"
	"github.com/doAIs/AgonX/internal/chat/state"
	agonerrors "github.com/doAIs/AgonX/internal/errors"
	"github.com/doAIs/AgonX/internal/knowledge"
	"github.com/doAIs/AgonX/internal/logging"
)

// DeltaPolicy fixes how incoming stream chunks are reconciled into the
// streaming assistant message. The two policies are mutually exclusive and
// must match the channel's documented contract.
type DeltaPolicy int

const (
	// DeltaIncremental treats each message event as a fragment to append.
	// This matches the AgonX backend, which streams content piecewise.
	DeltaIncremental DeltaPolicy = iota
	// DeltaCumulative treats each message event as the latest known full
	// content, replacing what was shown before. For servers that resend
	// corrected prefixes.
	DeltaCumulative
)

// SwitchPolicy fixes what happens to an in-flight turn when the active
// session changes.
type SwitchPolicy int

const (
	// SwitchDetach lets the turn complete in the background against its
	// original session; its deltas stop touching the foreground transcript.
	SwitchDetach SwitchPolicy = iota
	// SwitchCancel closes the turn's channel on session switch.
	SwitchCancel
)

// StreamOpener opens the push channel for one streaming turn. Injected so
// the orchestrator is testable against a scripted fake channel.
type StreamOpener interface {
	OpenMessageStream(ctx context.Context, sessionID, content string) (api.EventStream, error)
}

// HistoryFetchError reports that selecting a session succeeded but its
// history could not be loaded; the session stays selected with an empty
// transcript and the caller must surface the error.
type HistoryFetchError struct {
	SessionID string
	Err       error
}

func (e *HistoryFetchError) Error() string {
	return fmt.Sprintf("fetch history for session %s: %v", e.SessionID, e.Err)
}

func (e *HistoryFetchError) Unwrap() error { return e.Err }

// Options configures an Orchestrator.
type Options struct {
	Directory chat.DirectoryAPI
	Streams   StreamOpener
	Retriever knowledge.Searcher // optional; enables SendWithRetrieval
	Logger    logging.Logger

	DeltaPolicy  DeltaPolicy
	SwitchPolicy SwitchPolicy

	// RetrievalTopK limits how many hits the augmented-send path folds into
	// the prompt across all queried collections (default 5).
	RetrievalTopK int
}

// Orchestrator drives one conversation at a time. At most one turn is in
// flight across the whole instance; a second send while non-idle is
// rejected with ConflictError rather than queued.
type Orchestrator struct {
	dir       chat.DirectoryAPI
	streams   StreamOpener
	retriever knowledge.Searcher
	logger    logging.Logger
	store     *state.Store

	deltaPolicy   DeltaPolicy
	switchPolicy  SwitchPolicy
	retrievalTopK int

	mu   sync.Mutex
	turn *turn
}

// turn tracks one outstanding streaming exchange. Once detached (session
// switched away or canceled) it no longer writes to the foreground state.
type turn struct {
	sessionID string
	messageID string
	stream    api.EventStream

	detached bool
	canceled bool
	done     chan struct{}
}

// New builds an orchestrator. Directory and Streams are required.
func New(opts Options) *Orchestrator {
	topK := opts.RetrievalTopK
	if topK <= 0 {
		topK = 5
	}
	return &Orchestrator{
		dir:           opts.Directory,
		streams:       opts.Streams,
		retriever:     opts.Retriever,
		logger:        logging.OrNop(opts.Logger),
		store:         state.NewStore(),
		deltaPolicy:   opts.DeltaPolicy,
		switchPolicy:  opts.SwitchPolicy,
		retrievalTopK: topK,
	}
}

// Store exposes the observable state for subscribers (the view layer).
func (o *Orchestrator) Store() *state.Store { return o.store }

// Snapshot is shorthand for Store().Snapshot().
func (o *Orchestrator) Snapshot() state.Snapshot { return o.store.Snapshot() }

// LoadSessions fetches one page of the session directory into the store.
func (o *Orchestrator) LoadSessions(ctx context.Context, page, pageSize int) error {
	listing, err := o.dir.ListSessions(ctx, page, pageSize)
	if err != nil {
		return err
	}
	o.store.Apply(state.SessionsReplace{Sessions: listing.Items})
	return nil
}

// CreateSession creates a session, prepends it to the list, and makes it
// active with an empty transcript. The new session appears first regardless
// of its server-assigned timestamp.
func (o *Orchestrator) CreateSession(ctx context.Context, title string) (chat.Session, error) {
	session, err := o.dir.CreateSession(ctx, title)
	if err != nil {
		return chat.Session{}, err
	}

	o.mu.Lock()
	o.releaseTurnLocked(o.switchPolicy == SwitchCancel)
	o.mu.Unlock()

	o.store.Apply(state.SessionPrepend{Session: session})
	o.store.Apply(state.ActiveSet{Session: &session})
	o.store.Apply(state.TranscriptReplace{Messages: nil})
	o.store.Apply(state.StreamStatusSet{Status: state.StreamIdle})
	return session, nil
}

// SelectSession makes session active and replaces the transcript with its
// server-side history. On fetch failure the session stays selected with an
// empty transcript and a HistoryFetchError is returned.
func (o *Orchestrator) SelectSession(ctx context.Context, session chat.Session) error {
	o.mu.Lock()
	o.releaseTurnLocked(o.switchPolicy == SwitchCancel)
	o.mu.Unlock()

	o.store.Apply(state.ActiveSet{Session: &session})
	o.store.Apply(state.StreamStatusSet{Status: state.StreamIdle})

	history, err := o.dir.History(ctx, session.ID)
	if err != nil {
		o.store.Apply(state.TranscriptReplace{Messages: nil})
		return &HistoryFetchError{SessionID: session.ID, Err: err}
	}
	o.store.Apply(state.TranscriptReplace{Messages: history})
	return nil
}

// DeleteSession removes a session. A NotFoundError from the server is
// treated as success so deletion is idempotent; local removal proceeds
// regardless. Deleting the active session clears the selection and cancels
// any turn running against it.
func (o *Orchestrator) DeleteSession(ctx context.Context, id string) error {
	if err := o.dir.DeleteSession(ctx, id); err != nil && !agonerrors.IsNotFound(err) {
		return err
	}

	o.mu.Lock()
	if o.turn != nil && o.turn.sessionID == id {
		o.releaseTurnLocked(true)
	}
	o.mu.Unlock()

	o.store.Apply(state.SessionRemove{ID: id})

	snap := o.store.Snapshot()
	if snap.Active != nil && snap.Active.ID == id {
		o.store.Apply(state.ActiveSet{Session: nil})
		o.store.Apply(state.TranscriptReplace{Messages: nil})
		o.store.Apply(state.StreamStatusSet{Status: state.StreamIdle})
	}
	return nil
}

// RenameSession updates a session title, keeping the server's result.
func (o *Orchestrator) RenameSession(ctx context.Context, id, title string) error {
	session, err := o.dir.RenameSession(ctx, id, title)
	if err != nil {
		return err
	}
	o.store.Apply(state.SessionSetTitle{ID: session.ID, Title: session.Title})
	return nil
}

// Send starts a streaming turn for the active session: the user message and
// an empty assistant placeholder are appended, the push channel is opened,
// and deltas are reconciled in the background. It returns once the turn is
// accepted; completion is observable through the store.
func (o *Orchestrator) Send(ctx context.Context, content string) error {
	return o.send(ctx, content, content)
}

// SendWithRetrieval queries the given collections concurrently, folds the
// top hits into the outbound prompt, and sends. The transcript shows the
// user's original content, not the augmented prompt.
func (o *Orchestrator) SendWithRetrieval(ctx context.Context, content string, collectionIDs ...string) error {
	if o.retriever == nil || len(collectionIDs) == 0 {
		return o.Send(ctx, content)
	}

	results := make([][]knowledge.RetrievalResult, len(collectionIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, collectionID := range collectionIDs {
		i, collectionID := i, collectionID
		g.Go(func() error {
			hits, err := o.retriever.Search(gctx, knowledge.SearchRequest{
				CollectionID: collectionID,
				Query:        content,
			})
			if err != nil {
				return fmt.Errorf("retrieve from %s: %w", collectionID, err)
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return o.send(ctx, content, augmentPrompt(content, results, o.retrievalTopK))
}

func (o *Orchestrator) send(ctx context.Context, display, outbound string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := o.store.Snapshot()
	if snap.Active == nil {
		return &agonerrors.ConflictError{Reason: "no active session"}
	}
	if o.turn != nil {
		return &agonerrors.ConflictError{Reason: "turn already in flight"}
	}
	// Errored is a terminal state too; a retry send is allowed from it.
	if snap.StreamStatus != state.StreamIdle && snap.StreamStatus != state.StreamErrored {
		return &agonerrors.ConflictError{Reason: "turn already in flight"}
	}

	now := time.Now()
	userMsg := chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleUser,
		Content:   display,
		Timestamp: now,
	}
	placeholder := chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleAssistant,
		Timestamp: now,
	}

	o.store.Apply(state.MessageAppend{Message: userMsg})
	o.store.Apply(state.MessageAppend{Message: placeholder})
	o.store.Apply(state.StreamStatusSet{Status: state.StreamSending})

	stream, err := o.streams.OpenMessageStream(ctx, snap.Active.ID, outbound)
	if err != nil {
		o.store.Apply(state.StreamStatusSet{Status: state.StreamErrored, Err: err})
		return err
	}

	t := &turn{
		sessionID: snap.Active.ID,
		messageID: placeholder.ID,
		stream:    stream,
		done:      make(chan struct{}),
	}
	o.turn = t
	go o.consume(t)
	return nil
}

// Cancel closes the in-flight turn's channel. The partial assistant content
// stays in the transcript. Valid only while sending or streaming.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	t := o.turn
	status := o.store.Snapshot().StreamStatus
	if t == nil || t.detached || (status != state.StreamSending && status != state.StreamStreaming) {
		o.mu.Unlock()
		return &agonerrors.ConflictError{Reason: "no cancellable turn in flight"}
	}
	t.canceled = true
	o.mu.Unlock()

	// Closing the body unblocks the consumer's Recv.
	_ = t.stream.Close()
	<-t.done
	return nil
}

// TurnDone returns a channel closed when the current turn finishes. With no
// turn in flight it returns an already-closed channel.
func (o *Orchestrator) TurnDone() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.turn != nil {
		return o.turn.done
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// releaseTurnLocked detaches the in-flight turn, optionally canceling it.
// The turn slot stays occupied until the consumer goroutine exits, which
// keeps the one-channel-per-orchestrator invariant: a new send is rejected
// until the old channel is actually closed.
func (o *Orchestrator) releaseTurnLocked(cancel bool) {
	t := o.turn
	if t == nil {
		return
	}
	t.detached = true
	if cancel {
		t.canceled = true
		go func() { _ = t.stream.Close() }()
	}
}

// consume drains one turn's push channel. Every exit path closes the
// channel and clears the turn slot.
func (o *Orchestrator) consume(t *turn) {
	defer close(t.done)
	defer func() { _ = t.stream.Close() }()
	defer func() {
		o.mu.Lock()
		if o.turn == t {
			o.turn = nil
		}
		o.mu.Unlock()
	}()

	var content strings.Builder
	streaming := false

	for {
		event, err := t.stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			o.finishTurn(t, err)
			return
		}

		switch event.Event {
		case api.EventStart:
			// Channel established; still sending until the first delta.

		case api.EventAgent:
			o.applyForeground(t, state.AssistantAgentSet{MessageID: t.messageID, Agent: event.Data})

		case api.EventMessage:
			if !streaming {
				streaming = true
				o.applyForeground(t, state.StreamStatusSet{Status: state.StreamStreaming})
			}
			switch o.deltaPolicy {
			case DeltaCumulative:
				content.Reset()
				content.WriteString(event.Data)
			default:
				content.WriteString(event.Data)
			}
			o.applyForeground(t, state.AssistantContentSet{MessageID: t.messageID, Content: content.String()})

		case api.EventDone:
			o.finishTurn(t, nil)
			return

		default:
			o.logger.Debug("ignoring unknown stream event %q", event.Event)
		}
	}
}

// finishTurn applies the terminal transition for a turn. A canceled turn
// ends idle with its partial content kept; a failed turn ends errored with
// the partial content kept; a completed turn refreshes its session's
// counters on the way back to idle.
func (o *Orchestrator) finishTurn(t *turn, recvErr error) {
	o.mu.Lock()
	canceled := t.canceled
	detached := t.detached
	o.mu.Unlock()

	switch {
	case recvErr == nil:
		if !detached {
			o.applyForeground(t, state.StreamStatusSet{Status: state.StreamFinalizing})
		}
		// The session counters move even for a detached turn: the session
		// still exists in the directory list.
		o.store.Apply(state.SessionTurnCompleted{ID: t.sessionID, At: time.Now()})
		o.applyForeground(t, state.StreamStatusSet{Status: state.StreamIdle})

	case canceled:
		o.applyForeground(t, state.StreamStatusSet{Status: state.StreamIdle})

	default:
		streamErr := recvErr
		if !agonerrors.IsStream(streamErr) {
			streamErr = &agonerrors.StreamError{Err: recvErr}
		}
		o.logger.Warn("turn failed for session %s: %v", t.sessionID, streamErr)
		o.applyForeground(t, state.StreamStatusSet{Status: state.StreamErrored, Err: streamErr})
	}
}

// applyForeground applies an update unless the turn has been detached from
// the foreground session.
func (o *Orchestrator) applyForeground(t *turn, update state.Update) {
	o.mu.Lock()
	detached := t.detached
	o.mu.Unlock()
	if detached {
		return
	}
	o.store.Apply(update)
}

// augmentPrompt folds the highest-scoring hits across all collections into
// the outbound prompt. With no hits the prompt is passed through untouched.
func augmentPrompt(content string, groups [][]knowledge.RetrievalResult, topK int) string {
	var hits []knowledge.RetrievalResult
	for _, group := range groups {
		hits = append(hits, group...)
	}
	if len(hits) == 0 {
		return content
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}

	var b strings.Builder
	b.WriteString("Answer using the retrieved context below when relevant.\n\n")
	for i, hit := range hits {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, hit.Source, hit.Content)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(content)
	return b.String()
}
