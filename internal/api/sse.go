package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	agonerrors "github.com/doAIs/AgonX/internal/errors"
)

const (
	streamScannerInitialBuffer = 64 * 1024
	streamScannerMaxBuffer     = 512 * 1024
)

// Stream event kinds delivered by the push channel.
const (
	EventStart   = "start"
	EventAgent   = "agent"
	EventMessage = "message"
	EventDone    = "done"
)

// StreamEvent is one unit pushed by the server during a streaming turn.
// Message events carry content fragments; agent events carry the name of
// the agent producing the following content.
type StreamEvent struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

// EventStream is a server-push channel for a single turn. Recv blocks until
// the next event, returning io.EOF after the terminal done event. Close is
// safe to call from any goroutine and on every exit path.
type EventStream interface {
	Recv() (StreamEvent, error)
	Close() error
}

type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

// OpenMessageStream opens the push channel for one streaming turn. The
// returned stream must be closed by the caller on every exit path.
func (c *Client) OpenMessageStream(ctx context.Context, sessionID, content string) (EventStream, error) {
	query := url.Values{}
	query.Set("session_id", sessionID)
	query.Set("content", content)

	req, err := c.newRequest(ctx, http.MethodGet, "/chat/message", query, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, c.wrapTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
		_ = resp.Body.Close()
		return nil, c.translateStatus(resp.StatusCode, data)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, streamScannerInitialBuffer), streamScannerMaxBuffer)

	return &sseStream{body: resp.Body, scanner: scanner}, nil
}

// Recv returns the next event from the channel. A channel that ends without
// a done event yields a StreamError; after done, Recv returns io.EOF.
func (s *sseStream) Recv() (StreamEvent, error) {
	if s.done {
		return StreamEvent{}, io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var event StreamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return StreamEvent{}, &agonerrors.StreamError{Err: fmt.Errorf("malformed event: %w", err)}
		}
		if event.Event == EventDone {
			s.done = true
		}
		return event, nil
	}

	if err := s.scanner.Err(); err != nil {
		return StreamEvent{}, &agonerrors.StreamError{Err: err}
	}
	return StreamEvent{}, &agonerrors.StreamError{Err: fmt.Errorf("channel closed before completion: %w", io.ErrUnexpectedEOF)}
}

func (s *sseStream) Close() error {
	return s.body.Close()
}
