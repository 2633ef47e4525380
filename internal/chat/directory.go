package chat

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/doAIs/AgonX/internal/api"
)

// DirectoryAPI is the session CRUD surface the orchestrator depends on.
// No retries happen at this layer; callers decide.
type DirectoryAPI interface {
	ListSessions(ctx context.Context, page, pageSize int) (api.Page[Session], error)
	CreateSession(ctx context.Context, title string) (Session, error)
	RenameSession(ctx context.Context, id, title string) (Session, error)
	DeleteSession(ctx context.Context, id string) error
	History(ctx context.Context, id string) ([]Message, error)
	SendMessage(ctx context.Context, sessionID, content string) (Message, error)
}

// Directory is the CRUD facade over session records.
type Directory struct {
	client *api.Client
}

// NewDirectory builds a Directory over the given transport.
func NewDirectory(client *api.Client) *Directory {
	return &Directory{client: client}
}

var _ DirectoryAPI = (*Directory)(nil)

// ListSessions returns one page of sessions, most recent first.
func (d *Directory) ListSessions(ctx context.Context, page, pageSize int) (api.Page[Session], error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))
	return api.Get[api.Page[Session]](ctx, d.client, "/chat/sessions", query)
}

// CreateSession creates a new session. An empty title lets the server pick
// a default.
func (d *Directory) CreateSession(ctx context.Context, title string) (Session, error) {
	body := map[string]string{}
	if title != "" {
		body["title"] = title
	}
	return api.Post[Session](ctx, d.client, "/chat/sessions", body)
}

// RenameSession updates a session's title.
func (d *Directory) RenameSession(ctx context.Context, id, title string) (Session, error) {
	return api.Put[Session](ctx, d.client, "/chat/sessions/"+id, map[string]string{"title": title})
}

// DeleteSession removes a session server-side.
func (d *Directory) DeleteSession(ctx context.Context, id string) error {
	return api.Delete(ctx, d.client, "/chat/sessions/"+id)
}

// History returns the ordered message list for a session.
func (d *Directory) History(ctx context.Context, id string) ([]Message, error) {
	return api.Get[[]Message](ctx, d.client, fmt.Sprintf("/chat/sessions/%s/messages", id), nil)
}

// SendMessage is the non-streaming fallback path: the full assistant reply
// comes back in one response.
func (d *Directory) SendMessage(ctx context.Context, sessionID, content string) (Message, error) {
	return api.Post[Message](ctx, d.client, "/chat/message", map[string]string{
		"session_id": sessionID,
		"content":    content,
	})
}
