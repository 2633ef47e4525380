package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doAIs/AgonX/internal/chat"
	"github.com/doAIs/AgonX/internal/chat/state"
)

func assistantSnap(content, agent string) state.Snapshot {
	return state.Snapshot{Transcript: []chat.Message{
		{ID: "u1", Role: chat.RoleUser, Content: "q"},
		{ID: "a1", Role: chat.RoleAssistant, Content: content, AgentName: agent},
	}}
}

func TestRenderDeltaPrintsUnseenSuffix(t *testing.T) {
	var buf bytes.Buffer
	printed, shown := renderDelta(&buf, assistantSnap("Hel", ""), 0, "")
	printed, _ = renderDelta(&buf, assistantSnap("Hello", ""), printed, shown)

	require.Equal(t, "Hello", buf.String())
	require.Equal(t, 5, printed)
}

func TestRenderDeltaErasesStaleTailOnShrink(t *testing.T) {
	var buf bytes.Buffer
	printed, shown := renderDelta(&buf, assistantSnap("Hello world", ""), 0, "")
	printed, _ = renderDelta(&buf, assistantSnap("Hi", ""), printed, shown)

	out := buf.String()
	require.Contains(t, out, "\r\x1b[K")
	require.True(t, strings.HasSuffix(out, "Hi"))
	require.Equal(t, 2, printed)
}

func TestRenderDeltaIgnoresNonAssistantTail(t *testing.T) {
	var buf bytes.Buffer
	snap := state.Snapshot{Transcript: []chat.Message{
		{ID: "u1", Role: chat.RoleUser, Content: "q"},
	}}
	printed, _ := renderDelta(&buf, snap, 0, "")

	require.Zero(t, printed)
	require.Empty(t, buf.String())
}
