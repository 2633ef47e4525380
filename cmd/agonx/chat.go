package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/doAIs/AgonX/internal/chat"
	"github.com/doAIs/AgonX/internal/chat/state"
	agonerrors "github.com/doAIs/AgonX/internal/errors"
)

func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func newChatCmd(getApp func() *app) *cobra.Command {
	var (
		sessionID   string
		title       string
		collections []string
		fallback    bool
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the assistant (interactive when no message is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			ctx := cmd.Context()

			session, err := resolveSession(ctx, a, sessionID, title)
			if err != nil {
				return err
			}
			if err := a.orch.SelectSession(ctx, session); err != nil {
				// History failure keeps the session usable; surface and go on.
				fmt.Fprintln(os.Stderr, errText(err.Error()))
			}

			if len(args) > 0 {
				return runOneShot(ctx, a, strings.Join(args, " "), collections, fallback)
			}
			if !isTTY() {
				input, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				return runOneShot(ctx, a, strings.TrimSpace(string(input)), collections, fallback)
			}
			return runREPL(ctx, a, collections, fallback)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "resume an existing session by id")
	cmd.Flags().StringVar(&title, "title", "", "title for a newly created session")
	cmd.Flags().StringSliceVar(&collections, "kb", nil, "knowledge collections to retrieve context from")
	cmd.Flags().BoolVar(&fallback, "no-stream", false, "use the non-streaming request path")
	return cmd
}

// resolveSession resumes the requested session or creates a fresh one.
func resolveSession(ctx context.Context, a *app, sessionID, title string) (chat.Session, error) {
	if sessionID == "" {
		return a.orch.CreateSession(ctx, title)
	}
	listing, err := a.dir.ListSessions(ctx, 1, a.cfg.PageSize)
	if err != nil {
		return chat.Session{}, err
	}
	for _, session := range listing.Items {
		if session.ID == sessionID || strings.HasPrefix(session.ID, sessionID) {
			return session, nil
		}
	}
	return chat.Session{}, &agonerrors.NotFoundError{Message: fmt.Sprintf("session %s not found", sessionID)}
}

func runOneShot(ctx context.Context, a *app, message string, collections []string, fallback bool) error {
	if message == "" {
		return fmt.Errorf("empty message")
	}
	if fallback {
		snap := a.orch.Snapshot()
		reply, err := a.dir.SendMessage(ctx, snap.Active.ID, message)
		if err != nil {
			return err
		}
		fmt.Println(reply.Content)
		return nil
	}
	return sendAndRender(ctx, a, message, collections)
}

func runREPL(ctx context.Context, a *app, collections []string, fallback bool) error {
	snap := a.orch.Snapshot()
	fmt.Printf("%s %s\n", titleText("session:"), snap.Active.Title)
	fmt.Println(mutedText("type a message, or /quit to exit"))
	renderTranscript(snap.Transcript)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(userText("you> "))
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/cancel":
			if err := a.orch.Cancel(); err != nil {
				fmt.Fprintln(os.Stderr, errText(err.Error()))
			}
			continue
		}

		var err error
		if fallback {
			err = runOneShot(ctx, a, line, collections, true)
		} else {
			err = sendAndRender(ctx, a, line, collections)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, errText(err.Error()))
		}
	}
}

// sendAndRender starts a turn and prints assistant output as store
// snapshots change, until the turn reaches a terminal state.
func sendAndRender(ctx context.Context, a *app, message string, collections []string) error {
	updates, cancel := a.orch.Store().Watch()
	defer cancel()

	var err error
	if len(collections) > 0 {
		err = a.orch.SendWithRetrieval(ctx, message, collections...)
	} else {
		err = a.orch.Send(ctx, message)
	}
	if err != nil {
		return err
	}

	done := a.orch.TurnDone()
	printed := 0
	agentShown := ""
	for {
		select {
		case <-updates:
			printed, agentShown = renderDelta(os.Stdout, a.orch.Snapshot(), printed, agentShown)
		case <-done:
			snap := a.orch.Snapshot()
			printed, _ = renderDelta(os.Stdout, snap, printed, agentShown)
			fmt.Println()
			if snap.StreamErr != nil {
				return snap.StreamErr
			}
			return nil
		case <-ctx.Done():
			_ = a.orch.Cancel()
			return ctx.Err()
		}
	}
}

// renderDelta prints whatever portion of the streaming assistant message
// has not been shown yet. A shrinking or rewritten prefix (cumulative
// policy resending corrections) erases the line and redraws it.
func renderDelta(w io.Writer, snap state.Snapshot, printed int, agentShown string) (int, string) {
	if len(snap.Transcript) == 0 {
		return printed, agentShown
	}
	last := snap.Transcript[len(snap.Transcript)-1]
	if last.Role != chat.RoleAssistant {
		return printed, agentShown
	}
	if last.AgentName != "" && last.AgentName != agentShown {
		if agentShown == "" {
			fmt.Fprintf(w, "%s ", agentText(last.AgentName+">"))
		}
		agentShown = last.AgentName
	}
	if len(last.Content) < printed {
		// The corrected content is shorter than what is on screen; a bare
		// carriage return would leave the old tail visible.
		fmt.Fprint(w, "\r\x1b[K")
		if agentShown != "" {
			fmt.Fprintf(w, "%s ", agentText(agentShown+">"))
		}
		fmt.Fprint(w, last.Content)
		return len(last.Content), agentShown
	}
	fmt.Fprint(w, last.Content[printed:])
	return len(last.Content), agentShown
}

func renderTranscript(messages []chat.Message) {
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleUser:
			fmt.Printf("%s %s\n", userText("you>"), msg.Content)
		case chat.RoleAssistant:
			name := msg.AgentName
			if name == "" {
				name = "assistant"
			}
			fmt.Printf("%s %s\n", agentText(name+">"), msg.Content)
		default:
			fmt.Println(mutedText(msg.Content))
		}
	}
}
