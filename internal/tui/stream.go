package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"pulse-cli/internal/answer"
	"pulse-cli/internal/config"
	"pulse-cli/internal/search"
	"pulse-cli/internal/service"
)

// ─── Messages sent from stream goroutines to Bubble Tea ─────────────────────
//
// Every message carries the ID of the session that produced it. Update
// drops messages whose session is no longer current, so a cancelled or
// superseded query can never overwrite the answer on screen.

type snapshotMsg struct {
	sessionID string
	snap      answer.Snapshot
}

type streamDoneMsg struct {
	sessionID string
	snap      answer.Snapshot
	err       error
}

type followUpsMsg struct {
	sessionID string
	result    service.FollowUps
}

type factCheckMsg struct {
	resultID string
	res      *search.FactCheckResult
	err      error
}

type summaryMsg struct {
	resultID string
	detail   search.SummaryDetail
	text     string
	err      error
}

type configChangedMsg struct {
	cfg *config.Config
}

type configErrMsg struct {
	err error
}

// ─── Stream command ─────────────────────────────────────────────────────────
//
// Runs the search in a goroutine that accumulates fragments and sends a
// snapshot after each one through a channel. The returned tea.Cmd reads
// one message; Update re-arms it after each snapshot until the stream
// ends. Sends give up once the session is cancelled, so an abandoned
// goroutine never blocks on a channel nobody reads.

func beginStream(b search.Backend, sess *answer.Session, filters search.Filters, log *zap.Logger) (chan tea.Msg, tea.Cmd) {
	ch := make(chan tea.Msg, 64)
	ctx := sess.Context()

	send := func(msg tea.Msg) {
		select {
		case ch <- msg:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(ch)

		stream, err := b.Search(ctx, sess.Query, filters)
		if err != nil {
			send(streamDoneMsg{sessionID: sess.ID, err: err})
			return
		}

		acc := answer.NewAccumulator(log)
		snap, err := acc.Run(ctx, stream, func(s answer.Snapshot) {
			send(snapshotMsg{sessionID: sess.ID, snap: s})
		})
		send(streamDoneMsg{sessionID: sess.ID, snap: snap, err: err})
	}()

	return ch, waitForStream(ch)
}

// waitForStream reads the next message from the channel.
func waitForStream(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// ─── Follow-ups ─────────────────────────────────────────────────────────────

func fetchFollowUps(b search.Backend, sess *answer.Session, text string) tea.Cmd {
	return func() tea.Msg {
		return followUpsMsg{
			sessionID: sess.ID,
			result:    service.RunFollowUps(sess.Context(), b, sess.Query, text),
		}
	}
}

func fetchFactCheck(ctx context.Context, b search.Backend, resultID, text string) tea.Cmd {
	return func() tea.Msg {
		res, err := b.FactCheck(ctx, text)
		return factCheckMsg{resultID: resultID, res: res, err: err}
	}
}

func fetchSummary(ctx context.Context, b search.Backend, resultID, text string, detail search.SummaryDetail) tea.Cmd {
	return func() tea.Msg {
		out, err := b.Summarize(ctx, text, detail)
		return summaryMsg{resultID: resultID, detail: detail, text: strings.TrimSpace(out), err: err}
	}
}

// ─── Config watcher ─────────────────────────────────────────────────────────

type configSource interface {
	Changes() <-chan *config.Config
	Errors() <-chan error
}

func waitForConfig(w configSource) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case cfg, ok := <-w.Changes():
			if !ok {
				return nil
			}
			return configChangedMsg{cfg: cfg}
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			return configErrMsg{err: err}
		}
	}
}
