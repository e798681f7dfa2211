package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"pulse-cli/internal/answer"
	"pulse-cli/internal/config"
	"pulse-cli/internal/display"
	"pulse-cli/internal/gemini"
	"pulse-cli/internal/search"
	"pulse-cli/internal/service"
)

// copyToClipboard is replaced in tests.
var copyToClipboard = clipboard.WriteAll

// ─── Input dispatcher ───────────────────────────────────────────────────────

func (m model) dispatchInput(input string) (tea.Model, tea.Cmd) {
	if input == "?" {
		return m.cmdHelp()
	}
	if strings.HasPrefix(input, "/") {
		return m.dispatchCommand(input)
	}
	if m.last != nil {
		if q, ok := service.PickRelated(m.last.Related, input); ok {
			return m.cmdSearch(q)
		}
	}
	return m.cmdSearch(input)
}

func (m model) dispatchCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/help", "/h":
		return m.cmdHelp()
	case "/filters":
		return m.cmdFilters()
	case "/set":
		return m.cmdSet(args)
	case "/reset":
		return m.cmdReset()
	case "/highlight", "/hl":
		return m.cmdHighlight(args)
	case "/sources":
		return m.cmdSources()
	case "/related":
		return m.cmdRelated()
	case "/insights":
		return m.cmdInsights()
	case "/factcheck", "/fc":
		return m.cmdFactCheck()
	case "/summary":
		return m.cmdSummary(args)
	case "/copy":
		return m.cmdCopy(false)
	case "/share":
		return m.cmdCopy(true)
	case "/export":
		return m.cmdExport(args)
	case "/key":
		return m.cmdKey(args)
	case "/config":
		return m.cmdConfig()
	case "/clear":
		return m.cmdClear()
	case "/quit", "/exit", "/q":
		return m, tea.Quit
	default:
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Unknown command: %s (type /help)", cmd)))
	}
}

// ─── /help ──────────────────────────────────────────────────────────────────

func (m model) cmdHelp() (tea.Model, tea.Cmd) {
	pad := func(s string, w int) string {
		return s + strings.Repeat(" ", max(w-len(s), 1))
	}
	row := func(usage, desc string) tea.Cmd {
		return tea.Println("  " + hintKeyStyle.Render(pad(usage, 26)) + dimStyle.Render(desc))
	}

	return m, tea.Sequence(
		tea.Println(""),
		tea.Println(dimStyle.Render("  Shortcuts:")),
		tea.Println(""),
		row("/filters", "Show search filters and their values"),
		row("/set <filter> <value>", "Set a search filter, e.g. /set lang en"),
		row("/set <key> <value>", "Set a config value (model, rps, ...)"),
		row("/reset", "Reset all filters to their defaults"),
		row("/highlight [term]", "Highlight a term, or clear it"),
		row("/sources", "List the last answer's sources"),
		row("/related", "Show related questions"),
		row("/insights", "Sentiment, keywords and entities"),
		row("/factcheck", "Check the claims in the last answer"),
		row("/summary [detailed]", "Summarize the last answer"),
		row("/copy", "Copy the answer as markdown"),
		row("/share", "Copy a short shareable summary"),
		row("/export <file>", "Save as .md, or .yaml with follow-ups"),
		row("/key <api-key>", "Store the Gemini API key"),
		row("/config", "Show current configuration"),
		row("/clear", "Clear the screen"),
		row("/quit", "Exit Pulse"),
		tea.Println(""),
		tea.Println(dimStyle.Render("  Type a question to search, or 1-3 to ask a related question.")),
		tea.Println(""),
	)
}

// ─── Filters ────────────────────────────────────────────────────────────────

func (m model) cmdFilters() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tea.Println(""), tea.Println(dimStyle.Render("  Search filters:"))}
	for _, name := range search.FilterNames() {
		value := m.filters.Get(name)
		if value == "" {
			value = dimStyle.Render("(any)")
		}
		cmds = append(cmds, tea.Println(fmt.Sprintf("    %s %s  %s",
			filterNameStyle.Render(fmt.Sprintf("%-12s", name)), value, dimStyle.Render(search.FilterHelp(name)))))
	}
	cmds = append(cmds, tea.Println(""))
	return m, tea.Sequence(cmds...)
}

func (m model) cmdSet(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		return m, tea.Println(warnMsgStyle.Render("  ! Usage: /set <filter|key> <value>  (see /filters)"))
	}
	name := strings.ToLower(args[0])
	value := strings.Join(args[1:], " ")

	if slices.Contains(search.FilterNames(), name) {
		if err := m.filters.Set(name, value); err != nil {
			return m, tea.Println(errorMsgStyle.Render("  ✗ " + err.Error()))
		}
		m.cfg.Filters = m.filters.Values()
		shown := m.filters.Get(name)
		if shown == "" {
			shown = "(any)"
		}
		return m, tea.Sequence(
			tea.Println(successMsgStyle.Render(fmt.Sprintf("  ✓ %s = %s", name, shown))),
			m.saveConfig(),
		)
	}

	if slices.Contains(config.Keys, name) {
		if value == "" {
			return m, tea.Println(warnMsgStyle.Render(fmt.Sprintf("  ! Usage: /set %s <value>", name)))
		}
		if err := m.cfg.Set(name, value); err != nil {
			return m, tea.Println(errorMsgStyle.Render("  ✗ " + err.Error()))
		}
		m.backend = nil
		shown := value
		if name == "key" {
			shown = config.MaskKey(value)
		}
		return m, tea.Sequence(
			tea.Println(successMsgStyle.Render(fmt.Sprintf("  ✓ %s = %s", name, shown))),
			m.saveConfig(),
		)
	}

	return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Unknown filter or setting: %s (see /filters or /config)", name)))
}

func (m model) cmdReset() (tea.Model, tea.Cmd) {
	m.filters = search.DefaultFilters()
	m.cfg.Filters = nil
	return m, tea.Sequence(
		tea.Println(successMsgStyle.Render("  ✓ Filters reset to defaults")),
		m.saveConfig(),
	)
}

// saveConfig persists the config, reporting only failures.
func (m model) saveConfig() tea.Cmd {
	if err := m.cfg.Save(); err != nil {
		return tea.Println(warnMsgStyle.Render(fmt.Sprintf("  ! Not saved: %v", err)))
	}
	return nil
}

func (m model) cmdHighlight(args []string) (tea.Model, tea.Cmd) {
	m.highlight = strings.TrimSpace(strings.Join(args, " "))

	msg := successMsgStyle.Render(fmt.Sprintf("  ✓ Highlighting %q", m.highlight))
	if m.highlight == "" {
		msg = successMsgStyle.Render("  ✓ Highlight cleared")
	}
	if m.last == nil {
		return m, tea.Println(msg)
	}
	return m, tea.Sequence(tea.Println(msg), tea.Println(""), tea.Println(m.renderAnswer(m.lastSnapshot())))
}

// ─── Last answer ────────────────────────────────────────────────────────────

var errNoAnswer = errors.New("no answer yet. Ask a question first")

func (m model) lastSnapshot() answer.Snapshot {
	if m.last == nil {
		return answer.Snapshot{}
	}
	return answer.Snapshot{Text: m.last.Answer, Sources: m.last.Sources}
}

func noAnswer() tea.Cmd {
	return tea.Println(warnMsgStyle.Render("  ! " + errNoAnswer.Error()))
}

func (m model) cmdSources() (tea.Model, tea.Cmd) {
	if m.last == nil {
		return m, noAnswer()
	}
	return m, tea.Println(display.RenderSources(m.last.Sources))
}

func (m model) cmdRelated() (tea.Model, tea.Cmd) {
	if m.last == nil {
		return m, noAnswer()
	}
	if m.followUpsPending {
		return m, tea.Println(dimStyle.Render("  Related questions are still loading..."))
	}
	if len(m.last.Related) == 0 {
		return m, tea.Println(dimStyle.Render("  No related questions for this answer."))
	}
	return m, tea.Println(display.RenderRelated(m.last.Related))
}

func (m model) cmdInsights() (tea.Model, tea.Cmd) {
	if m.last == nil {
		return m, noAnswer()
	}
	if m.followUpsPending {
		return m, tea.Println(dimStyle.Render("  Insights are still loading..."))
	}
	if m.last.Insights == nil {
		return m, tea.Println(dimStyle.Render("  No insights for this answer."))
	}
	return m, tea.Println(display.RenderInsights(m.last.Insights))
}

func (m model) cmdFactCheck() (tea.Model, tea.Cmd) {
	if m.last == nil {
		return m, noAnswer()
	}
	if m.last.FactCheck != nil {
		return m, tea.Println(display.RenderFactCheck(m.last.FactCheck))
	}
	b, err := m.ensureBackend()
	if err != nil {
		return m, backendError(err)
	}
	m.backend = b
	return m, tea.Sequence(
		tea.Println(statusStyle.Render("  ⟳ Checking claims against the web...")),
		fetchFactCheck(context.Background(), b, m.last.ID, m.last.Answer),
	)
}

func (m model) handleFactCheck(msg factCheckMsg) (tea.Model, tea.Cmd) {
	if m.last == nil || m.last.ID != msg.resultID {
		return m, nil
	}
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ Fact check failed: " + gemini.UserMessage(msg.err)))
	}
	r := *m.last
	r.FactCheck = msg.res
	m.last = &r
	return m, tea.Println(display.RenderFactCheck(msg.res))
}

func (m model) cmdSummary(args []string) (tea.Model, tea.Cmd) {
	if m.last == nil {
		return m, noAnswer()
	}
	detail := search.DetailBrief
	if len(args) > 0 && strings.EqualFold(args[0], string(search.DetailDetailed)) {
		detail = search.DetailDetailed
	}
	b, err := m.ensureBackend()
	if err != nil {
		return m, backendError(err)
	}
	m.backend = b
	return m, tea.Sequence(
		tea.Println(statusStyle.Render(fmt.Sprintf("  ⟳ Writing a %s summary...", detail))),
		fetchSummary(context.Background(), b, m.last.ID, m.last.Answer, detail),
	)
}

func (m model) handleSummary(msg summaryMsg) (tea.Model, tea.Cmd) {
	if m.last == nil || m.last.ID != msg.resultID {
		return m, nil
	}
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ Summary failed: " + gemini.UserMessage(msg.err)))
	}
	r := *m.last
	r.Summary = msg.text
	m.last = &r
	return m, tea.Sequence(
		tea.Println(""),
		tea.Println(summaryHeaderStyle.Render("  📝 Summary")),
		tea.Println(indentText(display.RenderMarkdown(msg.text, m.answerWidth()), "  ")),
		tea.Println(""),
	)
}

func (m model) cmdCopy(short bool) (tea.Model, tea.Cmd) {
	if m.last == nil {
		return m, noAnswer()
	}
	text := service.ExportMarkdown(m.last.Query, m.lastSnapshot())
	what := "Answer"
	if short {
		text = service.ShareSummary(m.last.Query, m.lastSnapshot())
		what = "Summary"
	}
	if err := copyToClipboard(text); err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Clipboard unavailable: %v", err)))
	}
	return m, tea.Println(successMsgStyle.Render(fmt.Sprintf("  ✓ %s copied to the clipboard", what)))
}

func (m model) cmdExport(args []string) (tea.Model, tea.Cmd) {
	if m.last == nil {
		return m, noAnswer()
	}
	if len(args) == 0 {
		return m, tea.Println(warnMsgStyle.Render("  ! Usage: /export <file.md|file.yaml>"))
	}
	path := strings.Join(args, " ")
	if err := service.WriteExport(path, *m.last); err != nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ " + err.Error()))
	}
	return m, tea.Println(successMsgStyle.Render("  ✓ Saved " + path))
}

// ─── /key, /config ──────────────────────────────────────────────────────────

func (m model) cmdKey(args []string) (tea.Model, tea.Cmd) {
	if len(args) != 1 {
		return m, tea.Println(warnMsgStyle.Render("  ! Usage: /key <api-key>"))
	}
	_ = m.cfg.Set("key", args[0])
	m.backend = nil

	cmds := []tea.Cmd{
		tea.Println(successMsgStyle.Render("  ✓ API key set: " + config.MaskKey(args[0]))),
		m.saveConfig(),
	}
	if src := m.cfg.KeySource(); strings.HasPrefix(src, "$") {
		cmds = append(cmds, tea.Println(warnMsgStyle.Render(fmt.Sprintf("  ! %s is set and takes precedence", src))))
	}
	return m, tea.Sequence(cmds...)
}

func (m model) cmdConfig() (tea.Model, tea.Cmd) {
	val := func(s string) string {
		if s == "" {
			return dimStyle.Render("(not set)")
		}
		return s
	}
	key := dimStyle.Render("(not set)")
	if k := m.cfg.EffectiveAPIKey(); k != "" {
		key = config.MaskKey(k) + dimStyle.Render(" from "+m.cfg.KeySource())
	}
	filters := m.filters.Values()
	var active []string
	for _, name := range search.FilterNames() {
		if v, ok := filters[name]; ok {
			active = append(active, name+"="+v)
		}
	}

	return m, tea.Sequence(
		tea.Println(""),
		tea.Println(dimStyle.Render("  Configuration:")),
		tea.Println(fmt.Sprintf("    Profile:         %s", config.ProfileName(m.profile))),
		tea.Println(fmt.Sprintf("    API key:         %s", key)),
		tea.Println(fmt.Sprintf("    Model:           %s", m.cfg.ModelName())),
		tea.Println(fmt.Sprintf("    Reasoning model: %s", m.cfg.ReasoningModelName())),
		tea.Println(fmt.Sprintf("    Endpoint:        %s", m.cfg.Endpoint())),
		tea.Println(fmt.Sprintf("    Requests/sec:    %g", m.cfg.RPS())),
		tea.Println(fmt.Sprintf("    Log file:        %s", val(m.cfg.LogPath()))),
		tea.Println(fmt.Sprintf("    Filters:         %s", val(strings.Join(active, " ")))),
		tea.Println(fmt.Sprintf("    Highlight:       %s", val(m.highlight))),
		tea.Println(""),
	)
}

// ─── /clear ─────────────────────────────────────────────────────────────────

func (m model) cmdClear() (tea.Model, tea.Cmd) {
	return m, tea.ClearScreen
}

// ─── Search ─────────────────────────────────────────────────────────────────

func (m model) ensureBackend() (search.Backend, error) {
	if m.backend != nil {
		return m.backend, nil
	}
	if m.newBackend == nil {
		return nil, gemini.ErrNoAPIKey
	}
	return m.newBackend(m.cfg)
}

func backendError(err error) tea.Cmd {
	if errors.Is(err, gemini.ErrNoAPIKey) {
		return tea.Println(errorMsgStyle.Render("  ✗ No API key configured. Type /key <api-key> to get started."))
	}
	return tea.Println(errorMsgStyle.Render("  ✗ " + gemini.UserMessage(err)))
}

func (m model) cmdSearch(query string) (tea.Model, tea.Cmd) {
	b, err := m.ensureBackend()
	if err != nil {
		return m, backendError(err)
	}
	m.backend = b

	sess := m.sessions.Begin(context.Background(), query)
	m.mode = modeStreaming
	m.query = query
	m.live = answer.Snapshot{}
	m.followUpsPending = false

	ch, wait := beginStream(b, sess, m.filters, m.log)
	m.streamCh = ch

	return m, tea.Sequence(
		tea.Println(""),
		tea.Println(userPromptStyle.Render("  ❯ "+query)),
		tea.Println(""),
		wait,
	)
}
