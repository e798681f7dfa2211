package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"pulse-cli/internal/answer"
	"pulse-cli/internal/config"
	"pulse-cli/internal/display"
	"pulse-cli/internal/gemini"
	"pulse-cli/internal/render"
	"pulse-cli/internal/search"
	"pulse-cli/internal/service"
)

// ─── App mode ───────────────────────────────────────────────────────────────

type appMode int

const (
	modeIdle appMode = iota
	modeStreaming
)

// ─── Slash command registry ─────────────────────────────────────────────────

type slashCmd struct {
	name string
	desc string
}

var slashCommands = []slashCmd{
	{"/clear", "Clear the screen"},
	{"/config", "Show current configuration"},
	{"/copy", "Copy the last answer as markdown"},
	{"/export", "Save the last answer to a file"},
	{"/factcheck", "Check the claims in the last answer"},
	{"/filters", "Show search filters"},
	{"/help", "Show all commands"},
	{"/highlight", "Highlight a term in answers"},
	{"/insights", "Show insights for the last answer"},
	{"/key", "Set the API key"},
	{"/quit", "Exit Pulse"},
	{"/related", "Show related questions"},
	{"/reset", "Reset search filters"},
	{"/set", "Set a filter or config value"},
	{"/share", "Copy a short summary of the last answer"},
	{"/sources", "List the last answer's sources"},
	{"/summary", "Summarize the last answer"},
}

// backendFactory builds the search backend for a config.
type backendFactory func(cfg *config.Config) (search.Backend, error)

// ─── Model ──────────────────────────────────────────────────────────────────

type model struct {
	width  int
	height int

	// Bubble Tea components
	input    textinput.Model
	spinner  spinner.Model
	liveView viewport.Model

	// App state
	mode       appMode
	cfg        *config.Config
	version    string
	profile    string
	log        *zap.Logger
	newBackend backendFactory
	backend    search.Backend
	filters    search.Filters
	highlight  string
	watcher    configSource
	startWarn  string

	// Streaming state
	sessions *answer.Sessions
	streamCh chan tea.Msg
	live     answer.Snapshot
	query    string

	// Last finished answer and its follow-ups
	last             *service.Result
	followUpsPending bool

	// UI state
	ready        bool
	cmdMenuIdx   int
	cmdMenuOpen  bool
	lastInputVal string

	// Command history
	history      []string
	historyIdx   int
	historySaved string
}

func initialModel(version, profile string, cfg *config.Config, newBackend backendFactory, log *zap.Logger) model {
	ti := textinput.New()
	ti.Placeholder = "Ask a question or type /help..."
	ti.Focus()
	ti.CharLimit = 4096
	ti.Prompt = "❯ "
	ti.PromptStyle = promptSymbol
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(colorOrange)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorOrange)

	if cfg == nil {
		cfg = &config.Config{Profile: profile}
	}
	if log == nil {
		log = zap.NewNop()
	}

	var warn string
	filters, err := service.LoadFilters(cfg)
	if err != nil {
		warn = err.Error()
		log.Warn("ignoring invalid stored filters", zap.Error(err))
	}

	return model{
		input:      ti,
		spinner:    sp,
		liveView:   viewport.New(80, 5),
		version:    version,
		profile:    profile,
		cfg:        cfg,
		log:        log,
		newBackend: newBackend,
		filters:    filters,
		startWarn:  warn,
		mode:       modeIdle,
		sessions:   &answer.Sessions{},
		history:    make([]string, 0),
		historyIdx: -1,
	}
}

// ─── Init ───────────────────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		waitForConfig(m.watcher),
	)
}

// ─── Update ─────────────────────────────────────────────────────────────────

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = m.width - 6

		if !m.ready {
			m.ready = true
			cmds = append(cmds, tea.Println(renderWelcome(m.version, m.cfg, m.profile, m.width)))
			if m.startWarn != "" {
				cmds = append(cmds, tea.Println(warnMsgStyle.Render("  ! "+m.startWarn)))
			}
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.mode == modeStreaming {
				return m.cancelStream()
			}
			return m, tea.Quit

		case tea.KeyEsc:
			if m.mode == modeStreaming {
				return m.cancelStream()
			}
			if m.cmdMenuOpen {
				m.cmdMenuOpen = false
				m.cmdMenuIdx = 0
				return m, nil
			}

		case tea.KeyUp:
			if m.mode == modeIdle {
				if m.cmdMenuOpen {
					matches := matchCommands(m.input.Value())
					if len(matches) > 0 {
						m.cmdMenuIdx--
						if m.cmdMenuIdx < 0 {
							m.cmdMenuIdx = len(matches) - 1
						}
						return m, nil
					}
				} else if len(m.history) > 0 {
					if m.historyIdx == -1 {
						m.historySaved = m.input.Value()
						m.historyIdx = len(m.history) - 1
					} else if m.historyIdx > 0 {
						m.historyIdx--
					}
					m.input.SetValue(m.history[m.historyIdx])
					m.input.CursorEnd()
					return m, nil
				}
			}

		case tea.KeyDown:
			if m.mode == modeIdle {
				if m.cmdMenuOpen {
					matches := matchCommands(m.input.Value())
					if len(matches) > 0 {
						m.cmdMenuIdx++
						if m.cmdMenuIdx >= len(matches) {
							m.cmdMenuIdx = 0
						}
						return m, nil
					}
				} else if m.historyIdx != -1 {
					m.historyIdx++
					if m.historyIdx >= len(m.history) {
						m.historyIdx = -1
						m.input.SetValue(m.historySaved)
						m.historySaved = ""
					} else {
						m.input.SetValue(m.history[m.historyIdx])
					}
					m.input.CursorEnd()
					return m, nil
				}
			}

		case tea.KeyTab:
			if m.mode == modeIdle && m.cmdMenuOpen {
				matches := matchCommands(m.input.Value())
				if len(matches) > 0 {
					idx := m.cmdMenuIdx
					if idx < 0 || idx >= len(matches) {
						idx = 0
					}
					m.input.SetValue(matches[idx].name + " ")
					m.input.CursorEnd()
					m.cmdMenuOpen = false
					m.cmdMenuIdx = 0
				}
				return m, nil
			}

		case tea.KeyEnter:
			if m.mode != modeIdle {
				return m, nil
			}
			if m.cmdMenuOpen && m.cmdMenuIdx >= 0 {
				matches := matchCommands(m.input.Value())
				// a complete command name runs directly
				if m.cmdMenuIdx < len(matches) && matches[m.cmdMenuIdx].name != strings.TrimSpace(m.input.Value()) {
					m.input.SetValue(matches[m.cmdMenuIdx].name + " ")
					m.input.CursorEnd()
					m.cmdMenuOpen = false
					m.cmdMenuIdx = 0
					return m, nil
				}
			}

			value := strings.TrimSpace(m.input.Value())
			if value == "" {
				return m, nil
			}

			if len(m.history) == 0 || m.history[len(m.history)-1] != value {
				m.history = append(m.history, value)
				if len(m.history) > 1000 {
					m.history = m.history[len(m.history)-1000:]
				}
			}
			m.historyIdx = -1
			m.historySaved = ""

			m.input.SetValue("")
			m.cmdMenuOpen = false
			m.cmdMenuIdx = 0

			return m.dispatchInput(value)
		}

	// ── Stream messages ───────────────────────────────────────────────
	case snapshotMsg:
		if !m.sessions.IsCurrent(msg.sessionID) || m.mode != modeStreaming {
			return m, nil
		}
		m.setLive(msg.snap)
		return m, waitForStream(m.streamCh)

	case streamDoneMsg:
		if !m.sessions.IsCurrent(msg.sessionID) || m.mode != modeStreaming {
			return m, nil
		}
		return m.handleStreamDone(msg)

	case followUpsMsg:
		if !m.sessions.IsCurrent(msg.sessionID) {
			return m, nil
		}
		return m.handleFollowUps(msg)

	// ── Async results ─────────────────────────────────────────────────
	case factCheckMsg:
		return m.handleFactCheck(msg)

	case summaryMsg:
		return m.handleSummary(msg)

	case configChangedMsg:
		return m.handleConfigChanged(msg)

	case configErrMsg:
		m.log.Warn("config reload failed", zap.Error(msg.err))
		return m, tea.Batch(
			tea.Println(warnMsgStyle.Render(fmt.Sprintf("  ! Config reload failed: %v", msg.err))),
			waitForConfig(m.watcher),
		)
	}

	// Update sub-components
	var cmd tea.Cmd

	if m.mode != modeStreaming {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	newVal := m.input.Value()
	if newVal != m.lastInputVal {
		m.lastInputVal = newVal
		if m.historyIdx != -1 {
			if m.historyIdx < len(m.history) && m.history[m.historyIdx] != newVal {
				m.historyIdx = -1
				m.historySaved = ""
			}
		}
		m.cmdMenuOpen = strings.HasPrefix(newVal, "/")
		m.cmdMenuIdx = 0
	}

	return m, tea.Batch(cmds...)
}

// ─── View ───────────────────────────────────────────────────────────────────
//
// Inline mode: finished output is printed above via tea.Println. While a
// query streams, View shows the answer so far in place of the input.

func (m model) View() string {
	if !m.ready {
		return ""
	}

	var s strings.Builder

	if m.mode == modeStreaming {
		if !m.live.Empty() {
			s.WriteString(m.liveView.View())
			s.WriteString("\n\n")
		}
		status := "Searching..."
		if !m.live.Empty() {
			status = fmt.Sprintf("Writing answer · %d sources", len(m.live.Sources))
		}
		s.WriteString(m.spinner.View() + " " + statusStyle.Render(status))
	} else {
		s.WriteString(m.input.View())
	}
	s.WriteString("\n")

	sepWidth := max(min(m.width, 80), 20)
	s.WriteString(separatorStyle.Render(strings.Repeat("─", sepWidth)))
	s.WriteString("\n")

	s.WriteString(m.renderHints())

	return s.String()
}

// ─── Hint bar ───────────────────────────────────────────────────────────────

func (m model) renderHints() string {
	if m.mode == modeStreaming {
		return hintBarStyle.Render("  Esc cancel")
	}

	if m.cmdMenuOpen {
		matches := matchCommands(m.input.Value())
		if len(matches) > 0 {
			return m.renderCommandMenu(matches)
		}
	}

	if m.followUpsPending {
		return hintBarStyle.Render("  " + m.spinner.View() + " finding related questions   ? for help")
	}
	if m.last != nil && len(m.last.Related) > 0 {
		return hintBarStyle.Render(fmt.Sprintf("  1-%d related question   ? for help", len(m.last.Related)))
	}
	return hintBarStyle.Render("  ? for help")
}

func (m model) renderCommandMenu(matches []slashCmd) string {
	maxLen := 0
	for _, c := range matches {
		maxLen = max(maxLen, len(c.name))
	}

	var lines []string
	for i, c := range matches {
		padded := c.name + strings.Repeat(" ", maxLen-len(c.name))
		if i == m.cmdMenuIdx {
			lines = append(lines, "  "+cmdSelectedNameStyle.Render(padded)+"  "+cmdSelectedDescStyle.Render(c.desc))
		} else {
			lines = append(lines, "  "+cmdNameStyle.Render(padded)+"  "+cmdDescStyle.Render(c.desc))
		}
	}
	lines = append(lines, hintBarStyle.Render("  ↑↓ navigate  Tab/Enter select"))

	return strings.Join(lines, "\n")
}

// matchCommands returns all slash commands matching the command word of
// the input.
func matchCommands(input string) []slashCmd {
	prefix := strings.ToLower(input)
	if prefix == "/" {
		return slashCommands
	}
	if strings.ContainsRune(prefix, ' ') {
		return nil
	}
	var matches []slashCmd
	for _, c := range slashCommands {
		if strings.HasPrefix(c.name, prefix) {
			matches = append(matches, c)
		}
	}
	return matches
}

// ─── Stream lifecycle ───────────────────────────────────────────────────────

func (m model) answerWidth() int {
	if m.width <= 0 {
		return 80
	}
	return max(min(m.width-4, 100), 20)
}

func (m model) renderAnswer(snap answer.Snapshot) string {
	blocks := render.RenderSnapshot(snap, m.highlight)
	return indentText(display.RenderBlocks(blocks, m.answerWidth()), "  ")
}

// setLive shows snap in the live region, sized to the answer but never
// taller than the terminal, and scrolled to its newest line.
func (m *model) setLive(snap answer.Snapshot) {
	m.live = snap
	content := m.renderAnswer(snap)
	m.liveView.Width = max(m.width, 20)
	m.liveView.Height = min(strings.Count(content, "\n")+1, max(m.height-4, 5))
	m.liveView.SetContent(content)
	m.liveView.GotoBottom()
}

func (m model) cancelStream() (tea.Model, tea.Cmd) {
	if sess := m.sessions.Current(); sess != nil {
		m.sessions.End(sess.ID)
		if !m.live.Empty() {
			r := m.newResult(sess.ID, m.live)
			m.last = &r
		}
	}
	var cmds []tea.Cmd
	if !m.live.Empty() {
		cmds = append(cmds, tea.Println(m.renderAnswer(m.live)))
	}
	cmds = append(cmds, tea.Println(warnMsgStyle.Render("  ! Search cancelled.")))

	m.mode = modeIdle
	m.streamCh = nil
	m.live = answer.Snapshot{}
	return m, tea.Sequence(cmds...)
}

func (m model) newResult(id string, snap answer.Snapshot) service.Result {
	return service.Result{
		ID:        id,
		Query:     m.query,
		CreatedAt: time.Now().UTC(),
		Filters:   m.filters.Values(),
		Answer:    strings.TrimSpace(snap.Text),
		Sources:   snap.Sources,
	}
}

func (m model) handleStreamDone(msg streamDoneMsg) (tea.Model, tea.Cmd) {
	m.mode = modeIdle
	m.streamCh = nil
	m.live = answer.Snapshot{}

	var cmds []tea.Cmd
	if !msg.snap.Empty() {
		r := m.newResult(msg.sessionID, msg.snap)
		m.last = &r
		cmds = append(cmds, tea.Println(m.renderAnswer(msg.snap)), tea.Println(""))
	}

	if msg.err != nil {
		m.sessions.End(msg.sessionID)
		m.log.Warn("search failed", zap.String("query", m.query), zap.Error(msg.err))
		cmds = append(cmds, tea.Println(errorMsgStyle.Render("  ✗ "+gemini.UserMessage(msg.err))))
		if !msg.snap.Empty() {
			cmds = append(cmds, tea.Println(dimStyle.Render("    The partial answer above was kept.")))
		}
		return m, tea.Sequence(cmds...)
	}

	if msg.snap.Empty() {
		m.sessions.End(msg.sessionID)
		return m, tea.Println(warnMsgStyle.Render("  ! No answer was returned. Try rephrasing the question."))
	}

	cmds = append(cmds, tea.Println(successMsgStyle.Render(fmt.Sprintf("  ✓ Answered with %d sources", len(msg.snap.Sources)))))

	sess := m.sessions.Current()
	m.followUpsPending = true
	return m, tea.Batch(tea.Sequence(cmds...), fetchFollowUps(m.backend, sess, msg.snap.Text))
}

func (m model) handleFollowUps(msg followUpsMsg) (tea.Model, tea.Cmd) {
	m.sessions.End(msg.sessionID)
	m.followUpsPending = false

	f := msg.result
	if f.Skipped || m.last == nil || m.last.ID != msg.sessionID {
		return m, nil
	}

	r := *m.last
	r.Related = f.Related
	r.Insights = f.Insights
	m.last = &r

	var cmds []tea.Cmd
	if f.RelatedErr != nil {
		m.log.Debug("related questions failed", zap.Error(f.RelatedErr))
	}
	if out := display.RenderRelated(f.Related); out != "" {
		cmds = append(cmds, tea.Println(""), tea.Println(out))
	}
	if f.InsightsErr != nil {
		m.log.Warn("insights failed", zap.Error(f.InsightsErr))
		cmds = append(cmds, tea.Println(dimStyle.Render("  Insights unavailable: "+gemini.UserMessage(f.InsightsErr))))
	} else if f.Insights != nil {
		cmds = append(cmds, tea.Println(dimStyle.Render("  /insights /factcheck /summary /export for more")))
	}
	cmds = append(cmds, tea.Println(""))
	return m, tea.Sequence(cmds...)
}

func (m model) handleConfigChanged(msg configChangedMsg) (tea.Model, tea.Cmd) {
	wait := waitForConfig(m.watcher)
	if msg.cfg == nil || msg.cfg.Equal(m.cfg) {
		return m, wait
	}

	m.cfg = msg.cfg
	m.backend = nil
	filters, err := service.LoadFilters(m.cfg)
	m.filters = filters

	cmds := []tea.Cmd{tea.Println(dimStyle.Render("  ↻ Configuration reloaded from disk."))}
	if err != nil {
		cmds = append(cmds, tea.Println(warnMsgStyle.Render("  ! "+err.Error())))
	}
	return m, tea.Batch(tea.Sequence(cmds...), wait)
}
