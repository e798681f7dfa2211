package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"pulse-cli/internal/config"
	"pulse-cli/internal/gemini"
	"pulse-cli/internal/search"
	"pulse-cli/internal/service"
)

// Run launches the interactive TUI mode (inline, above the shell prompt).
func Run(version, profile string, log *zap.Logger) error {
	cfg, err := config.Load(profile)
	if err != nil {
		return err
	}

	var holder gemini.Holder
	newBackend := func(c *config.Config) (search.Backend, error) {
		svc, err := service.NewBackend(&holder, c, log)
		if err != nil {
			return nil, err
		}
		return svc, nil
	}

	m := initialModel(version, profile, cfg, newBackend, log)

	// edits made outside the session, such as a rotated key, apply live
	if w, err := config.Watch(profile); err != nil {
		log.Warn("config watch unavailable", zap.Error(err))
	} else {
		defer w.Close()
		m.watcher = w
	}

	p := tea.NewProgram(m)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
