package tui

import (
	"fmt"
	"strings"

	"pulse-cli/internal/config"
)

// ─── Welcome Screen ─────────────────────────────────────────────────────────

const pulseASCIIArt = `
        ╷
       ╱ ╲      ╷
──────╯   ╲    ╱ ╲    ╭──────
           ╲  ╱   ╰──╯
            ╲╱
`

func renderWelcome(version string, cfg *config.Config, profile string, width int) string {
	titleLine := logoTitleStyle.Render("Pulse") + " " + versionStyle.Render("v"+version)

	var infoLine string
	if cfg == nil || cfg.EffectiveAPIKey() == "" {
		infoLine = welcomeHintStyle.Render("Type /key <api-key> to get started")
	} else {
		infoLine = welcomeInfoLabel.Render(fmt.Sprintf("%s · %s · %s",
			config.ProfileName(profile), cfg.ModelName(), cfg.KeySource()))
	}

	return fmt.Sprintf("\n%s\n\n%s\n%s\n", renderLogo(width), titleLine, infoLine)
}

func renderLogo(width int) string {
	lines := trimEmptyEdgeLines(strings.Split(pulseASCIIArt, "\n"))
	for i, line := range lines {
		line = strings.TrimRight(line, " ")
		if width > 0 && len([]rune(line)) > width {
			line = string([]rune(line)[:width])
		}
		lines[i] = logoWaveStyle.Render(line)
	}
	return strings.Join(lines, "\n")
}

func trimEmptyEdgeLines(lines []string) []string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}

	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

// indentText prefixes every line of text.
func indentText(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
