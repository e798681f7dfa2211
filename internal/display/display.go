package display

import (
	"fmt"
	"os"
	"strings"
)

const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Dim     = "\033[2m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
	Gray    = "\033[90m"
)

func Header(text string) {
	fmt.Printf("\n%s%s%s\n", Bold+Cyan, text, Reset)
	fmt.Println(strings.Repeat("─", min(len(text)+4, 80)))
}

func SubHeader(text string) {
	fmt.Printf("%s%s%s\n", Bold+White, text, Reset)
}

func Success(text string) {
	fmt.Printf("%s✓%s %s\n", Green, Reset, text)
}

func Error(text string) {
	fmt.Fprintf(os.Stderr, "%s✗%s %s\n", Red, Reset, text)
}

func Warn(text string) {
	fmt.Printf("%s!%s %s\n", Yellow, Reset, text)
}

func Info(label, value string) {
	fmt.Printf("  %s%-20s%s %s\n", Dim, label, Reset, value)
}

func Spinner(text string) {
	fmt.Printf("\r%s⟳%s %s", Yellow, Reset, text)
}

func ClearLine() {
	fmt.Print("\r\033[K")
}

// SentimentLabel colors an answer's overall sentiment.
func SentimentLabel(s string) string {
	labels := map[string]string{
		"Positive": Green + "▲ Positive" + Reset,
		"Neutral":  Gray + "● Neutral" + Reset,
		"Negative": Red + "▼ Negative" + Reset,
		"Mixed":    Yellow + "◆ Mixed" + Reset,
	}
	if label, ok := labels[s]; ok {
		return label
	}
	return Gray + s + Reset
}

func TrendinessLabel(s string) string {
	labels := map[string]string{
		"Trending":    Magenta + "🔥 Trending" + Reset,
		"Stable":      Blue + "Stable" + Reset,
		"Niche":       Cyan + "Niche" + Reset,
		"Unspecified": Gray + "Unspecified" + Reset,
	}
	if label, ok := labels[s]; ok {
		return label
	}
	return Gray + s + Reset
}

// ConfidenceLabel colors a fact-check's overall confidence.
func ConfidenceLabel(c string) string {
	labels := map[string]string{
		"High":        Green + "✓ High" + Reset,
		"Medium":      Yellow + "~ Medium" + Reset,
		"Conflicting": Red + "⚠ Conflicting" + Reset,
	}
	if label, ok := labels[c]; ok {
		return label
	}
	return c
}

func ClaimStatusLabel(status string) string {
	labels := map[string]string{
		"Well-supported": Green + "✓ Well-supported" + Reset,
		"Single source":  Yellow + "◐ Single source" + Reset,
		"Conflicting":    Red + "✗ Conflicting" + Reset,
	}
	if label, ok := labels[status]; ok {
		return label
	}
	return status
}
