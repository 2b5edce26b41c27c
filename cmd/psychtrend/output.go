package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kalambet/psychtrend/internal/flow"
	"github.com/kalambet/psychtrend/internal/pipeline"
	"github.com/kalambet/psychtrend/internal/storage"
)

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorBold    = "\033[1m"
)

// stderr receives status lines; tests swap it out.
var stderr io.Writer = os.Stderr

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// Interview stages keep a stable colour so a long transcript is easy to
// scan. Unknown stages fall back to cyan.
var categoryColors = map[string]string{
	flow.Introduction: colorCyan,
	"education":       colorBlue,
	"career":          colorMagenta,
	"milestones":      colorYellow,
	"habits":          colorGreen,
	"challenges":      colorRed,
	flow.Closing:      colorCyan,
	flow.Complete:     colorGreen,
}

func categoryColor(category string) string {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return colorCyan
}

func notice(color, symbol, format string, args ...any) {
	fmt.Fprintln(stderr, colorize(color, symbol+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { notice(colorGreen, "✓", format, args...) }
func printError(format string, args ...any)   { notice(colorRed, "✗", format, args...) }
func printWarning(format string, args ...any) { notice(colorYellow, "⚠", format, args...) }
func printStep(format string, args ...any)    { notice(colorCyan, "→", format, args...) }

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

// speaker labels a transcript line. The user is shown by name once the
// interview has learned it.
func speaker(role, userName string) string {
	if role != storage.RoleUser {
		return colorize(colorBold, "bot:")
	}
	if userName == "" {
		userName = "you"
	}
	return colorize(colorBold, userName+":")
}

func printTranscript(w io.Writer, view pipeline.SessionView) {
	state := "in progress"
	if view.IsComplete {
		state = "complete"
	}
	fmt.Fprintf(w, "%s  %s  %d answers  %s\n\n",
		colorize(colorCyan, view.ID), colorize(categoryColor(view.CurrentCategory), view.CurrentCategory),
		view.ResponseCount, state)
	for _, m := range view.ConversationHistory {
		fmt.Fprintf(w, "%s %s\n", speaker(m.Role, view.UserName), m.Content)
	}
}

// printReply shows the bot's next message followed by where the interview
// stands.
func printReply(w io.Writer, r pipeline.Reply) {
	fmt.Fprintf(w, "%s %s\n", speaker(storage.RoleAssistant, ""), r.Message)
	if r.IsComplete {
		fmt.Fprintln(w, colorize(colorGreen, "Session complete."))
		return
	}
	fmt.Fprintln(w, colorize(categoryColor(r.Category), fmt.Sprintf("[%s, %.0f%%]", r.Category, r.Progress*100)))
}
