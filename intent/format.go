package intent

import (
	"fmt"
	"strings"
	"time"
)

// FormatConfirmation renders the bot's reply after an intent was (or was not)
// turned into a task. Markdown, single line.
func FormatConfirmation(it Intent) string {
	if it.Action != ActionCreate || strings.TrimSpace(it.Title) == "" {
		return "Noted."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Created task **%s**", it.Title)

	details := make([]string, 0, 3)
	if it.DueAt != nil {
		details = append(details, "due "+FormatDue(*it.DueAt))
	}
	if it.Priority != "" {
		details = append(details, "priority "+string(it.Priority))
	}
	if len(it.Labels) > 0 {
		details = append(details, "labeled "+strings.Join(it.Labels, ", "))
	}
	if len(details) > 0 {
		b.WriteString(" (" + strings.Join(details, ", ") + ")")
	}
	return b.String()
}

// FormatSuggestion renders the reply for a low-confidence intent that was not
// materialized: a nudge, not a confirmation.
func FormatSuggestion(it Intent) string {
	if strings.TrimSpace(it.Title) == "" {
		return ""
	}
	return fmt.Sprintf("Sounds like a task: **%s**. Say `add task: %s` and I'll track it.", it.Title, it.Title)
}

func FormatDue(t time.Time) string {
	return t.Format("Mon Jan 2, 15:04")
}
