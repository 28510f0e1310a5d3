package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/moltboard/moltbot/bot"
	"github.com/moltboard/moltbot/db/models"
)

// BriefingReport summarizes one daily-briefing run across all boards.
type BriefingReport struct {
	Success         bool     `json:"success"`
	BoardsProcessed int      `json:"boardsProcessed"`
	MessagesPosted  int      `json:"messagesPosted"`
	Errors          []string `json:"errors,omitempty"`
}

type boardStats struct {
	total      int
	inProgress int
	overdue    []models.Task
	dueToday   []models.Task
	dueSoon    []models.Task
	stuck      []stuckTask
	noDueDate  int
}

// GenerateDailyBriefings posts one morning summary per board: headline
// counts, the stalest tasks, a short focus list, and at most a couple of
// nudges. Boards with no open tasks are skipped rather than sent an empty
// digest.
func (r *Runner) GenerateDailyBriefings(ctx context.Context) BriefingReport {
	report := BriefingReport{}
	now := r.now().UTC()

	boards, err := r.store.ListBoards(ctx)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list boards: %v", err))
		return report
	}

	for _, board := range boards {
		report.BoardsProcessed++
		content, err := r.boardBriefing(ctx, board, now)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("board %s: %v", board.ID, err))
			continue
		}
		if content == "" {
			continue
		}
		_, err = r.messenger.Post(ctx, board.ID, content, bot.ProactiveMeta{Type: bot.MetaDailyBriefing})
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("board %s: post: %v", board.ID, err))
			continue
		}
		report.MessagesPosted++
	}

	report.Success = len(report.Errors) == 0
	r.log.Info("briefing_run_done",
		"boards_processed", report.BoardsProcessed,
		"messages_posted", report.MessagesPosted,
		"errors", len(report.Errors))
	return report
}

func (r *Runner) boardBriefing(ctx context.Context, board models.Board, now time.Time) (string, error) {
	stats, err := r.collectBoardStats(ctx, board.ID, now)
	if err != nil {
		return "", err
	}
	if stats.total == 0 {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Daily briefing — %s\n\n", board.Title)
	fmt.Fprintf(&b, "%d open tasks, %d in progress.", stats.total, stats.inProgress)
	if n := len(stats.overdue); n > 0 {
		fmt.Fprintf(&b, " %d overdue.", n)
	}
	if n := len(stats.dueToday); n > 0 {
		fmt.Fprintf(&b, " %d due today.", n)
	}
	if n := len(stats.dueSoon); n > 0 {
		fmt.Fprintf(&b, " %d due in the next %d days.", n, r.cfg.DueSoonDays)
	}
	b.WriteString("\n")

	if len(stats.stuck) > 0 {
		sort.Slice(stats.stuck, func(i, j int) bool { return stats.stuck[i].idleDays > stats.stuck[j].idleDays })
		limit := r.cfg.StuckLimit
		if limit <= 0 || limit > len(stats.stuck) {
			limit = len(stats.stuck)
		}
		b.WriteString("\n**Stuck**\n")
		for _, st := range stats.stuck[:limit] {
			fmt.Fprintf(&b, "- %s (%d days idle)\n", st.task.Title, st.idleDays)
		}
	}

	if focus := r.focusList(stats, now); len(focus) > 0 {
		b.WriteString("\n**Focus today**\n")
		for _, task := range focus {
			fmt.Fprintf(&b, "- %s", task.Title)
			if task.Priority == models.PriorityCritical || task.Priority == models.PriorityHigh {
				fmt.Fprintf(&b, " [%s]", task.Priority)
			}
			if task.DueAt != nil && task.DueAt.Before(now) {
				b.WriteString(" (overdue)")
			}
			b.WriteString("\n")
		}
	}

	if suggestions := r.suggestions(stats); len(suggestions) > 0 {
		b.WriteString("\n")
		for _, s := range suggestions {
			fmt.Fprintf(&b, "_%s_\n", s)
		}
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Runner) collectBoardStats(ctx context.Context, boardID string, now time.Time) (boardStats, error) {
	var stats boardStats

	tasks, err := r.store.ListBoardTasks(ctx, boardID)
	if err != nil {
		return stats, err
	}

	dayEnd := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	soonEnd := dayEnd.Add(time.Duration(r.cfg.DueSoonDays-1) * 24 * time.Hour)

	for _, task := range tasks {
		if task.Archived {
			continue
		}
		stats.total++
		inProgress := r.inProgressColumn(task.ColumnID)
		if inProgress {
			stats.inProgress++

			lastAt, err := r.store.LastActivityAt(ctx, task.ID)
			if err != nil {
				return stats, fmt.Errorf("last activity of %s: %w", task.ID, err)
			}
			idle := now.Sub(task.CreatedAt)
			if lastAt != nil {
				idle = now.Sub(*lastAt)
			}
			if idle >= time.Duration(r.cfg.StuckThresholdDays)*24*time.Hour {
				stats.stuck = append(stats.stuck, stuckTask{task: task, idleDays: int(idle.Hours() / 24)})
			}
		}

		switch {
		case task.DueAt == nil:
			stats.noDueDate++
		case task.DueAt.Before(now):
			stats.overdue = append(stats.overdue, task)
		case task.DueAt.Before(dayEnd):
			stats.dueToday = append(stats.dueToday, task)
		case task.DueAt.Before(soonEnd):
			stats.dueSoon = append(stats.dueSoon, task)
		}
	}
	return stats, nil
}

// focusList picks up to FocusLimit tasks worth surfacing: critical and high
// priority first, then whatever is overdue, each task at most once.
func (r *Runner) focusList(stats boardStats, now time.Time) []models.Task {
	limit := r.cfg.FocusLimit
	if limit <= 0 {
		return nil
	}

	seen := map[string]bool{}
	var focus []models.Task
	add := func(task models.Task) {
		if len(focus) >= limit || seen[task.ID] {
			return
		}
		seen[task.ID] = true
		focus = append(focus, task)
	}

	pool := make([]models.Task, 0, len(stats.overdue)+len(stats.dueToday)+len(stats.dueSoon))
	pool = append(pool, stats.overdue...)
	pool = append(pool, stats.dueToday...)
	pool = append(pool, stats.dueSoon...)

	for _, priority := range []string{models.PriorityCritical, models.PriorityHigh} {
		for _, task := range pool {
			if task.Priority == priority {
				add(task)
			}
		}
	}
	for _, task := range stats.overdue {
		add(task)
	}
	return focus
}

func (r *Runner) suggestions(stats boardStats) []string {
	limit := r.cfg.SuggestionLimit
	if limit <= 0 {
		return nil
	}

	var out []string
	add := func(s string) {
		if len(out) < limit {
			out = append(out, s)
		}
	}

	if r.cfg.InProgressSoftCap > 0 && stats.inProgress > r.cfg.InProgressSoftCap {
		add(fmt.Sprintf("%d tasks are in progress at once. Finishing a couple before starting new ones keeps the column honest.", stats.inProgress))
	}
	if len(stats.stuck) > 0 {
		add(fmt.Sprintf("%d in-progress tasks have gone quiet. Worth a check-in.", len(stats.stuck)))
	}
	if len(stats.overdue) > 0 {
		add(fmt.Sprintf("%d tasks are past their due date. Reschedule or close them out.", len(stats.overdue)))
	}
	if stats.total > 0 && stats.noDueDate*2 > stats.total {
		add("Most open tasks have no due date. Adding a few makes the briefing sharper.")
	}
	return out
}
