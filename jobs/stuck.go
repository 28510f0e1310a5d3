package jobs

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/moltboard/moltbot/bot"
	"github.com/moltboard/moltbot/db/models"
)

// StuckReport summarizes one stuck-task scan across all boards.
type StuckReport struct {
	Success      bool     `json:"success"`
	TasksChecked int      `json:"tasksChecked"`
	StuckFound   int      `json:"stuckFound"`
	AlertsSent   int      `json:"alertsSent"`
	Errors       []string `json:"errors,omitempty"`
}

type stuckTask struct {
	task     models.Task
	idleDays int
}

// DetectAndAlertStuckTasks scans every active board for in-progress tasks
// whose last activity is at least StuckThresholdDays old and posts one alert
// per task, deduplicated against alerts already sent inside the dedupe
// window. Success means every board was processed cleanly; a run with partial
// failures still alerts for the boards it could read.
func (r *Runner) DetectAndAlertStuckTasks(ctx context.Context) StuckReport {
	report := StuckReport{}
	now := r.now().UTC()

	boards, err := r.store.ListBoards(ctx)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list boards: %v", err))
		return report
	}

	for _, board := range boards {
		stuck, checked, err := r.boardStuckTasks(ctx, board.ID, now)
		report.TasksChecked += checked
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("board %s: %v", board.ID, err))
			continue
		}
		report.StuckFound += len(stuck)

		// Stalest first, capped so one neglected board does not flood the chat.
		sort.Slice(stuck, func(i, j int) bool { return stuck[i].idleDays > stuck[j].idleDays })
		if len(stuck) > r.cfg.MaxAlertsPerBoard {
			stuck = stuck[:r.cfg.MaxAlertsPerBoard]
		}

		for _, st := range stuck {
			sent, err := r.alertStuckTask(ctx, board.ID, st, now)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("board %s task %s: %v", board.ID, st.task.ID, err))
				continue
			}
			if sent {
				report.AlertsSent++
			}
		}
	}

	report.Success = len(report.Errors) == 0
	r.log.Info("stuck_scan_done",
		"tasks_checked", report.TasksChecked,
		"stuck_found", report.StuckFound,
		"alerts_sent", report.AlertsSent,
		"errors", len(report.Errors))
	return report
}

func (r *Runner) boardStuckTasks(ctx context.Context, boardID string, now time.Time) ([]stuckTask, int, error) {
	tasks, err := r.store.ListBoardTasks(ctx, boardID)
	if err != nil {
		return nil, 0, err
	}

	var stuck []stuckTask
	checked := 0
	for _, task := range tasks {
		if task.Archived || !r.inProgressColumn(task.ColumnID) {
			continue
		}
		checked++

		lastAt, err := r.store.LastActivityAt(ctx, task.ID)
		if err != nil {
			return nil, checked, fmt.Errorf("last activity of %s: %w", task.ID, err)
		}
		idle := now.Sub(task.CreatedAt)
		if lastAt != nil {
			idle = now.Sub(*lastAt)
		}
		// Inclusive boundary: idle for exactly the threshold counts as stuck.
		if idle >= time.Duration(r.cfg.StuckThresholdDays)*24*time.Hour {
			stuck = append(stuck, stuckTask{task: task, idleDays: int(idle.Hours() / 24)})
		}
	}
	return stuck, checked, nil
}

func (r *Runner) alertStuckTask(ctx context.Context, boardID string, st stuckTask, now time.Time) (bool, error) {
	recent, err := r.store.HasRecentAlert(ctx, st.task.ID, bot.MetaStuckAlert, now.Add(-r.cfg.AlertDedupeWindow))
	if err != nil {
		return false, err
	}
	if recent {
		return false, nil
	}

	content := fmt.Sprintf(
		"**%s** has been in progress for %d days with no activity. Still on it, or should it move back to the backlog?",
		st.task.Title, st.idleDays)
	_, err = r.messenger.Post(ctx, boardID, content, bot.ProactiveMeta{
		Type:   bot.MetaStuckAlert,
		TaskID: st.task.ID,
		Extra:  map[string]string{"idle_days": strconv.Itoa(st.idleDays)},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
