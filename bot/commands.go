package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/moltboard/moltbot/actor"
	"github.com/moltboard/moltbot/command"
	"github.com/moltboard/moltbot/db/models"
	"github.com/moltboard/moltbot/intent"
)

type CommandStore interface {
	Store
	FindTaskByRef(ctx context.Context, boardID, ref string) (*models.Task, error)
	MoveTask(ctx context.Context, taskID, toColumnID string, toIndex int) error
	UpdateTaskPriority(ctx context.Context, id, priority string) error
	UpdateTaskDue(ctx context.Context, id string, dueAt *time.Time) error
	ArchiveTask(ctx context.Context, id string, by string, now time.Time) error
	ListBoardTasks(ctx context.Context, boardID string) ([]models.Task, error)
}

// CommandExecutor applies parsed command-bar commands against a board and
// returns the reply text the surrounding UI renders.
type CommandExecutor struct {
	store        CommandStore
	materializer *Materializer
	log          *slog.Logger
	now          func() time.Time
}

func NewCommandExecutor(store CommandStore, cfg Config, log *slog.Logger, now func() time.Time) (*CommandExecutor, error) {
	if store == nil {
		return nil, fmt.Errorf("nil store")
	}
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	materializer, err := NewMaterializer(store, cfg, log, now)
	if err != nil {
		return nil, err
	}
	return &CommandExecutor{store: store, materializer: materializer, log: log, now: now}, nil
}

// Execute runs one parsed command. Unknown commands return the help text;
// unresolvable task references return an error the UI shows verbatim.
func (e *CommandExecutor) Execute(ctx context.Context, boardID string, cmd command.Command, author actor.Actor) (string, error) {
	switch cmd.Kind {
	case command.KindCreate:
		ex := intent.Extract(cmd.TaskRef, e.now())
		task, err := e.materializer.Create(ctx, boardID, intent.Intent{
			Action:     intent.ActionCreate,
			Confidence: intent.ConfidenceHigh,
			Title:      ex.Remainder,
			DueAt:      ex.DueAt,
			Priority:   ex.Priority,
			Context:    "command",
		}, author)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Created **%s**", task.Title), nil

	case command.KindMove:
		return e.move(ctx, boardID, cmd.TaskRef, cmd.Params["column"], author)

	case command.KindComplete:
		return e.move(ctx, boardID, cmd.TaskRef, string(command.CategoryDone), author)

	case command.KindPriority:
		task, err := e.store.FindTaskByRef(ctx, boardID, cmd.TaskRef)
		if err != nil {
			return "", err
		}
		priority := cmd.Params["priority"]
		fromPriority := task.Priority
		if err := e.store.UpdateTaskPriority(ctx, task.ID, priority); err != nil {
			return "", err
		}
		e.logActivity(ctx, task, models.ActionPriorityChanged, author, map[string]string{
			"from": fromPriority, "to": priority,
		})
		return fmt.Sprintf("Set **%s** to %s priority", task.Title, priority), nil

	case command.KindDue:
		task, err := e.store.FindTaskByRef(ctx, boardID, cmd.TaskRef)
		if err != nil {
			return "", err
		}
		due, ok := parseDuePhrase(cmd.Params["due"], e.now())
		if !ok {
			return "", fmt.Errorf("unrecognized due date %q", cmd.Params["due"])
		}
		if err := e.store.UpdateTaskDue(ctx, task.ID, &due); err != nil {
			return "", err
		}
		e.logActivity(ctx, task, models.ActionDueChanged, author, map[string]string{
			"to": due.Format(time.RFC3339),
		})
		return fmt.Sprintf("**%s** is due %s", task.Title, intent.FormatDue(due)), nil

	case command.KindArchive:
		task, err := e.store.FindTaskByRef(ctx, boardID, cmd.TaskRef)
		if err != nil {
			return "", err
		}
		if err := e.store.ArchiveTask(ctx, task.ID, string(author.Kind), e.now().UTC()); err != nil {
			return "", err
		}
		e.logActivity(ctx, task, models.ActionArchived, author, nil)
		return fmt.Sprintf("Archived **%s**", task.Title), nil

	case command.KindList, command.KindQuery:
		return e.list(ctx, boardID, cmd.Params)

	default:
		return helpText, nil
	}
}

func (e *CommandExecutor) move(ctx context.Context, boardID, ref, columnText string, author actor.Actor) (string, error) {
	task, err := e.store.FindTaskByRef(ctx, boardID, ref)
	if err != nil {
		return "", err
	}
	board, err := e.store.FindBoard(ctx, boardID)
	if err != nil {
		return "", err
	}
	dest, err := resolveBoardColumn(board, columnText)
	if err != nil {
		return "", err
	}
	fromColumn := task.ColumnID
	if err := e.store.MoveTask(ctx, task.ID, dest.ID, -1); err != nil {
		return "", err
	}
	action := models.ActionMoved
	if cat, ok := command.ResolveColumnCategory(dest.Title); ok && cat == command.CategoryDone {
		action = models.ActionCompleted
	}
	e.logActivity(ctx, task, action, author, map[string]string{
		"from": fromColumn, "to": dest.ID,
	})
	return fmt.Sprintf("Moved **%s** to %s", task.Title, dest.Title), nil
}

func (e *CommandExecutor) list(ctx context.Context, boardID string, params map[string]string) (string, error) {
	tasks, err := e.store.ListBoardTasks(ctx, boardID)
	if err != nil {
		return "", err
	}
	board, err := e.store.FindBoard(ctx, boardID)
	if err != nil {
		return "", err
	}

	wantPriority := params["priority"]
	wantColumn := params["column"]

	var b strings.Builder
	count := 0
	for _, task := range tasks {
		if wantPriority != "" && task.Priority != wantPriority {
			continue
		}
		if wantColumn != "" && !columnMatchesCategory(board, task.ColumnID, command.ColumnCategory(wantColumn)) {
			continue
		}
		count++
		fmt.Fprintf(&b, "- %s", task.Title)
		if task.Priority != "" {
			fmt.Fprintf(&b, " [%s]", task.Priority)
		}
		if task.DueAt != nil {
			fmt.Fprintf(&b, " (due %s)", intent.FormatDue(*task.DueAt))
		}
		b.WriteString("\n")
	}
	if count == 0 {
		return "No matching tasks.", nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (e *CommandExecutor) logActivity(ctx context.Context, task *models.Task, action string, author actor.Actor, details map[string]string) {
	err := e.store.InsertActivity(ctx, &models.Activity{
		TaskID:    task.ID,
		BoardID:   task.BoardID,
		Action:    action,
		ActorKind: string(author.Kind),
		ActorUser: author.UserID,
		Details:   details,
		CreatedAt: e.now().UTC(),
	})
	if err != nil {
		e.log.Warn("activity_write_error", "task_id", task.ID, "action", action, "error", err.Error())
	}
}

// resolveBoardColumn maps command text ("done", "doing", "qa") onto one of the
// board's actual columns via the canonical category of each column title.
func resolveBoardColumn(board *models.Board, columnText string) (*models.Column, error) {
	want, ok := command.ResolveColumnCategory(columnText)
	if !ok {
		return nil, fmt.Errorf("unrecognized column %q", columnText)
	}
	for i := range board.Columns {
		col := &board.Columns[i]
		if cat, ok := command.ResolveColumnCategory(col.Title); ok && cat == want {
			return col, nil
		}
	}
	return nil, fmt.Errorf("board has no %s column", want)
}

func columnMatchesCategory(board *models.Board, columnID string, want command.ColumnCategory) bool {
	for _, col := range board.Columns {
		if col.ID != columnID {
			continue
		}
		cat, ok := command.ResolveColumnCategory(col.Title)
		return ok && cat == want
	}
	return false
}

// parseDuePhrase accepts the same date vocabulary as the extractor, with or
// without the leading "by".
func parseDuePhrase(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if ex := intent.Extract(raw, now); ex.DueAt != nil {
		return *ex.DueAt, true
	}
	if ex := intent.Extract("by "+raw, now); ex.DueAt != nil {
		return *ex.DueAt, true
	}
	return time.Time{}, false
}

const helpText = "Try: `add task: <title>`, `move <task> to <column>`, " +
	"`set priority of <task> to high`, `set due date of <task> to friday`, " +
	"`complete <task>`, `archive <task>`, `list <column|priority>`"
