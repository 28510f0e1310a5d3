package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/moltboard/moltbot/actor"
	"github.com/moltboard/moltbot/db/models"
	"github.com/moltboard/moltbot/intent"
)

// ErrNoDestination means neither the board's columns nor the configured
// fallback yielded an insertion column. Callers must surface this; it is never
// swallowed into a default.
var ErrNoDestination = errors.New("no destination column resolvable")

type Store interface {
	MessageStore
	FindBoard(ctx context.Context, id string) (*models.Board, error)
	MaxTaskOrder(ctx context.Context, boardID, columnID string) (int, error)
	InsertTask(ctx context.Context, task *models.Task) error
	InsertActivity(ctx context.Context, activity *models.Activity) error
}

type Config struct {
	// FallbackColumnID is used only when a board has no resolvable column.
	// Empty means "fail with ErrNoDestination instead".
	FallbackColumnID string

	// MinConfidence is the materialization policy boundary: intents below it
	// are suggestion-only. Default medium.
	MinConfidence intent.Confidence
}

func DefaultConfig() Config {
	return Config{MinConfidence: intent.ConfidenceMedium}
}

// Materializer turns an accepted intent into a persisted task plus exactly
// one "created" activity record.
type Materializer struct {
	store Store
	cfg   Config
	log   *slog.Logger
	now   func() time.Time
}

func NewMaterializer(store Store, cfg Config, log *slog.Logger, now func() time.Time) (*Materializer, error) {
	if store == nil {
		return nil, fmt.Errorf("nil store")
	}
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Materializer{store: store, cfg: cfg, log: log, now: now}, nil
}

// Create resolves the insertion column, appends the task at the end of it and
// logs the creation. Order is append-only: no other task is renumbered.
func (m *Materializer) Create(ctx context.Context, boardID string, it intent.Intent, author actor.Actor) (*models.Task, error) {
	columnID, err := m.resolveColumn(ctx, boardID)
	if err != nil {
		return nil, err
	}

	maxOrder, err := m.store.MaxTaskOrder(ctx, boardID, columnID)
	if err != nil {
		return nil, err
	}

	priority := string(it.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}

	task := &models.Task{
		BoardID:       boardID,
		ColumnID:      columnID,
		Title:         it.Title,
		SortOrder:     maxOrder + 1,
		Labels:        it.Labels,
		Priority:      priority,
		DueAt:         it.DueAt,
		CreatedByKind: string(author.Kind),
		CreatedByUser: author.UserID,
	}
	if err := m.store.InsertTask(ctx, task); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	activity := &models.Activity{
		TaskID:    task.ID,
		BoardID:   boardID,
		Action:    models.ActionCreated,
		ActorKind: string(author.Kind),
		ActorUser: author.UserID,
		Details: map[string]string{
			"confidence": string(it.Confidence),
			"context":    it.Context,
		},
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.InsertActivity(ctx, activity); err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}

	m.log.Info("task_materialized",
		"task_id", task.ID, "board_id", boardID, "column_id", columnID,
		"confidence", string(it.Confidence), "context", it.Context)
	return task, nil
}

var todoColumnFragments = []string{"to do", "todo", "backlog"}

// resolveColumn prefers a todo-like column, then the board's first column,
// then the configured fallback.
func (m *Materializer) resolveColumn(ctx context.Context, boardID string) (string, error) {
	board, err := m.store.FindBoard(ctx, boardID)
	if err != nil {
		if m.cfg.FallbackColumnID != "" {
			m.log.Warn("board_unresolvable_using_fallback", "board_id", boardID, "column_id", m.cfg.FallbackColumnID)
			return m.cfg.FallbackColumnID, nil
		}
		return "", fmt.Errorf("board %s: %w", boardID, ErrNoDestination)
	}

	for _, col := range board.Columns {
		title := strings.ToLower(col.Title)
		for _, fragment := range todoColumnFragments {
			if strings.Contains(title, fragment) && col.ID != "" {
				return col.ID, nil
			}
		}
	}
	for _, col := range board.Columns {
		if col.ID != "" {
			return col.ID, nil
		}
	}
	if m.cfg.FallbackColumnID != "" {
		m.log.Warn("board_has_no_columns_using_fallback", "board_id", boardID, "column_id", m.cfg.FallbackColumnID)
		return m.cfg.FallbackColumnID, nil
	}
	return "", fmt.Errorf("board %s has no columns: %w", boardID, ErrNoDestination)
}
