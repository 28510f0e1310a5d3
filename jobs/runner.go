package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/moltboard/moltbot/bot"
	"github.com/moltboard/moltbot/db/models"
)

type Store interface {
	ListBoards(ctx context.Context) ([]models.Board, error)
	ListBoardTasks(ctx context.Context, boardID string) ([]models.Task, error)
	LastActivityAt(ctx context.Context, taskID string) (*time.Time, error)
	HasRecentAlert(ctx context.Context, taskID, alertType string, since time.Time) (bool, error)
}

type Messenger interface {
	Post(ctx context.Context, boardID, content string, meta bot.ProactiveMeta) (string, error)
}

// Runner executes the periodic board scans. Boards are iterated one at a
// time; a per-board failure is collected and the scan moves on, so one broken
// board never aborts the whole run.
type Runner struct {
	store     Store
	messenger Messenger
	cfg       Config
	log       *slog.Logger
	now       func() time.Time
}

type Option func(*Runner)

func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRunner(store Store, messenger Messenger, cfg Config, opts ...Option) (*Runner, error) {
	if store == nil {
		return nil, fmt.Errorf("nil store")
	}
	if messenger == nil {
		return nil, fmt.Errorf("nil messenger")
	}
	if cfg.StuckThresholdDays <= 0 {
		cfg.StuckThresholdDays = DefaultConfig().StuckThresholdDays
	}
	if cfg.MaxAlertsPerBoard <= 0 {
		cfg.MaxAlertsPerBoard = DefaultConfig().MaxAlertsPerBoard
	}
	if cfg.AlertDedupeWindow <= 0 {
		cfg.AlertDedupeWindow = DefaultConfig().AlertDedupeWindow
	}
	if cfg.DueSoonDays <= 0 {
		cfg.DueSoonDays = DefaultConfig().DueSoonDays
	}
	r := &Runner{
		store:     store,
		messenger: messenger,
		cfg:       cfg,
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Runner) inProgressColumn(columnID string) bool {
	for _, id := range r.cfg.InProgressColumnIDs {
		if columnID == id {
			return true
		}
	}
	return strings.Contains(strings.ToLower(columnID), "progress")
}
