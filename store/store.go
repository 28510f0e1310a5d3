// Package store is the gorm-backed persistence collaborator for the
// automation pipeline. Consumers depend on the semantic operations here, never
// on raw queries.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/moltboard/moltbot/db/models"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *gorm.DB
}

func New(gdb *gorm.DB) (*Store, error) {
	if gdb == nil {
		return nil, fmt.Errorf("nil db")
	}
	return &Store{db: gdb}, nil
}

func (s *Store) InsertBoard(ctx context.Context, board *models.Board) error {
	return s.db.WithContext(ctx).Create(board).Error
}

func (s *Store) FindBoard(ctx context.Context, id string) (*models.Board, error) {
	var board models.Board
	err := s.db.WithContext(ctx).
		Preload("Columns", func(tx *gorm.DB) *gorm.DB { return tx.Order("position asc") }).
		Where("id = ?", id).
		First(&board).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("board %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &board, nil
}

// ListBoards returns all non-archived boards with their columns.
func (s *Store) ListBoards(ctx context.Context) ([]models.Board, error) {
	var boards []models.Board
	err := s.db.WithContext(ctx).
		Preload("Columns", func(tx *gorm.DB) *gorm.DB { return tx.Order("position asc") }).
		Where("archived = ?", false).
		Order("created_at asc").
		Find(&boards).Error
	return boards, err
}

func (s *Store) FindTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// FindTaskByRef resolves a title fragment (command-bar task reference) to a
// single non-archived task on the board. The oldest match wins.
func (s *Store) FindTaskByRef(ctx context.Context, boardID, ref string) (*models.Task, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty task reference: %w", ErrNotFound)
	}
	var task models.Task
	err := s.db.WithContext(ctx).
		Where("board_id = ? AND archived = ?", boardID, false).
		Where("title LIKE ?", "%"+ref+"%").
		Order("created_at asc").
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("task %q: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *Store) InsertTask(ctx context.Context, task *models.Task) error {
	return s.db.WithContext(ctx).Create(task).Error
}

// ListBoardTasks returns the board's non-archived tasks, column order first.
func (s *Store) ListBoardTasks(ctx context.Context, boardID string) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Where("board_id = ? AND archived = ?", boardID, false).
		Order("column_id asc, sort_order asc").
		Find(&tasks).Error
	return tasks, err
}

func (s *Store) ListColumnTasks(ctx context.Context, boardID, columnID string) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Where("board_id = ? AND column_id = ? AND archived = ?", boardID, columnID, false).
		Order("sort_order asc").
		Find(&tasks).Error
	return tasks, err
}

// MaxTaskOrder returns the highest sort order in a column, 0 when empty.
func (s *Store) MaxTaskOrder(ctx context.Context, boardID, columnID string) (int, error) {
	var max int
	err := s.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("board_id = ? AND column_id = ?", boardID, columnID).
		Select("COALESCE(MAX(sort_order), 0)").
		Scan(&max).Error
	return max, err
}

func (s *Store) UpdateTaskPriority(ctx context.Context, id, priority string) error {
	return s.updateTask(ctx, id, map[string]any{"priority": priority})
}

func (s *Store) UpdateTaskDue(ctx context.Context, id string, dueAt *time.Time) error {
	return s.updateTask(ctx, id, map[string]any{"due_at": dueAt})
}

func (s *Store) ArchiveTask(ctx context.Context, id string, by string, now time.Time) error {
	return s.updateTask(ctx, id, map[string]any{
		"archived":    true,
		"archived_at": now,
		"archived_by": by,
	})
}

func (s *Store) updateTask(ctx context.Context, id string, updates map[string]any) error {
	res := s.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) InsertActivity(ctx context.Context, activity *models.Activity) error {
	return s.db.WithContext(ctx).Create(activity).Error
}

// LastActivityAt returns the newest activity timestamp for a task, nil when
// the task has no activity yet.
func (s *Store) LastActivityAt(ctx context.Context, taskID string) (*time.Time, error) {
	var activity models.Activity
	err := s.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at desc").
		First(&activity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	at := activity.CreatedAt
	return &at, nil
}

func (s *Store) InsertChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

func (s *Store) UpdateChatMessageStatus(ctx context.Context, id, status string) error {
	return s.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// HasRecentAlert reports whether an agent-authored alert of the given subtype
// already exists for the task since the cutoff. This is the read side of the
// time-windowed idempotence check; it carries no transactional guarantee.
func (s *Store) HasRecentAlert(ctx context.Context, taskID, alertType string, since time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("task_id = ? AND meta_type = ? AND created_at >= ?", taskID, alertType, since).
		Count(&count).Error
	return count > 0, err
}
