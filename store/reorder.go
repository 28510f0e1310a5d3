package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/moltboard/moltbot/db/models"
)

// MoveTask moves a task to another column at the given zero-based index
// (negative appends). The per-column sort order is dense and contiguous; it is
// violated mid-transaction and restored before commit.
func (s *Store) MoveTask(ctx context.Context, taskID, toColumnID string, toIndex int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Where("id = ?", taskID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
			}
			return err
		}

		// Close the gap in the source column.
		if err := tx.Model(&models.Task{}).
			Where("board_id = ? AND column_id = ? AND sort_order > ?", task.BoardID, task.ColumnID, task.SortOrder).
			UpdateColumn("sort_order", gorm.Expr("sort_order - 1")).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Task{}).
			Where("board_id = ? AND column_id = ? AND id <> ?", task.BoardID, toColumnID, task.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if toIndex < 0 || toIndex > int(count) {
			toIndex = int(count)
		}

		// Open a slot in the destination column.
		if err := tx.Model(&models.Task{}).
			Where("board_id = ? AND column_id = ? AND id <> ? AND sort_order >= ?", task.BoardID, toColumnID, task.ID, toIndex+1).
			UpdateColumn("sort_order", gorm.Expr("sort_order + 1")).Error; err != nil {
			return err
		}

		return tx.Model(&models.Task{}).
			Where("id = ?", task.ID).
			Updates(map[string]any{
				"column_id":  toColumnID,
				"sort_order": toIndex + 1,
			}).Error
	})
}
