// Package seed loads demo boards and tasks from a YAML fixture file. It backs
// the `moltbot seed` command; nothing in the runtime path depends on it.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moltboard/moltbot/db/models"
)

type Fixture struct {
	Tenant string  `yaml:"tenant"`
	Boards []Board `yaml:"boards"`
}

type Board struct {
	Title   string   `yaml:"title"`
	Columns []string `yaml:"columns"`
	Tasks   []Task   `yaml:"tasks"`
}

type Task struct {
	Title     string   `yaml:"title"`
	Column    string   `yaml:"column"`
	Priority  string   `yaml:"priority"`
	Labels    []string `yaml:"labels"`
	DueInDays *int     `yaml:"due_in_days"`
	Assignee  string   `yaml:"assignee"`
}

type Store interface {
	InsertBoard(ctx context.Context, board *models.Board) error
	InsertTask(ctx context.Context, task *models.Task) error
}

// Load parses and validates a fixture file.
func Load(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	if strings.TrimSpace(f.Tenant) == "" {
		return fmt.Errorf("fixture: tenant is required")
	}
	if len(f.Boards) == 0 {
		return fmt.Errorf("fixture: at least one board is required")
	}
	for i, b := range f.Boards {
		if strings.TrimSpace(b.Title) == "" {
			return fmt.Errorf("fixture: board %d has no title", i)
		}
		if len(b.Columns) == 0 {
			return fmt.Errorf("fixture: board %q has no columns", b.Title)
		}
		for j, task := range b.Tasks {
			if strings.TrimSpace(task.Title) == "" {
				return fmt.Errorf("fixture: board %q task %d has no title", b.Title, j)
			}
			if !columnExists(b.Columns, task.Column) {
				return fmt.Errorf("fixture: board %q task %q names unknown column %q", b.Title, task.Title, task.Column)
			}
			if task.Priority != "" && !validPriority(task.Priority) {
				return fmt.Errorf("fixture: board %q task %q has invalid priority %q", b.Title, task.Title, task.Priority)
			}
		}
	}
	return nil
}

// Apply writes the fixture's boards and tasks. Tasks land in file order, so
// their per-column sequence stays dense starting at 1.
func (f *Fixture) Apply(ctx context.Context, store Store, now time.Time) (boards, tasks int, err error) {
	for _, spec := range f.Boards {
		board := &models.Board{
			TenantID: f.Tenant,
			Title:    spec.Title,
		}
		for pos, title := range spec.Columns {
			board.Columns = append(board.Columns, models.Column{Title: title, Position: pos})
		}
		if err := store.InsertBoard(ctx, board); err != nil {
			return boards, tasks, fmt.Errorf("board %q: %w", spec.Title, err)
		}
		boards++

		nextOrder := map[string]int{}
		for _, taskSpec := range spec.Tasks {
			columnID := ""
			for _, col := range board.Columns {
				if strings.EqualFold(col.Title, taskSpec.Column) {
					columnID = col.ID
					break
				}
			}
			nextOrder[columnID]++

			task := &models.Task{
				BoardID:       board.ID,
				ColumnID:      columnID,
				Title:         taskSpec.Title,
				Priority:      taskSpec.Priority,
				Labels:        taskSpec.Labels,
				Assignee:      taskSpec.Assignee,
				SortOrder:     nextOrder[columnID],
				CreatedByKind: "system",
				CreatedAt:     now,
			}
			if taskSpec.DueInDays != nil {
				due := now.Add(time.Duration(*taskSpec.DueInDays) * 24 * time.Hour)
				task.DueAt = &due
			}
			if err := store.InsertTask(ctx, task); err != nil {
				return boards, tasks, fmt.Errorf("task %q: %w", taskSpec.Title, err)
			}
			tasks++
		}
	}
	return boards, tasks, nil
}

func columnExists(columns []string, title string) bool {
	for _, c := range columns {
		if strings.EqualFold(c, title) {
			return true
		}
	}
	return false
}

func validPriority(p string) bool {
	switch p {
	case models.PriorityCritical, models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
		return true
	}
	return false
}
