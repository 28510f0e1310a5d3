package store

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/moltboard/moltbot/db"
	"github.com/moltboard/moltbot/db/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s, err := New(gdb)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func seedBoard(t *testing.T, s *Store) *models.Board {
	t.Helper()
	board := &models.Board{
		TenantID: "t1",
		Title:    "Launch",
		Columns: []models.Column{
			{ID: "col-todo", Title: "To Do", Position: 0},
			{ID: "col-progress", Title: "In Progress", Position: 1},
			{ID: "col-done", Title: "Done", Position: 2},
		},
	}
	if err := s.InsertBoard(context.Background(), board); err != nil {
		t.Fatalf("insert board: %v", err)
	}
	return board
}

func TestFindBoardPreloadsColumns(t *testing.T) {
	s := testStore(t)
	board := seedBoard(t, s)

	got, err := s.FindBoard(context.Background(), board.ID)
	if err != nil {
		t.Fatalf("find board: %v", err)
	}
	if len(got.Columns) != 3 {
		t.Fatalf("columns = %d, want 3", len(got.Columns))
	}
	if got.Columns[0].ID != "col-todo" {
		t.Fatalf("first column = %q, want col-todo", got.Columns[0].ID)
	}
}

func TestMaxTaskOrder(t *testing.T) {
	s := testStore(t)
	board := seedBoard(t, s)
	ctx := context.Background()

	if max, err := s.MaxTaskOrder(ctx, board.ID, "col-todo"); err != nil || max != 0 {
		t.Fatalf("empty column max = %d, err = %v", max, err)
	}

	for i := 1; i <= 3; i++ {
		task := &models.Task{
			BoardID: board.ID, ColumnID: "col-todo",
			Title: "task", SortOrder: i, CreatedByKind: "human",
		}
		if err := s.InsertTask(ctx, task); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if max, err := s.MaxTaskOrder(ctx, board.ID, "col-todo"); err != nil || max != 3 {
		t.Fatalf("max = %d, err = %v, want 3", max, err)
	}
}

func TestMoveTaskKeepsOrdersDense(t *testing.T) {
	s := testStore(t)
	board := seedBoard(t, s)
	ctx := context.Background()

	ids := make([]string, 0, 3)
	for i := 1; i <= 3; i++ {
		task := &models.Task{
			BoardID: board.ID, ColumnID: "col-todo",
			Title: "task", SortOrder: i, CreatedByKind: "human",
		}
		if err := s.InsertTask(ctx, task); err != nil {
			t.Fatalf("insert: %v", err)
		}
		ids = append(ids, task.ID)
	}

	// Move the middle task to the in-progress column.
	if err := s.MoveTask(ctx, ids[1], "col-progress", -1); err != nil {
		t.Fatalf("move: %v", err)
	}

	todo, err := s.ListColumnTasks(ctx, board.ID, "col-todo")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(todo) != 2 {
		t.Fatalf("todo tasks = %d, want 2", len(todo))
	}
	for i, task := range todo {
		if task.SortOrder != i+1 {
			t.Fatalf("todo[%d].SortOrder = %d, want %d", i, task.SortOrder, i+1)
		}
	}

	progress, err := s.ListColumnTasks(ctx, board.ID, "col-progress")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(progress) != 1 || progress[0].SortOrder != 1 {
		t.Fatalf("progress tasks = %+v", progress)
	}
}

func TestLastActivityAt(t *testing.T) {
	s := testStore(t)
	board := seedBoard(t, s)
	ctx := context.Background()

	task := &models.Task{BoardID: board.ID, ColumnID: "col-todo", Title: "t", SortOrder: 1, CreatedByKind: "human"}
	if err := s.InsertTask(ctx, task); err != nil {
		t.Fatalf("insert: %v", err)
	}

	at, err := s.LastActivityAt(ctx, task.ID)
	if err != nil {
		t.Fatalf("last activity: %v", err)
	}
	if at != nil {
		t.Fatalf("expected nil before any activity, got %v", at)
	}

	if err := s.InsertActivity(ctx, &models.Activity{
		TaskID: task.ID, BoardID: board.ID,
		Action: models.ActionCreated, ActorKind: "human",
	}); err != nil {
		t.Fatalf("insert activity: %v", err)
	}

	at, err = s.LastActivityAt(ctx, task.ID)
	if err != nil || at == nil {
		t.Fatalf("last activity = %v, err = %v", at, err)
	}
}

func TestHasRecentAlert(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	ok, err := s.HasRecentAlert(ctx, "task-1", "stuck-task-alert", now.Add(-24*time.Hour))
	if err != nil || ok {
		t.Fatalf("expected no alert, got ok=%v err=%v", ok, err)
	}

	if err := s.InsertChatMessage(ctx, &models.ChatMessage{
		BoardID: "b1", AuthorKind: "agent", Content: "alert",
		TaskID: "task-1", MetaType: "stuck-task-alert",
	}); err != nil {
		t.Fatalf("insert message: %v", err)
	}

	ok, err = s.HasRecentAlert(ctx, "task-1", "stuck-task-alert", now.Add(-24*time.Hour))
	if err != nil || !ok {
		t.Fatalf("expected alert, got ok=%v err=%v", ok, err)
	}

	// Different subtype must not match.
	ok, err = s.HasRecentAlert(ctx, "task-1", "daily-briefing", now.Add(-24*time.Hour))
	if err != nil || ok {
		t.Fatalf("subtype leak: ok=%v err=%v", ok, err)
	}
}

func TestUpdateIntegrationStatus(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	integ := &models.Integration{
		TenantID: "t1", Name: "openclaw", WebhookURL: "https://gateway.example/hook",
		APIKeyHash: "x", APIKeyPrefix: "mb_12345678", Status: models.IntegrationPending,
	}
	if err := s.InsertIntegration(ctx, integ); err != nil {
		t.Fatalf("insert: %v", err)
	}

	msg := "boom"
	if err := s.UpdateIntegrationStatus(ctx, integ.ID, models.IntegrationError, &msg); err != nil {
		t.Fatalf("update error status: %v", err)
	}
	got, err := s.FindIntegration(ctx, integ.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != models.IntegrationError || got.LastError == nil || *got.LastError != "boom" || got.LastErrorAt == nil {
		t.Fatalf("error bookkeeping not recorded: %+v", got)
	}

	if err := s.UpdateIntegrationStatus(ctx, integ.ID, models.IntegrationConnected, nil); err != nil {
		t.Fatalf("update connected status: %v", err)
	}
	got, err = s.FindIntegration(ctx, integ.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != models.IntegrationConnected {
		t.Fatalf("status = %q", got.Status)
	}
	if got.LastError != nil || got.LastErrorAt != nil {
		t.Fatalf("error fields not cleared: %+v", got)
	}
	if got.MessagesSent != 1 || got.LastConnectedAt == nil || got.LastMessageAt == nil {
		t.Fatalf("connected bookkeeping missing: %+v", got)
	}
}
