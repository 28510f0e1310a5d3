package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/moltboard/moltbot/actor"
	"github.com/moltboard/moltbot/db/models"
)

// Proactive message subtypes. The subtype plus the correlating task id is what
// the 24h idempotence check queries before re-alerting.
const (
	MetaTaskCreated    = "task-created"
	MetaTaskSuggestion = "task-suggestion"
	MetaStuckAlert     = "stuck-task-alert"
	MetaDailyBriefing  = "daily-briefing"
)

type MessageStore interface {
	InsertChatMessage(ctx context.Context, msg *models.ChatMessage) error
}

// ProactiveMeta tags an agent-authored message for later deduplication.
type ProactiveMeta struct {
	Type   string
	TaskID string
	Extra  map[string]string
}

// Messenger appends agent-authored chat messages. No retry and no delivery
// guarantee beyond the persistence write; a failed write surfaces to the
// caller as an error.
type Messenger struct {
	store MessageStore
	log   *slog.Logger
	now   func() time.Time
}

func NewMessenger(store MessageStore, log *slog.Logger, now func() time.Time) (*Messenger, error) {
	if store == nil {
		return nil, fmt.Errorf("nil store")
	}
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Messenger{store: store, log: log, now: now}, nil
}

// Post writes one agent message and returns its id.
func (m *Messenger) Post(ctx context.Context, boardID, content string, meta ProactiveMeta) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("content is required")
	}
	msg := &models.ChatMessage{
		BoardID:    boardID,
		AuthorKind: string(actor.KindAgent),
		Content:    content,
		TaskID:     meta.TaskID,
		MetaType:   meta.Type,
		Meta:       meta.Extra,
		CreatedAt:  m.now().UTC(),
	}
	if err := m.store.InsertChatMessage(ctx, msg); err != nil {
		return "", err
	}
	m.log.Info("proactive_message_posted", "board_id", boardID, "type", meta.Type, "message_id", msg.ID)
	return msg.ID, nil
}
