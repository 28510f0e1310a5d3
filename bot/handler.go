package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/moltboard/moltbot/actor"
	"github.com/moltboard/moltbot/db/models"
	"github.com/moltboard/moltbot/intent"
)

type StatusStore interface {
	Store
	UpdateChatMessageStatus(ctx context.Context, id, status string) error
}

// ChatResult reports what one inbound chat message produced.
type ChatResult struct {
	MessageID         string
	TaskCreated       bool
	TaskID            string
	ResponseMessageID string
}

// Handler runs the inbound chat pipeline: store the message, classify it,
// materialize an accepted intent and post the bot's confirmation.
type Handler struct {
	store        StatusStore
	classifier   *intent.Classifier
	materializer *Materializer
	messenger    *Messenger
	cfg          Config
	log          *slog.Logger
	now          func() time.Time
}

type HandlerOption func(*Handler)

func WithLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

func WithNow(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

func NewHandler(store StatusStore, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if store == nil {
		return nil, fmt.Errorf("nil store")
	}
	if cfg.MinConfidence == "" {
		cfg.MinConfidence = intent.ConfidenceMedium
	}
	h := &Handler{
		store: store,
		cfg:   cfg,
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.classifier = intent.NewClassifier(h.now)

	var err error
	h.materializer, err = NewMaterializer(store, cfg, h.log, h.now)
	if err != nil {
		return nil, err
	}
	h.messenger, err = NewMessenger(store, h.log, h.now)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Handler) Messenger() *Messenger {
	return h.messenger
}

// ParseTaskIntent exposes the classifier without any persistence side effect.
func (h *Handler) ParseTaskIntent(text string) intent.Intent {
	return h.classifier.Classify(text)
}

// HandleChatMessage processes one inbound message. The message itself is
// always stored; a failed task detection is silent to the end user (logged,
// swallowed) so the chat write never depends on the pipeline succeeding.
// Messages authored by the agent, the system or external API callers are
// never re-parsed for intent.
func (h *Handler) HandleChatMessage(ctx context.Context, text, boardID string, author actor.Actor) (ChatResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatResult{}, fmt.Errorf("message text is required")
	}

	msg := &models.ChatMessage{
		BoardID:    boardID,
		AuthorKind: string(author.Kind),
		AuthorUser: author.UserID,
		Content:    text,
		CreatedAt:  h.now().UTC(),
	}
	if author.IsHuman() {
		msg.Status = models.MessagePending
	}
	if err := h.store.InsertChatMessage(ctx, msg); err != nil {
		return ChatResult{}, fmt.Errorf("store message: %w", err)
	}
	result := ChatResult{MessageID: msg.ID}

	if !author.IsHuman() {
		return result, nil
	}

	it := h.classifier.Classify(text)
	if it.Action != intent.ActionCreate {
		h.finishMessage(ctx, msg.ID)
		return result, nil
	}

	if !confidenceAtLeast(it.Confidence, h.cfg.MinConfidence) {
		// Suggestion-only signal: nudge, never materialize.
		if suggestion := intent.FormatSuggestion(it); suggestion != "" {
			if id, err := h.messenger.Post(ctx, boardID, suggestion, ProactiveMeta{Type: MetaTaskSuggestion}); err == nil {
				result.ResponseMessageID = id
			} else {
				h.log.Warn("suggestion_post_error", "board_id", boardID, "error", err.Error())
			}
		}
		h.finishMessage(ctx, msg.ID)
		return result, nil
	}

	task, err := h.materializer.Create(ctx, boardID, it, author)
	if err != nil {
		h.log.Warn("task_detection_error", "board_id", boardID, "error", err.Error())
		h.finishMessage(ctx, msg.ID)
		return result, nil
	}
	result.TaskCreated = true
	result.TaskID = task.ID

	confirmation := intent.FormatConfirmation(it)
	replyID, err := h.messenger.Post(ctx, boardID, confirmation, ProactiveMeta{
		Type:   MetaTaskCreated,
		TaskID: task.ID,
		Extra:  map[string]string{"context": it.Context},
	})
	if err != nil {
		h.log.Warn("confirmation_post_error", "board_id", boardID, "task_id", task.ID, "error", err.Error())
	} else {
		result.ResponseMessageID = replyID
	}

	h.finishMessage(ctx, msg.ID)
	return result, nil
}

func (h *Handler) finishMessage(ctx context.Context, id string) {
	if err := h.store.UpdateChatMessageStatus(ctx, id, models.MessageComplete); err != nil {
		h.log.Warn("message_status_error", "message_id", id, "error", err.Error())
	}
}

var confidenceRank = map[intent.Confidence]int{
	intent.ConfidenceLow:    1,
	intent.ConfidenceMedium: 2,
	intent.ConfidenceHigh:   3,
}

func confidenceAtLeast(got, min intent.Confidence) bool {
	return confidenceRank[got] >= confidenceRank[min]
}
