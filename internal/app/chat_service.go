package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"peakmind/internal/ai"
	"peakmind/internal/guardrail"
	"peakmind/internal/model"
	"peakmind/internal/repository"
)

var (
	ErrInvalidPayload      = errors.New("no valid messages provided")
	ErrPayloadTooLarge     = errors.New("message content too long")
	ErrEmptyCompletion     = errors.New("no response generated")
	ErrUpstreamUnavailable = errors.New("service temporarily unavailable")
)

// CompletionProvider is the external text-generation service. The production
// implementation is ai.OpenAICompatibleClient.
type CompletionProvider interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

// ChatLogPublisher hands finished exchanges to the async persistence queue.
type ChatLogPublisher interface {
	Publish(ctx context.Context, entry model.ChatLog) error
}

// HistoryCache fronts the transcript store for the history endpoint.
type HistoryCache interface {
	GetHistory(ctx context.Context, userID uint) ([]model.ChatLog, bool, error)
	SetHistory(ctx context.Context, userID uint, entries []model.ChatLog) error
	DeleteHistory(ctx context.Context, userID uint) error
	MarkDirty(ctx context.Context, userID uint) error
	IsDirty(ctx context.Context, userID uint) (bool, error)
}

// ChatService runs the guarded pipeline: sanitize the client history,
// prepend the server-owned system prompt, call the provider once, and hand
// the exchange to the transcript queue. It holds no cross-request state.
type ChatService struct {
	guardrailCfg guardrail.Config
	llmCfg       ai.ChatConfig
	provider     CompletionProvider
	publisher    ChatLogPublisher
	historyCache HistoryCache
	chatLogRepo  *repository.ChatLogRepository
}

func NewChatService(
	guardrailCfg guardrail.Config,
	llmCfg ai.ChatConfig,
	provider CompletionProvider,
	publisher ChatLogPublisher,
	historyCache HistoryCache,
	chatLogRepo *repository.ChatLogRepository,
) *ChatService {
	return &ChatService{
		guardrailCfg: guardrailCfg,
		llmCfg:       llmCfg,
		provider:     provider,
		publisher:    publisher,
		historyCache: historyCache,
		chatLogRepo:  chatLogRepo,
	}
}

// Chat validates and bounds rawMessages, assembles the prompt, and returns
// the provider's reply. Provider failure detail is logged here and never
// surfaced to the caller.
func (s *ChatService) Chat(ctx context.Context, userID uint, rawMessages json.RawMessage) (string, error) {
	if userID == 0 {
		return "", ErrInvalidInput
	}

	sanitized, err := guardrail.Sanitize(s.guardrailCfg, rawMessages)
	if err != nil {
		switch {
		case errors.Is(err, guardrail.ErrPayloadTooLarge):
			return "", ErrPayloadTooLarge
		default:
			return "", ErrInvalidPayload
		}
	}

	assembled := guardrail.Assemble(s.guardrailCfg, sanitized)
	messages := make([]ai.ChatMessage, 0, len(assembled))
	for _, msg := range assembled {
		messages = append(messages, ai.ChatMessage{Role: msg.Role, Content: msg.Content})
	}

	reply, err := s.provider.Complete(ctx, s.llmCfg, messages)
	if err != nil {
		if errors.Is(err, ai.ErrEmptyCompletion) {
			log.Printf("chat completion empty for user %d", userID)
			return "", ErrEmptyCompletion
		}
		log.Printf("chat completion failed for user %d: %v", userID, err)
		return "", ErrUpstreamUnavailable
	}

	s.recordExchange(ctx, userID, sanitized, reply)
	return reply, nil
}

// recordExchange queues the latest user turn and the assistant reply for
// async persistence. Transcript logging is best effort; a broker hiccup must
// not fail a served reply.
func (s *ChatService) recordExchange(ctx context.Context, userID uint, sanitized []guardrail.Message, reply string) {
	if s.publisher == nil {
		return
	}

	now := time.Now()
	if userTurn := lastUserMessage(sanitized); userTurn != "" {
		err := s.publisher.Publish(ctx, model.ChatLog{
			UserID:    userID,
			Role:      guardrail.RoleUser,
			Content:   userTurn,
			CreatedAt: now,
		})
		if err != nil {
			log.Printf("publish user chat log failed: %v", err)
		}
	}
	err := s.publisher.Publish(ctx, model.ChatLog{
		UserID:    userID,
		Role:      guardrail.RoleAssistant,
		Content:   reply,
		CreatedAt: now,
	})
	if err != nil {
		log.Printf("publish assistant chat log failed: %v", err)
	}

	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, userID)
		_ = s.historyCache.DeleteHistory(ctx, userID)
	}
}

// History returns the caller's recent transcript, serving from cache when it
// is fresh.
func (s *ChatService) History(ctx context.Context, userID uint, limit int) ([]model.ChatLog, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, userID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, userID); cacheErr == nil && hit {
				return trimChatLogs(cached, limit), nil
			}
		}
	}

	entries, err := s.chatLogRepo.ListRecentByUserID(userID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, userID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, userID, entries)
		}
	}
	return entries, nil
}

func lastUserMessage(messages []guardrail.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == guardrail.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

func trimChatLogs(entries []model.ChatLog, limit int) []model.ChatLog {
	if limit <= 0 || limit >= len(entries) {
		return entries
	}
	return entries[len(entries)-limit:]
}
