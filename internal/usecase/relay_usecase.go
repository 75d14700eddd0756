package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
	"github.com/yourusername/llm-relay-bot/internal/domain/repository"
	"github.com/yourusername/llm-relay-bot/internal/metrics"
)

// Reply is what the messaging layer delivers for one inbound message
type Reply struct {
	Text string
	// Kind is KindNone for a model reply
	Kind entity.ErrorKind
	// Markdown marks model output that may contain lightweight markup
	Markdown  bool
	Truncated bool
}

// RelayUseCase xabarni AI ga uzatish va javobni qaytarish
type RelayUseCase interface {
	ProcessMessage(ctx context.Context, msg entity.InboundMessage) Reply
}

// RelayConfig holds the size bounds applied by the pipeline
type RelayConfig struct {
	MaxInputLength    int
	MaxResponseLength int
}

type relayUseCase struct {
	aiRepo  repository.AIRepository
	limiter repository.RateLimiter
	journal repository.JournalRepository
	cfg     RelayConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRelayUseCase yangi RelayUseCase yaratish. journal, logger and m may be nil.
func NewRelayUseCase(
	aiRepo repository.AIRepository,
	limiter repository.RateLimiter,
	journal repository.JournalRepository,
	cfg RelayConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) RelayUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &relayUseCase{
		aiRepo:  aiRepo,
		limiter: limiter,
		journal: journal,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// ProcessMessage runs sanitize, rate limit, completion and trimming for one
// message. It always returns a deliverable reply.
func (u *relayUseCase) ProcessMessage(ctx context.Context, msg entity.InboundMessage) (reply Reply) {
	start := u.now()
	exchange := entity.Exchange{
		ID:        uuid.NewString(),
		UserID:    msg.UserID,
		Username:  msg.Username,
		Timestamp: start,
	}
	log := u.logger.With(zap.String("exchange_id", exchange.ID), zap.Int64("user_id", msg.UserID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while processing message", zap.Any("panic", r), zap.Stack("stack"))
			reply = u.failure(entity.KindUnknown, 0)
		}
		exchange.Kind = reply.Kind
		exchange.Truncated = reply.Truncated
		if reply.Kind == entity.KindNone {
			exchange.ReplyLength = utf8.RuneCountInString(reply.Text)
		}
		exchange.Latency = u.now().Sub(start)
		u.record(ctx, log, exchange)
		u.metrics.ObserveMessage(reply.Kind)
	}()

	prompt, err := SanitizeInput(msg.Text, u.cfg.MaxInputLength)
	exchange.PromptLength = utf8.RuneCountInString(prompt)
	switch {
	case errors.Is(err, ErrEmptyInput):
		log.Debug("rejected message", zap.Stringer("kind", entity.KindInputEmpty))
		return u.failure(entity.KindInputEmpty, 0)
	case errors.Is(err, ErrInputTooLong):
		log.Debug("rejected message", zap.Stringer("kind", entity.KindInputTooLong), zap.Int("length", exchange.PromptLength))
		return u.failure(entity.KindInputTooLong, 0)
	}

	if allowed, wait := u.limiter.Check(msg.UserID); !allowed {
		log.Debug("rejected message", zap.Stringer("kind", entity.KindRateLimited), zap.Duration("retry_after", wait))
		return u.failure(entity.KindRateLimited, wait)
	}

	result := u.aiRepo.Complete(ctx, prompt)
	exchange.Attempts = result.Attempts
	if !result.OK() {
		u.logFailure(log, result)
		return u.failure(result.Kind, 0)
	}

	text, truncated := strings.TrimSpace(result.Text), false
	if length := TextLength(text); length > u.cfg.MaxResponseLength {
		text, truncated = TrimResponse(text, u.responseBudget())
		u.metrics.ObserveTruncated()
		log.Info("reply truncated",
			zap.Int("original_length", length),
			zap.Int("length", TextLength(text)),
		)
	}
	log.Debug("reply ready", zap.Int("attempts", result.Attempts), zap.Duration("elapsed", u.now().Sub(start)))

	return Reply{Text: text, Markdown: true, Truncated: truncated}
}

// responseBudget leaves room for the marker so a cut reply still fits the ceiling.
func (u *relayUseCase) responseBudget() int {
	return u.cfg.MaxResponseLength - MaxMarkerLength()
}

func (u *relayUseCase) failure(kind entity.ErrorKind, wait time.Duration) Reply {
	return Reply{Text: userMessage(kind, u.cfg.MaxInputLength, wait), Kind: kind}
}

func (u *relayUseCase) logFailure(log *zap.Logger, result entity.CompletionResult) {
	fields := []zap.Field{
		zap.Stringer("kind", result.Kind),
		zap.Int("attempts", result.Attempts),
		zap.String("provider", u.aiRepo.Provider()),
		zap.String("detail", result.Detail),
	}
	switch result.Kind {
	case entity.KindAuthError, entity.KindUnknown:
		log.Error("completion failed", fields...)
	default:
		log.Warn("completion failed", fields...)
	}
}

func (u *relayUseCase) record(ctx context.Context, log *zap.Logger, exchange entity.Exchange) {
	if u.journal == nil {
		return
	}
	// the journal write must survive the message context being cancelled
	if err := u.journal.Record(context.WithoutCancel(ctx), exchange); err != nil {
		log.Warn("journal write failed", zap.Error(fmt.Errorf("exchange %s: %w", exchange.ID, err)))
	}
}
