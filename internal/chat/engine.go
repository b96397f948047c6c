package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vozsalud/cita-platform/internal/dialog"
	"github.com/vozsalud/cita-platform/internal/observability/metrics"
	"github.com/vozsalud/cita-platform/internal/session"
	"github.com/vozsalud/cita-platform/pkg/logging"
)

// ErrEmptyMessage rejects blank input before it reaches the dialogue machine.
var ErrEmptyMessage = errors.New("chat: message is empty")

// TurnProcessor is the dialogue machine contract the engine drives.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, message string, st dialog.State) (string, dialog.State)
}

// Engine ties one conversation turn together: load state, run the machine,
// persist state and transcript. Turns for the same conversation are
// serialized; different conversations run concurrently.
type Engine struct {
	machine     TurnProcessor
	sessions    session.Store
	transcripts *TranscriptStore
	archive     *ArchiveStore
	metrics     *metrics.ChatMetrics
	logger      *logging.Logger
	tracer      trace.Tracer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// EngineConfig wires the engine's collaborators. Machine and Sessions are
// required; the rest degrade to no-ops.
type EngineConfig struct {
	Machine     TurnProcessor
	Sessions    session.Store
	Transcripts *TranscriptStore
	Archive     *ArchiveStore
	Metrics     *metrics.ChatMetrics
	Logger      *logging.Logger
}

// NewEngine creates the chat engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Machine == nil {
		panic("chat: turn processor required")
	}
	if cfg.Sessions == nil {
		panic("chat: session store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Engine{
		machine:     cfg.Machine,
		sessions:    cfg.Sessions,
		transcripts: cfg.Transcripts,
		archive:     cfg.Archive,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		tracer:      otel.Tracer("cita.internal.chat.engine"),
		locks:       make(map[string]*sync.Mutex),
	}
}

// HandleMessage runs one conversation turn and returns the assistant reply.
func (e *Engine) HandleMessage(ctx context.Context, conversationID, text, channel string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if conversationID == "" {
		return "", errors.New("chat: conversation id required")
	}

	lock := e.conversationLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	ctx, span := e.tracer.Start(ctx, "chat.engine.turn")
	defer span.End()
	start := time.Now()

	st, err := e.sessions.Load(ctx, conversationID)
	if err != nil {
		span.RecordError(err)
		e.metrics.ObserveTurn(intentLabel(dialog.IntentNone), "error")
		return "", err
	}

	reply, next := e.machine.ProcessTurn(ctx, text, st)

	if err := e.sessions.Save(ctx, conversationID, next); err != nil {
		span.RecordError(err)
		e.metrics.ObserveTurn(intentLabel(next.Intent), "error")
		return "", err
	}

	e.record(ctx, conversationID, channel, RoleUser, text)
	e.record(ctx, conversationID, channel, RoleAssistant, reply)

	e.metrics.ObserveTurn(intentLabel(next.Intent), "ok")
	e.metrics.ObserveTurnLatency(channel, time.Since(start).Seconds())
	return reply, nil
}

// Reset drops the conversation state and its short-term transcript.
func (e *Engine) Reset(ctx context.Context, conversationID string) error {
	lock := e.conversationLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.sessions.Clear(ctx, conversationID); err != nil {
		return err
	}
	if err := e.transcripts.Clear(ctx, conversationID); err != nil {
		e.logger.Error("chat: failed to clear transcript", "conversation_id", conversationID, "error", err)
	}
	return nil
}

// History returns the recent transcript for a conversation.
func (e *Engine) History(ctx context.Context, conversationID string, limit int64) ([]Message, error) {
	return e.transcripts.List(ctx, conversationID, limit)
}

// record writes a message to the transcript and archive, best effort.
func (e *Engine) record(ctx context.Context, conversationID, channel, role, body string) {
	if err := e.transcripts.Append(ctx, conversationID, Message{Role: role, Body: body, Channel: channel}); err != nil {
		e.logger.Error("chat: transcript append failed", "conversation_id", conversationID, "error", err)
	}
	if err := e.archive.RecordMessage(ctx, conversationID, channel, role, body); err != nil {
		e.logger.Error("chat: archive write failed", "conversation_id", conversationID, "error", err)
	}
}

func (e *Engine) conversationLock(conversationID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[conversationID] = lock
	}
	return lock
}

func intentLabel(i dialog.Intent) string {
	if i == dialog.IntentNone {
		return "ninguno"
	}
	return string(i)
}
