package chat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"github.com/vozsalud/cita-platform/pkg/logging"
)

// Transcriber converts uploaded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Handler exposes the conversational assistant over HTTP and WebSocket.
type Handler struct {
	engine      *Engine
	transcriber Transcriber
	logger      *logging.Logger
	widgetJS    []byte
}

// NewHandler creates the chat HTTP handler. transcriber may be nil; the voice
// endpoint then replies 503.
func NewHandler(engine *Engine, transcriber Transcriber, widgetJS []byte, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("chat: engine required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, transcriber: transcriber, logger: logger, widgetJS: widgetJS}
}

// Register mounts the chat routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/message", h.handleMessage)
	r.Get("/history", h.handleHistory)
	r.Post("/reset", h.handleReset)
	r.Get("/ws", h.handleWebSocket)
	r.Get("/widget.js", h.handleWidget)
	r.Post("/voice", h.handleVoice)
}

type messageRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

type messageResponse struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = generateConversationID()
	}

	reply, err := h.engine.HandleMessage(r.Context(), req.ConversationID, req.Message, "web")
	if err != nil {
		if errors.Is(err, ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}
		h.logger.Error("chat: turn failed", "conversation_id", req.ConversationID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{ConversationID: req.ConversationID, Reply: reply})
}

type historyResponse struct {
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	msgs, err := h.engine.History(r.Context(), conversationID, 100)
	if err != nil {
		h.logger.Error("chat: history read failed", "conversation_id", conversationID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if msgs == nil {
		msgs = []Message{}
	}
	writeJSON(w, http.StatusOK, historyResponse{ConversationID: conversationID, Messages: msgs})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}
	if err := h.engine.Reset(r.Context(), req.ConversationID); err != nil {
		h.logger.Error("chat: reset failed", "conversation_id", req.ConversationID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reset conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type voiceResponse struct {
	ConversationID string `json:"conversation_id"`
	Transcript     string `json:"transcript"`
	Reply          string `json:"reply"`
}

// handleVoice accepts a multipart audio upload, transcribes it and runs the
// text through the same dialogue turn as a typed message.
func (h *Handler) handleVoice(w http.ResponseWriter, r *http.Request) {
	if h.transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "voice transcription is not configured")
		return
	}

	if err := r.ParseMultipartForm(16 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	conversationID := r.FormValue("conversation_id")
	if conversationID == "" {
		conversationID = generateConversationID()
	}

	transcript, err := h.transcriber.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		h.logger.Error("chat: transcription failed", "conversation_id", conversationID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to transcribe audio")
		return
	}

	reply, err := h.engine.HandleMessage(r.Context(), conversationID, transcript, "voice")
	if err != nil {
		if errors.Is(err, ErrEmptyMessage) {
			writeError(w, http.StatusUnprocessableEntity, "no speech detected")
			return
		}
		h.logger.Error("chat: voice turn failed", "conversation_id", conversationID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, voiceResponse{ConversationID: conversationID, Transcript: transcript, Reply: reply})
}

func (h *Handler) handleWidget(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(h.widgetJS)
}

// InboundMessage is what the web widget sends over the socket.
type InboundMessage struct {
	Type           string `json:"type"` // "message", "ping"
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

// OutboundMessage is what the server pushes to the widget.
type OutboundMessage struct {
	Type           string    `json:"type"` // "session", "message", "history", "pong", "error"
	ConversationID string    `json:"conversation_id,omitempty"`
	Role           string    `json:"role,omitempty"`
	Text           string    `json:"text,omitempty"`
	Timestamp      string    `json:"timestamp,omitempty"`
	Messages       []Message `json:"messages,omitempty"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	defer conn.Close()

	conversationID := r.URL.Query().Get("conversation")
	if conversationID == "" {
		conversationID = generateConversationID()
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", ConversationID: conversationID})

	if msgs, err := h.engine.History(r.Context(), conversationID, 50); err == nil && len(msgs) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", ConversationID: conversationID, Messages: msgs})
	}

	for {
		var in InboundMessage
		if err := websocket.JSON.Receive(conn, &in); err != nil {
			if err != io.EOF {
				h.logger.Debug("chat: websocket receive ended", "conversation_id", conversationID, "error", err)
			}
			return
		}

		switch in.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
		case "message":
			reply, err := h.engine.HandleMessage(r.Context(), conversationID, in.Text, "web-ws")
			if err != nil {
				_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "no pude procesar tu mensaje"})
				continue
			}
			_ = websocket.JSON.Send(conn, OutboundMessage{
				Type:           "message",
				ConversationID: conversationID,
				Role:           RoleAssistant,
				Text:           reply,
				Timestamp:      time.Now().UTC().Format(time.RFC3339),
			})
		default:
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "unknown message type"})
		}
	}
}

func generateConversationID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return time.Now().UTC().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
