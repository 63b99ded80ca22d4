package delivery

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Vovarama1992/voice_chat/internal/ai"
	"github.com/Vovarama1992/voice_chat/internal/conversation"
)

const (
	SessionHeader  = "X-Session-ID"
	audioFormField = "audio_file"
)

type ChatHandler struct {
	aiService     ai.Service
	log           *logger.ZapLogger
	maxAudioBytes int64
}

func NewChatHandler(aiService ai.Service, log *logger.ZapLogger, maxAudioBytes int64) *ChatHandler {
	return &ChatHandler{
		aiService:     aiService,
		log:           log,
		maxAudioBytes: maxAudioBytes,
	}
}

var errBadSession = errors.New("session id must be 1-64 characters of [A-Za-z0-9_-]")

func sessionID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(SessionHeader))
	if id == "" {
		return conversation.DefaultSession, nil
	}
	if !conversation.ValidSessionID(id) {
		return "", conversation.InvalidInputError("read "+SessionHeader, errBadSession)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	switch conversation.KindOf(err) {
	case conversation.KindInvalidInput:
		return http.StatusBadRequest
	case conversation.KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *ChatHandler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	level := "warn"
	if status >= http.StatusInternalServerError {
		level = "error"
	}
	h.log.Log(logger.LogEntry{Level: level, Message: "request failed", Error: err})

	writeJSON(w, status, map[string]string{
		"detail": err.Error(),
		"kind":   conversation.KindOf(err).String(),
	})
}

func (h *ChatHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "OK"})
}

func (h *ChatHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxAudioBytes)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.writeError(w, conversation.InvalidInputError("parse multipart", err))
		return
	}

	file, header, err := r.FormFile(audioFormField)
	if err != nil {
		h.writeError(w, conversation.InvalidInputError("read "+audioFormField, err))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, conversation.InvalidInputError("read "+audioFormField, err))
		return
	}

	reply, err := h.aiService.HandleAudio(r.Context(), sid, audio, header.Filename)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set(SessionHeader, reply.SessionID)
	if reply.Flagged {
		writeJSON(w, http.StatusOK, map[string]any{"completion": reply.Completion})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      reply.Transcript,
		"prompt":       reply.Prompt,
		"completion":   reply.Completion,
		"total_tokens": reply.TotalTokens,
		"session_id":   reply.SessionID,
	})
}

func (h *ChatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": err.Error()})
		return
	}

	h.aiService.Reset(sid)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Context has been reset.",
	})
}

func (h *ChatHandler) CreateSession(w http.ResponseWriter, _ *http.Request) {
	id := uuid.NewString()
	w.Header().Set(SessionHeader, id)
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	if !conversation.ValidSessionID(id) || !h.aiService.Forget(id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "session not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	if !conversation.ValidSessionID(id) {
		h.writeError(w, conversation.InvalidInputError("read session_id", errBadSession))
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			h.writeError(w, conversation.InvalidInputError("parse limit", errors.New("limit must be a positive integer")))
			return
		}
		limit = n
	}

	records, err := h.aiService.History(r.Context(), id, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
