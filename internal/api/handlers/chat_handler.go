package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	middleware "github.com/aftr-app/aftr-backend/internal/api/middlewares"
	"github.com/aftr-app/aftr-backend/internal/core"
	"github.com/aftr-app/aftr-backend/internal/core/session"
)

type ChatHandler struct {
	dbclient core.DbClient
	sessions *session.Manager
	log      zerolog.Logger
}

func NewChatHandler(dbclient core.DbClient, sessions *session.Manager, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{dbclient: dbclient, sessions: sessions, log: log}
}

type chatRequest struct {
	Message string `json:"message"`
}

// SendMessage drives one turn of the session state machine.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserID(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		http.Error(w, "invalid request", 400)
		return
	}

	user, err := h.dbclient.GetUserByID(ctx, userID)
	if err != nil || user == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	reply, err := h.sessions.Ask(ctx, userID, user.SystemMessage, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSystemMessageNotSet):
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "system_message_not_set",
				"message": "System message not set. Please upload an image first.",
			})
		case errors.Is(err, session.ErrTurnNotRecorded):
			h.log.Error().Err(err).Str("user_id", userID).Msg("turn persistence failed")
			http.Error(w, "failed to record message", http.StatusInternalServerError)
		default:
			h.log.Error().Err(err).Str("user_id", userID).Msg("chat backend failed")
			http.Error(w, "assistant unavailable, please try again", http.StatusBadGateway)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"assistant": reply})
}

// History returns the user's persisted turns, oldest first.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	turns, err := h.dbclient.ListChatTurnsByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(turns)
}
