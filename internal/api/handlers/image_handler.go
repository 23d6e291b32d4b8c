package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	middleware "github.com/aftr-app/aftr-backend/internal/api/middlewares"
	"github.com/aftr-app/aftr-backend/internal/core"
	"github.com/aftr-app/aftr-backend/internal/core/imaging"
	"github.com/aftr-app/aftr-backend/internal/core/persona"
	"github.com/aftr-app/aftr-backend/internal/core/session"
)

const maxUploadBytes = 32 << 20

type ImageHandler struct {
	dbclient      core.DbClient
	vision        core.VisionProvider
	sessions      *session.Manager
	visionTimeout time.Duration
	log           zerolog.Logger
}

func NewImageHandler(dbclient core.DbClient, vision core.VisionProvider, sessions *session.Manager, visionTimeout time.Duration, log zerolog.Logger) *ImageHandler {
	if visionTimeout <= 0 {
		visionTimeout = 60 * time.Second
	}
	return &ImageHandler{dbclient: dbclient, vision: vision, sessions: sessions, visionTimeout: visionTimeout, log: log}
}

type uploadResponse struct {
	SystemMessage string `json:"system_message"`
	Decoded       int    `json:"decoded"`
	Skipped       int    `json:"skipped"`
}

// Upload runs the image → persona prompt → vision pipeline and seeds
// the user's session with the generated system message. Undecodable
// files are skipped, not fatal; with zero usable images the vision call
// still runs text-only.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	var payloads [][]byte
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["file"] {
			f, err := fh.Open()
			if err != nil {
				h.log.Warn().Err(err).Str("file", fh.Filename).Msg("skipping unreadable upload")
				payloads = append(payloads, nil) // recorded as skipped
				continue
			}
			raw, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				h.log.Warn().Err(err).Str("file", fh.Filename).Msg("skipping unreadable upload")
				raw = nil
			}
			payloads = append(payloads, raw)
		}
	}

	results := imaging.PreprocessBatch(r.Context(), payloads)
	parts := imaging.Parts(results)
	for _, res := range results {
		if !res.Decoded() {
			h.log.Debug().Err(res.Err).Int("index", res.Index).Msg("image skipped")
		}
	}

	user, err := h.dbclient.GetUserByID(r.Context(), userID)
	if err != nil || user == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	prompt := persona.BuildPrompt(persona.Profile{
		Name:     user.Name,
		Username: user.Username,
		DOB:      user.DOB.Format("2006-01-02"),
	})

	visionCtx, cancel := context.WithTimeout(r.Context(), h.visionTimeout)
	defer cancel()
	text, err := h.vision.Describe(visionCtx, prompt, parts)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("vision generation failed")
		http.Error(w, "image analysis failed, please try again", http.StatusBadGateway)
		return
	}

	if err := h.sessions.SetSystemMessage(r.Context(), userID, text); err != nil {
		http.Error(w, "failed to store system message", http.StatusInternalServerError)
		return
	}

	h.log.Info().Str("user_id", userID).Int("decoded", len(parts)).
		Int("skipped", len(results)-len(parts)).Msg("system message set")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(uploadResponse{
		SystemMessage: text,
		Decoded:       len(parts),
		Skipped:       len(results) - len(parts),
	})
}
