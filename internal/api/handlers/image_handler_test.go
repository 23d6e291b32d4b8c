package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	middleware "github.com/aftr-app/aftr-backend/internal/api/middlewares"
	"github.com/aftr-app/aftr-backend/internal/core"
	"github.com/aftr-app/aftr-backend/internal/core/session"
	"github.com/aftr-app/aftr-backend/internal/models"
)

type stubVision struct {
	reply string

	prompt      string
	imageCount  int
	deadline    time.Time
	hadDeadline bool
}

func (s *stubVision) Describe(ctx context.Context, prompt string, images []core.ImagePart) (string, error) {
	s.prompt = prompt
	s.imageCount = len(images)
	s.deadline, s.hadDeadline = ctx.Deadline()
	return s.reply, nil
}

func uploadRequest(t *testing.T, userID string, files ...[]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, payload := range files {
		fw, err := w.CreateFormFile("file", "upload.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(payload); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestUploadBoundsVisionCall(t *testing.T) {
	existing := adaUser()
	db := &stubDB{users: map[string]*models.User{existing.ID: existing}}
	vision := &stubVision{reply: "analysis text"}
	mgr := session.NewManager(db, completeFunc("hi"), queryFunc("plan"), zerolog.Nop())

	const visionTimeout = 5 * time.Second
	h := NewImageHandler(db, vision, mgr, visionTimeout, zerolog.Nop())

	start := time.Now()
	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, existing.ID, tinyPNG(t)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !vision.hadDeadline {
		t.Fatal("vision call must run under a deadline")
	}
	if remaining := vision.deadline.Sub(start); remaining > visionTimeout+time.Second {
		t.Errorf("vision deadline %v exceeds the configured %v bound", remaining, visionTimeout)
	}
}

func TestUploadSeedsSessionFromProfileAndImages(t *testing.T) {
	existing := adaUser()
	db := &stubDB{users: map[string]*models.User{existing.ID: existing}}
	vision := &stubVision{reply: "analysis text"}
	mgr := session.NewManager(db, completeFunc("hi"), queryFunc("plan"), zerolog.Nop())
	h := NewImageHandler(db, vision, mgr, time.Minute, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, existing.ID, tinyPNG(t), []byte("not an image")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Decoded != 1 || resp.Skipped != 1 {
		t.Errorf("decoded/skipped = %d/%d, want 1/1", resp.Decoded, resp.Skipped)
	}
	if resp.SystemMessage != "analysis text" {
		t.Errorf("system_message = %q", resp.SystemMessage)
	}

	if vision.imageCount != 1 {
		t.Errorf("vision received %d images, want 1", vision.imageCount)
	}
	for _, want := range []string{"Name: Name: Ada", "Username: ada1", "DOB: 2000-01-01"} {
		if !strings.Contains(vision.prompt, want) {
			t.Errorf("vision prompt missing %q", want)
		}
	}

	if existing.SystemMessage != "analysis text" {
		t.Error("system message not persisted on the user row")
	}
	if s := mgr.Peek(existing.ID); s == nil || !s.Active() {
		t.Error("session must be Active after a successful upload")
	}
}

func TestUploadWithZeroUsableImagesStillRunsVision(t *testing.T) {
	existing := adaUser()
	db := &stubDB{users: map[string]*models.User{existing.ID: existing}}
	vision := &stubVision{reply: "text-only analysis"}
	mgr := session.NewManager(db, completeFunc("hi"), queryFunc("plan"), zerolog.Nop())
	h := NewImageHandler(db, vision, mgr, time.Minute, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, existing.ID, []byte("garbage")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if vision.imageCount != 0 {
		t.Errorf("vision received %d images, want 0", vision.imageCount)
	}
	if existing.SystemMessage != "text-only analysis" {
		t.Error("text-only analysis must still seed the session")
	}
}
