package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aftr-app/aftr-backend/internal/core"
	"github.com/aftr-app/aftr-backend/internal/models"
)

type AuthHandler struct {
	dbclient core.DbClient
}

func NewAuthHandler(dbclient core.DbClient) *AuthHandler {
	return &AuthHandler{dbclient: dbclient}
}

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	DOB      string `json:"dob"` // "2006-01-02"
}

// Register creates a profile and issues a token. A repeat registration
// with the exact same name/username/dob triple logs the user back in
// instead of erroring; a username collision alone is rejected.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", 400)
		return
	}
	if req.Name == "" || req.Username == "" {
		http.Error(w, "name and username required", 400)
		return
	}
	dob, err := time.Parse("2006-01-02", req.DOB)
	if err != nil {
		http.Error(w, "dob must be YYYY-MM-DD", 400)
		return
	}

	existing, err := h.dbclient.GetUserByProfile(context.Background(), req.Name, req.Username, req.DOB)
	if err != nil {
		http.Error(w, "lookup failed", 500)
		return
	}
	if existing != nil {
		writeToken(w, existing)
		return
	}

	sameUsername, err := h.dbclient.GetUserByUsername(context.Background(), req.Username)
	if err != nil {
		http.Error(w, "lookup failed", 500)
		return
	}
	if sameUsername != nil {
		http.Error(w, "username already exists", 409)
		return
	}

	user := &models.User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Username:  req.Username,
		DOB:       dob,
		CreatedAt: time.Now(),
	}
	if err := h.dbclient.CreateUser(context.Background(), user); err != nil {
		http.Error(w, "user exists", 409)
		return
	}

	writeToken(w, user)
}

// Login re-issues a token when the submitted profile matches a
// registered one.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", 400)
		return
	}

	user, err := h.dbclient.GetUserByProfile(context.Background(), req.Name, req.Username, req.DOB)
	if err != nil || user == nil {
		http.Error(w, "invalid credentials", 401)
		return
	}

	writeToken(w, user)
}

func writeToken(w http.ResponseWriter, user *models.User) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"token":   generateJWT(user.ID),
		"user_id": user.ID,
		"name":    user.Name,
	})
}

// generateJWT creates a signed token with user ID claim
func generateJWT(userID string) string {
	secret := os.Getenv("JWT_SECRET")
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, _ := tok.SignedString([]byte(secret))
	return token
}
