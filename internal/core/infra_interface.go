package core

import (
	"context"

	"github.com/aftr-app/aftr-backend/internal/models"
)

// DbClient defines all persistence operations the higher layers need.
// It abstracts Postgres so handlers and the session core never depend
// on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) (err error)
	GetUserByUsername(ctx context.Context, username string) (user *models.User, err error)
	GetUserByProfile(ctx context.Context, name, username string, dob string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// SetSystemMessage overwrites the persona seed for a user.
	SetSystemMessage(ctx context.Context, userID, text string) error

	// AppendChatTurn durably records one turn. Append-only: the core
	// never updates or deletes recorded turns.
	AppendChatTurn(ctx context.Context, turn *models.ChatTurn) error
	ListChatTurnsByUser(ctx context.Context, userID string) ([]models.ChatTurn, error)

	Close() error
}
