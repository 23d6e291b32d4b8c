package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aftr-app/aftr-backend/internal/core"
	"github.com/aftr-app/aftr-backend/internal/models"
)

// ErrSystemMessageNotSet is returned when a chat message arrives before
// the image-upload flow has produced a persona seed. Recoverable: the
// caller redirects the user to the upload flow.
var ErrSystemMessageNotSet = errors.New("system message not set")

// ErrTurnNotRecorded is returned when the durable turn store rejects a
// write. The turn is aborted so the in-memory transcript never diverges
// from the durable record.
var ErrTurnNotRecorded = errors.New("turn not recorded")

// apologyMessage replaces the assistant reply when the fitness backend
// fails. A fitness failure degrades, it never aborts the session.
const apologyMessage = "Sorry, there was an error while contacting the fitness API."

// Session holds one user's conversation state. All mutation happens
// under mu: one in-flight request per session at a time.
type Session struct {
	userID string

	mu         sync.Mutex
	system     string
	transcript []core.Turn
}

// Active reports whether the persona seed has been set.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.system != ""
}

// Transcript returns a copy of the ordered turns, system turn first
// when present.
func (s *Session) Transcript() []core.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullTranscriptLocked()
}

func (s *Session) fullTranscriptLocked() []core.Turn {
	out := make([]core.Turn, 0, len(s.transcript)+1)
	if s.system != "" {
		out = append(out, core.Turn{Role: core.RoleSystem, Content: s.system})
	}
	return append(out, s.transcript...)
}

// Manager owns all live sessions and drives each message through the
// route → invoke → record cycle. Sessions are independent; requests for
// different users run in parallel.
type Manager struct {
	db      core.DbClient
	chat    core.ChatProvider
	fitness core.FitnessProvider
	log     zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(db core.DbClient, chat core.ChatProvider, fitness core.FitnessProvider, log zerolog.Logger) *Manager {
	return &Manager{
		db:       db,
		chat:     chat,
		fitness:  fitness,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// session returns the live session for userID, creating it seeded with
// the persisted system message on first sight.
func (m *Manager) session(userID, persistedSystem string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		s = &Session{userID: userID, system: persistedSystem}
		m.sessions[userID] = s
	}
	return s
}

// SetSystemMessage persists the persona seed and moves the session to
// Active. Repeating the upload flow overwrites the seed; the transition
// to Active itself is terminal.
func (m *Manager) SetSystemMessage(ctx context.Context, userID, text string) error {
	if text == "" {
		return errors.New("empty system message")
	}
	if err := m.db.SetSystemMessage(ctx, userID, text); err != nil {
		return fmt.Errorf("persist system message: %w", err)
	}
	s := m.session(userID, text)
	s.mu.Lock()
	s.system = text
	s.mu.Unlock()
	return nil
}

// Ask runs one appendUserMessage cycle: record the user turn, route it,
// invoke the chosen backend, record and return the assistant turn.
// persistedSystem is the seed stored on the user row ("" if unset) and
// only matters the first time a session is seen after startup.
func (m *Manager) Ask(ctx context.Context, userID, persistedSystem, message string) (string, error) {
	s := m.session(userID, persistedSystem)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.system == "" {
		return "", ErrSystemMessageNotSet
	}

	userTurn := core.Turn{Role: core.RoleUser, Content: message}
	if err := m.record(ctx, userID, userTurn); err != nil {
		return "", err
	}

	backend := Route(message)
	m.log.Debug().Str("user_id", userID).Stringer("backend", backend).Msg("message routed")

	var reply string
	switch backend {
	case BackendFitness:
		text, err := m.fitness.Query(ctx, message)
		if err != nil {
			m.log.Warn().Err(err).Str("user_id", userID).Msg("fitness lookup degraded to apology")
			text = apologyMessage
		}
		reply = text
	default:
		full := append(s.fullTranscriptLocked(), userTurn)
		text, err := m.chat.Complete(ctx, full)
		if err != nil {
			// The user turn stays in the durable record (append-only)
			// but is not committed in memory, so a retry keeps the
			// transcript alternating.
			return "", fmt.Errorf("general chat: %w", err)
		}
		reply = text
	}

	assistantTurn := core.Turn{Role: core.RoleAssistant, Content: reply}
	if err := m.record(ctx, userID, assistantTurn); err != nil {
		return "", err
	}

	s.transcript = append(s.transcript, userTurn, assistantTurn)
	return reply, nil
}

func (m *Manager) record(ctx context.Context, userID string, turn core.Turn) error {
	err := m.db.AppendChatTurn(ctx, &models.ChatTurn{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      turn.Role,
		Content:   turn.Content,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTurnNotRecorded, err)
	}
	return nil
}

// Peek exposes the session for a user without creating one. Nil when
// the user has no live session.
func (m *Manager) Peek(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}
