package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aftr-app/aftr-backend/internal/core"
	"github.com/aftr-app/aftr-backend/internal/models"
)

type fakeDB struct {
	turns      []models.ChatTurn
	system     map[string]string
	failAppend bool
}

func newFakeDB() *fakeDB {
	return &fakeDB{system: make(map[string]string)}
}

func (f *fakeDB) CreateUser(ctx context.Context, user *models.User) error { return nil }
func (f *fakeDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, nil
}
func (f *fakeDB) GetUserByProfile(ctx context.Context, name, username, dob string) (*models.User, error) {
	return nil, nil
}
func (f *fakeDB) GetUserByID(ctx context.Context, id string) (*models.User, error) { return nil, nil }

func (f *fakeDB) SetSystemMessage(ctx context.Context, userID, text string) error {
	f.system[userID] = text
	return nil
}

func (f *fakeDB) AppendChatTurn(ctx context.Context, turn *models.ChatTurn) error {
	if f.failAppend {
		return errors.New("disk full")
	}
	f.turns = append(f.turns, *turn)
	return nil
}

func (f *fakeDB) ListChatTurnsByUser(ctx context.Context, userID string) ([]models.ChatTurn, error) {
	return f.turns, nil
}
func (f *fakeDB) Close() error { return nil }

type fakeChat struct {
	calls      int
	reply      string
	err        error
	transcript []core.Turn
}

func (f *fakeChat) Complete(ctx context.Context, transcript []core.Turn) (string, error) {
	f.calls++
	f.transcript = append([]core.Turn(nil), transcript...)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeFitness struct {
	calls int
	reply string
	err   error
}

func (f *fakeFitness) Query(ctx context.Context, message string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestManager(db *fakeDB, chat *fakeChat, fit *fakeFitness) *Manager {
	return NewManager(db, chat, fit, zerolog.Nop())
}

func TestAskBeforeSystemMessage(t *testing.T) {
	db := newFakeDB()
	chat := &fakeChat{reply: "hi"}
	fit := &fakeFitness{reply: "plan"}
	m := newTestManager(db, chat, fit)

	_, err := m.Ask(context.Background(), "u1", "", "Hello")
	if !errors.Is(err, ErrSystemMessageNotSet) {
		t.Fatalf("err = %v, want ErrSystemMessageNotSet", err)
	}
	if chat.calls != 0 || fit.calls != 0 {
		t.Error("no backend may be invoked before the system message is set")
	}
	if len(db.turns) != 0 {
		t.Error("no turn may be recorded before the system message is set")
	}
	if m.Peek("u1").Active() {
		t.Error("session must still be AwaitingSystemMessage")
	}
}

func TestGeneralChatCycle(t *testing.T) {
	db := newFakeDB()
	chat := &fakeChat{reply: "Hi there"}
	m := newTestManager(db, chat, &fakeFitness{})

	if err := m.SetSystemMessage(context.Background(), "u1", "You are Ada's coach."); err != nil {
		t.Fatalf("SetSystemMessage: %v", err)
	}
	if db.system["u1"] != "You are Ada's coach." {
		t.Error("system message not persisted")
	}
	if !m.Peek("u1").Active() {
		t.Error("session must be Active once the system message is set")
	}

	reply, err := m.Ask(context.Background(), "u1", "", "Hello")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply != "Hi there" {
		t.Errorf("reply = %q, want %q", reply, "Hi there")
	}

	// the backend saw system + the new user turn
	if len(chat.transcript) != 2 {
		t.Fatalf("backend transcript length = %d, want 2", len(chat.transcript))
	}
	if chat.transcript[0].Role != core.RoleSystem || chat.transcript[1].Content != "Hello" {
		t.Errorf("unexpected backend transcript: %+v", chat.transcript)
	}

	// both sides durably recorded, in order
	if len(db.turns) != 2 {
		t.Fatalf("recorded turns = %d, want 2", len(db.turns))
	}
	if db.turns[0].Role != core.RoleUser || db.turns[0].Content != "Hello" {
		t.Errorf("first recorded turn = %+v", db.turns[0])
	}
	if db.turns[1].Role != core.RoleAssistant || db.turns[1].Content != "Hi there" {
		t.Errorf("second recorded turn = %+v", db.turns[1])
	}
}

func TestTranscriptAlternatesOverManyCycles(t *testing.T) {
	db := newFakeDB()
	chat := &fakeChat{reply: "ok"}
	m := newTestManager(db, chat, &fakeFitness{})
	_ = m.SetSystemMessage(context.Background(), "u1", "seed")

	const cycles = 5
	for i := 0; i < cycles; i++ {
		if _, err := m.Ask(context.Background(), "u1", "", fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatalf("Ask %d: %v", i, err)
		}
	}

	got := m.Peek("u1").Transcript()
	if len(got) != 1+2*cycles {
		t.Fatalf("transcript length = %d, want %d", len(got), 1+2*cycles)
	}
	if got[0].Role != core.RoleSystem {
		t.Fatalf("first turn role = %q, want system", got[0].Role)
	}
	for i := 1; i < len(got); i++ {
		want := core.RoleUser
		if i%2 == 0 {
			want = core.RoleAssistant
		}
		if got[i].Role != want {
			t.Errorf("turn %d role = %q, want %q", i, got[i].Role, want)
		}
	}
}

func TestFitnessFailureDegradesToApology(t *testing.T) {
	db := newFakeDB()
	chat := &fakeChat{reply: "unused"}
	fit := &fakeFitness{err: errors.New("timeout")}
	m := newTestManager(db, chat, fit)
	_ = m.SetSystemMessage(context.Background(), "u1", "seed")

	reply, err := m.Ask(context.Background(), "u1", "", "What's a good workout?")
	if err != nil {
		t.Fatalf("fitness failure must not surface: %v", err)
	}
	if reply != apologyMessage {
		t.Errorf("reply = %q, want the apology", reply)
	}
	if chat.calls != 0 {
		t.Error("fitness-routed message must not reach the general backend")
	}
	// apology recorded as the assistant turn
	if len(db.turns) != 2 || db.turns[1].Content != apologyMessage {
		t.Errorf("recorded turns = %+v", db.turns)
	}
}

func TestFitnessSuccess(t *testing.T) {
	db := newFakeDB()
	fit := &fakeFitness{reply: "Push day: bench, rows, squats."}
	m := newTestManager(db, &fakeChat{}, fit)
	_ = m.SetSystemMessage(context.Background(), "u1", "seed")

	reply, err := m.Ask(context.Background(), "u1", "", "plan my diet")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply != fit.reply {
		t.Errorf("reply = %q, want %q", reply, fit.reply)
	}
}

func TestPersistenceFailureAbortsTurn(t *testing.T) {
	db := newFakeDB()
	db.failAppend = true
	chat := &fakeChat{reply: "hi"}
	fit := &fakeFitness{reply: "plan"}
	m := newTestManager(db, chat, fit)
	_ = m.SetSystemMessage(context.Background(), "u1", "seed")

	_, err := m.Ask(context.Background(), "u1", "", "Hello")
	if !errors.Is(err, ErrTurnNotRecorded) {
		t.Fatalf("err = %v, want ErrTurnNotRecorded", err)
	}
	if chat.calls != 0 || fit.calls != 0 {
		t.Error("an unrecorded user turn must not reach any backend")
	}
	if got := m.Peek("u1").Transcript(); len(got) != 1 {
		t.Errorf("in-memory transcript gained turns despite aborted write: %+v", got)
	}
}

func TestGeneralChatFailureKeepsTranscriptConsistent(t *testing.T) {
	db := newFakeDB()
	chat := &fakeChat{err: errors.New("upstream 500")}
	m := newTestManager(db, chat, &fakeFitness{})
	_ = m.SetSystemMessage(context.Background(), "u1", "seed")

	_, err := m.Ask(context.Background(), "u1", "", "Hello")
	if err == nil {
		t.Fatal("general chat failure must surface an error")
	}
	// durable record keeps the user turn (append-only), the in-memory
	// transcript does not, so a retry still alternates
	if len(db.turns) != 1 || db.turns[0].Role != core.RoleUser {
		t.Errorf("durable turns = %+v", db.turns)
	}
	if got := m.Peek("u1").Transcript(); len(got) != 1 {
		t.Errorf("in-memory transcript = %+v, want system turn only", got)
	}

	// recovery: next message succeeds and alternation holds
	chat.err = nil
	chat.reply = "recovered"
	if _, err := m.Ask(context.Background(), "u1", "", "Hello again"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := m.Peek("u1").Transcript(); len(got) != 3 {
		t.Errorf("transcript length after recovery = %d, want 3", len(got))
	}
}

func TestSessionRehydratesFromPersistedSystemMessage(t *testing.T) {
	db := newFakeDB()
	chat := &fakeChat{reply: "welcome back"}
	m := newTestManager(db, chat, &fakeFitness{})

	// simulates a restart: no live session, but the user row carries a seed
	reply, err := m.Ask(context.Background(), "u1", "persisted seed", "Hello")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply != "welcome back" {
		t.Errorf("reply = %q", reply)
	}
	if chat.transcript[0].Content != "persisted seed" {
		t.Errorf("backend did not see the persisted system turn: %+v", chat.transcript)
	}
}

func TestSetSystemMessageOverwrites(t *testing.T) {
	db := newFakeDB()
	m := newTestManager(db, &fakeChat{reply: "ok"}, &fakeFitness{})

	_ = m.SetSystemMessage(context.Background(), "u1", "first")
	_ = m.SetSystemMessage(context.Background(), "u1", "second")

	got := m.Peek("u1").Transcript()
	if len(got) != 1 || got[0].Content != "second" {
		t.Errorf("transcript = %+v, want single overwritten system turn", got)
	}
	if db.system["u1"] != "second" {
		t.Error("overwrite not persisted")
	}
}

func TestSetSystemMessageRejectsEmpty(t *testing.T) {
	m := newTestManager(newFakeDB(), &fakeChat{}, &fakeFitness{})
	if err := m.SetSystemMessage(context.Background(), "u1", ""); err == nil {
		t.Fatal("empty system message must be rejected")
	}
}
