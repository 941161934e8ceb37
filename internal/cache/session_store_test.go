package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/quizcraft/quiz-service/internal/models"
)

func newTestSessionStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSessionStore(client, time.Hour), mr
}

func TestSessionStoreSaveAndLoad(t *testing.T) {
	store, _ := newTestSessionStore(t)
	ctx := context.Background()

	started := time.Now().Truncate(time.Second)
	deadline := started.Add(30 * time.Minute)
	session := &models.AttemptSession{
		AttemptID:     1,
		QuizID:        7,
		StudentID:     "student-1",
		StartedAt:     started,
		Deadline:      &deadline,
		QuestionOrder: []uint{3, 1, 2},
		OptionOrder: map[string][]string{
			"1": {"c", "a", "b"},
		},
	}

	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(ctx, 7, "student-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.AttemptID != 1 || loaded.QuizID != 7 || loaded.StudentID != "student-1" {
		t.Errorf("loaded identity mismatch: %+v", loaded)
	}
	if loaded.Deadline == nil || !loaded.Deadline.Equal(deadline) {
		t.Errorf("Deadline = %v, expected %v", loaded.Deadline, deadline)
	}
	if len(loaded.QuestionOrder) != 3 || loaded.QuestionOrder[0] != 3 {
		t.Errorf("QuestionOrder = %v, expected [3 1 2]", loaded.QuestionOrder)
	}
	if len(loaded.OptionOrder["1"]) != 3 || loaded.OptionOrder["1"][0] != "c" {
		t.Errorf("OptionOrder = %v, expected c first", loaded.OptionOrder)
	}
}

func TestSessionStoreLoadMissing(t *testing.T) {
	store, _ := newTestSessionStore(t)

	_, err := store.Load(context.Background(), 99, "nobody")
	if err != ErrSessionNotFound {
		t.Errorf("Load() error = %v, expected ErrSessionNotFound", err)
	}
}

func TestSessionStoreDelete(t *testing.T) {
	store, _ := newTestSessionStore(t)
	ctx := context.Background()

	started := time.Now()
	session := &models.AttemptSession{
		AttemptID: 1,
		QuizID:    7,
		StudentID: "student-1",
		StartedAt: started,
	}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := store.Delete(ctx, 7, "student-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := store.Load(ctx, 7, "student-1"); err != ErrSessionNotFound {
		t.Errorf("Load() after delete error = %v, expected ErrSessionNotFound", err)
	}
}

func TestSessionStoreStartOverwrites(t *testing.T) {
	store, _ := newTestSessionStore(t)
	ctx := context.Background()

	started := time.Now()
	first := &models.AttemptSession{
		AttemptID:     1,
		QuizID:        7,
		StudentID:     "student-1",
		StartedAt:     started,
		QuestionOrder: []uint{1, 2},
	}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second := &models.AttemptSession{
		AttemptID:     2,
		QuizID:        7,
		StudentID:     "student-1",
		StartedAt:     started,
		QuestionOrder: []uint{2, 1},
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(ctx, 7, "student-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.AttemptID != 2 {
		t.Errorf("AttemptID = %d, expected the newer session to win", loaded.AttemptID)
	}
}

func TestSessionStoreWithoutRedis(t *testing.T) {
	store := NewSessionStore(nil, time.Hour)
	ctx := context.Background()

	if store.Persistent() {
		t.Fatal("Persistent() = true without a Redis client")
	}

	started := time.Now()
	session := &models.AttemptSession{
		AttemptID:     1,
		QuizID:        7,
		StudentID:     "student-1",
		StartedAt:     started,
		QuestionOrder: []uint{2, 1},
	}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// The ordering fixed at start must come back on reload even when Redis
	// is down, otherwise randomized quizzes reshuffle on every render
	loaded, err := store.Load(ctx, 7, "student-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.QuestionOrder) != 2 || loaded.QuestionOrder[0] != 2 {
		t.Errorf("QuestionOrder = %v, expected [2 1]", loaded.QuestionOrder)
	}

	// Loaded sessions are copies, mutating one must not corrupt the store
	loaded.QuestionOrder[0] = 99
	again, err := store.Load(ctx, 7, "student-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if again.AttemptID != 1 {
		t.Errorf("AttemptID = %d, expected 1", again.AttemptID)
	}

	if err := store.Delete(ctx, 7, "student-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, 7, "student-1"); err != ErrSessionNotFound {
		t.Errorf("Load() after delete error = %v, expected ErrSessionNotFound", err)
	}
}

func TestSessionStoreWithoutRedisExpiry(t *testing.T) {
	store := NewSessionStore(nil, time.Hour)
	ctx := context.Background()

	started := time.Now().Add(-3 * time.Hour)
	deadline := started.Add(time.Minute)
	session := &models.AttemptSession{
		AttemptID: 1,
		QuizID:    7,
		StudentID: "student-1",
		StartedAt: started,
		Deadline:  &deadline,
	}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Deadline long past, so the saved entry got only the base TTL; force
	// it into the past to exercise lazy expiry on Load
	store.mu.Lock()
	key := sessionKey(7, "student-1")
	entry := store.local[key]
	entry.expiresAt = time.Now().Add(-time.Second)
	store.local[key] = entry
	store.mu.Unlock()

	if _, err := store.Load(ctx, 7, "student-1"); err != ErrSessionNotFound {
		t.Errorf("Load() after expiry error = %v, expected ErrSessionNotFound", err)
	}
}

func TestSessionStoreTimedSessionExpiresInStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := NewSessionStore(client, time.Minute)
	ctx := context.Background()

	started := time.Now()
	deadline := started.Add(time.Minute)
	session := &models.AttemptSession{
		AttemptID: 1,
		QuizID:    7,
		StudentID: "student-1",
		StartedAt: started,
		Deadline:  &deadline,
	}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Past the deadline plus the grace TTL the entry is gone on its own
	mr.FastForward(3 * time.Minute)

	if _, err := store.Load(ctx, 7, "student-1"); err != ErrSessionNotFound {
		t.Errorf("Load() after TTL error = %v, expected ErrSessionNotFound", err)
	}
}
