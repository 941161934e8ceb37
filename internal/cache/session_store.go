package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quizcraft/quiz-service/internal/models"
)

// SessionStore holds the per-attempt working state: the absolute timer
// deadline and the presentation ordering fixed at start. Keys are the
// structured (quizID, studentID) pair, so a reload from any tab of the same
// student lands on the same session. Entries expire on their own after the
// TTL; explicit Delete on submit is cleanup, not a correctness requirement.
//
// Without a Redis client the store falls back to an in-process map, so a
// single instance running degraded still keeps randomized orderings stable
// across reloads. The fallback does not survive restarts.
type SessionStore struct {
	helper *CacheHelper
	ttl    time.Duration

	mu    sync.Mutex
	local map[string]localSession
}

type localSession struct {
	session   models.AttemptSession
	expiresAt time.Time
}

// cloneSession detaches the slice and map fields so callers mutating a
// loaded session cannot reach into the stored one. The Redis path gets the
// same isolation for free from the JSON round trip.
func cloneSession(s *models.AttemptSession) models.AttemptSession {
	clone := *s
	if s.Deadline != nil {
		deadline := *s.Deadline
		clone.Deadline = &deadline
	}
	if s.QuestionOrder != nil {
		clone.QuestionOrder = append([]uint(nil), s.QuestionOrder...)
	}
	if s.OptionOrder != nil {
		clone.OptionOrder = make(map[string][]string, len(s.OptionOrder))
		for id, order := range s.OptionOrder {
			clone.OptionOrder[id] = append([]string(nil), order...)
		}
	}
	return clone
}

// NewSessionStore creates a session store with the given default TTL.
// A nil client selects the in-process fallback.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	store := &SessionStore{
		helper: NewCacheHelper(client, "attempt_session:"),
		ttl:    ttl,
	}
	if client == nil {
		store.local = make(map[string]localSession)
	}
	return store
}

// Persistent reports whether sessions outlive this process.
func (s *SessionStore) Persistent() bool {
	return s.local == nil
}

func sessionKey(quizID uint, studentID string) string {
	return fmt.Sprintf("quiz:%d:student:%s", quizID, studentID)
}

// sessionTTL gives timed sessions until their deadline plus the store TTL
// as grace; untimed sessions live for the TTL alone.
func (s *SessionStore) sessionTTL(session *models.AttemptSession) time.Duration {
	ttl := s.ttl
	if session.Deadline != nil {
		if until := time.Until(*session.Deadline); until > 0 {
			ttl = until + s.ttl
		}
	}
	return ttl
}

// Save persists the session.
func (s *SessionStore) Save(ctx context.Context, session *models.AttemptSession) error {
	if s.local != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.local[sessionKey(session.QuizID, session.StudentID)] = localSession{
			session:   cloneSession(session),
			expiresAt: time.Now().Add(s.sessionTTL(session)),
		}
		return nil
	}
	return s.helper.Set(ctx, sessionKey(session.QuizID, session.StudentID), session, s.sessionTTL(session))
}

// Load returns the stored session, or ErrSessionNotFound when none exists
// (never started, already cleaned up, or expired out of the store).
func (s *SessionStore) Load(ctx context.Context, quizID uint, studentID string) (*models.AttemptSession, error) {
	if s.local != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		key := sessionKey(quizID, studentID)
		entry, ok := s.local[key]
		if !ok {
			return nil, ErrSessionNotFound
		}
		if time.Now().After(entry.expiresAt) {
			delete(s.local, key)
			return nil, ErrSessionNotFound
		}
		session := cloneSession(&entry.session)
		return &session, nil
	}

	var session models.AttemptSession
	err := s.helper.Get(ctx, sessionKey(quizID, studentID), &session)
	if err != nil {
		if err == ErrCacheNotFound || err == ErrCacheNotAvailable {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Delete removes the session. Called on submit; a stale entry left behind
// is harmless since starts always overwrite.
func (s *SessionStore) Delete(ctx context.Context, quizID uint, studentID string) error {
	if s.local != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.local, sessionKey(quizID, studentID))
		return nil
	}
	return s.helper.Delete(ctx, sessionKey(quizID, studentID))
}

var ErrSessionNotFound = fmt.Errorf("attempt session not found")
