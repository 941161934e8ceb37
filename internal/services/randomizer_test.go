package services

import (
	"strconv"
	"testing"
	"time"

	"github.com/quizcraft/quiz-service/internal/models"
)

func makeAttemptForSession(t *testing.T) *models.Attempt {
	t.Helper()
	now := time.Now()
	return &models.Attempt{
		ID:        42,
		QuizID:    7,
		StudentID: "student-1",
		StartedAt: &now,
	}
}

func TestBuildAttemptSession_NoShuffleKeepsAuthoredOrder(t *testing.T) {
	questions := []models.Question{
		makeQuestion(t, 1, "a", "a", "b"),
		makeQuestion(t, 2, "a", "a", "b"),
		makeQuestion(t, 3, "a", "a", "b"),
	}
	settings := &models.QuizSettings{}

	session, err := buildAttemptSession(makeAttemptForSession(t), settings, questions, nil)
	if err != nil {
		t.Fatalf("buildAttemptSession() error = %v", err)
	}

	expected := []uint{1, 2, 3}
	for i, id := range session.QuestionOrder {
		if id != expected[i] {
			t.Fatalf("QuestionOrder = %v, expected %v", session.QuestionOrder, expected)
		}
	}
	if len(session.OptionOrder) != 0 {
		t.Errorf("expected no option permutations, got %v", session.OptionOrder)
	}
}

func TestBuildAttemptSession_QuestionShufflePreservesIDs(t *testing.T) {
	var questions []models.Question
	for id := uint(1); id <= 20; id++ {
		questions = append(questions, makeQuestion(t, id, "a", "a", "b"))
	}
	settings := &models.QuizSettings{RandomizeQuestions: true}

	session, err := buildAttemptSession(makeAttemptForSession(t), settings, questions, nil)
	if err != nil {
		t.Fatalf("buildAttemptSession() error = %v", err)
	}

	if len(session.QuestionOrder) != len(questions) {
		t.Fatalf("QuestionOrder has %d entries, expected %d", len(session.QuestionOrder), len(questions))
	}
	seen := make(map[uint]bool)
	for _, id := range session.QuestionOrder {
		if seen[id] {
			t.Fatalf("duplicate question id %d in order", id)
		}
		seen[id] = true
	}
	for _, q := range questions {
		if !seen[q.ID] {
			t.Fatalf("question %d missing from order", q.ID)
		}
	}
}

func TestBuildAttemptSession_OptionShuffleIsPerQuestion(t *testing.T) {
	shuffled := makeQuestion(t, 1, "a", "a", "b", "c", "d")
	shuffled.RandomizeOptions = true
	plain := makeQuestion(t, 2, "a", "a", "b")

	settings := &models.QuizSettings{}

	session, err := buildAttemptSession(makeAttemptForSession(t), settings, []models.Question{shuffled, plain}, nil)
	if err != nil {
		t.Fatalf("buildAttemptSession() error = %v", err)
	}

	order, ok := session.OptionOrder[strconv.FormatUint(uint64(shuffled.ID), 10)]
	if !ok {
		t.Fatal("expected an option permutation for the opted-in question")
	}
	if len(order) != 4 {
		t.Fatalf("permutation has %d ids, expected 4", len(order))
	}
	seen := make(map[string]bool)
	for _, id := range order {
		seen[id] = true
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		if !seen[id] {
			t.Fatalf("option %q missing from permutation %v", id, order)
		}
	}

	if _, ok := session.OptionOrder["2"]; ok {
		t.Error("question without randomize_options must not get a permutation")
	}
}

func TestBuildAttemptSession_CarriesDeadline(t *testing.T) {
	deadline := time.Now().Add(30 * time.Minute)

	session, err := buildAttemptSession(makeAttemptForSession(t), &models.QuizSettings{}, nil, &deadline)
	if err != nil {
		t.Fatalf("buildAttemptSession() error = %v", err)
	}
	if session.Deadline == nil || !session.Deadline.Equal(deadline) {
		t.Errorf("Deadline = %v, expected %v", session.Deadline, deadline)
	}
}

func TestOrderQuestions_ReplaysStoredPermutation(t *testing.T) {
	questions := []models.Question{
		makeQuestion(t, 1, "a", "a", "b"),
		makeQuestion(t, 2, "a", "a", "b"),
		makeQuestion(t, 3, "a", "a", "b"),
	}

	ordered := orderQuestions(questions, []uint{3, 1, 2})
	got := []uint{ordered[0].ID, ordered[1].ID, ordered[2].ID}
	expected := []uint{3, 1, 2}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("orderQuestions() = %v, expected %v", got, expected)
		}
	}
}

func TestOrderQuestions_AppendsUnseenQuestions(t *testing.T) {
	questions := []models.Question{
		makeQuestion(t, 1, "a", "a", "b"),
		makeQuestion(t, 2, "a", "a", "b"),
		makeQuestion(t, 3, "a", "a", "b"),
	}

	// Question 3 was added after the session was fixed
	ordered := orderQuestions(questions, []uint{2, 1})
	if len(ordered) != 3 {
		t.Fatalf("orderQuestions() dropped questions: %d != 3", len(ordered))
	}
	if ordered[0].ID != 2 || ordered[1].ID != 1 || ordered[2].ID != 3 {
		t.Errorf("order = [%d %d %d], expected [2 1 3]", ordered[0].ID, ordered[1].ID, ordered[2].ID)
	}
}

func TestOrderOptions_Replay(t *testing.T) {
	opts := []models.Option{
		{ID: "a", Text: "A", IsCorrect: true},
		{ID: "b", Text: "B"},
		{ID: "c", Text: "C"},
	}

	ordered := orderOptions(opts, []string{"c", "a", "b"})
	if ordered[0].ID != "c" || ordered[1].ID != "a" || ordered[2].ID != "b" {
		t.Errorf("order = [%s %s %s], expected [c a b]", ordered[0].ID, ordered[1].ID, ordered[2].ID)
	}

	// Correctness stays attached to the id, wherever it lands
	for _, opt := range ordered {
		if opt.ID == "a" && !opt.IsCorrect {
			t.Error("shuffling must not detach correctness from the option id")
		}
	}
}

func TestOrderOptions_NoPermutationKeepsAuthoredOrder(t *testing.T) {
	opts := []models.Option{
		{ID: "a", Text: "A"},
		{ID: "b", Text: "B"},
	}

	ordered := orderOptions(opts, nil)
	if ordered[0].ID != "a" || ordered[1].ID != "b" {
		t.Errorf("expected authored order to be kept, got [%s %s]", ordered[0].ID, ordered[1].ID)
	}
}
