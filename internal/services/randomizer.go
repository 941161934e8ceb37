package services

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/quizcraft/quiz-service/internal/models"
)

// buildAttemptSession fixes the presentation of a quiz for one attempt:
// the question order (shuffled when the quiz-level flag is set) and, per
// question that opts in, the option order. Both shuffles are independent
// draws; either can be on without the other. The result is stored in the
// session store so reloads replay the same view instead of reshuffling.
//
// Only option IDs are permuted. Correctness stays attached to the ID, so
// scoring is untouched by any amount of shuffling.
func buildAttemptSession(attempt *models.Attempt, settings *models.QuizSettings, questions []models.Question, deadline *time.Time) (*models.AttemptSession, error) {
	questionOrder := make([]uint, len(questions))
	for i, q := range questions {
		questionOrder[i] = q.ID
	}
	if settings.RandomizeQuestions {
		rand.Shuffle(len(questionOrder), func(i, j int) {
			questionOrder[i], questionOrder[j] = questionOrder[j], questionOrder[i]
		})
	}

	optionOrder := make(map[string][]string)
	for _, q := range questions {
		if !q.RandomizeOptions {
			continue
		}
		opts, err := q.DecodeOptions()
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(opts))
		for i, opt := range opts {
			ids[i] = opt.ID
		}
		rand.Shuffle(len(ids), func(i, j int) {
			ids[i], ids[j] = ids[j], ids[i]
		})
		optionOrder[strconv.FormatUint(uint64(q.ID), 10)] = ids
	}

	return &models.AttemptSession{
		AttemptID:     attempt.ID,
		QuizID:        attempt.QuizID,
		StudentID:     attempt.StudentID,
		StartedAt:     *attempt.StartedAt,
		Deadline:      deadline,
		QuestionOrder: questionOrder,
		OptionOrder:   optionOrder,
	}, nil
}

// orderQuestions arranges questions into the order fixed for a session.
// Questions added to the quiz after the session started (an edge the editor
// does not normally produce) are appended in their stored order.
func orderQuestions(questions []models.Question, order []uint) []models.Question {
	byID := make(map[uint]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	out := make([]models.Question, 0, len(questions))
	seen := make(map[uint]bool, len(order))
	for _, id := range order {
		if q, ok := byID[id]; ok {
			out = append(out, q)
			seen[id] = true
		}
	}
	for _, q := range questions {
		if !seen[q.ID] {
			out = append(out, q)
		}
	}
	return out
}

// orderOptions arranges a question's options into the session's fixed order.
// Without a stored permutation the authored order is kept.
func orderOptions(opts []models.Option, order []string) []models.Option {
	if len(order) == 0 {
		return opts
	}

	byID := make(map[string]models.Option, len(opts))
	for _, opt := range opts {
		byID[opt.ID] = opt
	}

	out := make([]models.Option, 0, len(opts))
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if opt, ok := byID[id]; ok {
			out = append(out, opt)
			seen[id] = true
		}
	}
	for _, opt := range opts {
		if !seen[opt.ID] {
			out = append(out, opt)
		}
	}
	return out
}
