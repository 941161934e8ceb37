package services

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/quizcraft/quiz-service/internal/models"
	"github.com/quizcraft/quiz-service/internal/repositories"
)

// mockRepository is an in-memory Repository for service tests. The tx
// parameter is accepted and ignored everywhere; reads hand out copies so a
// caller mutating its result does not bleed into the store.
type mockRepository struct {
	quiz      *mockQuizRepo
	settings  *mockSettingsRepo
	questions *mockQuestionRepo
	attempts  *mockAttemptRepo
	users     *mockUserRepo
	dashboard *mockDashboardRepo
}

func newMockRepository() *mockRepository {
	m := &mockRepository{
		settings:  &mockSettingsRepo{store: make(map[uint]*models.QuizSettings)},
		questions: &mockQuestionRepo{store: make(map[uint][]*models.Question)},
		attempts:  &mockAttemptRepo{store: make(map[uint]*models.Attempt)},
		users:     &mockUserRepo{store: make(map[string]*models.User)},
		dashboard: &mockDashboardRepo{},
	}
	m.quiz = &mockQuizRepo{store: make(map[uint]*models.Quiz), parent: m}
	return m
}

func (m *mockRepository) Quiz() repositories.QuizRepository                 { return m.quiz }
func (m *mockRepository) QuizSettings() repositories.QuizSettingsRepository { return m.settings }
func (m *mockRepository) Question() repositories.QuestionRepository        { return m.questions }
func (m *mockRepository) Attempt() repositories.AttemptRepository          { return m.attempts }
func (m *mockRepository) User() repositories.UserRepository                { return m.users }
func (m *mockRepository) Dashboard() repositories.DashboardRepository      { return m.dashboard }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// seedQuiz stores a quiz together with its settings and questions and
// returns the assigned quiz id.
func (m *mockRepository) seedQuiz(quiz *models.Quiz) uint {
	if quiz.ID == 0 {
		quiz.ID = m.quiz.nextID + 1
	}
	m.quiz.nextID = quiz.ID
	quiz.Settings.QuizID = quiz.ID

	stored := *quiz
	m.quiz.store[quiz.ID] = &stored

	settings := quiz.Settings
	m.settings.store[quiz.ID] = &settings

	for i := range quiz.Questions {
		q := quiz.Questions[i]
		q.QuizID = quiz.ID
		m.questions.store[quiz.ID] = append(m.questions.store[quiz.ID], &q)
	}
	return quiz.ID
}

// ===== QUIZ =====

type mockQuizRepo struct {
	store  map[uint]*models.Quiz
	nextID uint
	parent *mockRepository
}

func (m *mockQuizRepo) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	m.nextID++
	quiz.ID = m.nextID
	stored := *quiz
	m.store[quiz.ID] = &stored
	return nil
}

func (m *mockQuizRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	quiz, ok := m.store[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *quiz
	return &out, nil
}

func (m *mockQuizRepo) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	quiz, err := m.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if settings, ok := m.parent.settings.store[id]; ok {
		quiz.Settings = *settings
	}
	quiz.Questions = nil
	for _, q := range m.parent.questions.store[id] {
		quiz.Questions = append(quiz.Questions, *q)
	}
	return quiz, nil
}

func (m *mockQuizRepo) Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	if _, ok := m.store[quiz.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *quiz
	m.store[quiz.ID] = &stored
	return nil
}

func (m *mockQuizRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(m.store, id)
	return nil
}

func (m *mockQuizRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	var out []*models.Quiz
	for _, quiz := range m.store {
		q := *quiz
		out = append(out, &q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m *mockQuizRepo) GetByInstructor(ctx context.Context, tx *gorm.DB, instructorID string, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	var out []*models.Quiz
	for _, quiz := range m.store {
		if quiz.InstructorID == instructorID {
			q := *quiz
			out = append(out, &q)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockQuizRepo) GetActive(ctx context.Context, tx *gorm.DB, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	var out []*models.Quiz
	for id, quiz := range m.store {
		if settings, ok := m.parent.settings.store[id]; ok && settings.Active {
			q := *quiz
			out = append(out, &q)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockQuizRepo) Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	_, ok := m.store[id]
	return ok, nil
}

func (m *mockQuizRepo) IsOwner(ctx context.Context, tx *gorm.DB, id uint, instructorID string) (bool, error) {
	quiz, ok := m.store[id]
	if !ok {
		return false, nil
	}
	return quiz.InstructorID == instructorID, nil
}

// ===== QUIZ SETTINGS =====

type mockSettingsRepo struct {
	store map[uint]*models.QuizSettings
}

func (m *mockSettingsRepo) Create(ctx context.Context, tx *gorm.DB, settings *models.QuizSettings) error {
	stored := *settings
	m.store[settings.QuizID] = &stored
	return nil
}

func (m *mockSettingsRepo) GetByQuizID(ctx context.Context, tx *gorm.DB, quizID uint) (*models.QuizSettings, error) {
	settings, ok := m.store[quizID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *settings
	return &out, nil
}

func (m *mockSettingsRepo) Update(ctx context.Context, tx *gorm.DB, settings *models.QuizSettings) error {
	stored := *settings
	m.store[settings.QuizID] = &stored
	return nil
}

// ===== QUESTIONS =====

type mockQuestionRepo struct {
	store  map[uint][]*models.Question
	nextID uint
}

func (m *mockQuestionRepo) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	m.nextID++
	question.ID = m.nextID
	stored := *question
	m.store[question.QuizID] = append(m.store[question.QuizID], &stored)
	return nil
}

func (m *mockQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	for _, questions := range m.store {
		for _, q := range questions {
			if q.ID == id {
				out := *q
				return &out, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQuestionRepo) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	for quizID, questions := range m.store {
		for i, q := range questions {
			if q.ID == question.ID {
				stored := *question
				m.store[quizID][i] = &stored
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockQuestionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	for quizID, questions := range m.store {
		for i, q := range questions {
			if q.ID == id {
				m.store[quizID] = append(questions[:i], questions[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (m *mockQuestionRepo) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	for _, q := range questions {
		if err := m.Create(ctx, tx, q); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockQuestionRepo) ReplaceForQuiz(ctx context.Context, tx *gorm.DB, quizID uint, questions []*models.Question) error {
	m.store[quizID] = nil
	for _, q := range questions {
		q.QuizID = quizID
		if err := m.Create(ctx, tx, q); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockQuestionRepo) GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.Question, error) {
	var out []*models.Question
	for _, q := range m.store[quizID] {
		copy := *q
		out = append(out, &copy)
	}
	return out, nil
}

func (m *mockQuestionRepo) CountByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) (int64, error) {
	return int64(len(m.store[quizID])), nil
}

// ===== ATTEMPTS =====

type mockAttemptRepo struct {
	store  map[uint]*models.Attempt
	nextID uint
}

func (m *mockAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	m.nextID++
	attempt.ID = m.nextID
	stored := *attempt
	m.store[attempt.ID] = &stored
	return nil
}

func (m *mockAttemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	attempt, ok := m.store[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *attempt
	return &out, nil
}

func (m *mockAttemptRepo) Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	if _, ok := m.store[attempt.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *attempt
	m.store[attempt.ID] = &stored
	return nil
}

func (m *mockAttemptRepo) GetByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) ([]*models.Attempt, error) {
	var out []*models.Attempt
	for _, a := range m.store {
		if a.QuizID == quizID && a.StudentID == studentID {
			copy := *a
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (m *mockAttemptRepo) GetActiveAttempt(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (*models.Attempt, error) {
	for _, a := range m.store {
		if a.QuizID == quizID && a.StudentID == studentID && a.Status == models.AttemptInProgress {
			out := *a
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockAttemptRepo) GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var out []*models.Attempt
	for _, a := range m.store {
		if a.QuizID == quizID {
			copy := *a
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m *mockAttemptRepo) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var out []*models.Attempt
	for _, a := range m.store {
		if a.StudentID == studentID {
			copy := *a
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m *mockAttemptRepo) HasCompletedAttempt(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (bool, error) {
	for _, a := range m.store {
		if a.QuizID == quizID && a.StudentID == studentID &&
			(a.Status == models.AttemptCompleted || a.Status == models.AttemptTimeOut) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAttemptRepo) HasActiveAttempt(ctx context.Context, tx *gorm.DB, quizID uint, studentID string) (bool, error) {
	active, err := m.GetActiveAttempt(ctx, tx, quizID, studentID)
	return active != nil, err
}

func (m *mockAttemptRepo) GetExpiredInProgress(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*models.Attempt, error) {
	var out []*models.Attempt
	for _, a := range m.store {
		if a.Status == models.AttemptInProgress && a.DeadlineAt != nil && !a.DeadlineAt.After(now) {
			copy := *a
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockAttemptRepo) GetQuizAggregate(ctx context.Context, tx *gorm.DB, quizID uint) (*repositories.QuizAggregate, error) {
	agg := &repositories.QuizAggregate{}
	finished := 0
	var scoreSum float64
	for _, a := range m.store {
		if a.QuizID != quizID {
			continue
		}
		agg.TotalAttempts++
		switch a.Status {
		case models.AttemptCompleted:
			agg.CompletedAttempts++
		case models.AttemptTimeOut:
			agg.TimedOutAttempts++
		default:
			continue
		}
		finished++
		scoreSum += a.Score
	}
	if finished > 0 {
		agg.AverageScore = scoreSum / float64(finished)
	}
	return agg, nil
}

// ===== USERS =====

type mockUserRepo struct {
	store map[string]*models.User
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.store[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *user
	return &out, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.store {
		if user.Email == email {
			out := *user
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if user, ok := m.store[id]; ok {
			copy := *user
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (m *mockUserRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, ok := m.store[id]
	return ok, nil
}

func (m *mockUserRepo) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	user, ok := m.store[id]
	if !ok {
		return false, nil
	}
	return user.Role == role, nil
}

// ===== DASHBOARD =====

type mockDashboardRepo struct{}

func (m *mockDashboardRepo) GetInstructorStats(ctx context.Context, tx *gorm.DB, instructorID string) (*repositories.InstructorStats, error) {
	return &repositories.InstructorStats{}, nil
}

func (m *mockDashboardRepo) GetScoreDistribution(ctx context.Context, tx *gorm.DB, quizID uint, bucketSize float64) ([]repositories.ScoreDistributionData, error) {
	return nil, nil
}

func (m *mockDashboardRepo) GetRecentAttempts(ctx context.Context, tx *gorm.DB, quizID uint, limit int) ([]repositories.RecentAttemptData, error) {
	return nil, nil
}

func (m *mockDashboardRepo) GetAnswerCounts(ctx context.Context, tx *gorm.DB, quizID uint) (map[uint]map[string]int, error) {
	return nil, nil
}
