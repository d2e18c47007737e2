package app

import (
	"context"

	"skill-quiz-service/internal/domain"
)

// SkillStore persists skills.
type SkillStore interface {
	CreateSkill(ctx context.Context, skill *domain.Skill) error
	ListSkills(ctx context.Context) ([]domain.Skill, error)
	GetSkill(ctx context.Context, id int64) (domain.Skill, error)
	SkillNameTaken(ctx context.Context, name string, exceptID int64) (bool, error)
	UpdateSkill(ctx context.Context, skill *domain.Skill) error
	DeleteSkill(ctx context.Context, id int64) error
}

// QuizStore persists quizzes.
type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz *domain.Quiz) error
	ListQuizzesBySkill(ctx context.Context, skillID int64, publishedOnly bool) ([]domain.Quiz, error)
	GetQuiz(ctx context.Context, id int64) (domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error
	DeleteQuiz(ctx context.Context, id int64) error
}

// QuestionStore persists questions.
type QuestionStore interface {
	CreateQuestion(ctx context.Context, q *domain.Question) error
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
	ListQuestions(ctx context.Context, f domain.QuestionFilter) ([]domain.Question, int64, error)
	QuestionsByQuiz(ctx context.Context, quizID int64) ([]domain.Question, error)
	QuestionsByIDs(ctx context.Context, ids []int64) ([]domain.Question, error)
	CountQuestionsBySkill(ctx context.Context, skillID int64) (int64, error)
	UpdateQuestion(ctx context.Context, q *domain.Question) error
	DeleteQuestions(ctx context.Context, ids []int64) (int64, error)
	DeleteQuestionsBySkill(ctx context.Context, skillID int64) (int64, error)
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id int64) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error
	DeleteUser(ctx context.Context, id int64) error
}

// AttemptStore persists attempts and their answers.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, a *domain.Attempt) error
	CreateAnswers(ctx context.Context, answers []domain.Answer) error
	ListAttempts(ctx context.Context, f domain.AttemptFilter) ([]domain.AttemptRecord, int64, error)
	AnswersByAttempts(ctx context.Context, attemptIDs []int64) ([]domain.AnswerDetail, error)
}

// Store is the data-access client shared by all use cases. InTx runs fn in a
// single all-or-nothing unit of work; a non-nil error from fn rolls it back.
// Get* methods return the matching domain.ErrXNotFound when nothing matches.
type Store interface {
	SkillStore
	QuizStore
	QuestionStore
	UserStore
	AttemptStore
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// ReportStore runs the read-only aggregate queries behind reports.
type ReportStore interface {
	UserAttemptStats(ctx context.Context, userID int64) (domain.AttemptStats, error)
	UserSkillTallies(ctx context.Context, userID int64) ([]domain.SkillTally, error)
	TrendBuckets(ctx context.Context, q domain.TrendQuery) ([]domain.TrendBucket, error)
	SkillUserCount(ctx context.Context, q domain.TrendQuery) (int64, error)
	UsersPerSkill(ctx context.Context, q domain.TrendQuery) ([]domain.SkillUsers, error)
	GroupOverview(ctx context.Context, q domain.GroupQuery) ([]domain.GroupRow, error)
	SkillLeaderboard(ctx context.Context, skillID, minAnswers int64, limit int) ([]domain.LeaderRow, error)
	SkillGaps(ctx context.Context, minAnswers int64, limit int) ([]domain.SkillGapRow, error)
}
