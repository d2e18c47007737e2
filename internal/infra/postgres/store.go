package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/domain"
)

// Store implements app.Store on bun. Inside InTx every method runs on the
// transaction; otherwise on the pooled connection.
type Store struct {
	db   bun.IDB
	root *bun.DB
	now  func() time.Time
}

var _ app.Store = (*Store)(nil)

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, root: db, now: time.Now}
}

func (s *Store) InTx(ctx context.Context, fn func(tx app.Store) error) error {
	if _, ok := s.db.(bun.Tx); ok {
		return fn(s)
	}
	return s.root.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(&Store{db: tx, root: s.root, now: s.now})
	})
}

func (s *Store) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Skills

func (s *Store) CreateSkill(ctx context.Context, skill *domain.Skill) error {
	now := s.stamp()
	row := &skillRow{Name: skill.Name, Description: skill.Description, CreatedAt: now, UpdatedAt: now}
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return translate(err, nil)
	}
	*skill = row.domain()
	return nil
}

func (s *Store) ListSkills(ctx context.Context) ([]domain.Skill, error) {
	var rows []skillRow
	if err := s.db.NewSelect().Model(&rows).Order("s.id").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.Skill, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out, nil
}

func (s *Store) GetSkill(ctx context.Context, id int64) (domain.Skill, error) {
	var row skillRow
	if err := s.db.NewSelect().Model(&row).Where("s.id = ?", id).Scan(ctx); err != nil {
		return domain.Skill{}, translate(err, domain.ErrSkillNotFound)
	}
	return row.domain(), nil
}

func (s *Store) SkillNameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	return s.db.NewSelect().
		Model((*skillRow)(nil)).
		Where("s.name = ?", name).
		Where("s.id <> ?", exceptID).
		Exists(ctx)
}

func (s *Store) UpdateSkill(ctx context.Context, skill *domain.Skill) error {
	skill.UpdatedAt = s.stamp()
	res, err := s.db.NewUpdate().
		Model((*skillRow)(nil)).
		Set("name = ?", skill.Name).
		Set("description = ?", skill.Description).
		Set("updated_at = ?", skill.UpdatedAt).
		Where("id = ?", skill.ID).
		Exec(ctx)
	return affected(res, translate(err, nil), domain.ErrSkillNotFound)
}

func (s *Store) DeleteSkill(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*skillRow)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.ErrSkillNotFound)
}

// Quizzes

func (s *Store) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	now := s.stamp()
	row := &quizRow{
		SkillID:      quiz.SkillID,
		Title:        quiz.Title,
		Description:  quiz.Description,
		TimeLimitSec: quiz.TimeLimitSec,
		IsPublished:  quiz.IsPublished,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return translate(err, nil)
	}
	*quiz = row.domain()
	return nil
}

func (s *Store) ListQuizzesBySkill(ctx context.Context, skillID int64, publishedOnly bool) ([]domain.Quiz, error) {
	var rows []quizRow
	q := s.db.NewSelect().Model(&rows).Where("qz.skill_id = ?", skillID)
	if publishedOnly {
		q = q.Where("qz.is_published")
	}
	if err := q.OrderExpr("qz.created_at DESC, qz.id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.Quiz, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out, nil
}

func (s *Store) GetQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	var row quizRow
	if err := s.db.NewSelect().Model(&row).Where("qz.id = ?", id).Scan(ctx); err != nil {
		return domain.Quiz{}, translate(err, domain.ErrQuizNotFound)
	}
	return row.domain(), nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	quiz.UpdatedAt = s.stamp()
	res, err := s.db.NewUpdate().
		Model((*quizRow)(nil)).
		Set("skill_id = ?", quiz.SkillID).
		Set("title = ?", quiz.Title).
		Set("description = ?", quiz.Description).
		Set("time_limit_sec = ?", quiz.TimeLimitSec).
		Set("is_published = ?", quiz.IsPublished).
		Set("updated_at = ?", quiz.UpdatedAt).
		Where("id = ?", quiz.ID).
		Exec(ctx)
	return affected(res, translate(err, nil), domain.ErrQuizNotFound)
}

func (s *Store) DeleteQuiz(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*quizRow)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.ErrQuizNotFound)
}

// Questions

func (s *Store) CreateQuestion(ctx context.Context, q *domain.Question) error {
	now := s.stamp()
	q.CreatedAt, q.UpdatedAt = now, now
	row := newQuestionRow(q)
	if _, err := s.db.NewInsert().Model(row).ExcludeColumn("id").Returning("id").Exec(ctx); err != nil {
		return translate(err, nil)
	}
	q.ID = row.ID
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	var row questionRow
	if err := s.db.NewSelect().Model(&row).Where("q.id = ?", id).Scan(ctx); err != nil {
		return domain.Question{}, translate(err, domain.ErrQuestionNotFound)
	}
	return row.domain(), nil
}

func (s *Store) ListQuestions(ctx context.Context, f domain.QuestionFilter) ([]domain.Question, int64, error) {
	var rows []questionRow
	q := s.db.NewSelect().Model(&rows)
	if f.SkillID != nil {
		q = q.Where("q.skill_id = ?", *f.SkillID)
	}
	if f.QuizID != nil {
		q = q.Where("q.quiz_id = ?", *f.QuizID)
	}
	if f.Search != "" {
		q = q.Where("q.question_text ILIKE ?", "%"+escapeLike(f.Search)+"%")
	}
	if f.PublishedOnly {
		q = q.Where("EXISTS (SELECT 1 FROM quizzes AS qz WHERE qz.id = q.quiz_id AND qz.is_published)")
	}
	if f.Shuffle {
		q = q.OrderExpr("random()")
	} else {
		dir := "ASC"
		if f.Desc {
			dir = "DESC"
		}
		q = q.OrderExpr("? ?, q.id ?", bun.Ident("q."+sortColumn(f.Sort)), bun.Safe(dir), bun.Safe(dir))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	total, err := q.Offset(f.Offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Question, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out, int64(total), nil
}

// sortColumn guards the ORDER BY column against anything but known columns.
func sortColumn(col string) string {
	switch col {
	case "id", "points", "question_text", "created_at":
		return col
	default:
		return "created_at"
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *Store) QuestionsByQuiz(ctx context.Context, quizID int64) ([]domain.Question, error) {
	var rows []questionRow
	if err := s.db.NewSelect().Model(&rows).Where("q.quiz_id = ?", quizID).Order("q.id").Scan(ctx); err != nil {
		return nil, err
	}
	return questions(rows), nil
}

func (s *Store) QuestionsByIDs(ctx context.Context, ids []int64) ([]domain.Question, error) {
	if len(ids) == 0 {
		return []domain.Question{}, nil
	}
	var rows []questionRow
	if err := s.db.NewSelect().Model(&rows).Where("q.id IN (?)", bun.In(ids)).Order("q.id").Scan(ctx); err != nil {
		return nil, err
	}
	return questions(rows), nil
}

func questions(rows []questionRow) []domain.Question {
	out := make([]domain.Question, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out
}

func (s *Store) CountQuestionsBySkill(ctx context.Context, skillID int64) (int64, error) {
	n, err := s.db.NewSelect().Model((*questionRow)(nil)).Where("q.skill_id = ?", skillID).Count(ctx)
	return int64(n), err
}

func (s *Store) UpdateQuestion(ctx context.Context, q *domain.Question) error {
	q.UpdatedAt = s.stamp()
	row := newQuestionRow(q)
	res, err := s.db.NewUpdate().
		Model(row).
		Column("quiz_id", "skill_id", "question_text", "options", "correct_answer", "points", "updated_at").
		WherePK().
		Exec(ctx)
	return affected(res, translate(err, nil), domain.ErrQuestionNotFound)
}

func (s *Store) DeleteQuestions(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.db.NewDelete().Model((*questionRow)(nil)).Where("id IN (?)", bun.In(ids)).Exec(ctx)
	return rowsAffected(res, err)
}

func (s *Store) DeleteQuestionsBySkill(ctx context.Context, skillID int64) (int64, error) {
	res, err := s.db.NewDelete().Model((*questionRow)(nil)).Where("skill_id = ?", skillID).Exec(ctx)
	return rowsAffected(res, err)
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	now := s.stamp()
	u.CreatedAt, u.UpdatedAt = now, now
	row := newUserRow(u)
	if _, err := s.db.NewInsert().Model(row).ExcludeColumn("id").Returning("id").Exec(ctx); err != nil {
		return translate(err, nil)
	}
	u.ID = row.ID
	return nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var row userRow
	if err := s.db.NewSelect().Model(&row).Where("u.id = ?", id).Scan(ctx); err != nil {
		return domain.User{}, translate(err, domain.ErrUserNotFound)
	}
	return row.domain(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var row userRow
	if err := s.db.NewSelect().Model(&row).Where("u.email = ?", email).Scan(ctx); err != nil {
		return domain.User{}, translate(err, domain.ErrUserNotFound)
	}
	return row.domain(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := s.db.NewSelect().Model(&rows).Order("u.id").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = s.stamp()
	row := newUserRow(u)
	res, err := s.db.NewUpdate().
		Model(row).
		Column("name", "email", "password_hash", "role", "updated_at").
		WherePK().
		Exec(ctx)
	return affected(res, translate(err, nil), domain.ErrUserNotFound)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*userRow)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.ErrUserNotFound)
}

// Attempts

func (s *Store) CreateAttempt(ctx context.Context, a *domain.Attempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.stamp()
	}
	row := &attemptRow{
		UserID:       a.UserID,
		QuizID:       a.QuizID,
		TotalScore:   a.TotalScore,
		MaxScore:     a.MaxScore,
		NumQuestions: a.NumQuestions,
		DurationMs:   a.DurationMs,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return translate(err, nil)
	}
	a.ID = row.ID
	return nil
}

// CreateAnswers writes all rows with a single multi-row INSERT.
func (s *Store) CreateAnswers(ctx context.Context, answers []domain.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	now := s.stamp()
	rows := make([]answerRow, 0, len(answers))
	for _, a := range answers {
		rows = append(rows, answerRow{
			AttemptID:      a.AttemptID,
			QuestionID:     a.QuestionID,
			SelectedOption: a.SelectedOption,
			IsCorrect:      a.IsCorrect,
			PointsEarned:   a.PointsEarned,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	if _, err := s.db.NewInsert().Model(&rows).Returning("id").Exec(ctx); err != nil {
		return translate(err, nil)
	}
	for i := range answers {
		answers[i].ID = rows[i].ID
	}
	return nil
}

func (s *Store) ListAttempts(ctx context.Context, f domain.AttemptFilter) ([]domain.AttemptRecord, int64, error) {
	filter := func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("att.user_id = ?", f.UserID)
		if f.QuizID != nil {
			q = q.Where("att.quiz_id = ?", *f.QuizID)
		}
		return q
	}

	total, err := s.db.NewSelect().Model((*attemptRow)(nil)).Apply(filter).Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count attempts: %w", err)
	}

	var rows []attemptRecordRow
	err = s.db.NewSelect().
		TableExpr("quiz_attempts AS att").
		ColumnExpr("att.id, att.user_id, att.quiz_id, att.total_score, att.max_score, att.num_questions, att.duration_ms, att.created_at").
		ColumnExpr("qz.title AS quiz_title, qz.description AS quiz_description").
		ColumnExpr("s.id AS skill_id, s.name AS skill_name").
		Join("LEFT JOIN quizzes AS qz ON qz.id = att.quiz_id").
		Join("LEFT JOIN skills AS s ON s.id = qz.skill_id").
		Apply(filter).
		OrderExpr("att.created_at DESC, att.id DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Scan(ctx, &rows)
	if err != nil {
		return nil, 0, fmt.Errorf("select attempts: %w", err)
	}

	out := make([]domain.AttemptRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out, int64(total), nil
}

func (s *Store) AnswersByAttempts(ctx context.Context, attemptIDs []int64) ([]domain.AnswerDetail, error) {
	if len(attemptIDs) == 0 {
		return []domain.AnswerDetail{}, nil
	}
	var rows []answerDetailRow
	err := s.db.NewSelect().
		TableExpr("quiz_answers AS a").
		ColumnExpr("a.id, a.attempt_id, a.question_id, a.selected_option, a.is_correct, a.points_earned").
		ColumnExpr("q.question_text, q.correct_answer").
		Join("JOIN questions AS q ON q.id = a.question_id").
		Where("a.attempt_id IN (?)", bun.In(attemptIDs)).
		OrderExpr("a.attempt_id, a.id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AnswerDetail, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.AnswerDetail{
			Answer: domain.Answer{
				ID:             r.ID,
				AttemptID:      r.AttemptID,
				QuestionID:     r.QuestionID,
				SelectedOption: r.SelectedOption,
				IsCorrect:      r.IsCorrect,
				PointsEarned:   r.PointsEarned,
			},
			QuestionText:  r.QuestionText,
			CorrectAnswer: r.CorrectAnswer,
		})
	}
	return out, nil
}

func affected(res sql.Result, err error, notFound error) error {
	n, err := rowsAffected(res, err)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
