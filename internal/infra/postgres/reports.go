package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/domain"
)

// Reports runs the read-only aggregate queries. Every value is bound through
// bun placeholders; identifiers come from fixed whitelists.
type Reports struct {
	db *bun.DB
}

var _ app.ReportStore = (*Reports)(nil)

func NewReports(db *bun.DB) *Reports {
	return &Reports{db: db}
}

const answerJoins = `
FROM quiz_answers AS a
JOIN quiz_attempts AS att ON att.id = a.attempt_id
JOIN questions AS q ON q.id = a.question_id`

func (r *Reports) query(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	return r.db.ScanRows(ctx, rows, dest)
}

func (r *Reports) UserAttemptStats(ctx context.Context, userID int64) (domain.AttemptStats, error) {
	var stats []domain.AttemptStats
	err := r.query(ctx, &stats, `
SELECT COUNT(*) AS attempts,
       COALESCE(AVG(total_score), 0)::float8 AS avg_score,
       MAX(created_at) AS last_attempt_at
FROM quiz_attempts
WHERE user_id = ?`, userID)
	if err != nil {
		return domain.AttemptStats{}, fmt.Errorf("attempt stats: %w", err)
	}
	if len(stats) == 0 {
		return domain.AttemptStats{}, nil
	}
	return stats[0], nil
}

func (r *Reports) UserSkillTallies(ctx context.Context, userID int64) ([]domain.SkillTally, error) {
	out := []domain.SkillTally{}
	err := r.query(ctx, &out, `
SELECT s.id AS skill_id, s.name AS skill_name,
       COUNT(a.id) AS total,
       COUNT(*) FILTER (WHERE a.is_correct) AS correct`+answerJoins+`
JOIN skills AS s ON s.id = q.skill_id
WHERE att.user_id = ?
GROUP BY s.id, s.name
ORDER BY s.name`, userID)
	return out, err
}

func (r *Reports) TrendBuckets(ctx context.Context, q domain.TrendQuery) ([]domain.TrendBucket, error) {
	format := "YYYY-MM-DD"
	if q.GroupBy == "week" {
		format = "IYYY-IW"
	}
	out := []domain.TrendBucket{}
	err := r.query(ctx, &out, `
SELECT to_char(att.created_at, ?) AS bucket,
       COUNT(*) AS attempts,
       COALESCE(AVG(att.total_score), 0)::float8 AS avg_score
FROM quiz_attempts AS att
WHERE att.created_at BETWEEN ? AND ?
  AND (?::bigint IS NULL OR EXISTS (
        SELECT 1
        FROM quiz_answers AS a
        JOIN questions AS q ON q.id = a.question_id
        WHERE a.attempt_id = att.id AND q.skill_id = ?))
GROUP BY bucket
ORDER BY bucket ASC`, format, q.Start, q.End, q.SkillID, q.SkillID)
	return out, err
}

func (r *Reports) SkillUserCount(ctx context.Context, q domain.TrendQuery) (int64, error) {
	var users int64
	err := r.query(ctx, &users, `
SELECT COUNT(DISTINCT att.user_id)`+answerJoins+`
WHERE att.created_at BETWEEN ? AND ?
  AND q.skill_id = ?`, q.Start, q.End, q.SkillID)
	return users, err
}

func (r *Reports) UsersPerSkill(ctx context.Context, q domain.TrendQuery) ([]domain.SkillUsers, error) {
	out := []domain.SkillUsers{}
	err := r.query(ctx, &out, `
SELECT s.id AS skill_id, s.name AS skill_name,
       COUNT(DISTINCT att.user_id) AS users`+answerJoins+`
JOIN skills AS s ON s.id = q.skill_id
WHERE att.created_at BETWEEN ? AND ?
GROUP BY s.id, s.name
ORDER BY users DESC, s.name ASC`, q.Start, q.End)
	return out, err
}

var groupOrderColumns = map[string]string{
	"avgScore": "avg_score",
	"attempts": "attempts",
}

// GroupOverview ranks every user. Best and weakest skill are the first rows
// of the per-user skill tallies ordered by accuracy, ties broken by name.
func (r *Reports) GroupOverview(ctx context.Context, q domain.GroupQuery) ([]domain.GroupRow, error) {
	col, ok := groupOrderColumns[q.OrderBy]
	if !ok {
		col = "avg_score"
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	out := []domain.GroupRow{}
	err := r.query(ctx, &out, `
WITH tallies AS (
    SELECT att.user_id, s.id AS skill_id, s.name AS skill_name,
           COUNT(*) AS total,
           COUNT(*) FILTER (WHERE a.is_correct) AS correct`+answerJoins+`
    JOIN skills AS s ON s.id = q.skill_id
    GROUP BY att.user_id, s.id, s.name
), ranked AS (
    SELECT t.*,
           ROW_NUMBER() OVER (PARTITION BY t.user_id ORDER BY t.correct::float8 / t.total DESC, t.skill_name) AS best_rank,
           ROW_NUMBER() OVER (PARTITION BY t.user_id ORDER BY t.correct::float8 / t.total ASC, t.skill_name) AS weak_rank
    FROM tallies AS t
), user_attempts AS (
    SELECT user_id, COUNT(*) AS attempts, AVG(total_score)::float8 AS avg_score, MAX(created_at) AS last_attempt_at
    FROM quiz_attempts
    GROUP BY user_id
)
SELECT u.id AS user_id, u.name, u.email,
       COALESCE(ua.attempts, 0) AS attempts,
       ua.avg_score,
       ua.last_attempt_at,
       (SELECT COUNT(*) FROM tallies AS t WHERE t.user_id = u.id) AS skills_covered,
       b.skill_name AS best_skill_name, b.correct AS best_correct, b.total AS best_total,
       w.skill_name AS weakest_skill_name, w.correct AS weakest_correct, w.total AS weakest_total
FROM users AS u
LEFT JOIN user_attempts AS ua ON ua.user_id = u.id
LEFT JOIN ranked AS b ON b.user_id = u.id AND b.best_rank = 1
LEFT JOIN ranked AS w ON w.user_id = u.id AND w.weak_rank = 1
ORDER BY ? ? NULLS LAST, u.id
LIMIT ? OFFSET ?`, bun.Ident(col), bun.Safe(dir), q.Limit, q.Offset)
	return out, err
}

func (r *Reports) SkillLeaderboard(ctx context.Context, skillID, minAnswers int64, limit int) ([]domain.LeaderRow, error) {
	out := []domain.LeaderRow{}
	err := r.query(ctx, &out, `
SELECT u.id AS user_id, u.name, u.email,
       COUNT(a.id) AS total,
       COUNT(*) FILTER (WHERE a.is_correct) AS correct`+answerJoins+`
JOIN users AS u ON u.id = att.user_id
WHERE q.skill_id = ?
GROUP BY u.id, u.name, u.email
HAVING COUNT(a.id) >= ?
ORDER BY COUNT(*) FILTER (WHERE a.is_correct)::float8 / COUNT(a.id) DESC, COUNT(a.id) DESC, u.id
LIMIT ?`, skillID, minAnswers, limit)
	return out, err
}

func (r *Reports) SkillGaps(ctx context.Context, minAnswers int64, limit int) ([]domain.SkillGapRow, error) {
	out := []domain.SkillGapRow{}
	err := r.query(ctx, &out, `
SELECT s.id AS skill_id, s.name AS skill_name,
       COUNT(a.id) AS total,
       COUNT(*) FILTER (WHERE a.is_correct) AS correct,
       COUNT(DISTINCT att.user_id) AS users,
       MAX(att.created_at) AS last_activity`+answerJoins+`
JOIN skills AS s ON s.id = q.skill_id
GROUP BY s.id, s.name
HAVING COUNT(a.id) >= ?
ORDER BY COUNT(*) FILTER (WHERE a.is_correct)::float8 / COUNT(a.id) ASC, s.name
LIMIT ?`, minAnswers, limit)
	return out, err
}
