package domain

import "time"

// AttemptStats aggregates a user's attempts.
type AttemptStats struct {
	Attempts      int64
	AvgScore      float64
	LastAttemptAt *time.Time
}

// SkillTally counts answers and correct answers for one skill.
type SkillTally struct {
	SkillID   int64  `bun:"skill_id"`
	SkillName string `bun:"skill_name"`
	Total     int64  `bun:"total"`
	Correct   int64  `bun:"correct"`
}

// TrendQuery selects attempts in [Start, End] bucketed by day or ISO week.
type TrendQuery struct {
	Start   time.Time
	End     time.Time
	GroupBy string
	SkillID *int64
}

// TrendBucket is one time bucket of attempts.
type TrendBucket struct {
	Bucket   string  `bun:"bucket"`
	Attempts int64   `bun:"attempts"`
	AvgScore float64 `bun:"avg_score"`
}

// SkillUsers counts distinct users who answered questions of a skill.
type SkillUsers struct {
	SkillID   int64  `bun:"skill_id" json:"skillId"`
	SkillName string `bun:"skill_name" json:"skill"`
	Users     int64  `bun:"users" json:"users"`
}

// GroupQuery pages the per-user leaderboard.
type GroupQuery struct {
	OrderBy string // "avgScore" or "attempts"
	Desc    bool
	Limit   int
	Offset  int
}

// GroupRow is one user in the per-user leaderboard.
type GroupRow struct {
	UserID         int64      `bun:"user_id"`
	Name           string     `bun:"name"`
	Email          string     `bun:"email"`
	Attempts       int64      `bun:"attempts"`
	AvgScore       *float64   `bun:"avg_score"`
	LastAttemptAt  *time.Time `bun:"last_attempt_at"`
	SkillsCovered  int64      `bun:"skills_covered"`
	BestSkillName  *string    `bun:"best_skill_name"`
	BestCorrect    *int64     `bun:"best_correct"`
	BestTotal      *int64     `bun:"best_total"`
	WeakestSkill   *string    `bun:"weakest_skill_name"`
	WeakestCorrect *int64     `bun:"weakest_correct"`
	WeakestTotal   *int64     `bun:"weakest_total"`
}

// LeaderRow is one user's tally on a single skill.
type LeaderRow struct {
	UserID  int64  `bun:"user_id"`
	Name    string `bun:"name"`
	Email   string `bun:"email"`
	Total   int64  `bun:"total"`
	Correct int64  `bun:"correct"`
}

// SkillGapRow is one skill's tally across all users.
type SkillGapRow struct {
	SkillID      int64      `bun:"skill_id"`
	SkillName    string     `bun:"skill_name"`
	Total        int64      `bun:"total"`
	Correct      int64      `bun:"correct"`
	Users        int64      `bun:"users"`
	LastActivity *time.Time `bun:"last_activity"`
}
