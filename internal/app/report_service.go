package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skill-quiz-service/internal/domain"
)

const (
	defaultLeaderboardMinAnswers = 3
	defaultLeaderboardLimit      = 20
	defaultGapsMinAnswers        = 5
	defaultGapsLimit             = 100
	defaultGroupPageSize         = 10
	maxGroupPageSize             = 100
	maxReportLimit               = 500
)

// SkillAccuracy is a correct/total tally for one skill.
type SkillAccuracy struct {
	SkillID  int64   `json:"skillId"`
	Skill    string  `json:"skill"`
	Total    int64   `json:"total"`
	Correct  int64   `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// UserOverview summarizes one user's attempts.
type UserOverview struct {
	UserID        int64           `json:"userId"`
	TotalAttempts int64           `json:"totalAttempts"`
	AvgScore      float64         `json:"avgScore"`
	LastAttemptAt *time.Time      `json:"lastAttemptAt"`
	Skills        []SkillAccuracy `json:"skills"`
}

// UserSkillReport lists per-skill accuracy above a sample threshold.
type UserSkillReport struct {
	UserID      int64           `json:"userId"`
	MinAttempts int64           `json:"minAttempts"`
	Skills      []SkillAccuracy `json:"skills"`
}

// TrendRequest selects the window of a time trend. Start and End are
// YYYY-MM-DD and take precedence over Period ("week" or "month").
type TrendRequest struct {
	Period  string
	Start   string
	End     string
	GroupBy string
	SkillID *int64
}

// TrendPoint is one time bucket.
type TrendPoint struct {
	Bucket   string  `json:"bucket"`
	Attempts int64   `json:"attempts"`
	AvgScore float64 `json:"avgScore"`
}

// TimeTrend is attempts bucketed over time. Exactly one of
// UsersAttemptedForSkill and SkillsUsers is set, depending on the skill filter.
type TimeTrend struct {
	Start                  time.Time           `json:"start"`
	End                    time.Time           `json:"end"`
	GroupBy                string              `json:"groupBy"`
	SkillID                *int64              `json:"skillId"`
	Points                 []TrendPoint        `json:"points"`
	UsersAttemptedForSkill *int64              `json:"usersAttemptedForSkill"`
	SkillsUsers            []domain.SkillUsers `json:"skillsUsers"`
}

// GroupRequest pages the per-user leaderboard.
type GroupRequest struct {
	Page    int
	Limit   int
	OrderBy string
	Dir     string
}

// GroupEntry is one user in the per-user leaderboard.
type GroupEntry struct {
	UserID           int64      `json:"userId"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Attempts         int64      `json:"attempts"`
	AvgScore         float64    `json:"avgScore"`
	LastAttemptAt    *time.Time `json:"lastAttemptAt"`
	SkillsCovered    int64      `json:"skillsCovered"`
	BestSkillName    *string    `json:"bestSkillName"`
	BestSkillAcc     *float64   `json:"bestSkillAcc"`
	WeakestSkillName *string    `json:"weakestSkillName"`
	WeakestSkillAcc  *float64   `json:"weakestSkillAcc"`
}

// GroupOverview is a page of the per-user leaderboard.
type GroupOverview struct {
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Items []GroupEntry `json:"items"`
}

// LeaderEntry is one user's accuracy on a skill.
type LeaderEntry struct {
	UserID   int64   `json:"userId"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Total    int64   `json:"total"`
	Correct  int64   `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// SkillGap is one skill's accuracy across all users.
type SkillGap struct {
	SkillID      int64      `json:"skillId"`
	Skill        string     `json:"skill"`
	Total        int64      `json:"total"`
	Correct      int64      `json:"correct"`
	AvgAccuracy  float64    `json:"avgAccuracy"`
	Users        int64      `json:"users"`
	LastActivity *time.Time `json:"lastActivity"`
}

// ReportService shapes the aggregate queries of a ReportStore. A nil store
// means no SQL backend is configured and every report is unavailable.
type ReportService struct {
	store ReportStore
	now   func() time.Time
}

func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store, now: time.Now}
}

func (s *ReportService) available() error {
	if s.store == nil {
		return domain.ErrReportsUnavailable
	}
	return nil
}

// UserOverview reports attempts, average score and per-skill accuracy for a user.
func (s *ReportService) UserOverview(ctx context.Context, actor Actor, userID int64) (UserOverview, error) {
	if !actor.CanAccess(userID) {
		return UserOverview{}, domain.Forbidden("Forbidden")
	}
	if err := s.available(); err != nil {
		return UserOverview{}, err
	}
	stats, err := s.store.UserAttemptStats(ctx, userID)
	if err != nil {
		return UserOverview{}, fmt.Errorf("user attempt stats: %w", err)
	}
	tallies, err := s.store.UserSkillTallies(ctx, userID)
	if err != nil {
		return UserOverview{}, fmt.Errorf("user skill tallies: %w", err)
	}
	return UserOverview{
		UserID:        userID,
		TotalAttempts: stats.Attempts,
		AvgScore:      domain.Round2(stats.AvgScore),
		LastAttemptAt: stats.LastAttemptAt,
		Skills:        accuracies(tallies, 0),
	}, nil
}

// UserSkillAccuracy reports per-skill accuracy for skills with at least minAttempts answers.
func (s *ReportService) UserSkillAccuracy(ctx context.Context, actor Actor, userID, minAttempts int64) (UserSkillReport, error) {
	if !actor.CanAccess(userID) {
		return UserSkillReport{}, domain.Forbidden("Forbidden")
	}
	if err := s.available(); err != nil {
		return UserSkillReport{}, err
	}
	if minAttempts < 0 {
		minAttempts = 0
	}
	tallies, err := s.store.UserSkillTallies(ctx, userID)
	if err != nil {
		return UserSkillReport{}, fmt.Errorf("user skill tallies: %w", err)
	}
	return UserSkillReport{UserID: userID, MinAttempts: minAttempts, Skills: accuracies(tallies, minAttempts)}, nil
}

// TimeTrend buckets attempts by day or ISO week over a window.
func (s *ReportService) TimeTrend(ctx context.Context, req TrendRequest) (TimeTrend, error) {
	if err := s.available(); err != nil {
		return TimeTrend{}, err
	}
	q, err := s.trendQuery(req)
	if err != nil {
		return TimeTrend{}, err
	}
	buckets, err := s.store.TrendBuckets(ctx, q)
	if err != nil {
		return TimeTrend{}, fmt.Errorf("trend buckets: %w", err)
	}
	out := TimeTrend{
		Start:   q.Start,
		End:     q.End,
		GroupBy: q.GroupBy,
		SkillID: q.SkillID,
		Points:  make([]TrendPoint, 0, len(buckets)),
	}
	for _, b := range buckets {
		out.Points = append(out.Points, TrendPoint{Bucket: b.Bucket, Attempts: b.Attempts, AvgScore: domain.Round2(b.AvgScore)})
	}
	if q.SkillID != nil {
		users, err := s.store.SkillUserCount(ctx, q)
		if err != nil {
			return TimeTrend{}, fmt.Errorf("skill user count: %w", err)
		}
		out.UsersAttemptedForSkill = &users
		return out, nil
	}
	perSkill, err := s.store.UsersPerSkill(ctx, q)
	if err != nil {
		return TimeTrend{}, fmt.Errorf("users per skill: %w", err)
	}
	if perSkill == nil {
		perSkill = []domain.SkillUsers{}
	}
	out.SkillsUsers = perSkill
	return out, nil
}

func (s *ReportService) trendQuery(req TrendRequest) (domain.TrendQuery, error) {
	q := domain.TrendQuery{GroupBy: "day", SkillID: req.SkillID}
	if req.GroupBy == "week" {
		q.GroupBy = "week"
	}
	now := s.now()
	switch {
	case req.Start != "" && req.End != "":
		start, err := time.Parse(time.DateOnly, req.Start)
		if err != nil {
			return q, domain.Invalid("start must be YYYY-MM-DD")
		}
		end, err := time.Parse(time.DateOnly, req.End)
		if err != nil {
			return q, domain.Invalid("end must be YYYY-MM-DD")
		}
		if end.Before(start) {
			return q, domain.Invalid("end must not be before start")
		}
		// the end date is inclusive
		q.Start, q.End = start, end.Add(24*time.Hour-time.Nanosecond)
	case req.Period == "week":
		q.Start, q.End = now.Add(-7*24*time.Hour), now
	default:
		q.Start, q.End = now.Add(-30*24*time.Hour), now
	}
	return q, nil
}

// GroupOverview pages users ordered by average score or attempt count.
func (s *ReportService) GroupOverview(ctx context.Context, req GroupRequest) (GroupOverview, error) {
	if err := s.available(); err != nil {
		return GroupOverview{}, err
	}
	page, limit := domain.ClampPage(req.Page, req.Limit, defaultGroupPageSize, maxGroupPageSize)
	orderBy := "avgScore"
	if req.OrderBy == "attempts" {
		orderBy = "attempts"
	}
	rows, err := s.store.GroupOverview(ctx, domain.GroupQuery{
		OrderBy: orderBy,
		Desc:    !strings.EqualFold(req.Dir, "ASC"),
		Limit:   limit,
		Offset:  (page - 1) * limit,
	})
	if err != nil {
		return GroupOverview{}, fmt.Errorf("group overview: %w", err)
	}
	items := make([]GroupEntry, 0, len(rows))
	for _, r := range rows {
		e := GroupEntry{
			UserID:           r.UserID,
			Name:             r.Name,
			Email:            r.Email,
			Attempts:         r.Attempts,
			LastAttemptAt:    r.LastAttemptAt,
			SkillsCovered:    r.SkillsCovered,
			BestSkillName:    r.BestSkillName,
			BestSkillAcc:     optionalPercent(r.BestCorrect, r.BestTotal),
			WeakestSkillName: r.WeakestSkill,
			WeakestSkillAcc:  optionalPercent(r.WeakestCorrect, r.WeakestTotal),
		}
		if r.AvgScore != nil {
			e.AvgScore = domain.Round2(*r.AvgScore)
		}
		items = append(items, e)
	}
	return GroupOverview{Page: page, Limit: limit, Items: items}, nil
}

// SkillLeaderboard ranks users by accuracy on one skill.
func (s *ReportService) SkillLeaderboard(ctx context.Context, skillID, minAnswers int64, limit int) ([]LeaderEntry, error) {
	if err := s.available(); err != nil {
		return nil, err
	}
	if minAnswers <= 0 {
		minAnswers = defaultLeaderboardMinAnswers
	}
	limit = clampLimit(limit, defaultLeaderboardLimit)
	rows, err := s.store.SkillLeaderboard(ctx, skillID, minAnswers, limit)
	if err != nil {
		return nil, fmt.Errorf("skill leaderboard: %w", err)
	}
	out := make([]LeaderEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, LeaderEntry{
			UserID:   r.UserID,
			Name:     r.Name,
			Email:    r.Email,
			Total:    r.Total,
			Correct:  r.Correct,
			Accuracy: domain.Percent(r.Correct, r.Total),
		})
	}
	return out, nil
}

// SkillGaps lists skills from weakest to strongest across all users.
func (s *ReportService) SkillGaps(ctx context.Context, minAnswers int64, limit int) ([]SkillGap, error) {
	if err := s.available(); err != nil {
		return nil, err
	}
	if minAnswers <= 0 {
		minAnswers = defaultGapsMinAnswers
	}
	limit = clampLimit(limit, defaultGapsLimit)
	rows, err := s.store.SkillGaps(ctx, minAnswers, limit)
	if err != nil {
		return nil, fmt.Errorf("skill gaps: %w", err)
	}
	out := make([]SkillGap, 0, len(rows))
	for _, r := range rows {
		out = append(out, SkillGap{
			SkillID:      r.SkillID,
			Skill:        r.SkillName,
			Total:        r.Total,
			Correct:      r.Correct,
			AvgAccuracy:  domain.Percent(r.Correct, r.Total),
			Users:        r.Users,
			LastActivity: r.LastActivity,
		})
	}
	return out, nil
}

func accuracies(tallies []domain.SkillTally, minTotal int64) []SkillAccuracy {
	out := make([]SkillAccuracy, 0, len(tallies))
	for _, t := range tallies {
		if t.Total < minTotal {
			continue
		}
		out = append(out, SkillAccuracy{
			SkillID:  t.SkillID,
			Skill:    t.SkillName,
			Total:    t.Total,
			Correct:  t.Correct,
			Accuracy: domain.Percent(t.Correct, t.Total),
		})
	}
	return out
}

func optionalPercent(correct, total *int64) *float64 {
	if correct == nil || total == nil {
		return nil
	}
	p := domain.Percent(*correct, *total)
	return &p
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxReportLimit {
		return maxReportLimit
	}
	return limit
}
