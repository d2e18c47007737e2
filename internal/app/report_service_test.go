package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/domain"
)

type fakeReports struct {
	stats    domain.AttemptStats
	tallies  []domain.SkillTally
	buckets  []domain.TrendBucket
	users    int64
	perSkill []domain.SkillUsers
	group    []domain.GroupRow
	leaders  []domain.LeaderRow
	gaps     []domain.SkillGapRow

	lastTrend  domain.TrendQuery
	lastGroup  domain.GroupQuery
	lastMin    int64
	lastLimit  int
	skillCalls int
}

func (f *fakeReports) UserAttemptStats(context.Context, int64) (domain.AttemptStats, error) {
	return f.stats, nil
}

func (f *fakeReports) UserSkillTallies(context.Context, int64) ([]domain.SkillTally, error) {
	return f.tallies, nil
}

func (f *fakeReports) TrendBuckets(_ context.Context, q domain.TrendQuery) ([]domain.TrendBucket, error) {
	f.lastTrend = q
	return f.buckets, nil
}

func (f *fakeReports) SkillUserCount(context.Context, domain.TrendQuery) (int64, error) {
	f.skillCalls++
	return f.users, nil
}

func (f *fakeReports) UsersPerSkill(context.Context, domain.TrendQuery) ([]domain.SkillUsers, error) {
	return f.perSkill, nil
}

func (f *fakeReports) GroupOverview(_ context.Context, q domain.GroupQuery) ([]domain.GroupRow, error) {
	f.lastGroup = q
	return f.group, nil
}

func (f *fakeReports) SkillLeaderboard(_ context.Context, _ int64, minAnswers int64, limit int) ([]domain.LeaderRow, error) {
	f.lastMin, f.lastLimit = minAnswers, limit
	return f.leaders, nil
}

func (f *fakeReports) SkillGaps(_ context.Context, minAnswers int64, limit int) ([]domain.SkillGapRow, error) {
	f.lastMin, f.lastLimit = minAnswers, limit
	return f.gaps, nil
}

var learner = app.Actor{UserID: 1, Role: domain.RoleUser}

func TestUserOverview(t *testing.T) {
	last := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := &fakeReports{
		stats: domain.AttemptStats{Attempts: 3, AvgScore: 2.3333333, LastAttemptAt: &last},
		tallies: []domain.SkillTally{
			{SkillID: 1, SkillName: "Math", Total: 3, Correct: 1},
			{SkillID: 2, SkillName: "Logic", Total: 1, Correct: 1},
		},
	}
	svc := app.NewReportService(store)

	out, err := svc.UserOverview(context.Background(), learner, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.TotalAttempts)
	assert.Equal(t, 2.33, out.AvgScore)
	assert.Equal(t, &last, out.LastAttemptAt)
	require.Len(t, out.Skills, 2)
	assert.Equal(t, 33.33, out.Skills[0].Accuracy)

	skills, err := svc.UserSkillAccuracy(context.Background(), learner, 1, 2)
	require.NoError(t, err)
	require.Len(t, skills.Skills, 1)
	assert.Equal(t, "Math", skills.Skills[0].Skill)

	_, err = svc.UserOverview(context.Background(), learner, 2)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestReportsUnavailableWithoutStore(t *testing.T) {
	svc := app.NewReportService(nil)
	_, err := svc.UserOverview(context.Background(), learner, 1)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, err = svc.SkillGaps(context.Background(), 0, 0)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestTimeTrendWindow(t *testing.T) {
	store := &fakeReports{
		buckets:  []domain.TrendBucket{{Bucket: "2025-03-01", Attempts: 2, AvgScore: 1.666666}},
		perSkill: []domain.SkillUsers{{SkillID: 1, SkillName: "Math", Users: 4}},
		users:    7,
	}
	svc := app.NewReportService(store)
	ctx := context.Background()

	out, err := svc.TimeTrend(ctx, app.TrendRequest{Period: "week"})
	require.NoError(t, err)
	assert.Equal(t, "day", out.GroupBy)
	assert.InDelta(t, 7*24*time.Hour, out.End.Sub(out.Start), float64(time.Second))
	assert.Equal(t, 1.67, out.Points[0].AvgScore)
	assert.Nil(t, out.UsersAttemptedForSkill)
	assert.Len(t, out.SkillsUsers, 1)

	skillID := int64(1)
	out, err = svc.TimeTrend(ctx, app.TrendRequest{Start: "2025-03-01", End: "2025-03-07", GroupBy: "week", SkillID: &skillID})
	require.NoError(t, err)
	assert.Equal(t, "week", out.GroupBy)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), store.lastTrend.Start)
	assert.True(t, store.lastTrend.End.After(time.Date(2025, 3, 7, 23, 0, 0, 0, time.UTC)))
	require.NotNil(t, out.UsersAttemptedForSkill)
	assert.Equal(t, int64(7), *out.UsersAttemptedForSkill)
	assert.Nil(t, out.SkillsUsers)

	_, err = svc.TimeTrend(ctx, app.TrendRequest{Start: "03/01/2025", End: "2025-03-07"})
	assert.ErrorIs(t, err, domain.ErrInvalid)
}

func TestGroupOverviewShapesRows(t *testing.T) {
	avg := 2.456
	best, weak := "Math", "Logic"
	bc, bt, wc, wt := int64(2), int64(3), int64(0), int64(4)
	store := &fakeReports{group: []domain.GroupRow{
		{UserID: 1, Name: "Ada", Attempts: 2, AvgScore: &avg, BestSkillName: &best, BestCorrect: &bc, BestTotal: &bt, WeakestSkill: &weak, WeakestCorrect: &wc, WeakestTotal: &wt},
		{UserID: 2, Name: "Bob"},
	}}
	svc := app.NewReportService(store)

	out, err := svc.GroupOverview(context.Background(), app.GroupRequest{Page: 2, Limit: 5, OrderBy: "attempts", Dir: "ASC"})
	require.NoError(t, err)
	assert.Equal(t, domain.GroupQuery{OrderBy: "attempts", Desc: false, Limit: 5, Offset: 5}, store.lastGroup)
	require.Len(t, out.Items, 2)
	assert.Equal(t, 2.46, out.Items[0].AvgScore)
	assert.Equal(t, 66.67, *out.Items[0].BestSkillAcc)
	assert.Equal(t, 0.0, *out.Items[0].WeakestSkillAcc)
	assert.Nil(t, out.Items[1].BestSkillAcc)

	_, err = svc.GroupOverview(context.Background(), app.GroupRequest{OrderBy: "email"})
	require.NoError(t, err)
	assert.Equal(t, "avgScore", store.lastGroup.OrderBy)
	assert.True(t, store.lastGroup.Desc)
}

func TestLeaderboardAndGapsDefaults(t *testing.T) {
	store := &fakeReports{
		leaders: []domain.LeaderRow{{UserID: 1, Total: 4, Correct: 3}},
		gaps:    []domain.SkillGapRow{{SkillID: 1, SkillName: "Math", Total: 6, Correct: 2, Users: 2}},
	}
	svc := app.NewReportService(store)
	ctx := context.Background()

	leaders, err := svc.SkillLeaderboard(ctx, 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), store.lastMin)
	assert.Equal(t, 20, store.lastLimit)
	assert.Equal(t, 75.0, leaders[0].Accuracy)

	gaps, err := svc.SkillGaps(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), store.lastMin)
	assert.Equal(t, 100, store.lastLimit)
	assert.Equal(t, 33.33, gaps[0].AvgAccuracy)
	assert.Equal(t, "Math", gaps[0].Skill)
}
