package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/auth"
	"skill-quiz-service/internal/domain"
)

func newUsers(w *world) (*app.UserService, *auth.Tokens) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	return app.NewUserService(w.store, tokens), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	svc, tokens := newUsers(w)

	u, err := svc.Register(ctx, domain.RegisterInput{Name: "Grace", Email: " Grace@Example.com ", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", u.Email)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEqual(t, "s3cret", u.PasswordHash)

	_, err = svc.Register(ctx, domain.RegisterInput{Name: "Again", Email: "grace@example.com", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	res, err := svc.Login(ctx, domain.LoginInput{Email: "grace@example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)
	claims, err := tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	_, err = svc.Login(ctx, domain.LoginInput{Email: "grace@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, domain.LoginInput{Email: "nobody@example.com", Password: "s3cret"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRegisterRequiresFields(t *testing.T) {
	svc, _ := newUsers(newWorld(t))
	_, err := svc.Register(context.Background(), domain.RegisterInput{Name: "x", Email: " "})
	assert.ErrorIs(t, err, domain.ErrInvalid)
}

func TestUpdateUserRules(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	svc, _ := newUsers(w)
	self := app.Actor{UserID: w.user.ID, Role: domain.RoleUser}
	admin := app.Actor{UserID: w.admin.ID, Role: domain.RoleAdmin}

	updated, err := svc.UpdateUser(ctx, self, w.user.ID, domain.UserPatch{Name: ptr("Ada L.")})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Name)

	_, err = svc.UpdateUser(ctx, self, w.admin.ID, domain.UserPatch{Name: ptr("pwned")})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.UpdateUser(ctx, self, w.user.ID, domain.UserPatch{Role: ptr(domain.RoleAdmin)})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.UpdateUser(ctx, self, w.user.ID, domain.UserPatch{Email: ptr(w.admin.Email)})
	assert.ErrorIs(t, err, domain.ErrConflict)

	promoted, err := svc.UpdateUser(ctx, admin, w.user.ID, domain.UserPatch{Role: ptr(domain.RoleAdmin)})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, promoted.Role)

	_, err = svc.UpdateUser(ctx, admin, w.user.ID, domain.UserPatch{Role: ptr(domain.Role("owner"))})
	assert.ErrorIs(t, err, domain.ErrInvalid)
}

func TestGetUserRequiresSelfOrAdmin(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	svc, _ := newUsers(w)

	_, err := svc.GetUser(ctx, app.Actor{UserID: w.user.ID, Role: domain.RoleUser}, w.admin.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	u, err := svc.GetUser(ctx, app.Actor{UserID: w.admin.ID, Role: domain.RoleAdmin}, w.user.ID)
	require.NoError(t, err)
	assert.Equal(t, w.user.Email, u.Email)
}

func TestDeleteUserRemovesAttempts(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	svc, _ := newUsers(w)
	scoring := app.NewScoringService(w.store, nil, nil)
	_, err := scoring.SubmitFreeForm(ctx, domain.FreeFormRequest{UserID: w.user.ID, Answers: []domain.AnswerInput{answer(w.questions[0].ID, "2")}})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, w.user.ID))
	assert.Zero(t, w.attemptCount(t, w.user.ID))
	assert.ErrorIs(t, svc.DeleteUser(ctx, w.user.ID), domain.ErrUserNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	svc, _ := newUsers(w)

	created, err := svc.EnsureAdmin(ctx, domain.RegisterInput{Email: "ops@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, created.Role)
	assert.Equal(t, "Admin", created.Name)

	promoted, err := svc.EnsureAdmin(ctx, domain.RegisterInput{Email: w.user.Email, Password: "new"})
	require.NoError(t, err)
	assert.Equal(t, w.user.ID, promoted.ID)
	assert.Equal(t, domain.RoleAdmin, promoted.Role)

	_, err = svc.Login(ctx, domain.LoginInput{Email: w.user.Email, Password: "new"})
	require.NoError(t, err)
}
