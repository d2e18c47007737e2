package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"skill-quiz-service/internal/auth"
	"skill-quiz-service/internal/domain"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(u domain.User) (string, error)
}

// Actor is the authenticated caller of a use case.
type Actor struct {
	UserID int64
	Role   domain.Role
}

func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

// CanAccess reports whether the actor may read or change userID's data.
func (a Actor) CanAccess(userID int64) bool {
	return a.IsAdmin() || a.UserID == userID
}

// LoginResult is a signed token with the user it was issued for.
type LoginResult struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// UserService manages accounts and credentials.
type UserService struct {
	store  Store
	tokens TokenIssuer
}

func NewUserService(store Store, tokens TokenIssuer) *UserService {
	return &UserService{store: store, tokens: tokens}
}

// Register creates a learner account.
func (s *UserService) Register(ctx context.Context, in domain.RegisterInput) (domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return domain.User{}, domain.Invalid("name, email, password required")
	}
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return domain.User{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{Name: name, Email: email, PasswordHash: hash, Role: domain.RoleUser}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login checks credentials and issues a token. Unknown emails and wrong
// passwords fail the same way.
func (s *UserService) Login(ctx context.Context, in domain.LoginInput) (LoginResult, error) {
	u, err := s.store.GetUserByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, domain.ErrNotFound) {
		return LoginResult{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		return LoginResult{}, domain.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, User: u}, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *UserService) GetUser(ctx context.Context, actor Actor, id int64) (domain.User, error) {
	if !actor.CanAccess(id) {
		return domain.User{}, domain.Forbidden("Forbidden")
	}
	return s.store.GetUser(ctx, id)
}

// UpdateUser applies a partial update. Users may edit themselves; only admins
// may edit others or change a role.
func (s *UserService) UpdateUser(ctx context.Context, actor Actor, id int64, patch domain.UserPatch) (domain.User, error) {
	if !actor.CanAccess(id) {
		return domain.User{}, domain.Forbidden("Forbidden")
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if patch.Name != nil {
		if name := strings.TrimSpace(*patch.Name); name != "" {
			u.Name = name
		}
	}
	if patch.Email != nil {
		if email := normalizeEmail(*patch.Email); email != "" && email != u.Email {
			if err := s.ensureEmailFree(ctx, email, u.ID); err != nil {
				return domain.User{}, err
			}
			u.Email = email
		}
	}
	if patch.Password != nil && *patch.Password != "" {
		hash, err := auth.HashPassword(*patch.Password)
		if err != nil {
			return domain.User{}, err
		}
		u.PasswordHash = hash
	}
	if patch.Role != nil && *patch.Role != u.Role {
		if !actor.IsAdmin() {
			return domain.User{}, domain.Forbidden("Only admins can change roles")
		}
		if !patch.Role.Valid() {
			return domain.User{}, domain.Invalid("role must be user or admin")
		}
		u.Role = *patch.Role
	}
	if err := s.store.UpdateUser(ctx, &u); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.store.GetUser(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// EnsureAdmin creates an admin account, or promotes and re-keys the existing
// account with the same email.
func (s *UserService) EnsureAdmin(ctx context.Context, in domain.RegisterInput) (domain.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return domain.User{}, domain.Invalid("email and password required")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	u, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		name := strings.TrimSpace(in.Name)
		if name == "" {
			name = "Admin"
		}
		u = domain.User{Name: name, Email: email, PasswordHash: hash, Role: domain.RoleAdmin}
		if err := s.store.CreateUser(ctx, &u); err != nil {
			return domain.User{}, fmt.Errorf("create admin: %w", err)
		}
		return u, nil
	case err != nil:
		return domain.User{}, err
	}
	u.Role = domain.RoleAdmin
	u.PasswordHash = hash
	if name := strings.TrimSpace(in.Name); name != "" {
		u.Name = name
	}
	if err := s.store.UpdateUser(ctx, &u); err != nil {
		return domain.User{}, fmt.Errorf("promote admin: %w", err)
	}
	return u, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string, exceptID int64) error {
	existing, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup email: %w", err)
	}
	if existing.ID != exceptID {
		return domain.Conflict("Email already exists", nil)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
