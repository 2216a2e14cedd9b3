package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"machinery-backend/internal/auth"
	"machinery-backend/internal/model"
)

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	UserID    int64      `json:"user_id"`
	Name      string     `json:"name"`
	Role      model.Role `json:"role"`
}

// UserInput creates a user account.
type UserInput struct {
	Document  string `json:"document"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

// Identity authenticates users and resolves tokens to actors.
type Identity struct {
	Deps
	tokens *auth.JWTManager
}

func NewIdentity(deps Deps, tokens *auth.JWTManager) *Identity {
	deps.fill()
	return &Identity{Deps: deps, tokens: tokens}
}

// Login checks credentials and issues an access token. Unknown emails, wrong
// passwords and inactive accounts all yield model.ErrUnauthenticated.
func (s *Identity) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.Store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", model.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}
	if !u.Active || !auth.CheckPassword(u.PasswordHash, password) {
		return nil, fmt.Errorf("invalid credentials: %w", model.ErrUnauthenticated)
	}

	token, expires, err := s.tokens.GenerateAccessToken(u.ID, string(u.Role))
	if err != nil {
		return nil, err
	}
	s.Log.Info("user logged in", zap.Int64("user_id", u.ID))
	return &LoginResult{Token: token, ExpiresAt: expires, UserID: u.ID, Name: u.FullName(), Role: u.Role}, nil
}

// Authenticate resolves a bearer token to the actor behind it.
func (s *Identity) Authenticate(ctx context.Context, token string) (Actor, error) {
	claims, err := s.tokens.ValidateAccessToken(token)
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %w", model.ErrUnauthenticated, err)
	}
	u, err := s.Store.GetUser(ctx, claims.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return Actor{}, fmt.Errorf("user %d no longer exists: %w", claims.UserID, model.ErrUnauthenticated)
	}
	if err != nil {
		return Actor{}, err
	}
	if !u.Active {
		return Actor{}, fmt.Errorf("user %d is inactive: %w", u.ID, model.ErrUnauthenticated)
	}
	return UserActor(u), nil
}

// CreateUser registers an account. Only administrators may create users.
func (s *Identity) CreateUser(ctx context.Context, actor Actor, in UserInput) (*model.User, error) {
	if err := requireAdmin(actor, "creating a user"); err != nil {
		return nil, err
	}
	return s.createUser(ctx, in)
}

func (s *Identity) createUser(ctx context.Context, in UserInput) (*model.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)

	verr := &model.ValidationError{}
	verr.Required("email", in.Email == "")
	verr.Required("first_name", in.FirstName == "")
	if len(in.Password) < 8 {
		verr.Add("password", "must be at least 8 characters")
	}
	if !model.Role(in.Role).IsValid() {
		verr.Add("role", fmt.Sprintf("unknown role %q", in.Role))
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	if _, err := s.Store.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, model.NewValidationError("email", "is already registered")
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		FirstName:    in.FirstName,
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         model.Role(in.Role),
		Active:       true,
	}
	if doc := strings.TrimSpace(in.Document); doc != "" {
		u.Document = &doc
	}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.Log.Info("user created", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Users lists active users, optionally of one role.
func (s *Identity) Users(ctx context.Context, role string) ([]model.User, error) {
	if role != "" && !model.Role(role).IsValid() {
		return nil, model.NewValidationError("role", fmt.Sprintf("unknown role %q", role))
	}
	return s.Store.ListUsers(ctx, model.Role(role))
}

// EnsureAdmin creates the bootstrap administrator when no user exists yet.
func (s *Identity) EnsureAdmin(ctx context.Context, email, password, firstName, lastName string) error {
	n, err := s.Store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if email == "" || password == "" {
		s.Log.Warn("no users exist and no bootstrap administrator is configured")
		return nil
	}
	if firstName == "" {
		firstName = "Administrador"
	}
	u, err := s.createUser(ctx, UserInput{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  password,
		Role:      string(model.RoleAdmin),
	})
	if err != nil {
		return fmt.Errorf("failed to create bootstrap administrator: %w", err)
	}
	s.Log.Info("bootstrap administrator created", zap.Int64("user_id", u.ID), zap.String("email", u.Email))
	return nil
}
