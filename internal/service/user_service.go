package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quillpress/internal/db"
	"github.com/quillpress/internal/docstore"
	"github.com/quillpress/internal/identity"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidUsername    = errors.New("username must be 3 to 50 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserService 管理用户资料，账号密码交给 identity.Provider。
type UserService struct {
	store    docstore.Store
	provider identity.Provider
}

// RegisterInput represents fields accepted when registering.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	IsAdmin  bool
}

func NewUserService(store docstore.Store, provider identity.Provider) *UserService {
	return &UserService{store: store, provider: provider}
}

func (s *UserService) Get(ctx context.Context, id string) (*db.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrUserNotFound
	}
	doc, err := s.store.Get(ctx, db.CollectionUsers, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		log.Error().Err(err).Str("user_id", id).Msg("get user failed")
		return nil, fmt.Errorf("get user: %w: %w", ErrStoreFailure, err)
	}
	user := db.UserFromDocument(id, doc, time.Now())
	return &user, nil
}

// Register validates the input, creates the account with the identity
// provider and stores the profile under the provider's uid.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*db.User, error) {
	username := strings.TrimSpace(input.Username)
	if n := len([]rune(username)); n < 3 || n > 50 {
		return nil, ErrInvalidUsername
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, ErrInvalidEmail
	}
	if len(input.Password) < identity.MinPasswordLength {
		return nil, ErrWeakPassword
	}

	if taken, err := s.exists(ctx, "username", username); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUsernameTaken
	}
	if taken, err := s.exists(ctx, "email", email); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrEmailTaken
	}

	uid, err := s.provider.SignUp(ctx, email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailTaken):
			return nil, ErrEmailTaken
		case errors.Is(err, identity.ErrWeakPassword):
			return nil, ErrWeakPassword
		}
		log.Error().Err(err).Str("email", email).Msg("identity sign up failed")
		return nil, fmt.Errorf("register: %w: %w", ErrStoreFailure, err)
	}

	user := db.User{
		ID:        uid,
		Username:  username,
		Email:     email,
		IsAdmin:   input.IsAdmin,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Set(ctx, db.CollectionUsers, uid, user.ToDocument()); err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("save user failed")
		return nil, fmt.Errorf("register: %w: %w", ErrStoreFailure, err)
	}
	return &user, nil
}

// Authenticate signs in with the identity provider and loads the profile.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*db.User, error) {
	uid, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Msg("identity sign in failed")
		return nil, fmt.Errorf("authenticate: %w: %w", ErrStoreFailure, err)
	}
	return s.Get(ctx, uid)
}

// List returns every user, fail-open like the other listings.
func (s *UserService) List(ctx context.Context) []db.User {
	snapshots, err := s.store.Query(ctx, docstore.Query{
		Collection: db.CollectionUsers,
		OrderBy:    "created_at",
		Direction:  docstore.Ascending,
	})
	if err != nil {
		log.Error().Err(err).Msg("list users failed")
		return []db.User{}
	}

	now := time.Now()
	users := make([]db.User, 0, len(snapshots))
	for _, snap := range snapshots {
		users = append(users, db.UserFromDocument(snap.ID, snap.Data, now))
	}
	return users
}

// MakeAdmin sets the admin flag, the only mutable user field.
func (s *UserService) MakeAdmin(ctx context.Context, id string) error {
	if err := s.store.Update(ctx, db.CollectionUsers, id, docstore.Document{"is_admin": true}); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrUserNotFound
		}
		log.Error().Err(err).Str("user_id", id).Msg("make admin failed")
		return fmt.Errorf("make admin: %w: %w", ErrStoreFailure, err)
	}
	return nil
}

func (s *UserService) exists(ctx context.Context, field, value string) (bool, error) {
	found, err := s.store.Query(ctx, docstore.Query{Collection: db.CollectionUsers, Limit: 1}.Where(field, value))
	if err != nil {
		log.Error().Err(err).Str("field", field).Msg("user uniqueness check failed")
		return false, fmt.Errorf("register: %w: %w", ErrStoreFailure, err)
	}
	return len(found) > 0, nil
}
