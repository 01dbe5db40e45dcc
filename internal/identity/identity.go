// Package identity 负责邮箱 + 密码的注册与登录，返回用户 id。
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/quillpress/internal/db"
	"github.com/quillpress/internal/docstore"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

const MinPasswordLength = 6

// Provider signs users up and in by email and password.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (string, error)
}

var _ Provider = (*LocalProvider)(nil)

// LocalProvider keeps bcrypt hashes in the document store, keyed by the
// lower-cased email.
type LocalProvider struct {
	store docstore.Store
	cost  int
}

func NewLocalProvider(store docstore.Store) *LocalProvider {
	return &LocalProvider{store: store, cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt cost.
func (p *LocalProvider) WithCost(cost int) *LocalProvider {
	p.cost = cost
	return p
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (string, error) {
	key := normalizeEmail(email)
	if key == "" {
		return "", ErrInvalidCredentials
	}
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}

	_, err := p.store.Get(ctx, db.CollectionCredentials, key)
	if err == nil {
		return "", ErrEmailTaken
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return "", fmt.Errorf("lookup credentials: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	uid := uuid.NewString()
	doc := docstore.Document{
		"uid":           uid,
		"password_hash": string(hash),
		"created_at":    time.Now().UTC(),
	}
	if err := p.store.Set(ctx, db.CollectionCredentials, key, doc); err != nil {
		return "", fmt.Errorf("save credentials: %w", err)
	}
	return uid, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (string, error) {
	key := normalizeEmail(email)
	if key == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	doc, err := p.store.Get(ctx, db.CollectionCredentials, key)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup credentials: %w", err)
	}

	hash, _ := doc["password_hash"].(string)
	uid, _ := doc["uid"].(string)
	if hash == "" || uid == "" {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return uid, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
