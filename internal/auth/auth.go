// Package auth provides email/password accounts and cookie sessions for the
// dashboard.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/mridungeorge/portfolio/internal/store"
)

// MinPasswordLength matches the sign-up form's minlength.
const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailTaken         = errors.New("user already registered")
	ErrWeakPassword       = errors.Errorf("password shorter than %d characters", MinPasswordLength)
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrSignUpDisabled     = errors.New("sign-up disabled")
	ErrNoSession          = errors.New("not signed in")
)

// messages is the text shown on the sign-in page for each sentinel.
var messages = map[error]string{
	ErrInvalidCredentials: "Invalid login credentials",
	ErrEmailTaken:         "User already registered",
	ErrWeakPassword:       fmt.Sprintf("Password should be at least %d characters", MinPasswordLength),
	ErrInvalidEmail:       "Unable to validate email address: invalid format",
	ErrSignUpDisabled:     "Signups not allowed for this instance",
	ErrNoSession:          "Please sign in",
}

// Message returns the user-facing text for err. Errors that are not auth
// sentinels get a generic message; their details stay in the logs.
func Message(err error) string {
	for sentinel, msg := range messages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return "Something went wrong. Please try again."
}

// Metadata is the profile information collected at sign-up.
type Metadata struct {
	Username string
	FullName string
}

// Session is handed to the browser as a cookie. Only a hash of Token is stored.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

type Service struct {
	store       store.Store
	logger      *slog.Logger
	ttl         time.Duration
	allowSignUp bool
	now         func() time.Time
}

type Option func(*Service)

// WithSessionTTL sets how long a sign-in lasts.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Service) { s.ttl = d }
}

// WithSignUp enables or disables self-service sign-up.
func WithSignUp(enabled bool) Option {
	return func(s *Service) { s.allowSignUp = enabled }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:       st,
		logger:      slog.Default(),
		ttl:         24 * time.Hour,
		allowSignUp: true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) SignUpAllowed() bool {
	return s.allowSignUp
}

// SignUp creates an account and its profile.
func (s *Service) SignUp(ctx context.Context, email, password string, meta Metadata) (*store.User, error) {
	if !s.allowSignUp {
		return nil, ErrSignUpDisabled
	}
	return s.createUser(ctx, email, password, meta)
}

func (s *Service) createUser(ctx context.Context, email, password string, meta Metadata) (*store.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	id := uuid.NewString()
	user := &store.User{ID: id, Email: email, PasswordHash: string(hash), CreatedAt: s.now()}
	profile := &store.Profile{
		ID:       id,
		Username: strings.TrimSpace(meta.Username),
		FullName: strings.TrimSpace(meta.FullName),
	}
	if err := s.store.CreateUser(ctx, user, profile); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.logger.Info("account created", slog.String("user_id", id))
	return user, nil
}

// SignIn checks credentials and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	sess := &Session{Token: token, UserID: user.ID, ExpiresAt: s.now().Add(s.ttl)}
	err = s.store.CreateSession(ctx, store.Session{Token: hashToken(token), UserID: user.ID, ExpiresAt: sess.ExpiresAt})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// SignOut ends the session identified by token. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.DeleteSession(ctx, hashToken(token))
}

// UserForToken resolves a live session token to its user.
func (s *Service) UserForToken(ctx context.Context, token string) (*store.User, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	user, err := s.store.SessionUser(ctx, hashToken(token), s.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoSession
	}
	return user, err
}

// EnsureAdmin creates the bootstrap account if it does not exist yet. It
// works even when sign-up is disabled.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.createUser(ctx, email, password, Metadata{Username: "admin", FullName: "Administrator"})
	if errors.Is(err, ErrEmailTaken) {
		return nil
	}
	return errors.Wrap(err, "failed to create admin account")
}

// PurgeExpired removes sessions past their expiry.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.PurgeSessions(ctx, s.now())
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to generate session token")
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
