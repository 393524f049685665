package auth

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mridungeorge/portfolio/internal/store"
)

func newService(t *testing.T, opts ...Option) (*Service, store.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(st, opts...), st
}

func TestSignUpCreatesProfile(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	user, err := svc.SignUp(ctx, "  Me@Example.com ", "secret1", Metadata{Username: "me", FullName: "Me Myself"})
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", user.Email)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	prof, err := st.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "me", prof.Username)
	assert.Equal(t, "Me Myself", prof.FullName)
}

func TestSignUpValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{name: "short password", email: "a@example.com", password: "12345", want: ErrWeakPassword},
		{name: "bad email", email: "not-an-email", password: "secret1", want: ErrInvalidEmail},
		{name: "display name email", email: "Bob <bob@example.com>", password: "secret1", want: ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignUp(ctx, tt.email, tt.password, Metadata{})
			assert.Equal(t, tt.want, err)
		})
	}

	_, err := svc.SignUp(ctx, "dup@example.com", "secret1", Metadata{})
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, "DUP@example.com", "secret2", Metadata{})
	assert.Equal(t, ErrEmailTaken, err)
}

func TestSignUpDisabled(t *testing.T) {
	svc, _ := newService(t, WithSignUp(false))
	_, err := svc.SignUp(context.Background(), "a@example.com", "secret1", Metadata{})
	assert.Equal(t, ErrSignUpDisabled, err)
	assert.False(t, svc.SignUpAllowed())
}

func TestSignInAndOut(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	user, err := svc.SignUp(ctx, "me@example.com", "secret1", Metadata{})
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, "me@example.com", "wrong-password")
	assert.Equal(t, ErrInvalidCredentials, err)
	_, err = svc.SignIn(ctx, "nobody@example.com", "secret1")
	assert.Equal(t, ErrInvalidCredentials, err)

	sess, err := svc.SignIn(ctx, "ME@example.com", "secret1")
	require.NoError(t, err)
	assert.Len(t, sess.Token, 64)

	got, err := svc.UserForToken(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	require.NoError(t, svc.SignOut(ctx, sess.Token))
	_, err = svc.UserForToken(ctx, sess.Token)
	assert.Equal(t, ErrNoSession, err)
}

func TestSessionExpiry(t *testing.T) {
	svc, _ := newService(t, WithSessionTTL(time.Hour))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "me@example.com", "secret1", Metadata{})
	require.NoError(t, err)
	sess, err := svc.SignIn(ctx, "me@example.com", "secret1")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = svc.UserForToken(ctx, sess.Token)
	assert.Equal(t, ErrNoSession, err)

	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUserForEmptyToken(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.UserForToken(context.Background(), "")
	assert.Equal(t, ErrNoSession, err)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc, _ := newService(t, WithSignUp(false))
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "admin123"))
	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "admin123"))
	require.NoError(t, svc.EnsureAdmin(ctx, "", ""))

	_, err := svc.SignIn(ctx, "admin@example.com", "admin123")
	assert.NoError(t, err)
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrInvalidCredentials, "Invalid login credentials"},
		{ErrEmailTaken, "User already registered"},
		{ErrWeakPassword, "Password should be at least 6 characters"},
		{errors.Wrap(ErrInvalidEmail, "sign up"), "Unable to validate email address: invalid format"},
		{ErrSignUpDisabled, "Signups not allowed for this instance"},
		{errors.New("connection refused"), "Something went wrong. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.err))
		})
	}
}
