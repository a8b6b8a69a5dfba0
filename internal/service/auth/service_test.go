package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront/internal/domain"
)

// memoryRepo is a lightweight in-memory user repository for tests.
type memoryRepo struct {
	byEmail map[string]domain.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byEmail: make(map[string]domain.User)}
}

func (r *memoryRepo) Create(_ context.Context, u domain.User) (*domain.User, error) {
	for _, existing := range r.byEmail {
		if existing.Username == u.Username {
			return nil, domain.ErrAlreadyExists
		}
	}
	if _, exists := r.byEmail[u.Email]; exists {
		return nil, domain.ErrAlreadyExists
	}
	clone := u
	clone.ID = fmt.Sprintf("user-%d", len(r.byEmail)+1)
	r.byEmail[clone.Email] = clone
	return &clone, nil
}

func (r *memoryRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := r.byEmail[strings.ToLower(email)]; ok {
		clone := u
		return &clone, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			clone := u
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memoryDenylist struct {
	revoked map[string]time.Time
}

func (d *memoryDenylist) Revoke(_ context.Context, id string, until time.Time) error {
	d.revoked[id] = until
	return nil
}

func (d *memoryDenylist) IsRevoked(_ context.Context, id string) (bool, error) {
	_, ok := d.revoked[id]
	return ok, nil
}

var secret = []byte("test-secret")

func TestSignupAndLogin(t *testing.T) {
	svc := New(newMemoryRepo(), secret, time.Hour)
	ctx := context.Background()

	signed, err := svc.Signup(ctx, SignupInput{Username: "ann", Email: " Ann@Example.com ", Password: "password1"})
	require.NoError(t, err)
	require.NotEmpty(t, signed.Token)

	id, err := svc.Verify(ctx, signed.Token)
	require.NoError(t, err)
	assert.Equal(t, signed.UserID, id.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), id.ExpiresAt, 5*time.Second)

	logged, err := svc.Login(ctx, "ann@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, signed.UserID, logged.UserID)
}

func TestSignup_Duplicate(t *testing.T) {
	svc := New(newMemoryRepo(), secret, time.Hour)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Username: "ann", Email: "ann@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, SignupInput{Username: "other", Email: "ANN@example.com", Password: "password2"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = svc.Signup(ctx, SignupInput{Username: "ann", Email: "new@example.com", Password: "password2"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestSignup_Validation(t *testing.T) {
	svc := New(newMemoryRepo(), secret, time.Hour)
	cases := map[string]SignupInput{
		"no username":    {Email: "a@example.com", Password: "password1"},
		"bad email":      {Username: "a", Email: "nope", Password: "password1"},
		"short password": {Username: "a", Email: "a@example.com", Password: "short"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := New(newMemoryRepo(), secret, time.Hour)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Username: "ann", Email: "ann@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ann@example.com", "wrongpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "missing@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerify_Rejections(t *testing.T) {
	svc := New(newMemoryRepo(), secret, time.Hour)
	ctx := context.Background()

	_, err := svc.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = svc.Verify(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := New(newMemoryRepo(), []byte("other-secret"), time.Hour)
	foreign, err := other.session("user-1")
	require.NoError(t, err)
	_, err = svc.Verify(ctx, foreign.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	svc := New(newMemoryRepo(), secret, time.Hour)
	svc.tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := svc.session("user-1")
	require.NoError(t, err)

	svc.tokens.now = time.Now
	_, err = svc.Verify(context.Background(), old.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	svc := New(newMemoryRepo(), secret, time.Hour)
	claims := Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_RevokesToken(t *testing.T) {
	deny := &memoryDenylist{revoked: map[string]time.Time{}}
	svc := New(newMemoryRepo(), secret, time.Hour, WithDenylist(deny))
	ctx := context.Background()

	sess, err := svc.session("user-1")
	require.NoError(t, err)
	id, err := svc.Verify(ctx, sess.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, *id))
	assert.Contains(t, deny.revoked, id.TokenID)

	_, err = svc.Verify(ctx, sess.Token)
	assert.True(t, errors.Is(err, ErrInvalidToken), "expected revoked token to be rejected, got %v", err)
}

func TestLogout_WithoutDenylist(t *testing.T) {
	svc := New(newMemoryRepo(), secret, time.Hour)
	sess, err := svc.session("user-1")
	require.NoError(t, err)
	id, err := svc.Verify(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.NoError(t, svc.Logout(context.Background(), *id))
}
