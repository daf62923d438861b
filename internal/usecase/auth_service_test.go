package usecase

import (
	"context"
	"testing"
	"time"

	"furnish-backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuth(t *testing.T) (*AuthService, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &AuthService{
		Store:      newStore(t),
		JWTSecret:  "test-secret",
		BcryptCost: bcrypt.MinCost,
		Now:        func() time.Time { return now },
	}, &now
}

func TestRegisterLoginVerify(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	sess, err := auth.Register(ctx, RegisterInput{Email: " Ana@Example.com ", Password: "cadeira-azul", Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", sess.User.Email)
	assert.Equal(t, domain.RoleCustomer, sess.User.Role)

	who, err := auth.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, who.UserID)
	assert.False(t, who.Admin())

	sess, err = auth.Login(ctx, LoginInput{Email: "ana@example.com", Password: "cadeira-azul"})
	require.NoError(t, err)
	me, err := auth.Me(ctx, Identity{UserID: sess.User.ID})
	require.NoError(t, err)
	assert.Equal(t, "Ana", me.Name)

	_, err = auth.Login(ctx, LoginInput{Email: "ana@example.com", Password: "wrong-password"})
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = auth.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "cadeira-azul"})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegisterRejects(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, RegisterInput{Email: "not-an-email", Password: "short"})
	assert.ElementsMatch(t, []string{"email", "password"}, fieldNames(t, err))

	_, err = auth.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "cadeira-azul"})
	require.NoError(t, err)
	_, err = auth.Register(ctx, RegisterInput{Email: "ANA@example.com", Password: "outra-senha"})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "email", ce.Field)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	auth, now := newAuth(t)
	ctx := context.Background()

	admin, err := auth.CreateAdmin(ctx, "admin@example.com", "admin-password", "Admin")
	require.NoError(t, err)
	tok, err := auth.Issue(admin)
	require.NoError(t, err)
	who, err := auth.Verify(tok)
	require.NoError(t, err)
	assert.True(t, who.Admin())

	other := &AuthService{JWTSecret: "other-secret", Now: auth.Now}
	forged, err := other.Issue(admin)
	require.NoError(t, err)
	_, err = auth.Verify(forged)
	require.ErrorIs(t, err, ErrUnauthorized)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: admin.ID, Role: domain.RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.Verify(unsigned)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = auth.Verify("garbage")
	require.ErrorIs(t, err, ErrUnauthorized)

	*now = now.Add(8 * 24 * time.Hour)
	_, err = auth.Verify(tok)
	require.ErrorIs(t, err, ErrUnauthorized)
}
