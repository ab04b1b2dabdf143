package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

// Paramètres minuscules : les tests n'ont pas besoin de coût réel.
var testParams = HashParams{Memory: 64, Time: 1, Threads: 1, SaltLen: 8, KeyLen: 16}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(testParams)

	encoded, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.True(t, len(encoded) > 0 && encoded[:10] == "$argon2id$")

	ok, err := h.Matches(encoded, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Matches(encoded, "secret2")
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, other, "salt must differ")

	for _, bad := range []string{"", "$argon2i$v=19$m=64,t=1,p=1$c2FsdA$a2V5", "$argon2id$v=18$m=64,t=1,p=1$c2FsdA$a2V5", "$argon2id$v=19$m=x$c2FsdA$a2V5"} {
		_, err := h.Matches(bad, "secret1")
		assert.ErrorIs(t, err, errMalformedHash, bad)
	}
}

func newLocal(t *testing.T) *LocalSessions {
	t.Helper()
	tokens, err := NewJWTVerifier("local-dev-secret")
	require.NoError(t, err)
	return NewLocalSessions(tokens, NewPasswordHasher(testParams), time.Hour)
}

func TestLocalSessions_Lifecycle(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()
	signup := domain.SignUp{Credentials: domain.Credentials{Email: "Anna@Example.com", Password: "secret1"}, FullName: "Anna"}

	created, err := s.SignUp(ctx, signup)
	require.NoError(t, err)
	assert.False(t, created.PendingConfirmation())
	assert.Equal(t, "anna@example.com", created.Email)

	_, err = s.SignUp(ctx, signup)
	assert.ErrorIs(t, err, domain.ErrAccountExists)

	_, err = s.SignIn(ctx, domain.Credentials{Email: "anna@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = s.SignIn(ctx, domain.Credentials{Email: "bob@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	session, err := s.SignIn(ctx, domain.Credentials{Email: "anna@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, created.UserID, session.UserID)

	viewer, err := s.Lookup(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.UserID, viewer.ID)

	require.NoError(t, s.SignOut(ctx, session.AccessToken))
	_, err = s.Lookup(ctx, session.AccessToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
