package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/adapters/secondary/memory"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

type mockSessions struct{ mock.Mock }

func (m *mockSessions) SignUp(ctx context.Context, cmd domain.SignUp) (domain.Session, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *mockSessions) SignIn(ctx context.Context, cred domain.Credentials) (domain.Session, error) {
	args := m.Called(ctx, cred)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *mockSessions) SignOut(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockSessions) Lookup(ctx context.Context, token string) (domain.Viewer, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.Viewer), args.Error(1)
}

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) Verify(token string) (domain.Viewer, error) {
	args := m.Called(token)
	return args.Get(0).(domain.Viewer), args.Error(1)
}

func TestSignUp_Validation(t *testing.T) {
	sessions := new(mockSessions)
	svc := NewAuthService(sessions, nil, memory.NewGateway())
	ctx := context.Background()

	cases := []struct {
		name  string
		cmd   domain.SignUp
		field string
	}{
		{"missing email", domain.SignUp{Credentials: domain.Credentials{Password: "secret1"}, FullName: "A"}, "email"},
		{"bad email", domain.SignUp{Credentials: domain.Credentials{Email: "nope", Password: "secret1"}, FullName: "A"}, "email"},
		{"short password", domain.SignUp{Credentials: domain.Credentials{Email: "a@b.co", Password: "123"}, FullName: "A"}, "password"},
		{"missing full name", domain.SignUp{Credentials: domain.Credentials{Email: "a@b.co", Password: "secret1"}}, "full_name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SignUp(ctx, tc.cmd)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
	sessions.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything)
}

func TestSignUp_CreatesProfileRow(t *testing.T) {
	sessions := new(mockSessions)
	gw := memory.NewGateway()
	gw.PutUser(domain.User{ID: "someone-else", Username: "anna"})
	svc := NewAuthService(sessions, nil, gw)
	ctx := context.Background()

	cmd := domain.SignUp{Credentials: domain.Credentials{Email: "anna@example.com", Password: "secret1"}, FullName: "Anna Lee"}
	sessions.On("SignUp", ctx, cmd).Return(domain.Session{UserID: "a1b2c3d4-0000", Email: "anna@example.com"}, nil)

	session, err := svc.SignUp(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, session.PendingConfirmation())

	records, err := gw.SelectUsers(ctx, domain.UserByIDQuery("a1b2c3d4-0000"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	u := records[0].Normalize()
	assert.Equal(t, "annaa1b2", u.Username)
	assert.Equal(t, domain.Some("Anna Lee"), u.FullName)
	sessions.AssertExpectations(t)
}

func TestSignIn_PropagatesProviderErrors(t *testing.T) {
	sessions := new(mockSessions)
	svc := NewAuthService(sessions, nil, memory.NewGateway())
	ctx := context.Background()
	cred := domain.Credentials{Email: "anna@example.com", Password: "wrongpw"}

	sessions.On("SignIn", ctx, cred).Return(domain.Session{}, domain.ErrInvalidCredentials)

	_, err := svc.SignIn(ctx, cred)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("empty token", func(t *testing.T) {
		svc := NewAuthService(new(mockSessions), nil, memory.NewGateway())
		_, err := svc.Authenticate(ctx, "")
		assert.ErrorIs(t, err, domain.ErrAuthRequired)
	})

	t.Run("local verifier wins", func(t *testing.T) {
		sessions := new(mockSessions)
		verifier := new(mockVerifier)
		verifier.On("Verify", "tok").Return(domain.Viewer{ID: "u1"}, nil)

		v, err := NewAuthService(sessions, verifier, memory.NewGateway()).Authenticate(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, "u1", v.ID)
		assert.Equal(t, "tok", v.Token)
		sessions.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
	})

	t.Run("invalid token", func(t *testing.T) {
		verifier := new(mockVerifier)
		verifier.On("Verify", "bad").Return(domain.Viewer{}, domain.ErrInvalidToken)

		_, err := NewAuthService(new(mockSessions), verifier, memory.NewGateway()).Authenticate(ctx, "bad")
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("provider lookup without verifier", func(t *testing.T) {
		sessions := new(mockSessions)
		sessions.On("Lookup", ctx, "tok").Return(domain.Viewer{ID: "u2"}, nil)

		v, err := NewAuthService(sessions, nil, memory.NewGateway()).Authenticate(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, "u2", v.ID)
	})
}

func TestSignOut_RequiresIdentity(t *testing.T) {
	sessions := new(mockSessions)
	svc := NewAuthService(sessions, nil, memory.NewGateway())

	assert.ErrorIs(t, svc.SignOut(context.Background(), domain.Anonymous()), domain.ErrAuthRequired)
	sessions.AssertNotCalled(t, "SignOut", mock.Anything, mock.Anything)
}
