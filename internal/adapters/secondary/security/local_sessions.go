package security

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

type account struct {
	id   string
	hash string
}

// LocalSessions : fournisseur d'auth en mémoire pour GATEWAY_DRIVER=memory.
// Même contrat que GoTrue : tokens HS256 au format Supabase, comptes confirmés d'office.
// Implémente ports.SessionProvider.
type LocalSessions struct {
	mu       sync.Mutex
	accounts map[string]account // clé : email en minuscules
	revoked  map[string]time.Time
	hasher   *PasswordHasher
	tokens   *JWTVerifier
	ttl      time.Duration
}

func NewLocalSessions(tokens *JWTVerifier, hasher *PasswordHasher, ttl time.Duration) *LocalSessions {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &LocalSessions{
		accounts: make(map[string]account),
		revoked:  make(map[string]time.Time),
		hasher:   hasher,
		tokens:   tokens,
		ttl:      ttl,
	}
}

func (s *LocalSessions) SignUp(ctx context.Context, cmd domain.SignUp) (domain.Session, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	hash, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return domain.Session{}, domain.NewTransportError("hash password", err)
	}

	s.mu.Lock()
	if _, exists := s.accounts[email]; exists {
		s.mu.Unlock()
		return domain.Session{}, domain.ErrAccountExists
	}
	acc := account{id: uuid.NewString(), hash: hash}
	s.accounts[email] = acc
	s.mu.Unlock()

	slog.Info("👤 Local account created", "user_id", acc.id)
	return s.issue(acc.id, email)
}

func (s *LocalSessions) SignIn(ctx context.Context, cred domain.Credentials) (domain.Session, error) {
	email := strings.ToLower(strings.TrimSpace(cred.Email))

	s.mu.Lock()
	acc, ok := s.accounts[email]
	s.mu.Unlock()
	if !ok {
		return domain.Session{}, domain.ErrInvalidCredentials
	}

	match, err := s.hasher.Matches(acc.hash, cred.Password)
	if err != nil {
		return domain.Session{}, domain.NewTransportError("verify password", err)
	}
	if !match {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	return s.issue(acc.id, email)
}

// SignOut révoque le token jusqu'à son expiration.
func (s *LocalSessions) SignOut(ctx context.Context, accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tokens.now()
	for tok, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, tok)
		}
	}
	s.revoked[accessToken] = now.Add(s.ttl)
	return nil
}

func (s *LocalSessions) Lookup(ctx context.Context, accessToken string) (domain.Viewer, error) {
	s.mu.Lock()
	_, revoked := s.revoked[accessToken]
	s.mu.Unlock()
	if revoked {
		return domain.Viewer{}, domain.ErrInvalidToken
	}
	return s.tokens.Verify(accessToken)
}

func (s *LocalSessions) issue(id, email string) (domain.Session, error) {
	token, err := s.tokens.Issue(id, email, s.ttl)
	if err != nil {
		return domain.Session{}, domain.NewTransportError("sign token", err)
	}
	return domain.Session{
		UserID:      id,
		Email:       email,
		AccessToken: token,
		ExpiresAt:   s.tokens.now().Add(s.ttl),
	}, nil
}
