package supabase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	gotrue "github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

// Sessions implémente ports.SessionProvider au-dessus de GoTrue.
// On passe par client.Auth directement : les helpers de supabase.Client
// modifient l'en-tête Authorization partagé par la gateway.
type Sessions struct {
	auth gotrue.Client
}

func NewSessions(auth gotrue.Client) *Sessions {
	return &Sessions{auth: auth}
}

func (s *Sessions) SignUp(ctx context.Context, cmd domain.SignUp) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	resp, err := s.auth.Signup(types.SignupRequest{
		Email:    cmd.Email,
		Password: cmd.Password,
		Data:     map[string]interface{}{"full_name": cmd.FullName},
	})
	if err != nil {
		return domain.Session{}, mapAuthError("signup", err)
	}

	// autoconfirm désactivé : User seul ; activé : Session complète
	id := resp.User.ID
	if id == uuid.Nil {
		id = resp.Session.User.ID
	}
	if id == uuid.Nil {
		return domain.Session{}, domain.NewTransportError("signup", errEmptyUser)
	}

	slog.Info("👤 Compte créé", "user_id", id.String(), "confirmed", resp.Session.AccessToken != "")
	return toSession(id, cmd.Email, resp.Session), nil
}

func (s *Sessions) SignIn(ctx context.Context, cred domain.Credentials) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	resp, err := s.auth.SignInWithEmailPassword(cred.Email, cred.Password)
	if err != nil {
		return domain.Session{}, mapAuthError("signin", err)
	}
	email := resp.User.Email
	if email == "" {
		email = cred.Email
	}
	return toSession(resp.User.ID, email, resp.Session), nil
}

func (s *Sessions) SignOut(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.auth.WithToken(token).Logout(); err != nil {
		return mapAuthError("signout", err)
	}
	return nil
}

// Lookup : validation distante du jeton (quand aucun secret JWT n'est configuré).
func (s *Sessions) Lookup(ctx context.Context, token string) (domain.Viewer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Viewer{}, err
	}
	resp, err := s.auth.WithToken(token).GetUser()
	if err != nil {
		return domain.Viewer{}, mapAuthError("get user", err)
	}
	if resp.ID == uuid.Nil {
		return domain.Viewer{}, domain.ErrInvalidToken
	}
	return domain.Viewer{ID: resp.ID.String(), Email: resp.Email, Token: token}, nil
}

func toSession(id uuid.UUID, email string, sess types.Session) domain.Session {
	out := domain.Session{
		UserID:       id.String(),
		Email:        email,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
	}
	if sess.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(sess.ExpiresAt, 0).UTC()
	}
	return out
}
