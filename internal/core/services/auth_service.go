package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/ports"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/pkg/validation"
)

const maxUsernameAttempts = 5

type authService struct {
	sessions ports.SessionProvider
	verifier ports.TokenVerifier
	users    ports.UserStore
}

// NewAuthService : verifier peut être nil, la validation passe alors par le fournisseur.
func NewAuthService(sessions ports.SessionProvider, verifier ports.TokenVerifier, users ports.UserStore) ports.AuthService {
	return &authService{sessions: sessions, verifier: verifier, users: users}
}

type signUpInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
}

type signInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (s *authService) SignUp(ctx context.Context, cmd domain.SignUp) (domain.Session, error) {
	cmd.Email = strings.TrimSpace(cmd.Email)
	cmd.FullName = strings.TrimSpace(cmd.FullName)
	if err := check(signUpInput{Email: cmd.Email, Password: cmd.Password, FullName: cmd.FullName}); err != nil {
		return domain.Session{}, err
	}

	session, err := s.sessions.SignUp(ctx, cmd)
	if err != nil {
		return domain.Session{}, err
	}
	slog.Info("👤 account created", "user_id", session.UserID, "pending_confirmation", session.PendingConfirmation())

	if session.UserID != "" {
		if err := s.ensureProfile(ctx, session.UserID, cmd.Email, cmd.FullName); err != nil {
			// Le compte existe côté auth ; la ligne profil sera recréée à la connexion.
			slog.Error("❌ failed to create profile row", "user_id", session.UserID, "error", err)
		}
	}
	return session, nil
}

func (s *authService) SignIn(ctx context.Context, cred domain.Credentials) (domain.Session, error) {
	cred.Email = strings.TrimSpace(cred.Email)
	if err := check(signInInput{Email: cred.Email, Password: cred.Password}); err != nil {
		return domain.Session{}, err
	}
	session, err := s.sessions.SignIn(ctx, cred)
	if err != nil {
		return domain.Session{}, err
	}
	if err := s.ensureProfile(ctx, session.UserID, cred.Email, ""); err != nil {
		slog.Warn("⚠️ profile row check failed", "user_id", session.UserID, "error", err)
	}
	return session, nil
}

func (s *authService) SignOut(ctx context.Context, v domain.Viewer) error {
	if err := v.Require(); err != nil {
		return err
	}
	return s.sessions.SignOut(ctx, v.Token)
}

// Authenticate : vérification locale du JWT si possible, sinon aller-retour au fournisseur.
func (s *authService) Authenticate(ctx context.Context, token string) (domain.Viewer, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Anonymous(), domain.ErrAuthRequired
	}
	if s.verifier != nil {
		v, err := s.verifier.Verify(token)
		if err != nil {
			return domain.Anonymous(), domain.ErrInvalidToken
		}
		v.Token = token
		return v, nil
	}
	v, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		return domain.Anonymous(), err
	}
	v.Token = token
	return v, nil
}

// ensureProfile crée la ligne "users" si elle manque. Le handle vient de l'email,
// suffixé en cas de collision.
func (s *authService) ensureProfile(ctx context.Context, userID, email, fullName string) error {
	if userID == "" {
		return nil
	}
	existing, err := s.users.SelectUsers(ctx, domain.UserByIDQuery(userID))
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	base := domain.UsernameFromEmail(email)
	user := domain.User{ID: userID, Username: base}
	if fullName != "" {
		user.FullName = domain.Some(fullName)
	}
	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		if attempt > 0 {
			user.Username = fmt.Sprintf("%s%s", base, suffix(userID, attempt))
		}
		err = s.users.InsertUser(ctx, user.Record())
		if !errors.Is(err, domain.ErrUsernameTaken) {
			return err
		}
	}
	return err
}

func suffix(userID string, attempt int) string {
	clean := strings.ReplaceAll(userID, "-", "")
	n := 2 + 2*attempt
	if n > len(clean) {
		return fmt.Sprintf("%d", attempt)
	}
	return clean[:n]
}

func check(input any) error {
	if err := validation.Struct(input); err != nil {
		var fe *validation.FieldError
		if errors.As(err, &fe) {
			return domain.NewValidationError(fe.Field, fe.Message)
		}
		return domain.NewValidationError("", err.Error())
	}
	return nil
}
