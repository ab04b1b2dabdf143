package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

// SupabaseClaims : claims des access tokens émis par GoTrue.
type SupabaseClaims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"` // "authenticated" pour un compte connecté
	jwt.RegisteredClaims
}

// JWTVerifier valide localement les tokens Supabase (HS256, secret du projet).
// Implémente ports.TokenVerifier.
type JWTVerifier struct {
	secret   []byte
	audience string
	leeway   time.Duration
	now      func() time.Time
}

func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &JWTVerifier{
		secret:   []byte(secret),
		audience: "authenticated",
		leeway:   30 * time.Second,
		now:      time.Now,
	}, nil
}

// Verify vérifie signature, expiration et audience, puis renvoie l'identité (Subject).
func (j *JWTVerifier) Verify(tokenString string) (domain.Viewer, error) {
	claims := &SupabaseClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Refuse tout autre algo (none, RS256 avec clé HMAC...)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	},
		jwt.WithAudience(j.audience),
		jwt.WithLeeway(j.leeway),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return domain.Viewer{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.Role == "anon" {
		return domain.Viewer{}, domain.ErrInvalidToken
	}

	return domain.Viewer{ID: claims.Subject, Email: claims.Email, Token: tokenString}, nil
}

// Issue signe un token au format Supabase (outillage local et tests).
func (j *JWTVerifier) Issue(userID, email string, ttl time.Duration) (string, error) {
	now := j.now()
	claims := SupabaseClaims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{j.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}
