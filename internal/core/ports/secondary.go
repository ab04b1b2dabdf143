package ports

import (
	"context"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

// --- DRIVEN (Ce dont le cœur a besoin) ---

// UserStore : ressource "users" du backend.
type UserStore interface {
	SelectUsers(ctx context.Context, q domain.Query) ([]domain.UserRecord, error)
	InsertUser(ctx context.Context, rec domain.UserRecord) error
	UpdateUser(ctx context.Context, id string, patch domain.UserPatch) error
}

// PoemStore : ressource "poems", auteur joint quand q.WithAuthor.
type PoemStore interface {
	SelectPoems(ctx context.Context, q domain.Query) ([]domain.PoemRecord, error)
	InsertPoem(ctx context.Context, rec domain.PoemRecord) error
	UpdatePoem(ctx context.Context, id string, patch domain.PoemPatch) error
	DeletePoem(ctx context.Context, id string) error
}

// FollowStore : arêtes dirigées. Insert et Delete sont idempotents :
// suivre deux fois ne crée qu'une arête, retirer une arête absente n'est pas une erreur.
type FollowStore interface {
	SelectFollows(ctx context.Context, q domain.Query) ([]domain.FollowRecord, error)
	InsertFollow(ctx context.Context, edge domain.FollowEdge) error
	DeleteFollow(ctx context.Context, followerID, followingID string) error
}

// Gateway est le backend complet (Supabase, Postgres direct ou mémoire).
type Gateway interface {
	UserStore
	PoemStore
	FollowStore

	// Count compte les lignes de q (Limit et Offset ignorés).
	Count(ctx context.Context, q domain.Query) (int, error)
	Ping(ctx context.Context) error
}

// --- SESSION ---

// SessionProvider délègue l'authentification au fournisseur hébergé (GoTrue).
type SessionProvider interface {
	SignUp(ctx context.Context, cmd domain.SignUp) (domain.Session, error)
	SignIn(ctx context.Context, cred domain.Credentials) (domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	// Lookup valide le token auprès du fournisseur.
	Lookup(ctx context.Context, accessToken string) (domain.Viewer, error)
}

// TokenVerifier valide un JWT localement, sans aller-retour réseau.
type TokenVerifier interface {
	Verify(token string) (domain.Viewer, error)
}

// --- MESSAGERIE (BROKER) ---

type EventPublisher interface {
	PublishFollowCreated(ctx context.Context, evt domain.FollowEvent) error
	PublishFollowDeleted(ctx context.Context, evt domain.FollowEvent) error
	PublishPoemPublished(ctx context.Context, evt domain.PoemPublishedEvent) error
}

// --- CACHE ---

// FolloweeCache garde l'ensemble des comptes suivis par viewer.
type FolloweeCache interface {
	Get(ctx context.Context, viewerID string) (ids []string, found bool, err error)
	Set(ctx context.Context, viewerID string, ids []string) error
	Add(ctx context.Context, viewerID, followeeID string) error
	Remove(ctx context.Context, viewerID, followeeID string) error
	Invalidate(ctx context.Context, viewerID string) error
}
