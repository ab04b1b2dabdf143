package ports

import (
	"context"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

// --- INPUTS ---

type ExploreCmd struct {
	Filter domain.Filter
	Page   int
}

// ToggleFollowCmd : CurrentState est l'état affiché au moment du clic.
type ToggleFollowCmd struct {
	CandidateID  string
	CurrentState bool
}

type UpdatePoemCmd struct {
	PoemID string
	Patch  domain.PoemPatch
}

// --- PORTS PRIMAIRES (Driving) ---

// FeedService : feed d'accueil, onglets de l'explorateur, poèmes d'un auteur.
type FeedService interface {
	Feed(ctx context.Context, v domain.Viewer, page int) (*domain.PoemPage, error)
	Explore(ctx context.Context, v domain.Viewer, cmd ExploreCmd) (*domain.PoemPage, error)
	AuthorPoems(ctx context.Context, v domain.Viewer, authorID string, page int) (*domain.PoemPage, error)
}

// SearchService : recherche d'utilisateurs + état de suivi réconcilié.
type SearchService interface {
	SearchUsers(ctx context.Context, v domain.Viewer, text string) (*domain.CandidatePage, error)
	ToggleFollow(ctx context.Context, v domain.Viewer, cmd ToggleFollowCmd) (domain.SearchCandidate, error)
	Following(ctx context.Context, v domain.Viewer) (*domain.IdentityList, error)
}

type PoemService interface {
	Publish(ctx context.Context, v domain.Viewer, draft domain.Draft) (*domain.PoemViewModel, error)
	Preview(ctx context.Context, v domain.Viewer, draft domain.Draft) (*domain.PoemViewModel, error)
	Get(ctx context.Context, v domain.Viewer, poemID string) (*domain.PoemViewModel, error)
	Update(ctx context.Context, v domain.Viewer, cmd UpdatePoemCmd) (*domain.PoemViewModel, error)
	Delete(ctx context.Context, v domain.Viewer, poemID string) error
}

type ProfileService interface {
	Get(ctx context.Context, v domain.Viewer, userID string) (*domain.Profile, error)
	Update(ctx context.Context, v domain.Viewer, patch domain.UserPatch) (*domain.DisplayIdentity, error)
}

type AuthService interface {
	SignUp(ctx context.Context, cmd domain.SignUp) (domain.Session, error)
	SignIn(ctx context.Context, cred domain.Credentials) (domain.Session, error)
	SignOut(ctx context.Context, v domain.Viewer) error
	// Authenticate résout un bearer token en identité explicite.
	Authenticate(ctx context.Context, token string) (domain.Viewer, error)
}
