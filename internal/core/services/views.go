package services

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ViewerViews : état éphémère d'une session (résultats de recherche affichés,
// générations des listes chargées).
type ViewerViews struct {
	Search      *SearchView
	Feed        Latest
	Explore     Latest
	AuthorPoems Latest
	Profile     Latest
	Following   Latest
}

// ViewRegistry borne le nombre de sessions gardées en mémoire.
// Les clés viennent de domain.Viewer.SessionKey.
type ViewRegistry struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *ViewerViews]
}

func NewViewRegistry(size int) (*ViewRegistry, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, *ViewerViews](size)
	if err != nil {
		return nil, err
	}
	return &ViewRegistry{cache: cache}, nil
}

// For renvoie (ou crée) les vues de la session.
func (r *ViewRegistry) For(session string) *ViewerViews {
	r.mu.Lock()
	defer r.mu.Unlock()

	if views, ok := r.cache.Get(session); ok {
		return views
	}
	views := &ViewerViews{Search: NewSearchView(session)}
	r.cache.Add(session, views)
	return views
}

// Peek ne crée rien.
func (r *ViewRegistry) Peek(session string) (*ViewerViews, bool) {
	return r.cache.Peek(session)
}

func (r *ViewRegistry) Len() int { return r.cache.Len() }
