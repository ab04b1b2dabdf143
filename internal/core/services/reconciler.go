package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/ports"
)

// Reconcile marque IsFollowing pour exactement les candidats présents
// comme "following" dans les arêtes sortantes du viewer.
func Reconcile(candidates []domain.User, edges []domain.FollowEdge) []domain.SearchCandidate {
	followed := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		followed[e.FollowingID] = struct{}{}
	}
	out := make([]domain.SearchCandidate, 0, len(candidates))
	for _, c := range candidates {
		_, ok := followed[c.ID]
		out = append(out, domain.SearchCandidate{User: domain.AdaptUser(c), IsFollowing: ok})
	}
	return out
}

// --- VUE DE RECHERCHE (état affiché) ---

type flip int

const (
	flipStarted flip = iota
	flipNoop
	flipBusy
	flipUnknown
)

// SearchView : candidats affichés pour un viewer. Les bascules de suivi sont en deux temps :
// tentative (affichée tout de suite, Pending) puis confirmation ou retour arrière.
type SearchView struct {
	mu      sync.Mutex
	session string
	query   string
	items    []domain.SearchCandidate
	pending  map[string]bool
	gen      Latest
}

func NewSearchView(session string) *SearchView {
	return &SearchView{session: session, pending: make(map[string]bool)}
}

// Load remplace les résultats. Une bascule encore en vol garde son état tentative.
func (v *SearchView) Load(query string, items []domain.SearchCandidate) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.query = query
	v.items = make([]domain.SearchCandidate, len(items))
	copy(v.items, items)
	for i := range v.items {
		if target, ok := v.pending[v.items[i].User.ID]; ok {
			v.items[i].IsFollowing = target
			v.items[i].Pending = true
		}
	}
}

func (v *SearchView) Snapshot() (string, []domain.SearchCandidate) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]domain.SearchCandidate, len(v.items))
	copy(out, v.items)
	return v.query, out
}

func (v *SearchView) Lookup(id string) (domain.SearchCandidate, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i := v.indexOf(id); i >= 0 {
		return v.items[i], true
	}
	return domain.SearchCandidate{}, false
}

// Refresh recalcule IsFollowing hors bascules en vol.
func (v *SearchView) Refresh(followed map[string]struct{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.items {
		id := v.items[i].User.ID
		if _, inFlight := v.pending[id]; inFlight {
			continue
		}
		_, ok := followed[id]
		v.items[i].IsFollowing = ok
	}
}

func (v *SearchView) begin(id string, target bool) flip {
	v.mu.Lock()
	defer v.mu.Unlock()

	if current, ok := v.pending[id]; ok {
		if current == target {
			return flipNoop
		}
		return flipBusy
	}
	i := v.indexOf(id)
	if i < 0 {
		return flipUnknown
	}
	if v.items[i].IsFollowing == target {
		return flipNoop
	}
	v.pending[id] = target
	v.items[i].IsFollowing = target
	v.items[i].Pending = true
	return flipStarted
}

// settle confirme (ok) ou annule la tentative.
func (v *SearchView) settle(id string, target, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	delete(v.pending, id)
	if i := v.indexOf(id); i >= 0 {
		v.items[i].Pending = false
		if ok {
			v.items[i].IsFollowing = target
		} else {
			v.items[i].IsFollowing = !target
		}
	}
}

func (v *SearchView) indexOf(id string) int {
	for i := range v.items {
		if v.items[i].User.ID == id {
			return i
		}
	}
	return -1
}

// --- RÉCONCILIATEUR ---

type ReconcilerOption func(*Reconciler)

func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) { r.now = now }
}

func WithRefreshTimeout(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) { r.refreshTimeout = d }
}

// Reconciler applique follow / unfollow avec mise à jour optimiste,
// retour arrière en cas d'échec et rafraîchissement en arrière-plan.
type Reconciler struct {
	follows        ports.FollowStore
	publisher      ports.EventPublisher
	followees      *FolloweeDirectory
	now            func() time.Time
	refreshTimeout time.Duration
	wg             sync.WaitGroup
}

func NewReconciler(follows ports.FollowStore, pub ports.EventPublisher, followees *FolloweeDirectory, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		follows:        follows,
		publisher:      pub,
		followees:      followees,
		now:            time.Now,
		refreshTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) ApplyFollow(ctx context.Context, v domain.Viewer, view *SearchView, targetID string) (domain.SearchCandidate, error) {
	return r.apply(ctx, v, view, targetID, true)
}

func (r *Reconciler) ApplyUnfollow(ctx context.Context, v domain.Viewer, view *SearchView, targetID string) (domain.SearchCandidate, error) {
	return r.apply(ctx, v, view, targetID, false)
}

// Wait attend la fin des rafraîchissements en arrière-plan.
func (r *Reconciler) Wait() { r.wg.Wait() }

func (r *Reconciler) apply(ctx context.Context, v domain.Viewer, view *SearchView, targetID string, target bool) (domain.SearchCandidate, error) {
	// 1. Garde-fous locaux, aucune requête
	if err := v.Require(); err != nil {
		return domain.SearchCandidate{}, err
	}
	edge, err := domain.NewFollowEdge(v.ID, targetID, r.now())
	if err != nil {
		return domain.SearchCandidate{}, err
	}

	// 2. Tentative
	state := flipUnknown
	if view != nil {
		state = view.begin(edge.FollowingID, target)
	}
	switch state {
	case flipNoop:
		return r.current(view, edge.FollowingID, target), nil
	case flipBusy:
		return r.current(view, edge.FollowingID, !target), domain.ErrFollowInFlight
	case flipUnknown:
		following, err := r.followees.IsFollowing(ctx, v.ID, edge.FollowingID)
		if err != nil {
			slog.Warn("⚠️ follow state unknown, writing anyway", "viewer_id", v.ID, "target_id", edge.FollowingID, "error", err)
		} else if following == target {
			return r.current(nil, edge.FollowingID, target), nil
		}
	}

	// 3. Écriture
	if target {
		err = r.follows.InsertFollow(ctx, edge)
	} else {
		err = r.follows.DeleteFollow(ctx, edge.FollowerID, edge.FollowingID)
	}
	if err != nil {
		if view != nil && state == flipStarted {
			view.settle(edge.FollowingID, target, false)
		}
		slog.Error("❌ follow write failed, optimistic state reverted",
			"viewer_id", v.ID, "target_id", edge.FollowingID, "follow", target, "error", err)
		return r.current(view, edge.FollowingID, !target), transport("write follow edge", err)
	}

	// 4. Confirmation. Record passe avant settle : une relecture en cours
	// devient périmée tant que l'entrée est encore marquée en vol.
	r.followees.Record(ctx, v.ID, edge.FollowingID, target)
	if view != nil && state == flipStarted {
		view.settle(edge.FollowingID, target, true)
	}
	r.publish(ctx, edge, target)
	r.refreshAsync(ctx, v.ID, view)

	return r.current(view, edge.FollowingID, target), nil
}

func (r *Reconciler) current(view *SearchView, id string, fallback bool) domain.SearchCandidate {
	if view != nil {
		if c, ok := view.Lookup(id); ok {
			return c
		}
	}
	return domain.SearchCandidate{User: domain.DisplayIdentity{ID: id}, IsFollowing: fallback}
}

func (r *Reconciler) publish(ctx context.Context, edge domain.FollowEdge, followed bool) {
	if r.publisher == nil {
		return
	}
	evt := domain.FollowEvent{FollowerID: edge.FollowerID, FollowingID: edge.FollowingID, OccurredAt: r.now().UTC()}
	var err error
	if followed {
		err = r.publisher.PublishFollowCreated(ctx, evt)
	} else {
		err = r.publisher.PublishFollowDeleted(ctx, evt)
	}
	if err != nil {
		// La donnée est sauvée, on ne fait pas échouer la requête.
		slog.Warn("⚠️ failed to publish follow event", "follower_id", edge.FollowerID, "following_id", edge.FollowingID, "error", err)
	}
}

// refreshAsync relit les followees hors du cycle de la requête.
// Un résultat dépassé par une écriture plus récente est écarté.
func (r *Reconciler) refreshAsync(parent context.Context, viewerID string, view *SearchView) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), r.refreshTimeout)
		defer cancel()

		fresh, err := r.followees.Sync(ctx, viewerID, func(followed map[string]struct{}) {
			if view != nil {
				view.Refresh(followed)
			}
		})
		if err != nil {
			slog.Warn("⚠️ background followee refresh failed", "viewer_id", viewerID, "error", err)
			return
		}
		if !fresh {
			slog.Debug("background followee refresh superseded", "viewer_id", viewerID)
		}
	}()
}
