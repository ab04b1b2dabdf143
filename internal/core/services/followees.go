package services

import (
	"context"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/ports"
)

// Nombre de viewers dont on garde la génération d'écriture.
const generationSlots = 8192

// FolloweeDirectory : ensemble des comptes suivis par un viewer, en cache-aside.
// Le cache est optionnel ; sans lui chaque lecture va au backend.
//
// Chaque écriture confirmée ouvre une nouvelle génération pour le viewer :
// une relecture commencée avant n'est ni appliquée ni mise en cache.
type FolloweeDirectory struct {
	store ports.FollowStore
	cache ports.FolloweeCache

	mu   sync.Mutex
	next uint64
	gens *lru.Cache[string, uint64]
}

func NewFolloweeDirectory(store ports.FollowStore, cache ports.FolloweeCache) *FolloweeDirectory {
	gens, _ := lru.New[string, uint64](generationSlots) // taille > 0, pas d'erreur possible
	return &FolloweeDirectory{store: store, cache: cache, gens: gens}
}

// Set renvoie les followees du viewer, depuis le cache si possible.
func (d *FolloweeDirectory) Set(ctx context.Context, viewerID string) (map[string]struct{}, error) {
	if d.cache != nil {
		ids, found, err := d.cache.Get(ctx, viewerID)
		if err != nil {
			slog.Warn("⚠️ followee cache read failed, falling back to backend", "viewer_id", viewerID, "error", err)
		} else if found {
			return toSet(ids), nil
		}
	}
	return d.Refresh(ctx, viewerID)
}

func (d *FolloweeDirectory) IsFollowing(ctx context.Context, viewerID, targetID string) (bool, error) {
	set, err := d.Set(ctx, viewerID)
	if err != nil {
		return false, err
	}
	_, ok := set[targetID]
	return ok, nil
}

// Refresh relit le backend. Le cache n'est réécrit que si la lecture est toujours à jour.
func (d *FolloweeDirectory) Refresh(ctx context.Context, viewerID string) (map[string]struct{}, error) {
	set, _, err := d.reload(ctx, viewerID, nil)
	return set, err
}

// Sync relit le backend et passe le résultat à apply seulement si aucune
// écriture n'a été confirmée entre-temps. fresh=false : résultat écarté.
func (d *FolloweeDirectory) Sync(ctx context.Context, viewerID string, apply func(map[string]struct{})) (fresh bool, err error) {
	_, fresh, err = d.reload(ctx, viewerID, apply)
	return fresh, err
}

func (d *FolloweeDirectory) reload(ctx context.Context, viewerID string, apply func(map[string]struct{})) (map[string]struct{}, bool, error) {
	gen := d.generation(viewerID)

	records, err := d.store.SelectFollows(ctx, domain.AllFollowingQuery(viewerID))
	if err != nil {
		return nil, false, transport("load followees", err)
	}
	edges := domain.NormalizeEdges(records)
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.FollowingID)
	}
	set := toSet(ids)

	d.mu.Lock()
	fresh := d.currentLocked(viewerID, gen)
	if fresh && apply != nil {
		apply(set)
	}
	d.mu.Unlock()

	if !fresh {
		slog.Debug("followee read overtaken by a write, dropped", "viewer_id", viewerID)
		d.drop(ctx, viewerID)
		return set, false, nil
	}

	if d.cache != nil {
		if err := d.cache.Set(ctx, viewerID, ids); err != nil {
			slog.Warn("⚠️ followee cache write failed", "viewer_id", viewerID, "error", err)
		}
		// Une écriture a pu passer entre le contrôle et le Set.
		if d.generation(viewerID) != gen {
			d.drop(ctx, viewerID)
		}
	}
	return set, true, nil
}

// Record reporte une écriture confirmée : nouvelle génération, puis mise à jour du cache.
func (d *FolloweeDirectory) Record(ctx context.Context, viewerID, targetID string, following bool) {
	d.bump(viewerID)
	if d.cache == nil {
		return
	}
	var err error
	if following {
		err = d.cache.Add(ctx, viewerID, targetID)
	} else {
		err = d.cache.Remove(ctx, viewerID, targetID)
	}
	if err != nil {
		slog.Warn("⚠️ followee cache update failed, invalidating", "viewer_id", viewerID, "error", err)
		d.drop(ctx, viewerID)
	}
}

// Invalidate oublie l'ensemble du viewer (écriture vue ailleurs) :
// nouvelle génération, puis suppression de l'entrée de cache.
func (d *FolloweeDirectory) Invalidate(ctx context.Context, viewerID string) {
	d.bump(viewerID)
	d.drop(ctx, viewerID)
}

func (d *FolloweeDirectory) drop(ctx context.Context, viewerID string) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Invalidate(ctx, viewerID); err != nil {
		slog.Warn("⚠️ followee cache invalidation failed", "viewer_id", viewerID, "error", err)
	}
}

// Les générations viennent d'un compteur global : une entrée évincée
// puis recréée ne reprend jamais une valeur déjà vue.
func (d *FolloweeDirectory) bump(viewerID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.gens.Add(viewerID, d.next)
}

func (d *FolloweeDirectory) generation(viewerID string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	gen, _ := d.gens.Get(viewerID)
	return gen
}

func (d *FolloweeDirectory) currentLocked(viewerID string, gen uint64) bool {
	cur, _ := d.gens.Get(viewerID)
	return cur == gen
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
