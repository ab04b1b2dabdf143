package memory

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"
)

// Gateway est un backend en mémoire : mode local sans Supabase et tests.
// Il évalue les descripteurs de requête comme le ferait PostgREST.
type Gateway struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	poems   map[string]domain.Poem
	follows map[edgeKey]domain.FollowEdge
	now     func() time.Time

	calls    map[string]int
	failures map[string]error
}

type edgeKey struct{ follower, following string }

func NewGateway() *Gateway {
	return &Gateway{
		users:    make(map[string]domain.User),
		poems:    make(map[string]domain.Poem),
		follows:  make(map[edgeKey]domain.FollowEdge),
		now:      time.Now,
		calls:    make(map[string]int),
		failures: make(map[string]error),
	}
}

// --- OUTILS DE TEST / SEED ---

func (g *Gateway) PutUser(u domain.User) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users[u.ID] = u
}

func (g *Gateway) PutPoem(p domain.Poem) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.poems[p.ID] = p
}

func (g *Gateway) PutFollow(e domain.FollowEdge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.follows[edgeKey{e.FollowerID, e.FollowingID}] = e
}

// Fail fait échouer toutes les prochaines opérations op ("InsertFollow", ...). nil rétablit.
func (g *Gateway) Fail(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failures, op)
		return
	}
	g.failures[op] = err
}

// Calls : nombre d'appels à op ; op vide = total.
func (g *Gateway) Calls(op string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if op != "" {
		return g.calls[op]
	}
	total := 0
	for _, n := range g.calls {
		total += n
	}
	return total
}

func (g *Gateway) FollowCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.follows)
}

// enter compte l'appel et renvoie l'erreur injectée. Appelé sous verrou.
func (g *Gateway) enter(ctx context.Context, op string) error {
	g.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.failures[op]
}

// --- USERS ---

func (g *Gateway) SelectUsers(ctx context.Context, q domain.Query) ([]domain.UserRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter(ctx, "SelectUsers"); err != nil {
		return nil, err
	}
	rows := make([]row, 0, len(g.users))
	for _, u := range g.users {
		rows = append(rows, userRow(u))
	}
	out := make([]domain.UserRecord, 0)
	for _, r := range apply(rows, q) {
		out = append(out, r.value.(domain.User).Record())
	}
	return out, nil
}

func (g *Gateway) InsertUser(ctx context.Context, rec domain.UserRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter(ctx, "InsertUser"); err != nil {
		return err
	}
	u := rec.Normalize()
	if u.ID == "" || u.Username == "" {
		return domain.NewValidationError("username", "id and username are required")
	}
	if _, exists := g.users[u.ID]; exists {
		return fmt.Errorf("duplicate key: users.id %s", u.ID)
	}
	for _, other := range g.users {
		if strings.EqualFold(other.Username, u.Username) {
			return domain.ErrUsernameTaken
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = g.now().UTC()
	}
	g.users[u.ID] = u
	return nil
}

func (g *Gateway) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter(ctx, "UpdateUser"); err != nil {
		return err
	}
	u, ok := g.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	g.users[id] = u.Apply(patch)
	return nil
}

// --- POEMS ---

func (g *Gateway) SelectPoems(ctx context.Context, q domain.Query) ([]domain.PoemRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter(ctx, "SelectPoems"); err != nil {
		return nil, err
	}
	rows := make([]row, 0, len(g.poems))
	for _, p := range g.poems {
		rows = append(rows, poemRow(p))
	}
	out := make([]domain.PoemRecord, 0)
	for _, r := range apply(rows, q) {
		p := r.value.(domain.Poem)
		rec := p.Record()
		if q.WithAuthor {
			if authorID, ok := p.AuthorID.Get(); ok {
				if u, found := g.users[authorID]; found {
					author := u.Record()
					rec.Author = &author
				}
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (g *Gateway) InsertPoem(ctx context.Context, rec domain.PoemRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter(ctx, "InsertPoem"); err != nil {
		return err
	}
	p := rec.Normalize()
	if p.ID == "" {
		return domain.NewValidationError("id", "poem id is required")
	}
	if _, exists := g.poems[p.ID]; exists {
		return fmt.Errorf("duplicate key: poems.id %s", p.ID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = g.now().UTC()
	}
	g.poems[p.ID] = p
	return nil
}

func (g *Gateway) UpdatePoem(ctx context.Context, id string, patch domain.PoemPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter(ctx, "UpdatePoem"); err != nil {
		return err
	}
	p, ok := g.poems[id]
	if !ok {
		return domain.ErrNotFound
	}
	g.poems[id] = p.Apply(patch)
	return nil
}

func (g *Gateway) DeletePoem(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter(ctx, "DeletePoem"); err != nil {
		return err
	}
	delete(g.poems, id)
	return nil
}

// --- FOLLOWS ---

func (g *Gateway) SelectFollows(ctx context.Context, q domain.Query) ([]domain.FollowRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter(ctx, "SelectFollows"); err != nil {
		return nil, err
	}
	out := make([]domain.FollowRecord, 0)
	for _, r := range apply(g.followRows(), q) {
		out = append(out, r.value.(domain.FollowEdge).Record())
	}
	return out, nil
}

// InsertFollow est idempotent (ON CONFLICT DO NOTHING).
func (g *Gateway) InsertFollow(ctx context.Context, edge domain.FollowEdge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter(ctx, "InsertFollow"); err != nil {
		return err
	}
	key := edgeKey{edge.FollowerID, edge.FollowingID}
	if _, exists := g.follows[key]; exists {
		return nil
	}
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = g.now().UTC()
	}
	g.follows[key] = edge
	return nil
}

func (g *Gateway) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter(ctx, "DeleteFollow"); err != nil {
		return err
	}
	delete(g.follows, edgeKey{followerID, followingID})
	return nil
}

func (g *Gateway) followRows() []row {
	rows := make([]row, 0, len(g.follows))
	for _, e := range g.follows {
		rows = append(rows, followRow(e))
	}
	return rows
}

// --- DIVERS ---

func (g *Gateway) Count(ctx context.Context, q domain.Query) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.enter(ctx, "Count"); err != nil {
		return 0, err
	}
	q.Limit, q.Offset = 0, 0

	var rows []row
	switch q.Resource {
	case domain.ResourceUsers:
		for _, u := range g.users {
			rows = append(rows, userRow(u))
		}
	case domain.ResourcePoems:
		for _, p := range g.poems {
			rows = append(rows, poemRow(p))
		}
	case domain.ResourceFollows:
		rows = g.followRows()
	default:
		return 0, fmt.Errorf("unknown resource %q", q.Resource)
	}
	return len(apply(rows, q)), nil
}

func (g *Gateway) Ping(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enter(ctx, "Ping")
}

// --- ÉVALUATION DES REQUÊTES ---

// row : colonnes lisibles d'une ligne ; absent = NULL.
type row struct {
	key   string
	cols  map[string]string
	times map[string]time.Time
	value any
}

func userRow(u domain.User) row {
	cols := map[string]string{domain.ColID: u.ID, domain.ColUsername: u.Username}
	if v, ok := u.FullName.Get(); ok {
		cols[domain.ColFullName] = v
	}
	return row{key: u.ID, cols: cols, times: map[string]time.Time{domain.ColCreatedAt: u.CreatedAt}, value: u}
}

func poemRow(p domain.Poem) row {
	cols := map[string]string{domain.ColID: p.ID, "content": p.Content}
	if v, ok := p.AuthorID.Get(); ok {
		cols[domain.ColUserID] = v
	}
	if v, ok := p.Tag.Get(); ok {
		cols[domain.ColFormTags] = v
	}
	return row{key: p.ID, cols: cols, times: map[string]time.Time{domain.ColCreatedAt: p.CreatedAt}, value: p}
}

func followRow(e domain.FollowEdge) row {
	cols := map[string]string{domain.ColFollowersID: e.FollowerID, domain.ColFollowingID: e.FollowingID}
	return row{key: e.FollowerID + "|" + e.FollowingID, cols: cols, times: map[string]time.Time{domain.ColCreatedAt: e.CreatedAt}, value: e}
}

func apply(rows []row, q domain.Query) []row {
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		if matchesAll(r, q.Where) && matchesAny(r, q.AnyOf) {
			out = append(out, r)
		}
	}

	// Ordre de base déterministe, puis l'ordre demandé
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	sortRows(out, q.Order)

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func matchesAll(r row, conds []domain.Condition) bool {
	for _, c := range conds {
		if !matches(r, c) {
			return false
		}
	}
	return true
}

func matchesAny(r row, conds []domain.Condition) bool {
	if len(conds) == 0 {
		return true
	}
	for _, c := range conds {
		if matches(r, c) {
			return true
		}
	}
	return false
}

// matches suit la logique SQL : une colonne NULL ne satisfait aucun opérateur.
func matches(r row, c domain.Condition) bool {
	if t, isTime := r.times[c.Column]; isTime {
		if t.IsZero() {
			return false
		}
		bound, err := time.Parse(time.RFC3339, c.Value)
		if err != nil {
			return false
		}
		switch c.Op {
		case domain.OpGte:
			return !t.Before(bound)
		case domain.OpEq:
			return t.Equal(bound)
		}
		return false
	}

	v, ok := r.cols[c.Column]
	if !ok {
		return false
	}
	switch c.Op {
	case domain.OpEq:
		return v == c.Value
	case domain.OpNeq:
		return v != c.Value
	case domain.OpILike:
		return likeRegexp(c.Value).MatchString(v)
	case domain.OpIn:
		for _, candidate := range c.Values {
			if v == candidate {
				return true
			}
		}
		return false
	case domain.OpGte:
		return v >= c.Value
	}
	return false
}

func sortRows(rows []row, order domain.Order) {
	if order.Column == "" {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if ti, ok := rows[i].times[order.Column]; ok {
			tj := rows[j].times[order.Column]
			if order.Descending {
				return ti.After(tj)
			}
			return ti.Before(tj)
		}
		vi, vj := rows[i].cols[order.Column], rows[j].cols[order.Column]
		if order.Descending {
			return vi > vj
		}
		return vi < vj
	})
}

// likeRegexp : même sémantique qu'ILIKE ... ESCAPE '\', insensible à la casse.
func likeRegexp(pattern string) *regexp.Regexp {
	return regexp.MustCompile("(?is)" + domain.LikeRegexp(pattern))
}
