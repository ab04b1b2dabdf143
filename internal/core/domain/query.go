package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// --- DESCRIPTEUR DE REQUÊTE (indépendant du backend) ---

type Resource string

const (
	ResourceUsers   Resource = "users"
	ResourcePoems   Resource = "poems"
	ResourceFollows Resource = "follows"
)

// Colonnes du contrat backend.
const (
	ColID          = "id"
	ColUsername    = "username"
	ColFullName    = "full_name"
	ColUserID      = "user_id"
	ColFormTags    = "form_tags"
	ColCreatedAt   = "created_at"
	ColFollowersID = "followers_id"
	ColFollowingID = "following_id"
)

type Operator string

const (
	OpEq    Operator = "eq"
	OpNeq   Operator = "neq"
	OpILike Operator = "ilike"
	OpIn    Operator = "in"
	OpGte   Operator = "gte"
)

type Condition struct {
	Column string
	Op     Operator
	Value  string
	Values []string
}

func Eq(col, v string) Condition { return Condition{Column: col, Op: OpEq, Value: v} }
func Neq(col, v string) Condition { return Condition{Column: col, Op: OpNeq, Value: v} }
func ILike(col, p string) Condition { return Condition{Column: col, Op: OpILike, Value: p} }
func In(col string, vs []string) Condition { return Condition{Column: col, Op: OpIn, Values: vs} }
func Gte(col, v string) Condition { return Condition{Column: col, Op: OpGte, Value: v} }

type Order struct {
	Column     string
	Descending bool
}

// Query : Where est un ET, AnyOf un OU (combiné en ET avec Where).
type Query struct {
	Resource   Resource
	Where      []Condition
	AnyOf      []Condition
	Order      Order
	Limit      int
	Offset     int
	WithAuthor bool
}

func (q Query) String() string {
	var parts []string
	for _, c := range q.Where {
		parts = append(parts, c.String())
	}
	if len(q.AnyOf) > 0 {
		var or []string
		for _, c := range q.AnyOf {
			or = append(or, c.String())
		}
		parts = append(parts, "("+strings.Join(or, " OR ")+")")
	}
	s := fmt.Sprintf("%s[%s]", q.Resource, strings.Join(parts, " AND "))
	if q.Order.Column != "" {
		dir := "asc"
		if q.Order.Descending {
			dir = "desc"
		}
		s += fmt.Sprintf(" order=%s.%s", q.Order.Column, dir)
	}
	return s + fmt.Sprintf(" limit=%d offset=%d", q.Limit, q.Offset)
}

func (c Condition) String() string {
	if c.Op == OpIn {
		return fmt.Sprintf("%s in (%s)", c.Column, strings.Join(c.Values, ","))
	}
	return fmt.Sprintf("%s %s %q", c.Column, c.Op, c.Value)
}

// --- MODES ---

type Mode string

const (
	ModeFeed        Mode = "feed"
	ModeFilter      Mode = "filter"
	ModeUserSearch  Mode = "user_search"
	ModeFollowing   Mode = "following"
	ModeAuthorPoems Mode = "author_poems"
)

type Filter string

const (
	FilterTrending  Filter = "trending"
	FilterRecent    Filter = "recent"
	FilterHaiku     Filter = "haiku"
	FilterSonnet    Filter = "sonnet"
	FilterFreeVerse Filter = "free-verse"
)

// Filters : ordre des onglets de l'explorateur.
var Filters = []Filter{FilterTrending, FilterRecent, FilterHaiku, FilterSonnet, FilterFreeVerse}

func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FilterTrending, nil
	}
	for _, known := range Filters {
		if f == known {
			return f, nil
		}
	}
	return "", NewValidationError("filter", fmt.Sprintf("unknown filter %q", s))
}

// tagPatterns : sous-chaîne cherchée dans form_tags.
var tagPatterns = map[Filter]string{
	FilterHaiku:     "%haiku%",
	FilterSonnet:    "%sonnet%",
	FilterFreeVerse: "%free%",
}

const (
	FeedLimit             = 20
	FilterLimit           = 10
	SearchLimit           = 10
	FollowingSummaryLimit = 4
	AuthorPoemsLimit      = 20

	// TrendingWindow : "trending" = poèmes récents classés par audience de l'auteur.
	TrendingWindow = 7 * 24 * time.Hour
	TrendingPool   = 5 * FilterLimit
)

type QueryParams struct {
	Filter   Filter
	Text     string
	AuthorID string
	Page     int
	Now      time.Time
}

// BuildQuery produit l'unique descripteur d'un mode.
// Pour la recherche et la liste de suivis, c'est la première étape ;
// FollowEdgesQuery et UsersByIDsQuery complètent.
func BuildQuery(v Viewer, mode Mode, p QueryParams) (Query, error) {
	if err := v.Require(); err != nil {
		return Query{}, err
	}
	page := p.Page
	if page < 0 {
		page = 0
	}

	switch mode {
	case ModeFeed:
		return Query{
			Resource:   ResourcePoems,
			Order:      newestFirst(),
			Limit:      FeedLimit,
			Offset:     page * FeedLimit,
			WithAuthor: true,
		}, nil

	case ModeFilter:
		return filterQuery(p, page)

	case ModeUserSearch:
		text := strings.TrimSpace(p.Text)
		if text == "" {
			return Query{}, NewValidationError("q", "search text is required")
		}
		pattern := "%" + EscapeLike(text) + "%"
		return Query{
			Resource: ResourceUsers,
			Where:    []Condition{Neq(ColID, v.ID)},
			AnyOf:    []Condition{ILike(ColUsername, pattern), ILike(ColFullName, pattern)},
			Order:    Order{Column: ColUsername},
			Limit:    SearchLimit,
			Offset:   page * SearchLimit,
		}, nil

	case ModeFollowing:
		return Query{
			Resource: ResourceFollows,
			Where:    []Condition{Eq(ColFollowersID, v.ID)},
			Order:    newestFirst(),
			Limit:    FollowingSummaryLimit,
		}, nil

	case ModeAuthorPoems:
		author := strings.TrimSpace(p.AuthorID)
		if author == "" {
			return Query{}, NewValidationError("user_id", "author is required")
		}
		return Query{
			Resource:   ResourcePoems,
			Where:      []Condition{Eq(ColUserID, author)},
			Order:      newestFirst(),
			Limit:      AuthorPoemsLimit,
			Offset:     page * AuthorPoemsLimit,
			WithAuthor: true,
		}, nil
	}
	return Query{}, NewValidationError("mode", fmt.Sprintf("unknown mode %q", mode))
}

func filterQuery(p QueryParams, page int) (Query, error) {
	f := p.Filter
	if f == "" {
		f = FilterTrending
	}
	q := Query{
		Resource:   ResourcePoems,
		Order:      newestFirst(),
		Limit:      FilterLimit,
		Offset:     page * FilterLimit,
		WithAuthor: true,
	}
	switch f {
	case FilterRecent:
	case FilterTrending:
		now := p.Now
		if now.IsZero() {
			now = time.Now()
		}
		since := now.Add(-TrendingWindow).UTC().Format(time.RFC3339)
		q.Where = []Condition{Gte(ColCreatedAt, since)}
		q.Limit = TrendingPool
		q.Offset = 0
	default:
		pattern, ok := tagPatterns[f]
		if !ok {
			return Query{}, NewValidationError("filter", fmt.Sprintf("unknown filter %q", f))
		}
		q.Where = []Condition{ILike(ColFormTags, pattern)}
	}
	return q, nil
}

// FollowEdgesQuery : arêtes sortantes du viewer restreintes aux candidats.
func FollowEdgesQuery(viewerID string, candidateIDs []string) Query {
	return Query{
		Resource: ResourceFollows,
		Where:    []Condition{Eq(ColFollowersID, viewerID), In(ColFollowingID, candidateIDs)},
		Limit:    len(candidateIDs),
	}
}

// AllFollowingQuery : tous les comptes suivis (répertoire des suivis).
func AllFollowingQuery(viewerID string) Query {
	return Query{
		Resource: ResourceFollows,
		Where:    []Condition{Eq(ColFollowersID, viewerID)},
	}
}

func FollowersOfQuery(userIDs []string) Query {
	return Query{
		Resource: ResourceFollows,
		Where:    []Condition{In(ColFollowingID, userIDs)},
	}
}

func UsersByIDsQuery(ids []string) Query {
	return Query{
		Resource: ResourceUsers,
		Where:    []Condition{In(ColID, ids)},
		Limit:    len(ids),
	}
}

func UserByIDQuery(id string) Query {
	return Query{Resource: ResourceUsers, Where: []Condition{Eq(ColID, id)}, Limit: 1}
}

func UserByUsernameQuery(username string) Query {
	return Query{Resource: ResourceUsers, Where: []Condition{Eq(ColUsername, username)}, Limit: 1}
}

func PoemByIDQuery(id string) Query {
	return Query{Resource: ResourcePoems, Where: []Condition{Eq(ColID, id)}, Limit: 1, WithAuthor: true}
}

// Requêtes de comptage (statistiques du profil).
func PoemCountQuery(authorID string) Query {
	return Query{Resource: ResourcePoems, Where: []Condition{Eq(ColUserID, authorID)}}
}

func FollowerCountQuery(userID string) Query {
	return Query{Resource: ResourceFollows, Where: []Condition{Eq(ColFollowingID, userID)}}
}

func FollowingCountQuery(userID string) Query {
	return Query{Resource: ResourceFollows, Where: []Condition{Eq(ColFollowersID, userID)}}
}

// --- MOTIFS ILIKE ---

// LikeEscape : caractère d'échappement des motifs (ESCAPE '\' côté SQL).
const LikeEscape = '\\'

var likeSpecial = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike rend %, _ et \ littéraux dans un motif ILIKE.
func EscapeLike(text string) string { return likeSpecial.Replace(text) }

// LikeRegexp traduit un motif ILIKE échappé en expression régulière ancrée,
// sans drapeaux : % -> .*, _ -> ., \x -> x littéral.
func LikeRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == LikeEscape:
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaped {
		b.WriteString(regexp.QuoteMeta(string(LikeEscape)))
	}
	b.WriteString("$")
	return b.String()
}

func newestFirst() Order { return Order{Column: ColCreatedAt, Descending: true} }

// --- ÉTATS VIDES ---

// EmptyMessage : un résultat vide n'est pas une erreur, juste un message.
func EmptyMessage(mode Mode, p QueryParams) string {
	switch mode {
	case ModeFeed, ModeAuthorPoems:
		return "No poems yet"
	case ModeFilter:
		return "No poems found"
	case ModeUserSearch:
		if strings.TrimSpace(p.Text) == "" {
			return ""
		}
		return fmt.Sprintf("No users found for %q", strings.TrimSpace(p.Text))
	case ModeFollowing:
		return "No following yet"
	}
	return ""
}
