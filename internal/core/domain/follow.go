package domain

import (
	"strings"
	"time"
)

// FollowRecord : ligne "follows". Pas de clé technique, la paire est la clé.
type FollowRecord struct {
	FollowersID *string    `json:"followers_id"`
	FollowingID *string    `json:"following_id"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// FollowEdge représente un lien dirigé (Follower -> Following).
type FollowEdge struct {
	FollowerID  string
	FollowingID string
	CreatedAt   time.Time
}

// Normalize : une arête sans ses deux extrémités est ignorée (ok = false).
func (r FollowRecord) Normalize() (FollowEdge, bool) {
	follower := strings.TrimSpace(deref(r.FollowersID))
	following := strings.TrimSpace(deref(r.FollowingID))
	if follower == "" || following == "" {
		return FollowEdge{}, false
	}
	e := FollowEdge{FollowerID: follower, FollowingID: following}
	if r.CreatedAt != nil {
		e.CreatedAt = r.CreatedAt.UTC()
	}
	return e, true
}

func (e FollowEdge) Record() FollowRecord {
	rec := FollowRecord{FollowersID: &e.FollowerID, FollowingID: &e.FollowingID}
	if !e.CreatedAt.IsZero() {
		t := e.CreatedAt
		rec.CreatedAt = &t
	}
	return rec
}

// NewFollowEdge applique les règles métier bloquantes.
func NewFollowEdge(followerID, followingID string, now time.Time) (FollowEdge, error) {
	followerID = strings.TrimSpace(followerID)
	followingID = strings.TrimSpace(followingID)
	if followerID == "" {
		return FollowEdge{}, ErrAuthRequired
	}
	if followingID == "" {
		return FollowEdge{}, NewValidationError("user_id", "target user is required")
	}
	if followerID == followingID {
		return FollowEdge{}, ErrSelfFollow
	}
	return FollowEdge{FollowerID: followerID, FollowingID: followingID, CreatedAt: now.UTC()}, nil
}

// NormalizeEdges filtre les lignes incomplètes.
func NormalizeEdges(records []FollowRecord) []FollowEdge {
	edges := make([]FollowEdge, 0, len(records))
	for _, r := range records {
		if e, ok := r.Normalize(); ok {
			edges = append(edges, e)
		}
	}
	return edges
}

// SearchCandidate : utilisateur + état de suivi calculé pour le viewer.
type SearchCandidate struct {
	User        DisplayIdentity `json:"user"`
	IsFollowing bool            `json:"is_following"`
	Pending     bool            `json:"pending,omitempty"`
}

// FollowAction : libellé du bouton affiché pour un candidat.
func (c SearchCandidate) FollowAction() string {
	if c.IsFollowing {
		return "Unfollow"
	}
	return "Follow"
}

// --- ÉVÉNEMENTS ---

const (
	SubjectFollowCreated = "follow.created"
	SubjectFollowDeleted = "follow.deleted"
	SubjectPoemPublished = "poem.published"
)

type FollowEvent struct {
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type PoemPublishedEvent struct {
	PoemID     string    `json:"poem_id"`
	AuthorID   string    `json:"author_id"`
	Tag        string    `json:"tag,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
