package domain

import "time"

// PoemPage : une page de feed / d'onglet. Vide n'est pas une erreur.
type PoemPage struct {
	Items   []PoemViewModel `json:"items"`
	Page    int             `json:"page"`
	HasMore bool            `json:"has_more"`
	Empty   string          `json:"empty_message,omitempty"`
	Seq     uint64          `json:"seq,omitempty"`
}

// CandidatePage : résultat d'une recherche d'utilisateurs.
type CandidatePage struct {
	Query string            `json:"query"`
	Items []SearchCandidate `json:"items"`
	Empty string            `json:"empty_message,omitempty"`
	Seq   uint64            `json:"seq,omitempty"`
}

type IdentityList struct {
	Items []DisplayIdentity `json:"items"`
	Empty string            `json:"empty_message,omitempty"`
}

type ProfileStats struct {
	Poems     int `json:"poems"`
	Followers int `json:"followers"`
	Following int `json:"following"`
}

// Profile : page profil complète.
type Profile struct {
	User        DisplayIdentity `json:"user"`
	JoinedAt    string          `json:"joined_at,omitempty"`
	Stats       ProfileStats    `json:"stats"`
	Poems       []PoemViewModel `json:"poems"`
	Empty       string          `json:"empty_message,omitempty"`
	IsFollowing bool            `json:"is_following"`
	IsSelf      bool            `json:"is_self"`
}

// --- AUTH ---

type Credentials struct {
	Email    string
	Password string
}

type SignUp struct {
	Credentials
	FullName string
}

// Session : résultat d'une connexion. AccessToken vide = confirmation email en attente.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

func (s Session) PendingConfirmation() bool { return s.AccessToken == "" }
