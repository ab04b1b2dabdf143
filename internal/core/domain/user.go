package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

// --- FORME BRUTE (ligne "users" telle que renvoyée par le backend) ---

type UserRecord struct {
	ID               string     `json:"id"`
	Username         *string    `json:"username"`
	FullName         *string    `json:"full_name"`
	Bio              *string    `json:"bio"`
	ProfileImageURL  *string    `json:"profile_image_url"`
	WritingStyleTags *string    `json:"writing_style_tags"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

// --- ENTITÉ ---

type User struct {
	ID        string
	Username  string
	FullName  Optional[string]
	Bio       Optional[string]
	AvatarURL Optional[string]
	StyleTags []string
	CreatedAt time.Time
}

// Normalize est le seul point de conversion ligne -> entité.
// Les chaînes vides deviennent None.
func (r UserRecord) Normalize() User {
	u := User{
		ID:        strings.TrimSpace(r.ID),
		Username:  strings.TrimSpace(deref(r.Username)),
		FullName:  text(r.FullName),
		Bio:       text(r.Bio),
		AvatarURL: text(r.ProfileImageURL),
		StyleTags: ParseStyleTags(deref(r.WritingStyleTags)),
	}
	if r.CreatedAt != nil {
		u.CreatedAt = r.CreatedAt.UTC()
	}
	return u
}

// Record refait le chemin inverse pour les écritures.
func (u User) Record() UserRecord {
	rec := UserRecord{
		ID:              u.ID,
		Username:        &u.Username,
		FullName:        u.FullName.Ptr(),
		Bio:             u.Bio.Ptr(),
		ProfileImageURL: u.AvatarURL.Ptr(),
	}
	if len(u.StyleTags) > 0 {
		tags := strings.Join(u.StyleTags, ",")
		rec.WritingStyleTags = &tags
	}
	if !u.CreatedAt.IsZero() {
		t := u.CreatedAt
		rec.CreatedAt = &t
	}
	return rec
}

// ParseStyleTags découpe "haiku, Sonnet,haiku" en ["haiku", "Sonnet"].
func ParseStyleTags(raw string) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// UserPatch : formulaire d'édition du profil. None = champ inchangé.
type UserPatch struct {
	FullName  Optional[string]
	Bio       Optional[string]
	AvatarURL Optional[string]
	StyleTags Optional[[]string]
}

func (p UserPatch) IsEmpty() bool {
	return !p.FullName.IsSome() && !p.Bio.IsSome() && !p.AvatarURL.IsSome() && !p.StyleTags.IsSome()
}

// Columns renvoie les colonnes à écrire, clés = noms de colonnes du backend.
func (p UserPatch) Columns() map[string]any {
	cols := make(map[string]any)
	if v, ok := p.FullName.Get(); ok {
		cols["full_name"] = nullable(v)
	}
	if v, ok := p.Bio.Get(); ok {
		cols["bio"] = nullable(v)
	}
	if v, ok := p.AvatarURL.Get(); ok {
		cols["profile_image_url"] = nullable(v)
	}
	if v, ok := p.StyleTags.Get(); ok {
		cols["writing_style_tags"] = nullable(strings.Join(ParseStyleTags(strings.Join(v, ",")), ","))
	}
	return cols
}

// Apply reporte le patch sur une entité déjà chargée.
func (u User) Apply(p UserPatch) User {
	if v, ok := p.FullName.Get(); ok {
		u.FullName = text(&v)
	}
	if v, ok := p.Bio.Get(); ok {
		u.Bio = text(&v)
	}
	if v, ok := p.AvatarURL.Get(); ok {
		u.AvatarURL = text(&v)
	}
	if v, ok := p.StyleTags.Get(); ok {
		u.StyleTags = ParseStyleTags(strings.Join(v, ","))
	}
	return u
}

// UsernameFromEmail dérive un handle depuis la partie locale de l'email.
func UsernameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

// --- IDENTITÉ COURANTE ---

// Viewer est l'identité résolue par la session, passée explicitement partout.
type Viewer struct {
	ID       string
	Email    string
	Token    string
	Location *time.Location
}

func Anonymous() Viewer { return Viewer{} }

func (v Viewer) IsAuthenticated() bool { return v.ID != "" }

// Require bloque toute mutation sans identité.
func (v Viewer) Require() error {
	if !v.IsAuthenticated() {
		return ErrAuthRequired
	}
	return nil
}

// SessionKey distingue les appareils d'un même compte : chacun a son propre
// état affiché (recherche, générations des listes).
func (v Viewer) SessionKey() string {
	if v.Token == "" {
		return v.ID
	}
	sum := sha256.Sum256([]byte(v.Token))
	return v.ID + ":" + hex.EncodeToString(sum[:8])
}

func (v Viewer) Loc() *time.Location {
	if v.Location == nil {
		return time.UTC
	}
	return v.Location
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func text(p *string) Optional[string] {
	if p == nil || strings.TrimSpace(*p) == "" {
		return None[string]()
	}
	return Some(strings.TrimSpace(*p))
}

func nullable(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return strings.TrimSpace(v)
}
