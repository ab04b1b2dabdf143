package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// --- FORME BRUTE (ligne "poems", auteur joint optionnel) ---

type PoemRecord struct {
	ID                 string      `json:"id"`
	UserID             *string     `json:"user_id"`
	Content            *string     `json:"content"`
	FormTags           *string     `json:"form_tags"`
	BackgroundImageURL *string     `json:"background_image_url"`
	CreatedAt          *time.Time  `json:"created_at,omitempty"`
	Author             *UserRecord `json:"author,omitempty"`
}

// --- ENTITÉ ---

// Poem : le tag unique sert à la fois de style et de pseudo-titre.
type Poem struct {
	ID                 string
	AuthorID           Optional[string]
	Content            string
	Tag                Optional[string]
	BackgroundImageURL Optional[string]
	CreatedAt          time.Time
	Author             Optional[User]
}

// Normalize : unique conversion ligne -> entité. Un auteur joint mais vide reste None.
func (r PoemRecord) Normalize() Poem {
	p := Poem{
		ID:                 strings.TrimSpace(r.ID),
		AuthorID:           text(r.UserID),
		Content:            deref(r.Content),
		Tag:                text(r.FormTags),
		BackgroundImageURL: text(r.BackgroundImageURL),
	}
	if r.CreatedAt != nil {
		p.CreatedAt = r.CreatedAt.UTC()
	}
	if r.Author != nil && strings.TrimSpace(r.Author.ID) != "" {
		p.Author = Some(r.Author.Normalize())
	}
	return p
}

// Record : forme d'insertion (sans l'auteur joint).
func (p Poem) Record() PoemRecord {
	content := p.Content
	rec := PoemRecord{
		ID:                 p.ID,
		UserID:             p.AuthorID.Ptr(),
		Content:            &content,
		FormTags:           p.Tag.Ptr(),
		BackgroundImageURL: p.BackgroundImageURL.Ptr(),
	}
	if !p.CreatedAt.IsZero() {
		t := p.CreatedAt
		rec.CreatedAt = &t
	}
	return rec
}

// IsOwnedBy : un poème orphelin n'appartient à personne.
func (p Poem) IsOwnedBy(userID string) bool {
	id, ok := p.AuthorID.Get()
	return ok && userID != "" && id == userID
}

// --- BROUILLON (page de composition) ---

// Draft : saisie brute de l'éditeur.
type Draft struct {
	Title              string
	Content            string
	Style              string
	BackgroundImageURL string
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// NormalizeContent réduit toute suite de 3+ retours à une seule ligne vide.
func NormalizeContent(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return blankRuns.ReplaceAllString(content, "\n\n")
}

// Validate : titre et contenu sont obligatoires.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return NewValidationError("title", "please fill in both title and content")
	}
	if strings.TrimSpace(d.Content) == "" {
		return NewValidationError("content", "please fill in both title and content")
	}
	return nil
}

// Tag : le style choisi l'emporte, sinon le titre tient lieu de tag.
func (d Draft) Tag() string {
	if s := strings.TrimSpace(d.Style); s != "" {
		return s
	}
	return strings.TrimSpace(d.Title)
}

// NewPoem crée un poème valide pour l'auteur donné.
func NewPoem(authorID string, d Draft, now time.Time) (*Poem, error) {
	if strings.TrimSpace(authorID) == "" {
		return nil, ErrAuthRequired
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	tag := d.Tag()
	bg := d.BackgroundImageURL
	return &Poem{
		ID:                 uuid.NewString(),
		AuthorID:           Some(authorID),
		Content:            NormalizeContent(d.Content),
		Tag:                text(&tag),
		BackgroundImageURL: text(&bg),
		CreatedAt:          now.UTC(),
	}, nil
}

// PoemPatch : édition par le propriétaire. None = inchangé.
type PoemPatch struct {
	Content            Optional[string]
	Tag                Optional[string]
	BackgroundImageURL Optional[string]
}

func (p PoemPatch) IsEmpty() bool {
	return !p.Content.IsSome() && !p.Tag.IsSome() && !p.BackgroundImageURL.IsSome()
}

func (p PoemPatch) Validate() error {
	if v, ok := p.Content.Get(); ok && strings.TrimSpace(v) == "" {
		return NewValidationError("content", "content cannot be empty")
	}
	return nil
}

func (p PoemPatch) Columns() map[string]any {
	cols := make(map[string]any)
	if v, ok := p.Content.Get(); ok {
		cols["content"] = NormalizeContent(v)
	}
	if v, ok := p.Tag.Get(); ok {
		cols["form_tags"] = nullable(v)
	}
	if v, ok := p.BackgroundImageURL.Get(); ok {
		cols["background_image_url"] = nullable(v)
	}
	return cols
}

func (p Poem) Apply(patch PoemPatch) Poem {
	if v, ok := patch.Content.Get(); ok {
		p.Content = NormalizeContent(v)
	}
	if v, ok := patch.Tag.Get(); ok {
		p.Tag = text(&v)
	}
	if v, ok := patch.BackgroundImageURL.Get(); ok {
		p.BackgroundImageURL = text(&v)
	}
	return p
}
