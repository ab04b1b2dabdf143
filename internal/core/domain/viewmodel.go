package domain

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

const (
	AnonymousAuthor = "Anonymous"
	AnonymousHandle = "anonymous"
	DefaultUserName = "User"
	DefaultInitials = "U"
	UntitledTitle   = "Untitled"
	JustNow         = "Just now"

	// ExcerptLength : longueur de l'aperçu dans les cartes du feed (en runes).
	ExcerptLength = 150
	dateLayout    = "1/2/2006"
)

// DisplayIdentity : identité prête à afficher.
type DisplayIdentity struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name"`
	Initials    string   `json:"initials"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	StyleTags   []string `json:"style_tags,omitempty"`
}

// PoemViewModel : poème aplati avec son auteur, prêt pour une carte.
type PoemViewModel struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Style              string          `json:"style,omitempty"`
	StyleLabel         string          `json:"style_label,omitempty"`
	Content            string          `json:"content"`
	Excerpt            string          `json:"excerpt"`
	Truncated          bool            `json:"truncated"`
	BackgroundImageURL string          `json:"background_image_url,omitempty"`
	Author             DisplayIdentity `json:"author"`
	Timestamp          string          `json:"timestamp"`
	RelativeTime       string          `json:"relative_time,omitempty"`
	Likes              int             `json:"likes"`
	Comments           int             `json:"comments"`
	IsLiked            bool            `json:"is_liked"`
	IsBookmarked       bool            `json:"is_bookmarked"`
}

// RenderContext fige le fuseau du viewer et l'horloge : l'adaptation reste pure.
type RenderContext struct {
	Location *time.Location
	Now      time.Time
}

func NewRenderContext(v Viewer, now time.Time) RenderContext {
	return RenderContext{Location: v.Loc(), Now: now}
}

// AdaptUser : fallback du nom affiché = nom complet -> handle -> "User".
func AdaptUser(u User) DisplayIdentity {
	return DisplayIdentity{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: DisplayName(u.FullName.OrElse(""), u.Username, DefaultUserName),
		Initials:    Initials(u.FullName.OrElse(""), u.Username),
		AvatarURL:   u.AvatarURL.OrElse(""),
		Bio:         u.Bio.OrElse(""),
		StyleTags:   u.StyleTags,
	}
}

// AdaptUsers garde l'ordre d'entrée.
func AdaptUsers(users []User) []DisplayIdentity {
	out := make([]DisplayIdentity, 0, len(users))
	for _, u := range users {
		out = append(out, AdaptUser(u))
	}
	return out
}

// AdaptPoem ne panique jamais, même pour un poème orphelin.
func AdaptPoem(p Poem, rc RenderContext) PoemViewModel {
	content := NormalizeContent(p.Content)
	excerpt, truncated := Excerpt(content, ExcerptLength)
	tag := p.Tag.OrElse("")

	vm := PoemViewModel{
		ID:                 p.ID,
		Title:              p.Tag.OrElse(UntitledTitle),
		Style:              tag,
		StyleLabel:         StyleLabel(tag),
		Content:            content,
		Excerpt:            excerpt,
		Truncated:          truncated,
		BackgroundImageURL: p.BackgroundImageURL.OrElse(""),
		Author:             adaptAuthor(p),
	}
	if !p.CreatedAt.IsZero() {
		vm.Timestamp = LocalDate(p.CreatedAt, rc.Location)
		if !rc.Now.IsZero() {
			vm.RelativeTime = RelativeTime(p.CreatedAt, rc.Now)
		}
	}
	return vm
}

func AdaptPoems(poems []Poem, rc RenderContext) []PoemViewModel {
	out := make([]PoemViewModel, 0, len(poems))
	for _, p := range poems {
		out = append(out, AdaptPoem(p, rc))
	}
	return out
}

func adaptAuthor(p Poem) DisplayIdentity {
	author, ok := p.Author.Get()
	if !ok {
		return DisplayIdentity{
			ID:          p.AuthorID.OrElse(""),
			Username:    AnonymousHandle,
			DisplayName: AnonymousAuthor,
			Initials:    DefaultInitials,
		}
	}
	id := AdaptUser(author)
	id.DisplayName = DisplayName(author.FullName.OrElse(""), author.Username, AnonymousAuthor)
	if id.Username == "" {
		id.Username = AnonymousHandle
	}
	return id
}

// PreviewDraft rend le brouillon comme une carte publiée, horodatée "Just now".
func PreviewDraft(author DisplayIdentity, d Draft) PoemViewModel {
	content := NormalizeContent(d.Content)
	excerpt, truncated := Excerpt(content, ExcerptLength)
	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = UntitledTitle
	}
	style := strings.TrimSpace(d.Style)
	return PoemViewModel{
		Title:              title,
		Style:              style,
		StyleLabel:         StyleLabel(style),
		Content:            content,
		Excerpt:            excerpt,
		Truncated:          truncated,
		BackgroundImageURL: strings.TrimSpace(d.BackgroundImageURL),
		Author:             author,
		Timestamp:          JustNow,
	}
}

// DisplayName : premier non vide parmi nom complet, handle, fallback.
func DisplayName(fullName, handle, fallback string) string {
	if n := strings.TrimSpace(fullName); n != "" {
		return n
	}
	if h := strings.TrimSpace(handle); h != "" {
		return h
	}
	return fallback
}

// Initials : "Anna Lee" -> "AL", "mary jane watson" -> "MJ", "" + "anna99" -> "A", rien -> "U".
func Initials(fullName, handle string) string {
	name := DisplayName(fullName, handle, "")
	var b strings.Builder
	n := 0
	for _, token := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(token)
		b.WriteString(strings.ToUpper(string(r)))
		n++
		if n == 2 {
			break
		}
	}
	if b.Len() > 0 {
		return b.String()
	}
	if h := strings.TrimSpace(handle); h != "" {
		r, _ := utf8.DecodeRuneInString(h)
		return strings.ToUpper(string(r))
	}
	return DefaultInitials
}

// Excerpt coupe à max runes et ajoute "...".
func Excerpt(content string, max int) (string, bool) {
	if utf8.RuneCountInString(content) <= max {
		return content, false
	}
	runes := []rune(content)
	return string(runes[:max]) + "...", true
}

// StyleLabel : "free-verse" -> "Free verse".
func StyleLabel(style string) string {
	style = strings.TrimSpace(style)
	if style == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(style)
	return string(unicode.ToUpper(r)) + strings.ReplaceAll(style[size:], "-", " ")
}

// LocalDate : date seule dans le fuseau du viewer.
func LocalDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dateLayout)
}

// RelativeTime : "2 hours ago", "now" sous la seconde.
func RelativeTime(then, now time.Time) string {
	return humanize.RelTime(then, now, "ago", "from now")
}
