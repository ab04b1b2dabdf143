package rest

import "github.com/jethalalgada06/alfaaz-verse-unveiled/internal/core/domain"

// --- AUTH ---

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required,max=100"`
}

func (req signUpRequest) toDomain() domain.SignUp {
	return domain.SignUp{
		Credentials: domain.Credentials{Email: req.Email, Password: req.Password},
		FullName:    req.FullName,
	}
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Session             domain.Session `json:"session"`
	PendingConfirmation bool           `json:"pending_confirmation"`
}

// --- FOLLOW ---

// followRequest : current_state = état affiché au moment du clic.
type followRequest struct {
	CurrentState *bool `json:"current_state" validate:"required"`
}

// --- POEMS ---

// draftRequest : titre et contenu vides sont refusés par le domaine, pas ici.
type draftRequest struct {
	Title              string `json:"title" validate:"max=200"`
	Content            string `json:"content" validate:"max=20000"`
	Style              string `json:"style" validate:"omitempty,max=50"`
	BackgroundImageURL string `json:"background_image_url" validate:"omitempty,url"`
}

func (req draftRequest) toDomain() domain.Draft {
	return domain.Draft{
		Title:              req.Title,
		Content:            req.Content,
		Style:              req.Style,
		BackgroundImageURL: req.BackgroundImageURL,
	}
}

// poemPatchRequest : champ absent ou null = inchangé, "" = effacé.
type poemPatchRequest struct {
	Content            *string `json:"content" validate:"omitempty,max=20000"`
	Style              *string `json:"style" validate:"omitempty,max=50"`
	BackgroundImageURL *string `json:"background_image_url" validate:"omitempty,url"`
}

func (req poemPatchRequest) toDomain() domain.PoemPatch {
	return domain.PoemPatch{
		Content:            domain.FromPtr(req.Content),
		Tag:                domain.FromPtr(req.Style),
		BackgroundImageURL: domain.FromPtr(req.BackgroundImageURL),
	}
}

// --- PROFILE ---

type profilePatchRequest struct {
	FullName  *string  `json:"full_name" validate:"omitempty,max=100"`
	Bio       *string  `json:"bio" validate:"omitempty,max=500"`
	AvatarURL *string  `json:"avatar_url" validate:"omitempty,url"`
	StyleTags []string `json:"style_tags" validate:"omitempty,max=10,dive,max=30"`
}

func (req profilePatchRequest) toDomain() domain.UserPatch {
	patch := domain.UserPatch{
		FullName:  domain.FromPtr(req.FullName),
		Bio:       domain.FromPtr(req.Bio),
		AvatarURL: domain.FromPtr(req.AvatarURL),
	}
	if req.StyleTags != nil {
		patch.StyleTags = domain.Some(req.StyleTags)
	}
	return patch
}
