package domain

import "time"

type Post struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	ShortDescription string `json:"shortDescription,omitempty"`
	Content          string `json:"content"`
	Slug             string `json:"slug"`
	CategoryID       *int64 `json:"category"`
	IsActive         bool   `json:"isActive"`
	AuthorID         int64  `json:"author"`

	ThumbnailURL      string `json:"thumbnailUrl,omitempty"`
	ThumbnailPublicID string `json:"thumbnailPublicId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Category *PostCategory `json:"categoryDetail,omitempty"`
	Author   *UserSummary  `json:"authorDetail,omitempty"`
}

type PostInput struct {
	Title            string `json:"title"`
	ShortDescription string `json:"shortDescription"`
	Content          string `json:"content"`
	Category         *int64 `json:"category"`

	ThumbnailURL      string `json:"thumbnailUrl"`
	ThumbnailPublicID string `json:"thumbnailPublicId"`
}

type PostPatch struct {
	Title            *string `json:"title"`
	ShortDescription *string `json:"shortDescription"`
	Content          *string `json:"content"`
	Category         *int64  `json:"category"`
	IsActive         *bool   `json:"isActive"`

	ThumbnailURL      *string `json:"thumbnailUrl"`
	ThumbnailPublicID *string `json:"thumbnailPublicId"`
}

type PostFilter struct {
	Search     string
	CategoryID *int64
	IsActive   *bool
	Page       int
	Limit      int
}

type PostCategory struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedBy   int64     `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type PostCategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type PostCategoryPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}
