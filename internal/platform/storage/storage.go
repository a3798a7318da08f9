package storage

import (
	"context"
	"io"
)

// Upload is the result of pushing a file to the image host.
type Upload struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// Service abstracts the external image host (Cloudinary in production).
type Service interface {
	Upload(ctx context.Context, file io.Reader, filename string) (*Upload, error)
	Destroy(ctx context.Context, publicID string) error
}
