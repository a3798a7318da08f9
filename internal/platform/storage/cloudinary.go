package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type Cloudinary struct {
	client *cloudinary.Cloudinary
	folder string
}

// NewCloudinary builds a client from a cloudinary:// URL. An empty URL
// yields a disabled client so the server can boot without credentials.
func NewCloudinary(url, folder string) (*Cloudinary, error) {
	if url == "" {
		return &Cloudinary{folder: folder}, nil
	}
	client, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &Cloudinary{client: client, folder: folder}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, file io.Reader, filename string) (*Upload, error) {
	if c.client == nil {
		return nil, errors.New("image storage disabled (missing CLOUDINARY_URL)")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := c.client.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:         c.folder,
		FilenameOverride: filename,
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	return &Upload{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

func (c *Cloudinary) Destroy(ctx context.Context, publicID string) error {
	if c.client == nil || publicID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy %s: %w", publicID, err)
	}
	return nil
}

var _ Service = (*Cloudinary)(nil)
