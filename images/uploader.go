package images

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Uploader is the narrow slice of the binary image store the manager needs.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, publicID string) (string, error)
	Destroy(ctx context.Context, publicID string) error
}

type cloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryUploader builds an Uploader from a cloudinary:// URL.
func NewCloudinaryUploader(cloudinaryURL string) (Uploader, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &cloudinaryUploader{cld: cld}, nil
}

func (u *cloudinaryUploader) Upload(ctx context.Context, file io.Reader, publicID string) (string, error) {
	resp, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID: publicID,
		Folder:   "visor",
	})
	if err != nil {
		return "", err
	}
	return resp.SecureURL, nil
}

func (u *cloudinaryUploader) Destroy(ctx context.Context, publicID string) error {
	_, err := u.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	return err
}
