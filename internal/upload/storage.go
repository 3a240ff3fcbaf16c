// Package upload stores product images and payment screenshots, on Cloudinary when configured
// and on local disk otherwise.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"crackers-backend/internal/logger"
	"crackers-backend/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrTooLarge     = errors.New("file too large")
	ErrUnsupported  = errors.New("unsupported file type")
	allowedMIMEType = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}
)

// Remote is an image CDN.
type Remote interface {
	Upload(ctx context.Context, data []byte, folder, publicID string) (models.Image, error)
	Destroy(ctx context.Context, publicID string) error
}

type Storage struct {
	local    *Local
	remote   Remote
	maxBytes int64
}

// New returns a Storage writing to local, and to remote first when it is non-nil.
func New(local *Local, remote Remote, maxBytes int64) *Storage {
	return &Storage{local: local, remote: remote, maxBytes: maxBytes}
}

// Save checks the size and the sniffed content type, then stores the file under folder.
func (s *Storage) Save(ctx context.Context, fh *multipart.FileHeader, folder string) (models.Image, error) {
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return models.Image{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, fh.Filename, s.maxBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return models.Image{}, err
	}
	defer f.Close()

	data, err := s.read(f)
	if err != nil {
		return models.Image{}, fmt.Errorf("%s: %w", fh.Filename, err)
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedMIMEType...) {
		return models.Image{}, fmt.Errorf("%w: %s", ErrUnsupported, mt.String())
	}

	name := uuid.NewString()
	if s.remote != nil {
		img, err := s.remote.Upload(ctx, data, folder, name)
		if err == nil {
			return img, nil
		}
		logger.WithModule("upload").WithError(err).WithField("file", fh.Filename).Warn("cloudinary upload failed, storing locally")
	}
	return s.local.Put(folder, name+mt.Extension(), data)
}

func (s *Storage) read(r io.Reader) ([]byte, error) {
	if s.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Delete removes the stored file. Images stored locally are recognised by their url.
func (s *Storage) Delete(ctx context.Context, img models.Image) error {
	if s.local.Owns(img.URL) {
		return s.local.Remove(img.URL)
	}
	if s.remote != nil && img.PublicID != "" && !strings.HasPrefix(img.PublicID, "local/") {
		return s.remote.Destroy(ctx, img.PublicID)
	}
	return nil
}
