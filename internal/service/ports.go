package service

import (
	"context"
	"mime/multipart"

	"crackers-backend/internal/logger"
	"crackers-backend/internal/models"
)

// ImageStore persists uploaded images. upload.Storage satisfies it.
type ImageStore interface {
	Save(ctx context.Context, fh *multipart.FileHeader, folder string) (models.Image, error)
	Delete(ctx context.Context, img models.Image) error
}

// discardImages removes stored images, logging failures.
func discardImages(ctx context.Context, images ImageStore, module string, imgs ...models.Image) {
	for _, img := range imgs {
		if err := images.Delete(ctx, img); err != nil {
			logger.WithModule(module).WithError(err).WithField("image", img.URL).Warn("failed to delete image")
		}
	}
}

// Notifier sends order emails. Calls must not block the request.
type Notifier interface {
	OrderPlaced(o *models.Order, u *models.User, admins []models.Admin)
	PaymentReviewed(o *models.Order, u *models.User)
	StatusChanged(o *models.Order, u *models.User)
}

// Broadcaster pushes order changes to subscribed clients.
type Broadcaster interface {
	PublishOrder(o *models.Order, note string)
}

type nopNotifier struct{}

func (nopNotifier) OrderPlaced(*models.Order, *models.User, []models.Admin) {}
func (nopNotifier) PaymentReviewed(*models.Order, *models.User)             {}
func (nopNotifier) StatusChanged(*models.Order, *models.User)               {}

type nopBroadcaster struct{}

func (nopBroadcaster) PublishOrder(*models.Order, string) {}
