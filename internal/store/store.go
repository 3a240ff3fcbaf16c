// Package store declares the persistence contracts shared by the MongoDB backend and the
// in-memory backend.
package store

import (
	"context"
	"errors"
	"time"

	"crackers-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrDuplicate         = errors.New("duplicate key")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Users interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, name, phone string) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
	SetAddresses(ctx context.Context, id primitive.ObjectID, addresses []models.Address) error
	SetCart(ctx context.Context, id primitive.ObjectID, cart []models.CartItem) error
}

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortRating    ProductSort = "rating"
)

type ProductFilter struct {
	ActiveOnly bool
	Category   *primitive.ObjectID
	Search     string
	MinPrice   float64
	MaxPrice   float64
	Featured   bool
	Sort       ProductSort
	Page       int
	Limit      int
}

type Products interface {
	Create(ctx context.Context, p *models.Product) error
	Replace(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// DecrementStock takes qty only when at least qty is on hand.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	AddReview(ctx context.Context, id primitive.ObjectID, r models.Review, rating float64, count int) error
	UnsetCategory(ctx context.Context, category primitive.ObjectID) (int64, error)
}

type Categories interface {
	Create(ctx context.Context, c *models.Category) error
	Replace(ctx context.Context, c *models.Category) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	List(ctx context.Context, activeOnly bool) ([]models.Category, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Bundles backs both the bundles and the giftboxes collections.
type Bundles interface {
	Create(ctx context.Context, b *models.Bundle) error
	Replace(ctx context.Context, b *models.Bundle) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Bundle, error)
	List(ctx context.Context, activeOnly bool) ([]models.Bundle, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type OrderFilter struct {
	User          *primitive.ObjectID
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus
	PaymentMethod models.PaymentMethod
	Search        string
	From          *time.Time
	To            *time.Time
	Page          int
	Limit         int // 0 means no limit
}

type OrderStats struct {
	ByStatus             map[models.OrderStatus]int64 `json:"byStatus"`
	Total                int64                        `json:"total"`
	Revenue              float64                      `json:"revenue"`
	PendingVerifications int64                        `json:"pendingVerifications"`
}

type Orders interface {
	Create(ctx context.Context, o *models.Order) error
	Replace(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	Stats(ctx context.Context) (*OrderStats, error)
}

type Admins interface {
	Create(ctx context.Context, a *models.Admin) error
	Replace(ctx context.Context, a *models.Admin) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error)
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	List(ctx context.Context, activeOnly bool) ([]models.Admin, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Store groups every repository together with the backend lifecycle.
type Store struct {
	Users      Users
	Products   Products
	Categories Categories
	Bundles    Bundles
	GiftBoxes  Bundles
	Orders     Orders
	Admins     Admins

	Ping  func(ctx context.Context) error
	Close func(ctx context.Context) error
}

// Normalize clamps paging values.
func Normalize(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit
}
