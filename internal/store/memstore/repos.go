package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"crackers-backend/internal/models"
	"crackers-backend/internal/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ----- Users -----

type users struct {
	c *collection[models.User]
}

func (s *users) Create(_ context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = strings.ToLower(u.Email)
	return s.c.insert(u.ID, u)
}

func (s *users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.c.get(id)
}

func (s *users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	return s.c.find(func(u *models.User) bool { return u.Email == email })
}

func (s *users) UpdateProfile(_ context.Context, id primitive.ObjectID, name, phone string) error {
	return s.c.update(id, func(u *models.User) error {
		if name != "" {
			u.Name = name
		}
		if phone != "" {
			u.Phone = phone
		}
		u.UpdatedAt = time.Now()
		return nil
	})
}

func (s *users) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	return s.c.update(id, func(u *models.User) error {
		u.Password = hash
		u.UpdatedAt = time.Now()
		return nil
	})
}

func (s *users) SetAddresses(_ context.Context, id primitive.ObjectID, addresses []models.Address) error {
	return s.c.update(id, func(u *models.User) error {
		u.Addresses = append([]models.Address{}, addresses...)
		u.UpdatedAt = time.Now()
		return nil
	})
}

func (s *users) SetCart(_ context.Context, id primitive.ObjectID, cart []models.CartItem) error {
	return s.c.update(id, func(u *models.User) error {
		u.Cart = append([]models.CartItem{}, cart...)
		u.UpdatedAt = time.Now()
		return nil
	})
}

// ----- Products -----

type products struct {
	c *collection[models.Product]
}

func (s *products) Create(_ context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	return s.c.insert(p.ID, p)
}

func (s *products) Replace(_ context.Context, p *models.Product) error {
	return s.c.replace(p.ID, p)
}

func (s *products) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	return s.c.get(id)
}

func (s *products) List(_ context.Context, f store.ProductFilter) ([]models.Product, int64, error) {
	search := strings.ToLower(f.Search)
	out := s.c.filter(func(p *models.Product) bool {
		switch {
		case f.ActiveOnly && !p.IsActive:
			return false
		case f.Category != nil && (p.Category == nil || *p.Category != *f.Category):
			return false
		case search != "" && !strings.Contains(strings.ToLower(p.Name), search):
			return false
		case f.Featured && !p.IsFeatured:
			return false
		case f.MinPrice > 0 && p.Price < f.MinPrice:
			return false
		case f.MaxPrice > 0 && p.Price > f.MaxPrice:
			return false
		}
		return true
	})
	sort.SliceStable(out, func(i, j int) bool {
		switch f.Sort {
		case store.SortPriceAsc:
			return out[i].Price < out[j].Price
		case store.SortPriceDesc:
			return out[i].Price > out[j].Price
		case store.SortRating:
			return out[i].Rating > out[j].Rating
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	for i := range out {
		out[i].Reviews = nil
	}
	return page(out, f.Page, f.Limit), int64(len(out)), nil
}

func (s *products) Delete(_ context.Context, id primitive.ObjectID) error {
	return s.c.remove(id)
}

func (s *products) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	return s.c.update(id, func(p *models.Product) error {
		if p.Stock < qty {
			return store.ErrInsufficientStock
		}
		p.Stock -= qty
		p.UpdatedAt = time.Now()
		return nil
	})
}

func (s *products) IncrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	return s.c.update(id, func(p *models.Product) error {
		p.Stock += qty
		p.UpdatedAt = time.Now()
		return nil
	})
}

func (s *products) AddReview(_ context.Context, id primitive.ObjectID, r models.Review, rating float64, count int) error {
	return s.c.update(id, func(p *models.Product) error {
		p.Reviews = append(p.Reviews, r)
		p.Rating = rating
		p.NumReviews = count
		p.UpdatedAt = time.Now()
		return nil
	})
}

func (s *products) UnsetCategory(_ context.Context, category primitive.ObjectID) (int64, error) {
	var n int64
	for _, p := range s.c.filter(func(p *models.Product) bool {
		return p.Category != nil && *p.Category == category
	}) {
		err := s.c.update(p.ID, func(p *models.Product) error {
			p.Category = nil
			p.SubCategory = ""
			p.UpdatedAt = time.Now()
			return nil
		})
		if err == nil {
			n++
		}
	}
	return n, nil
}

// ----- Categories -----

type categories struct {
	c *collection[models.Category]
}

func (s *categories) Create(_ context.Context, c *models.Category) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	return s.c.insert(c.ID, c)
}

func (s *categories) Replace(_ context.Context, c *models.Category) error {
	return s.c.replace(c.ID, c)
}

func (s *categories) FindByID(_ context.Context, id primitive.ObjectID) (*models.Category, error) {
	return s.c.get(id)
}

func (s *categories) FindBySlug(_ context.Context, slug string) (*models.Category, error) {
	return s.c.find(func(c *models.Category) bool { return c.Slug == slug })
}

func (s *categories) List(_ context.Context, activeOnly bool) ([]models.Category, error) {
	out := s.c.filter(func(c *models.Category) bool { return !activeOnly || c.IsActive })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *categories) Delete(_ context.Context, id primitive.ObjectID) error {
	return s.c.remove(id)
}

// ----- Bundles / gift boxes -----

type bundles struct {
	c *collection[models.Bundle]
}

func (s *bundles) Create(_ context.Context, b *models.Bundle) error {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	return s.c.insert(b.ID, b)
}

func (s *bundles) Replace(_ context.Context, b *models.Bundle) error {
	return s.c.replace(b.ID, b)
}

func (s *bundles) FindByID(_ context.Context, id primitive.ObjectID) (*models.Bundle, error) {
	return s.c.get(id)
}

func (s *bundles) List(_ context.Context, activeOnly bool) ([]models.Bundle, error) {
	out := s.c.filter(func(b *models.Bundle) bool { return !activeOnly || b.IsActive })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

func (s *bundles) Delete(_ context.Context, id primitive.ObjectID) error {
	return s.c.remove(id)
}

// ----- Orders -----

type orders struct {
	c *collection[models.Order]
}

func (s *orders) Create(_ context.Context, o *models.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	return s.c.insert(o.ID, o)
}

func (s *orders) Replace(_ context.Context, o *models.Order) error {
	return s.c.replace(o.ID, o)
}

func (s *orders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	return s.c.get(id)
}

func (s *orders) List(_ context.Context, f store.OrderFilter) ([]models.Order, int64, error) {
	search := strings.ToLower(f.Search)
	out := s.c.filter(func(o *models.Order) bool {
		switch {
		case f.User != nil && o.User != *f.User:
			return false
		case f.Status != "" && o.Status != f.Status:
			return false
		case f.PaymentStatus != "" && o.PaymentInfo.Status != f.PaymentStatus:
			return false
		case f.PaymentMethod != "" && o.PaymentInfo.Method != f.PaymentMethod:
			return false
		case search != "" && !strings.Contains(strings.ToLower(o.OrderNumber), search):
			return false
		case f.From != nil && o.CreatedAt.Before(*f.From):
			return false
		case f.To != nil && o.CreatedAt.After(*f.To):
			return false
		}
		return true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Page, f.Limit), int64(len(out)), nil
}

func (s *orders) CountSince(_ context.Context, since time.Time) (int64, error) {
	return int64(len(s.c.filter(func(o *models.Order) bool { return !o.CreatedAt.Before(since) }))), nil
}

func (s *orders) Stats(_ context.Context) (*store.OrderStats, error) {
	stats := &store.OrderStats{ByStatus: map[models.OrderStatus]int64{}}
	for _, o := range s.c.filter(nil) {
		stats.ByStatus[o.Status]++
		stats.Total++
		if o.PaymentInfo.Status == models.PaymentCompleted &&
			o.Status != models.StatusCancelled && o.Status != models.StatusReturned {
			stats.Revenue += o.Pricing.Total
		}
		if o.PaymentInfo.Method == models.PaymentBankTransfer && o.PaymentInfo.Status == models.PaymentPending &&
			o.PaymentInfo.Screenshot != nil && o.Status != models.StatusCancelled {
			stats.PendingVerifications++
		}
	}
	return stats, nil
}

// ----- Admins -----

type admins struct {
	c *collection[models.Admin]
}

func (s *admins) Create(_ context.Context, a *models.Admin) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.Email = strings.ToLower(a.Email)
	return s.c.insert(a.ID, a)
}

func (s *admins) Replace(_ context.Context, a *models.Admin) error {
	return s.c.replace(a.ID, a)
}

func (s *admins) FindByID(_ context.Context, id primitive.ObjectID) (*models.Admin, error) {
	return s.c.get(id)
}

func (s *admins) FindByEmail(_ context.Context, email string) (*models.Admin, error) {
	email = strings.ToLower(email)
	return s.c.find(func(a *models.Admin) bool { return a.Email == email })
}

func (s *admins) List(_ context.Context, activeOnly bool) ([]models.Admin, error) {
	return s.c.filter(func(a *models.Admin) bool { return !activeOnly || a.IsActive }), nil
}

func (s *admins) Count(_ context.Context) (int64, error) {
	return int64(len(s.c.filter(nil))), nil
}

func (s *admins) Delete(_ context.Context, id primitive.ObjectID) error {
	return s.c.remove(id)
}
