package service

import (
	"context"
	"errors"
	"mime/multipart"
	"regexp"
	"strings"
	"time"

	"crackers-backend/internal/models"
	"crackers-backend/internal/store"
	"crackers-backend/internal/validation"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxProductImages = 5
	maxPageSize      = 100
)

// Catalog serves products, categories, bundles and gift boxes.
type Catalog struct {
	products   store.Products
	categories store.Categories
	bundles    store.Bundles
	giftBoxes  store.Bundles
	images     ImageStore
	now        func() time.Time
}

func NewCatalog(st *store.Store, images ImageStore) *Catalog {
	return &Catalog{
		products:   st.Products,
		categories: st.Categories,
		bundles:    st.Bundles,
		giftBoxes:  st.GiftBoxes,
		images:     images,
		now:        time.Now,
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func Slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-"), "-")
}

// ----- Products -----

type ProductQuery struct {
	Category string // id or slug
	Search   string
	MinPrice float64
	MaxPrice float64
	Featured bool
	Sort     string
	Page     int
	Limit    int
}

type ProductPage struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Pages    int64            `json:"pages"`
}

func (s *Catalog) ListProducts(ctx context.Context, q ProductQuery, includeInactive bool) (*ProductPage, error) {
	page, limit := store.Normalize(q.Page, q.Limit, 20, maxPageSize)
	f := store.ProductFilter{
		ActiveOnly: !includeInactive,
		Search:     strings.TrimSpace(q.Search),
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
		Featured:   q.Featured,
		Sort:       store.ProductSort(q.Sort),
		Page:       page,
		Limit:      limit,
	}
	if q.Category != "" {
		cat, err := s.resolveCategory(ctx, q.Category)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return &ProductPage{Products: []models.Product{}, Page: page}, nil
			}
			return nil, err
		}
		f.Category = &cat.ID
	}
	products, total, err := s.products.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &ProductPage{
		Products: products,
		Total:    total,
		Page:     page,
		Pages:    (total + int64(limit) - 1) / int64(limit),
	}, nil
}

func (s *Catalog) resolveCategory(ctx context.Context, ref string) (*models.Category, error) {
	var (
		cat *models.Category
		err error
	)
	if id, perr := primitive.ObjectIDFromHex(ref); perr == nil {
		cat, err = s.categories.FindByID(ctx, id)
	} else {
		cat, err = s.categories.FindBySlug(ctx, ref)
	}
	if err != nil {
		return nil, lookup("category", err)
	}
	return cat, nil
}

// Product returns a product; inactive ones are hidden unless includeInactive is set.
func (s *Catalog) Product(ctx context.Context, id primitive.ObjectID, includeInactive bool) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, lookup("product", err)
	}
	if !p.IsActive && !includeInactive {
		return nil, missing("product")
	}
	return p, nil
}

type ReviewInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,max=1000"`
}

// AddReview records one review per user and rolls the rating average forward.
func (s *Catalog) AddReview(ctx context.Context, productID primitive.ObjectID, u *models.User, in ReviewInput) (*models.Product, error) {
	if err := checked(validation.Struct(in)); err != nil {
		return nil, err
	}
	p, err := s.Product(ctx, productID, false)
	if err != nil {
		return nil, err
	}
	for _, r := range p.Reviews {
		if r.User == u.ID {
			return nil, conflict("product already reviewed")
		}
	}

	rating, count := RollingRating(p.Rating, p.NumReviews, in.Rating)
	review := models.Review{
		User:      u.ID,
		Name:      u.Name,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
		CreatedAt: s.now(),
	}
	if err := s.products.AddReview(ctx, productID, review, rating, count); err != nil {
		return nil, lookup("product", err)
	}
	return s.products.FindByID(ctx, productID)
}

// RollingRating folds one more rating into an average of count ratings, to one decimal.
func RollingRating(avg float64, count, rating int) (float64, int) {
	sum := decimal.NewFromFloat(avg).Mul(decimal.NewFromInt(int64(count))).Add(decimal.NewFromInt(int64(rating)))
	next := count + 1
	return sum.Div(decimal.NewFromInt(int64(next))).Round(1).InexactFloat64(), next
}

type ProductInput struct {
	Name        *string   `json:"name" validate:"omitempty,min=2,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	Price       *float64  `json:"price" validate:"omitempty,gt=0"`
	MRP         *float64  `json:"mrp" validate:"omitempty,gte=0"`
	Stock       *int      `json:"stock" validate:"omitempty,gte=0"`
	Category    *string   `json:"category" validate:"omitempty,objectid"`
	SubCategory *string   `json:"subCategory" validate:"omitempty,max=100"`
	Tags        *[]string `json:"tags"`
	IsActive    *bool     `json:"isActive"`
	IsFeatured  *bool     `json:"isFeatured"`
}

func (s *Catalog) applyProduct(ctx context.Context, p *models.Product, in ProductInput) error {
	if err := checked(validation.Struct(in)); err != nil {
		return err
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
		p.Slug = Slugify(p.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = decimal.NewFromFloat(*in.Price).Round(2).InexactFloat64()
	}
	if in.MRP != nil {
		p.MRP = *in.MRP
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Category != nil {
		if *in.Category == "" {
			p.Category = nil
		} else {
			id, _ := primitive.ObjectIDFromHex(*in.Category)
			if _, err := s.categories.FindByID(ctx, id); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return invalid("category does not exist")
				}
				return err
			}
			p.Category = &id
		}
	}
	if in.SubCategory != nil {
		p.SubCategory = *in.SubCategory
	}
	if in.Tags != nil {
		p.Tags = *in.Tags
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.IsFeatured != nil {
		p.IsFeatured = *in.IsFeatured
	}
	return nil
}

func (s *Catalog) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" || in.Price == nil {
		return nil, invalid("name and price are required")
	}
	now := s.now()
	p := &models.Product{
		IsActive:  true,
		Images:    []models.Image{},
		Reviews:   []models.Review{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.applyProduct(ctx, p, in); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Catalog) UpdateProduct(ctx context.Context, id primitive.ObjectID, in ProductInput) (*models.Product, error) {
	p, err := s.Product(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if err := s.applyProduct(ctx, p, in); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()
	if err := s.products.Replace(ctx, p); err != nil {
		return nil, lookup("product", err)
	}
	return p, nil
}

func (s *Catalog) SetProductActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.Product, error) {
	return s.UpdateProduct(ctx, id, ProductInput{IsActive: &active})
}

func (s *Catalog) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	p, err := s.Product(ctx, id, true)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return lookup("product", err)
	}
	discardImages(ctx, s.images, "catalog", p.Images...)
	return nil
}

func (s *Catalog) AddProductImages(ctx context.Context, id primitive.ObjectID, files []*multipart.FileHeader) (*models.Product, error) {
	p, err := s.Product(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, invalid("no images uploaded")
	}
	if len(p.Images)+len(files) > MaxProductImages {
		return nil, invalid("a product can have at most %d images", MaxProductImages)
	}
	added := make([]models.Image, 0, len(files))
	for _, fh := range files {
		img, err := s.images.Save(ctx, fh, "products")
		if err != nil {
			discardImages(ctx, s.images, "catalog", added...)
			return nil, err
		}
		added = append(added, img)
	}
	p.Images = append(p.Images, added...)
	p.UpdatedAt = s.now()
	if err := s.products.Replace(ctx, p); err != nil {
		discardImages(ctx, s.images, "catalog", added...)
		return nil, lookup("product", err)
	}
	return p, nil
}

// ----- Categories -----

func (s *Catalog) Categories(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	return s.categories.List(ctx, !includeInactive)
}

func (s *Catalog) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	c, err := s.categories.FindBySlug(ctx, slug)
	if err != nil {
		return nil, lookup("category", err)
	}
	if !c.IsActive {
		return nil, missing("category")
	}
	return c, nil
}

func (s *Catalog) Category(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, lookup("category", err)
	}
	return c, nil
}

type CategoryInput struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Slug        *string `json:"slug" validate:"omitempty,max=120"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Image       *string `json:"image" validate:"omitempty,url"`
	IsActive    *bool   `json:"isActive"`
}

func applyCategory(c *models.Category, in CategoryInput) error {
	if err := checked(validation.Struct(in)); err != nil {
		return err
	}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
		if in.Slug == nil {
			c.Slug = Slugify(c.Name)
		}
	}
	if in.Slug != nil {
		c.Slug = Slugify(*in.Slug)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Image != nil {
		c.Image = &models.Image{URL: *in.Image}
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if c.Slug == "" {
		return invalid("category slug is empty")
	}
	return nil
}

func (s *Catalog) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if in.Name == nil {
		return nil, invalid("name is required")
	}
	now := s.now()
	c := &models.Category{IsActive: true, SubCategories: []models.SubCategory{}, CreatedAt: now, UpdatedAt: now}
	if err := applyCategory(c, in); err != nil {
		return nil, err
	}
	if err := s.categories.Create(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict("category slug %q already exists", c.Slug)
		}
		return nil, err
	}
	return c, nil
}

func (s *Catalog) UpdateCategory(ctx context.Context, id primitive.ObjectID, in CategoryInput) (*models.Category, error) {
	c, err := s.Category(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyCategory(c, in); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now()
	if err := s.categories.Replace(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict("category slug %q already exists", c.Slug)
		}
		return nil, lookup("category", err)
	}
	return c, nil
}

// DeleteCategory hard-deletes the category and detaches the products that pointed at it.
func (s *Catalog) DeleteCategory(ctx context.Context, id primitive.ObjectID) (int64, error) {
	if err := s.categories.Delete(ctx, id); err != nil {
		return 0, lookup("category", err)
	}
	return s.products.UnsetCategory(ctx, id)
}

type SubCategoryInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"omitempty,max=1000"`
}

func (s *Catalog) AddSubCategory(ctx context.Context, id primitive.ObjectID, in SubCategoryInput) (*models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := checked(validation.Struct(in)); err != nil {
		return nil, err
	}
	c, err := s.Category(ctx, id)
	if err != nil {
		return nil, err
	}
	slug := Slugify(in.Name)
	for _, sc := range c.SubCategories {
		if sc.Slug == slug {
			return nil, conflict("sub-category %q already exists", in.Name)
		}
	}
	c.SubCategories = append(c.SubCategories, models.SubCategory{
		ID:          primitive.NewObjectID(),
		Name:        in.Name,
		Slug:        slug,
		Description: in.Description,
	})
	c.UpdatedAt = s.now()
	if err := s.categories.Replace(ctx, c); err != nil {
		return nil, lookup("category", err)
	}
	return c, nil
}

func (s *Catalog) RemoveSubCategory(ctx context.Context, id, subID primitive.ObjectID) (*models.Category, error) {
	c, err := s.Category(ctx, id)
	if err != nil {
		return nil, err
	}
	kept := c.SubCategories[:0]
	for _, sc := range c.SubCategories {
		if sc.ID != subID {
			kept = append(kept, sc)
		}
	}
	if len(kept) == len(c.SubCategories) {
		return nil, missing("sub-category")
	}
	c.SubCategories = kept
	c.UpdatedAt = s.now()
	if err := s.categories.Replace(ctx, c); err != nil {
		return nil, lookup("category", err)
	}
	return c, nil
}

// ----- Bundles and gift boxes -----

type BundleKind string

const (
	KindBundle  BundleKind = "bundle"
	KindGiftBox BundleKind = "giftbox"
)

func (s *Catalog) bundleStore(kind BundleKind) store.Bundles {
	if kind == KindGiftBox {
		return s.giftBoxes
	}
	return s.bundles
}

func (s *Catalog) Bundles(ctx context.Context, kind BundleKind, includeInactive bool) ([]models.Bundle, error) {
	return s.bundleStore(kind).List(ctx, !includeInactive)
}

func (s *Catalog) Bundle(ctx context.Context, kind BundleKind, id primitive.ObjectID, includeInactive bool) (*models.Bundle, error) {
	b, err := s.bundleStore(kind).FindByID(ctx, id)
	if err != nil {
		return nil, lookup(string(kind), err)
	}
	if !b.IsActive && !includeInactive {
		return nil, missing(string(kind))
	}
	return b, nil
}

type BundleInput struct {
	Name        *string           `json:"name" validate:"omitempty,min=2,max=200"`
	Description *string           `json:"description" validate:"omitempty,max=5000"`
	Price       *float64          `json:"price" validate:"omitempty,gt=0"`
	Image       *string           `json:"image" validate:"omitempty,url"`
	IsActive    *bool             `json:"isActive"`
	Crackers    *[]models.Cracker `json:"crackers"`
}

func applyBundle(b *models.Bundle, in BundleInput) error {
	if err := checked(validation.Struct(in)); err != nil {
		return err
	}
	if in.Name != nil {
		b.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if in.Price != nil {
		b.Price = decimal.NewFromFloat(*in.Price).Round(2).InexactFloat64()
	}
	if in.Image != nil {
		b.Image = *in.Image
	}
	if in.IsActive != nil {
		b.IsActive = *in.IsActive
	}
	if in.Crackers != nil {
		for _, c := range *in.Crackers {
			if strings.TrimSpace(c.Name) == "" || c.Quantity < 1 {
				return invalid("every cracker needs a name and a positive quantity")
			}
		}
		b.Crackers = append([]models.Cracker{}, *in.Crackers...)
	}
	return nil
}

func (s *Catalog) CreateBundle(ctx context.Context, kind BundleKind, in BundleInput) (*models.Bundle, error) {
	if in.Name == nil || in.Price == nil {
		return nil, invalid("name and price are required")
	}
	now := s.now()
	b := &models.Bundle{IsActive: true, Crackers: []models.Cracker{}, CreatedAt: now, UpdatedAt: now}
	if err := applyBundle(b, in); err != nil {
		return nil, err
	}
	if err := s.bundleStore(kind).Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Catalog) UpdateBundle(ctx context.Context, kind BundleKind, id primitive.ObjectID, in BundleInput) (*models.Bundle, error) {
	b, err := s.Bundle(ctx, kind, id, true)
	if err != nil {
		return nil, err
	}
	if err := applyBundle(b, in); err != nil {
		return nil, err
	}
	b.UpdatedAt = s.now()
	if err := s.bundleStore(kind).Replace(ctx, b); err != nil {
		return nil, lookup(string(kind), err)
	}
	return b, nil
}

func (s *Catalog) DeleteBundle(ctx context.Context, kind BundleKind, id primitive.ObjectID) error {
	return lookup(string(kind), s.bundleStore(kind).Delete(ctx, id))
}
