package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Image struct {
	URL      string `bson:"url" json:"url"`
	PublicID string `bson:"publicId,omitempty" json:"publicId,omitempty"`
}

type Review struct {
	User      primitive.ObjectID `bson:"user" json:"user"`
	Name      string             `bson:"name" json:"name"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Product struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name        string              `bson:"name" json:"name"`
	Slug        string              `bson:"slug" json:"slug"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	Price       float64             `bson:"price" json:"price"`
	MRP         float64             `bson:"mrp,omitempty" json:"mrp,omitempty"`
	Stock       int                 `bson:"stock" json:"stock"`
	Images      []Image             `bson:"images" json:"images"`
	Category    *primitive.ObjectID `bson:"category,omitempty" json:"category,omitempty"`
	SubCategory string              `bson:"subCategory,omitempty" json:"subCategory,omitempty"`
	Tags        []string            `bson:"tags,omitempty" json:"tags,omitempty"`
	IsActive    bool                `bson:"isActive" json:"isActive"`
	IsFeatured  bool                `bson:"isFeatured" json:"isFeatured"`
	Reviews     []Review            `bson:"reviews" json:"reviews"`
	Rating      float64             `bson:"rating" json:"rating"`
	NumReviews  int                 `bson:"numReviews" json:"numReviews"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// MainImage is the first image url, or empty.
func (p *Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

type SubCategory struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
}

type Category struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Slug          string             `bson:"slug" json:"slug"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Image         *Image             `bson:"image,omitempty" json:"image,omitempty"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	SubCategories []SubCategory      `bson:"subCategories" json:"subCategories"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type Cracker struct {
	Name     string `bson:"name" json:"name" binding:"required"`
	Quantity int    `bson:"quantity" json:"quantity" binding:"gte=1"`
}

// Bundle is a fixed, pre-priced group of crackers sold as one catalog entry. It has no link
// to Product stock. Gift boxes share the shape and live in their own collection.
type Bundle struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Price       float64            `bson:"price" json:"price"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	Crackers    []Cracker          `bson:"crackers" json:"crackers"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type GiftBox = Bundle
