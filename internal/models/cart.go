package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemType tags cart lines and order items.
type ItemType string

const (
	ItemProduct ItemType = "product"
	ItemBundle  ItemType = "bundle"
	ItemGiftBox ItemType = "giftbox"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemProduct, ItemBundle, ItemGiftBox:
		return true
	}
	return false
}

// CartSnapshot is the denormalized copy of a bundle or gift box kept on a cart line.
type CartSnapshot struct {
	ID    primitive.ObjectID `bson:"id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Price float64            `bson:"price" json:"price"`
}

// CartItem is one line of the cart embedded in the user document. Product lines carry
// ProductID, bundle and gift box lines carry Snapshot.
type CartItem struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Type      ItemType           `bson:"type" json:"type"`
	ProductID primitive.ObjectID `bson:"productId,omitempty" json:"productId,omitempty"`
	Snapshot  *CartSnapshot      `bson:"snapshot,omitempty" json:"snapshot,omitempty"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	AddedAt   time.Time          `bson:"addedAt" json:"addedAt"`
}

// RefID is the id of the document the line points at.
func (c CartItem) RefID() primitive.ObjectID {
	if c.Type == ItemProduct || c.Snapshot == nil {
		return c.ProductID
	}
	return c.Snapshot.ID
}
