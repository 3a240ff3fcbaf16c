package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Password  string             `bson:"password" json:"-"`
	IsActive  bool               `bson:"isActive" json:"isActive"`
	Addresses []Address          `bson:"addresses" json:"addresses"`
	Cart      []CartItem         `bson:"cart" json:"cart,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

const (
	AddressHome  = "home"
	AddressWork  = "work"
	AddressOther = "other"
)

type Address struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name,omitempty" json:"name,omitempty"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Street    string             `bson:"street" json:"street"`
	City      string             `bson:"city" json:"city"`
	State     string             `bson:"state" json:"state"`
	Pincode   string             `bson:"pincode" json:"pincode"`
	Landmark  string             `bson:"landmark,omitempty" json:"landmark,omitempty"`
	Type      string             `bson:"type" json:"type"`
	IsDefault bool               `bson:"isDefault" json:"isDefault"`
}

// DefaultAddress returns the address flagged as default, if any.
func (u *User) DefaultAddress() (Address, bool) {
	for _, a := range u.Addresses {
		if a.IsDefault {
			return a, true
		}
	}
	return Address{}, false
}

func (u *User) FindAddress(id primitive.ObjectID) (Address, bool) {
	for _, a := range u.Addresses {
		if a.ID == id {
			return a, true
		}
	}
	return Address{}, false
}
