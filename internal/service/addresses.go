package service

import (
	"context"
	"strings"

	"crackers-backend/internal/models"
	"crackers-backend/internal/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AddressInput struct {
	Name      string `json:"name" validate:"omitempty,max=100"`
	Phone     string `json:"phone" validate:"omitempty,phone"`
	Street    string `json:"street" validate:"required,max=300"`
	City      string `json:"city" validate:"required,max=100"`
	State     string `json:"state" validate:"required,max=100"`
	Pincode   string `json:"pincode" validate:"required,pincode"`
	Landmark  string `json:"landmark" validate:"omitempty,max=200"`
	Type      string `json:"type" validate:"omitempty,oneof=home work other"`
	IsDefault bool   `json:"isDefault"`
}

func (in *AddressInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Street = strings.TrimSpace(in.Street)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	in.Pincode = strings.TrimSpace(in.Pincode)
	if in.Type == "" {
		in.Type = models.AddressHome
	}
	return checked(validation.Struct(in))
}

func (in AddressInput) apply(a *models.Address) {
	a.Name = in.Name
	a.Phone = in.Phone
	a.Street = in.Street
	a.City = in.City
	a.State = in.State
	a.Pincode = in.Pincode
	a.Landmark = in.Landmark
	a.Type = in.Type
}

// markDefault leaves exactly one default when id is set, and promotes the first address when
// none is flagged.
func markDefault(addresses []models.Address, id primitive.ObjectID) {
	if len(addresses) == 0 {
		return
	}
	if !id.IsZero() {
		for i := range addresses {
			addresses[i].IsDefault = addresses[i].ID == id
		}
		return
	}
	for _, a := range addresses {
		if a.IsDefault {
			return
		}
	}
	addresses[0].IsDefault = true
}

func (s *Accounts) Addresses(ctx context.Context, uid primitive.ObjectID) ([]models.Address, error) {
	u, err := s.Profile(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u.Addresses == nil {
		return []models.Address{}, nil
	}
	return u.Addresses, nil
}

func (s *Accounts) AddAddress(ctx context.Context, uid primitive.ObjectID, in AddressInput) ([]models.Address, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	u, err := s.Profile(ctx, uid)
	if err != nil {
		return nil, err
	}
	a := models.Address{ID: primitive.NewObjectID()}
	in.apply(&a)
	addresses := append(u.Addresses, a)

	def := primitive.NilObjectID
	if in.IsDefault || len(addresses) == 1 {
		def = a.ID
	}
	markDefault(addresses, def)
	return s.saveAddresses(ctx, uid, addresses)
}

func (s *Accounts) UpdateAddress(ctx context.Context, uid, aid primitive.ObjectID, in AddressInput) ([]models.Address, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	u, err := s.Profile(ctx, uid)
	if err != nil {
		return nil, err
	}
	idx := addressIndex(u.Addresses, aid)
	if idx < 0 {
		return nil, missing("address")
	}
	in.apply(&u.Addresses[idx])
	if in.IsDefault {
		markDefault(u.Addresses, aid)
	} else {
		u.Addresses[idx].IsDefault = false
		markDefault(u.Addresses, primitive.NilObjectID)
	}
	return s.saveAddresses(ctx, uid, u.Addresses)
}

func (s *Accounts) DeleteAddress(ctx context.Context, uid, aid primitive.ObjectID) ([]models.Address, error) {
	u, err := s.Profile(ctx, uid)
	if err != nil {
		return nil, err
	}
	idx := addressIndex(u.Addresses, aid)
	if idx < 0 {
		return nil, missing("address")
	}
	wasDefault := u.Addresses[idx].IsDefault
	addresses := append(u.Addresses[:idx:idx], u.Addresses[idx+1:]...)
	if wasDefault {
		markDefault(addresses, primitive.NilObjectID)
	}
	return s.saveAddresses(ctx, uid, addresses)
}

func (s *Accounts) SetDefaultAddress(ctx context.Context, uid, aid primitive.ObjectID) ([]models.Address, error) {
	u, err := s.Profile(ctx, uid)
	if err != nil {
		return nil, err
	}
	if addressIndex(u.Addresses, aid) < 0 {
		return nil, missing("address")
	}
	markDefault(u.Addresses, aid)
	return s.saveAddresses(ctx, uid, u.Addresses)
}

func (s *Accounts) saveAddresses(ctx context.Context, uid primitive.ObjectID, addresses []models.Address) ([]models.Address, error) {
	if addresses == nil {
		addresses = []models.Address{}
	}
	if err := s.users.SetAddresses(ctx, uid, addresses); err != nil {
		return nil, lookup("user", err)
	}
	return addresses, nil
}

func addressIndex(addresses []models.Address, id primitive.ObjectID) int {
	for i, a := range addresses {
		if a.ID == id {
			return i
		}
	}
	return -1
}
