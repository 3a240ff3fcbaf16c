package service

import (
	"context"
	"errors"
	"testing"

	"crackers-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u, token, err := f.accounts.Register(ctx, RegisterInput{Name: " Ravi ", Email: "Ravi@Example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "ravi@example.com", u.Email)
	assert.Equal(t, "Ravi", u.Name)

	_, _, err = f.accounts.Register(ctx, RegisterInput{Name: "Other", Email: "ravi@example.com", Password: "secret123"})
	assert.True(t, errors.Is(err, ErrConflict))

	_, _, err = f.accounts.Register(ctx, RegisterInput{Name: "Bad", Email: "not-an-email", Password: "secret123"})
	assert.True(t, errors.Is(err, ErrValidation))

	got, token, err := f.accounts.Login(ctx, "RAVI@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NotEmpty(t, token)

	_, _, err = f.accounts.Login(ctx, "ravi@example.com", "wrong")
	assert.True(t, errors.Is(err, ErrUnauthorized))
	_, _, err = f.accounts.Login(ctx, "nobody@example.com", "secret123")
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestProfileAndPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "profile@example.com")

	got, err := f.accounts.UpdateProfile(ctx, u.ID, ProfileInput{Name: "New Name", Phone: "9123456780"})
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
	assert.Equal(t, "9123456780", got.Phone)

	_, err = f.accounts.UpdateProfile(ctx, u.ID, ProfileInput{Phone: "12345"})
	assert.True(t, errors.Is(err, ErrValidation))

	assert.True(t, errors.Is(f.accounts.ChangePassword(ctx, u.ID, "wrong", "another1"), ErrUnauthorized))
	assert.True(t, errors.Is(f.accounts.ChangePassword(ctx, u.ID, "secret123", "abc"), ErrValidation))
	require.NoError(t, f.accounts.ChangePassword(ctx, u.ID, "secret123", "another1"))

	_, _, err = f.accounts.Login(ctx, "profile@example.com", "another1")
	assert.NoError(t, err)
}

func defaults(addresses []models.Address) []primitive.ObjectID {
	var ids []primitive.ObjectID
	for _, a := range addresses {
		if a.IsDefault {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func TestAddressesKeepSingleDefault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "addresses@example.com")

	addresses, err := f.accounts.Addresses(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	first := addresses[0]
	assert.True(t, first.IsDefault, "first address becomes default")
	assert.Equal(t, models.AddressHome, first.Type)

	addresses, err = f.accounts.AddAddress(ctx, u.ID, AddressInput{
		Street: "9 Lake View", City: "Coimbatore", State: "Tamil Nadu", Pincode: "641001", IsDefault: true,
	})
	require.NoError(t, err)
	second := addresses[1]
	assert.Equal(t, []primitive.ObjectID{second.ID}, defaults(addresses))

	addresses, err = f.accounts.SetDefaultAddress(ctx, u.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{first.ID}, defaults(addresses))

	addresses, err = f.accounts.UpdateAddress(ctx, u.ID, second.ID, AddressInput{
		Street: "10 Lake View", City: "Coimbatore", State: "Tamil Nadu", Pincode: "641001", IsDefault: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{second.ID}, defaults(addresses))
	assert.Equal(t, "10 Lake View", addresses[1].Street)

	addresses, err = f.accounts.DeleteAddress(ctx, u.ID, second.ID)
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	assert.Equal(t, []primitive.ObjectID{first.ID}, defaults(addresses), "remaining address is promoted")

	stored, err := f.accounts.Addresses(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{first.ID}, defaults(stored))
}

func TestEditingDefaultAddressWithoutFlagKeepsADefault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "unflagged@example.com")
	p := f.product(t, "Ground Chakkar", 50, 5)

	addresses, err := f.accounts.Addresses(ctx, u.ID)
	require.NoError(t, err)
	only := addresses[0]

	addresses, err = f.accounts.UpdateAddress(ctx, u.ID, only.ID, AddressInput{
		Street: "14 Main Road", City: "Sivakasi", State: "Tamil Nadu", Pincode: "626123",
	})
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{only.ID}, defaults(addresses))

	second, err := f.accounts.AddAddress(ctx, u.ID, AddressInput{
		Street: "3 Temple Street", City: "Madurai", State: "Tamil Nadu", Pincode: "625001", IsDefault: true,
	})
	require.NoError(t, err)
	addresses, err = f.accounts.UpdateAddress(ctx, u.ID, second[1].ID, AddressInput{
		Street: "4 Temple Street", City: "Madurai", State: "Tamil Nadu", Pincode: "625001",
	})
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{only.ID}, defaults(addresses), "first address is promoted")

	o, err := f.orders.Create(ctx, u.ID, productOrder(p, 1, models.PaymentCOD))
	require.NoError(t, err)
	assert.Equal(t, "14 Main Road", o.ShippingAddress.Street)
}

func TestAddressValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "pincode@example.com")

	for _, pin := range []string{"012345", "12345", "1234567", "12a456"} {
		_, err := f.accounts.AddAddress(ctx, u.ID, AddressInput{Street: "x", City: "y", State: "z", Pincode: pin})
		assert.True(t, errors.Is(err, ErrValidation), pin)
	}

	_, err := f.accounts.AddAddress(ctx, u.ID, AddressInput{Street: "x", City: "y", State: "z", Pincode: "600001", Type: "villa"})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = f.accounts.SetDefaultAddress(ctx, u.ID, primitive.NewObjectID())
	assert.True(t, errors.Is(err, ErrNotFound))
}
