package mongostore

import (
	"context"
	"strings"
	"time"

	"crackers-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type users struct {
	col *mongo.Collection
}

func (s *users) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Addresses == nil {
		u.Addresses = []models.Address{}
	}
	if u.Cart == nil {
		u.Cart = []models.CartItem{}
	}
	_, err := s.col.InsertOne(ctx, u)
	return translate(err)
}

func (s *users) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.col.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&u)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *users) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updatedAt"] = time.Now()
	return matched(s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields}))
}

func (s *users) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, phone string) error {
	update := bson.M{}
	if name != "" {
		update["name"] = name
	}
	if phone != "" {
		update["phone"] = phone
	}
	return s.set(ctx, id, update)
}

func (s *users) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return s.set(ctx, id, bson.M{"password": hash})
}

func (s *users) SetAddresses(ctx context.Context, id primitive.ObjectID, addresses []models.Address) error {
	if addresses == nil {
		addresses = []models.Address{}
	}
	return s.set(ctx, id, bson.M{"addresses": addresses})
}

func (s *users) SetCart(ctx context.Context, id primitive.ObjectID, cart []models.CartItem) error {
	if cart == nil {
		cart = []models.CartItem{}
	}
	return s.set(ctx, id, bson.M{"cart": cart})
}
