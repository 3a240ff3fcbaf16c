package mongostore

import (
	"context"
	"strings"

	"crackers-backend/internal/models"
	"crackers-backend/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type admins struct {
	col *mongo.Collection
}

func (s *admins) Create(ctx context.Context, a *models.Admin) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, a)
	return translate(err)
}

func (s *admins) Replace(ctx context.Context, a *models.Admin) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	return matched(res, err)
}

func (s *admins) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error) {
	var a models.Admin
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *admins) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var a models.Admin
	if err := s.col.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&a); err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *admins) List(ctx context.Context, activeOnly bool) ([]models.Admin, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	cur, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []models.Admin{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *admins) Count(ctx context.Context) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{})
}

func (s *admins) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
