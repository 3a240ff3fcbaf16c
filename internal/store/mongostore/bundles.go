package mongostore

import (
	"context"

	"crackers-backend/internal/models"
	"crackers-backend/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// bundles serves the bundles and the giftboxes collections alike.
type bundles struct {
	col *mongo.Collection
}

func (s *bundles) Create(ctx context.Context, b *models.Bundle) error {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	if b.Crackers == nil {
		b.Crackers = []models.Cracker{}
	}
	_, err := s.col.InsertOne(ctx, b)
	return translate(err)
}

func (s *bundles) Replace(ctx context.Context, b *models.Bundle) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": b.ID}, b)
	return matched(res, err)
}

func (s *bundles) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Bundle, error) {
	var b models.Bundle
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (s *bundles) List(ctx context.Context, activeOnly bool) ([]models.Bundle, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	cur, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "price", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []models.Bundle{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *bundles) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
