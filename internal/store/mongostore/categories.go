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

type categories struct {
	col *mongo.Collection
}

func (s *categories) Create(ctx context.Context, c *models.Category) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.SubCategories == nil {
		c.SubCategories = []models.SubCategory{}
	}
	_, err := s.col.InsertOne(ctx, c)
	return translate(err)
}

func (s *categories) Replace(ctx context.Context, c *models.Category) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	return matched(res, err)
}

func (s *categories) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	var c models.Category
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *categories) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	if err := s.col.FindOne(ctx, bson.M{"slug": slug}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *categories) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	cur, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []models.Category{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *categories) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
