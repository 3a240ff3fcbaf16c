package mongostore

import (
	"context"
	"regexp"
	"time"

	"crackers-backend/internal/models"
	"crackers-backend/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type products struct {
	col *mongo.Collection
}

func (s *products) Create(ctx context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Images == nil {
		p.Images = []models.Image{}
	}
	if p.Reviews == nil {
		p.Reviews = []models.Review{}
	}
	_, err := s.col.InsertOne(ctx, p)
	return translate(err)
}

func (s *products) Replace(ctx context.Context, p *models.Product) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	return matched(res, err)
}

func (s *products) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func productQuery(f store.ProductFilter) bson.M {
	filter := bson.M{}
	if f.ActiveOnly {
		filter["isActive"] = true
	}
	if f.Category != nil {
		filter["category"] = *f.Category
	}
	if f.Search != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
	}
	if f.Featured {
		filter["isFeatured"] = true
	}
	price := bson.M{}
	if f.MinPrice > 0 {
		price["$gte"] = f.MinPrice
	}
	if f.MaxPrice > 0 {
		price["$lte"] = f.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	return filter
}

func productSort(s store.ProductSort) bson.D {
	switch s {
	case store.SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}}
	case store.SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}}
	case store.SortRating:
		return bson.D{{Key: "rating", Value: -1}, {Key: "numReviews", Value: -1}}
	}
	return bson.D{{Key: "createdAt", Value: -1}}
}

func (s *products) List(ctx context.Context, f store.ProductFilter) ([]models.Product, int64, error) {
	filter := productQuery(f)
	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(productSort(f.Sort)).SetProjection(bson.M{"reviews": 0})
	if f.Limit > 0 {
		opts.SetSkip(int64((f.Page - 1) * f.Limit)).SetLimit(int64(f.Limit))
	}
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	out := []models.Product{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *products) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *products) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := s.col.CountDocuments(ctx, bson.M{"_id": id})
		if err == nil && n == 0 {
			return store.ErrNotFound
		}
		return store.ErrInsufficientStock
	}
	return nil
}

func (s *products) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	return matched(s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"stock": qty}, "$set": bson.M{"updatedAt": time.Now()}},
	))
}

func (s *products) AddReview(ctx context.Context, id primitive.ObjectID, r models.Review, rating float64, count int) error {
	return matched(s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"reviews": r},
			"$set":  bson.M{"rating": rating, "numReviews": count, "updatedAt": time.Now()},
		},
	))
}

func (s *products) UnsetCategory(ctx context.Context, category primitive.ObjectID) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{"category": category},
		bson.M{"$unset": bson.M{"category": "", "subCategory": ""}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
