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

type orders struct {
	col *mongo.Collection
}

func (s *orders) Create(ctx context.Context, o *models.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, o)
	return translate(err)
}

func (s *orders) Replace(ctx context.Context, o *models.Order) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": o.ID}, o)
	return matched(res, err)
}

func (s *orders) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var o models.Order
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func orderQuery(f store.OrderFilter) bson.M {
	filter := bson.M{}
	if f.User != nil {
		filter["user"] = *f.User
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.PaymentStatus != "" {
		filter["paymentInfo.status"] = f.PaymentStatus
	}
	if f.PaymentMethod != "" {
		filter["paymentInfo.method"] = f.PaymentMethod
	}
	if f.Search != "" {
		filter["orderNumber"] = bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
	}
	created := bson.M{}
	if f.From != nil {
		created["$gte"] = *f.From
	}
	if f.To != nil {
		created["$lte"] = *f.To
	}
	if len(created) > 0 {
		filter["createdAt"] = created
	}
	return filter
}

func (s *orders) List(ctx context.Context, f store.OrderFilter) ([]models.Order, int64, error) {
	filter := orderQuery(f)
	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetSkip(int64((f.Page - 1) * f.Limit)).SetLimit(int64(f.Limit))
	}
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	out := []models.Order{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *orders) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gte": since}})
}

func (s *orders) Stats(ctx context.Context) (*store.OrderStats, error) {
	stats := &store.OrderStats{ByStatus: map[models.OrderStatus]int64{}}

	cur, err := s.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	var groups []struct {
		Status models.OrderStatus `bson:"_id"`
		Count  int64              `bson:"count"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	for _, g := range groups {
		stats.ByStatus[g.Status] = g.Count
		stats.Total += g.Count
	}

	cur, err = s.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"paymentInfo.status": models.PaymentCompleted,
			"status":             bson.M{"$nin": []models.OrderStatus{models.StatusCancelled, models.StatusReturned}},
		}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "revenue": bson.M{"$sum": "$pricing.total"}}}},
	})
	if err != nil {
		return nil, err
	}
	var revenue []struct {
		Revenue float64 `bson:"revenue"`
	}
	if err := cur.All(ctx, &revenue); err != nil {
		return nil, err
	}
	if len(revenue) > 0 {
		stats.Revenue = revenue[0].Revenue
	}

	stats.PendingVerifications, err = s.col.CountDocuments(ctx, bson.M{
		"paymentInfo.method":     models.PaymentBankTransfer,
		"paymentInfo.status":     models.PaymentPending,
		"paymentInfo.screenshot": bson.M{"$exists": true},
		"status":                 bson.M{"$ne": models.StatusCancelled},
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
