package mongostore

import (
	"context"
	"errors"
	"testing"
	"time"

	"crackers-backend/internal/models"
	"crackers-backend/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestProductQuery(t *testing.T) {
	assert.Equal(t, bson.M{}, productQuery(store.ProductFilter{}))

	cat := primitive.NewObjectID()
	got := productQuery(store.ProductFilter{
		ActiveOnly: true,
		Category:   &cat,
		Search:     "sky.shot(",
		Featured:   true,
		MinPrice:   100,
		MaxPrice:   500,
	})
	assert.Equal(t, bson.M{
		"isActive":   true,
		"category":   cat,
		"name":       bson.M{"$regex": `sky\.shot\(`, "$options": "i"},
		"isFeatured": true,
		"price":      bson.M{"$gte": 100.0, "$lte": 500.0},
	}, got)

	got = productQuery(store.ProductFilter{MaxPrice: 50})
	assert.Equal(t, bson.M{"price": bson.M{"$lte": 50.0}}, got)
}

func TestProductSort(t *testing.T) {
	cases := map[store.ProductSort]bson.D{
		store.SortPriceAsc:  {{Key: "price", Value: 1}},
		store.SortPriceDesc: {{Key: "price", Value: -1}},
		store.SortRating:    {{Key: "rating", Value: -1}, {Key: "numReviews", Value: -1}},
		store.SortNewest:    {{Key: "createdAt", Value: -1}},
		"":                  {{Key: "createdAt", Value: -1}},
	}
	for sort, want := range cases {
		assert.Equal(t, want, productSort(sort), string(sort))
	}
}

func TestOrderQuery(t *testing.T) {
	assert.Equal(t, bson.M{}, orderQuery(store.OrderFilter{}))

	uid := primitive.NewObjectID()
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	got := orderQuery(store.OrderFilter{
		User:          &uid,
		Status:        models.StatusShipped,
		PaymentStatus: models.PaymentPending,
		PaymentMethod: models.PaymentBankTransfer,
		Search:        "ORD-2610+",
		From:          &from,
		To:            &to,
	})
	assert.Equal(t, bson.M{
		"user":               uid,
		"status":             models.StatusShipped,
		"paymentInfo.status": models.PaymentPending,
		"paymentInfo.method": models.PaymentBankTransfer,
		"orderNumber":        bson.M{"$regex": `ORD-2610\+`, "$options": "i"},
		"createdAt":          bson.M{"$gte": from, "$lte": to},
	}, got)

	got = orderQuery(store.OrderFilter{From: &from})
	assert.Equal(t, bson.M{"createdAt": bson.M{"$gte": from}}, got)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(mongo.ErrNoDocuments), store.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, translate(dup), store.ErrDuplicate)

	other := errors.New("socket closed")
	assert.Equal(t, other, translate(other))
}

func TestMatched(t *testing.T) {
	assert.ErrorIs(t, matched(&mongo.UpdateResult{}, nil), store.ErrNotFound)
	assert.NoError(t, matched(&mongo.UpdateResult{MatchedCount: 1}, nil))
	assert.ErrorIs(t, matched(nil, mongo.ErrNoDocuments), store.ErrNotFound)
}

func TestConnectDisconnectsOnSetupFailure(t *testing.T) {
	var client *mongo.Client
	orig := dial
	dial = func(ctx context.Context, opts ...*options.ClientOptions) (*mongo.Client, error) {
		c, err := orig(ctx, opts...)
		client = c
		return c, err
	}
	t.Cleanup(func() { dial = orig })

	_, err := Connect(context.Background(), Options{
		URI:      "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200&connectTimeoutMS=200",
		Database: "crackers_test",
	})
	require.Error(t, err)
	require.NotNil(t, client, "mongo.Connect does not dial eagerly")
	assert.ErrorIs(t, client.Ping(context.Background(), nil), mongo.ErrClientDisconnected)
}
