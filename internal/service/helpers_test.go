package service

import (
	"context"
	"errors"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"crackers-backend/internal/auth"
	"crackers-backend/internal/models"
	"crackers-backend/internal/store"
	"crackers-backend/internal/store/memstore"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errUploadFailed = errors.New("upload failed")

type fakeImages struct {
	mu      sync.Mutex
	saved   []models.Image
	deleted []models.Image
	// failAfter makes Save fail once that many images were saved. Zero never fails.
	failAfter int
}

func (f *fakeImages) Save(_ context.Context, fh *multipart.FileHeader, folder string) (models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter > 0 && len(f.saved) >= f.failAfter {
		return models.Image{}, errUploadFailed
	}
	img := models.Image{URL: "https://cdn.test/" + folder + "/" + fh.Filename, PublicID: folder + "/" + fh.Filename}
	f.saved = append(f.saved, img)
	return img, nil
}

func (f *fakeImages) Delete(_ context.Context, img models.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, img)
	return nil
}

type recorder struct {
	mu       sync.Mutex
	placed   []string
	reviewed []string
	changed  []string
	events   []string
}

func (r *recorder) OrderPlaced(o *models.Order, _ *models.User, _ []models.Admin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed = append(r.placed, o.OrderNumber)
}

func (r *recorder) PaymentReviewed(o *models.Order, _ *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviewed = append(r.reviewed, string(o.PaymentInfo.Status))
}

func (r *recorder) StatusChanged(o *models.Order, _ *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, string(o.Status))
}

func (r *recorder) PublishOrder(o *models.Order, note string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, note)
}

type fixture struct {
	st       *store.Store
	accounts *Accounts
	catalog  *Catalog
	cart     *Cart
	orders   *Orders
	admins   *Admins
	images   *fakeImages
	rec      *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	tokens := auth.NewIssuer("test-secret", time.Hour, time.Hour)
	images := &fakeImages{}
	rec := &recorder{}
	return &fixture{
		st:       st,
		accounts: NewAccounts(st.Users, tokens),
		catalog:  NewCatalog(st, images),
		cart:     NewCart(st),
		orders:   NewOrders(st, images, rec, rec),
		admins:   NewAdmins(st.Admins, tokens),
		images:   images,
		rec:      rec,
	}
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u, _, err := f.accounts.Register(context.Background(), RegisterInput{
		Name:     "Test Customer",
		Email:    email,
		Phone:    "9876543210",
		Password: "secret123",
	})
	require.NoError(t, err)
	_, err = f.accounts.AddAddress(context.Background(), u.ID, AddressInput{
		Street:  "12 Main Road",
		City:    "Sivakasi",
		State:   "Tamil Nadu",
		Pincode: "626123",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) product(t *testing.T, name string, price float64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Slug: Slugify(name), Price: price, Stock: stock, IsActive: true, CreatedAt: time.Now()}
	require.NoError(t, f.st.Products.Create(context.Background(), p))
	return p
}

func (f *fixture) bundle(t *testing.T, kind BundleKind, name string, price float64) *models.Bundle {
	t.Helper()
	b, err := f.catalog.CreateBundle(context.Background(), kind, BundleInput{
		Name:     &name,
		Price:    &price,
		Crackers: &[]models.Cracker{{Name: "Flower Pot", Quantity: 10}, {Name: "Rocket", Quantity: 5}},
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) stock(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	p, err := f.st.Products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

// failingOrders rejects every Replace.
type failingOrders struct {
	store.Orders
}

func (failingOrders) Replace(context.Context, *models.Order) error {
	return errors.New("write conflict")
}
