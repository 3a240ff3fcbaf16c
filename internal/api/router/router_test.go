package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crackers-backend/internal/api/handler"
	"crackers-backend/internal/api/middleware"
	"crackers-backend/internal/auth"
	"crackers-backend/internal/models"
	"crackers-backend/internal/service"
	"crackers-backend/internal/store"
	"crackers-backend/internal/store/memstore"
	"crackers-backend/internal/upload"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	superEmail    = "root@shop.test"
	superPassword = "supersecret"
)

// pngBytes is enough of a PNG for content sniffing.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

type app struct {
	engine *gin.Engine
	st     *store.Store
	admins *service.Admins
}

func newApp(t *testing.T, opts Options) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := memstore.New()
	tokens := auth.NewIssuer("test-secret", time.Hour, time.Hour)
	dir := t.TempDir()
	images := upload.New(upload.NewLocal(dir, "http://test.local"), nil, 1<<20)

	admins := service.NewAdmins(st.Admins, tokens)
	require.NoError(t, admins.Seed(context.Background(), superEmail, superPassword))

	h := handler.New(st,
		service.NewAccounts(st.Users, tokens),
		service.NewCatalog(st, images),
		service.NewCart(st),
		service.NewOrders(st, images, nil, nil),
		admins,
	)
	opts.UploadDir = dir
	engine, err := New(Deps{Handler: h, Tokens: tokens, Users: st.Users, Admins: st.Admins}, opts)
	require.NoError(t, err)
	return &app{
		engine: engine,
		st:     st,
		admins: admins,
	}
}

func (a *app) call(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func (a *app) adminToken(t *testing.T) string {
	t.Helper()
	w := a.call(t, http.MethodPost, "/api/admin/auth/login", "", gin.H{"email": superEmail, "password": superPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Token string       `json:"token"`
		Admin models.Admin `json:"admin"`
	}
	decode(t, w, &res)
	assert.Equal(t, models.RoleSuperAdmin, res.Admin.Role)
	return res.Token
}

func (a *app) customer(t *testing.T, email string) string {
	t.Helper()
	w := a.call(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Meena", "email": email, "phone": "9876543210", "password": "secret12",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	decode(t, w, &res)

	w = a.call(t, http.MethodPost, "/api/users/addresses", res.Token, gin.H{
		"street": "12 Car Street", "city": "Sivakasi", "state": "Tamil Nadu", "pincode": "626123", "isDefault": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return res.Token
}

func (a *app) product(t *testing.T, token, name string, price float64, stock int) models.Product {
	t.Helper()
	w := a.call(t, http.MethodPost, "/api/admin/products", token, gin.H{"name": name, "price": price, "stock": stock})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p models.Product
	decode(t, w, &p)
	return p
}

func TestCheckoutFlow(t *testing.T) {
	a := newApp(t, Options{})
	admin := a.adminToken(t)
	p := a.product(t, admin, "Flower Pots Deluxe", 100, 10)
	user := a.customer(t, "meena@shop.test")

	w := a.call(t, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page service.ProductPage
	decode(t, w, &page)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "flower-pots-deluxe", page.Products[0].Slug)

	w = a.call(t, http.MethodPost, "/api/cart/products", user, gin.H{"id": p.ID.Hex(), "quantity": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cart service.CartView
	decode(t, w, &cart)
	assert.Equal(t, 3, cart.ItemCount)
	assert.Equal(t, 300.0, cart.CartTotal)

	w = a.call(t, http.MethodPost, "/api/orders", user, gin.H{"paymentMethod": "cod"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	decode(t, w, &order)
	assert.Equal(t, 404.0, order.Pricing.Total)
	assert.Equal(t, "Sivakasi", order.ShippingAddress.City)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))

	w = a.call(t, http.MethodGet, "/api/products/"+p.ID.Hex(), "", nil)
	var after models.Product
	decode(t, w, &after)
	assert.Equal(t, 7, after.Stock)

	w = a.call(t, http.MethodGet, "/api/cart", user, nil)
	decode(t, w, &cart)
	assert.Empty(t, cart.Items)

	w = a.call(t, http.MethodGet, "/api/orders", user, nil)
	var mine service.OrderPage
	decode(t, w, &mine)
	assert.EqualValues(t, 1, mine.Total)

	w = a.call(t, http.MethodPatch, "/api/admin/orders/"+order.ID.Hex()+"/status", admin, gin.H{"status": "shipped", "note": "Dispatched"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.call(t, http.MethodPost, "/api/orders/"+order.ID.Hex()+"/cancel", user, gin.H{"reason": "changed my mind"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.call(t, http.MethodGet, "/api/admin/orders/export?status=shipped", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), order.OrderNumber)
	assert.Contains(t, w.Body.String(), "404.00")

	w = a.call(t, http.MethodGet, "/api/admin/orders/export?from=yesterday", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

func TestInsufficientStockListsDetails(t *testing.T) {
	a := newApp(t, Options{})
	admin := a.adminToken(t)
	p := a.product(t, admin, "Sparklers", 40, 2)
	user := a.customer(t, "ravi@shop.test")

	w := a.call(t, http.MethodPost, "/api/orders", user, gin.H{
		"paymentMethod": "cod",
		"items":         []gin.H{{"type": "product", "id": p.ID.Hex(), "quantity": 5}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Message string   `json:"message"`
		Details []string `json:"details"`
	}
	decode(t, w, &body)
	require.Len(t, body.Details, 1)
	assert.Contains(t, body.Details[0], "Sparklers")
}

func TestBankTransferProofAndVerification(t *testing.T) {
	a := newApp(t, Options{})
	admin := a.adminToken(t)
	p := a.product(t, admin, "Rockets", 250, 5)
	user := a.customer(t, "anu@shop.test")

	w := a.call(t, http.MethodPost, "/api/orders", user, gin.H{
		"paymentMethod": "bank_transfer",
		"items":         []gin.H{{"type": "product", "id": p.ID.Hex(), "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	decode(t, w, &order)
	assert.False(t, order.StockDeducted)

	w = a.call(t, http.MethodPatch, "/api/admin/orders/"+order.ID.Hex()+"/payment", admin, gin.H{"action": "approve"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "approval needs a screenshot first")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("screenshot", "proof.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("transactionId", "UTR123456"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+order.ID.Hex()+"/payment-proof", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+user)
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &order)
	require.NotNil(t, order.PaymentInfo.Screenshot)
	assert.Equal(t, "UTR123456", order.PaymentInfo.TransactionID)

	served := a.call(t, http.MethodGet, strings.TrimPrefix(order.PaymentInfo.Screenshot.URL, "http://test.local"), "", nil)
	assert.Equal(t, http.StatusOK, served.Code)

	w = a.call(t, http.MethodPatch, "/api/admin/orders/"+order.ID.Hex()+"/payment", admin, gin.H{"action": "approve", "note": "UTR matched"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &order)
	assert.Equal(t, models.PaymentCompleted, order.PaymentInfo.Status)
	assert.Equal(t, models.StatusConfirmed, order.Status)
	assert.True(t, order.StockDeducted)

	w = a.call(t, http.MethodGet, "/api/admin/orders/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats store.OrderStats
	decode(t, w, &stats)
	assert.EqualValues(t, 1, stats.Total)
}

func TestPermissionsAndTokenTypes(t *testing.T) {
	a := newApp(t, Options{})
	admin := a.adminToken(t)
	user := a.customer(t, "kavi@shop.test")

	w := a.call(t, http.MethodPost, "/api/admin/admins", admin, gin.H{
		"name": "Moderator", "email": "mod@shop.test", "password": "modpassword", "role": "moderator",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.call(t, http.MethodPost, "/api/admin/auth/login", "", gin.H{"email": "mod@shop.test", "password": "modpassword"})
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Token string `json:"token"`
	}
	decode(t, w, &res)

	assert.Equal(t, http.StatusForbidden, a.call(t, http.MethodPost, "/api/admin/products", res.Token, gin.H{"name": "X", "price": 1}).Code)
	assert.Equal(t, http.StatusForbidden, a.call(t, http.MethodGet, "/api/admin/admins", res.Token, nil).Code)
	assert.Equal(t, http.StatusOK, a.call(t, http.MethodGet, "/api/admin/orders", res.Token, nil).Code)

	assert.Equal(t, http.StatusUnauthorized, a.call(t, http.MethodGet, "/api/admin/orders", user, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.call(t, http.MethodGet, "/api/cart", admin, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.call(t, http.MethodGet, "/api/cart", "", nil).Code)

	w = a.call(t, http.MethodGet, "/api/admin/auth/me", res.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.Admin
	decode(t, w, &me)
	assert.Equal(t, models.RoleModerator, me.Role)
}

func TestAdminLockout(t *testing.T) {
	a := newApp(t, Options{})
	for i := 0; i < service.MaxLoginAttempts; i++ {
		w := a.call(t, http.MethodPost, "/api/admin/auth/login", "", gin.H{"email": superEmail, "password": "wrong-password"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := a.call(t, http.MethodPost, "/api/admin/auth/login", "", gin.H{"email": superEmail, "password": superPassword})
	assert.Equal(t, http.StatusLocked, w.Code)
}

func TestCatalogAdminRoutes(t *testing.T) {
	a := newApp(t, Options{})
	admin := a.adminToken(t)

	w := a.call(t, http.MethodPost, "/api/admin/categories", admin, gin.H{"name": "Sky Shots"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cat models.Category
	decode(t, w, &cat)
	assert.Equal(t, "sky-shots", cat.Slug)

	w = a.call(t, http.MethodPost, "/api/admin/categories", admin, gin.H{"name": "Sky Shots"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.call(t, http.MethodGet, "/api/categories/sky-shots", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.call(t, http.MethodPost, "/api/admin/giftboxes", admin, gin.H{"name": "Family Pack", "price": 1499})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var box models.Bundle
	decode(t, w, &box)

	assert.Equal(t, http.StatusOK, a.call(t, http.MethodGet, "/api/giftboxes/"+box.ID.Hex(), "", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.call(t, http.MethodGet, "/api/bundles/"+box.ID.Hex(), "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.call(t, http.MethodGet, "/api/bundles/not-an-id", "", nil).Code)

	p := a.product(t, admin, "Chakkars", 60, 4)
	w = a.call(t, http.MethodPatch, "/api/admin/products/"+p.ID.Hex()+"/active", admin, gin.H{"isActive": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, a.call(t, http.MethodGet, "/api/products/"+p.ID.Hex(), "", nil).Code)

	w = a.call(t, http.MethodGet, "/api/admin/products", admin, nil)
	var page service.ProductPage
	decode(t, w, &page)
	assert.Len(t, page.Products, 1)
}

func TestHealthAndRateLimit(t *testing.T) {
	a := newApp(t, Options{RateLimiter: middleware.NewRateLimiter(2, time.Minute)})

	w := a.call(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	assert.Equal(t, http.StatusOK, a.call(t, http.MethodGet, "/api/products", "", nil).Code)
	assert.Equal(t, http.StatusOK, a.call(t, http.MethodGet, "/api/products", "", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, a.call(t, http.MethodGet, "/api/products", "", nil).Code)

	w = a.call(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestBindingRulesRegistered(t *testing.T) {
	require.NoError(t, registerBinding())

	type pin struct {
		Pincode string `binding:"pincode"`
	}
	assert.NoError(t, binding.Validator.ValidateStruct(pin{Pincode: "626123"}))
	assert.Error(t, binding.Validator.ValidateStruct(pin{Pincode: "012345"}))
}
