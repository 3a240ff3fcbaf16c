package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crackers-backend/internal/auth"
	"crackers-backend/internal/logger"
	"crackers-backend/internal/models"
	"crackers-backend/internal/store/memstore"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireUser(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour, time.Hour)
	st := memstore.New()
	ctx := context.Background()

	u := &models.User{Name: "Meena", Email: "meena@shop.test", IsActive: true}
	require.NoError(t, st.Users.Create(ctx, u))
	blocked := &models.User{Name: "Ravi", Email: "ravi@shop.test", IsActive: false}
	require.NoError(t, st.Users.Create(ctx, blocked))

	r := gin.New()
	r.GET("/me", RequireUser(iss, st.Users), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(logger.UserIDKey))
	})

	userToken, err := iss.UserToken(u)
	require.NoError(t, err)
	adminToken, err := iss.AdminToken(&models.Admin{ID: primitive.NewObjectID(), Role: models.RoleAdmin})
	require.NoError(t, err)

	w := serve(r, http.MethodGet, "/me", userToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, u.ID.Hex(), w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", adminToken).Code)

	other := auth.NewIssuer("other", time.Hour, time.Hour)
	forged, err := other.UserToken(u)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", forged).Code)

	blockedToken, err := iss.UserToken(blocked)
	require.NoError(t, err)
	w = serve(r, http.MethodGet, "/me", blockedToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "deactivated")

	ghostToken, err := iss.UserToken(&models.User{ID: primitive.NewObjectID()})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", ghostToken).Code)
}

func TestRequireAdminAndPermission(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour, time.Hour)
	st := memstore.New()
	ctx := context.Background()

	mod := &models.Admin{
		Name: "Mod", Email: "mod@shop.test", Role: models.RoleModerator,
		Permissions: auth.PermissionsFor(models.RoleModerator), IsActive: true,
	}
	require.NoError(t, st.Admins.Create(ctx, mod))
	inactive := &models.Admin{
		Name: "Gone", Email: "gone@shop.test", Role: models.RoleAdmin,
		Permissions: auth.PermissionsFor(models.RoleAdmin), IsActive: false,
	}
	require.NoError(t, st.Admins.Create(ctx, inactive))

	r := gin.New()
	g := r.Group("/admin", RequireAdmin(iss, st.Admins))
	g.GET("/orders", RequirePermission(auth.PermViewOrders), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentAdmin(c).Email)
	})
	g.GET("/products", RequirePermission(auth.PermManageProducts), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	modToken, err := iss.AdminToken(mod)
	require.NoError(t, err)
	w := serve(r, http.MethodGet, "/admin/orders", modToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mod@shop.test", w.Body.String())
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin/products", modToken).Code)

	inactiveToken, err := iss.AdminToken(inactive)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin/orders", inactiveToken).Code)

	ghostToken, err := iss.AdminToken(&models.Admin{ID: primitive.NewObjectID(), Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/admin/orders", ghostToken).Code)

	userToken, err := iss.UserToken(&models.User{ID: primitive.NewObjectID()})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/admin/orders", userToken).Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(logger.RequestIDKey)) })

	w := serve(r, http.MethodGet, "/", "")
	generated := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRecoveryReturnsJSON(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := serve(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"internal error","error":"Internal Server Error"}`, w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(3, time.Minute)
	l.now = func() time.Time { return now }

	r := gin.New()
	r.Use(l.Handler())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	}
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2"), "limits are per client")

	now = now.Add(20 * time.Second)
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"), "one token refills every window/max")
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
}

func TestRateLimiterSweep(t *testing.T) {
	now := time.Now()
	l := NewRateLimiter(5, time.Minute)
	l.now = func() time.Time { return now }
	l.get("10.0.0.1")
	now = now.Add(10 * time.Minute)
	l.get("10.0.0.2")

	now = now.Add(25 * time.Minute)
	l.Sweep()
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.limiters, "10.0.0.1")
	assert.Contains(t, l.limiters, "10.0.0.2")
}
