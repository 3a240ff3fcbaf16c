package middleware

import (
	"errors"
	"net/http"
	"strings"

	"crackers-backend/internal/auth"
	"crackers-backend/internal/logger"
	"crackers-backend/internal/models"
	"crackers-backend/internal/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const adminKey = "admin"

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message, "error": http.StatusText(status)})
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) < 8 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func claims(c *gin.Context, iss *auth.Issuer, want string) (*auth.Claims, bool) {
	tok := bearer(c)
	if tok == "" {
		abort(c, http.StatusUnauthorized, "missing token")
		return nil, false
	}
	cl, err := iss.Parse(tok)
	if err != nil {
		abort(c, http.StatusUnauthorized, "invalid token")
		return nil, false
	}
	if cl.Type != want {
		abort(c, http.StatusUnauthorized, "wrong token type")
		return nil, false
	}
	return cl, true
}

// RequireUser accepts customer tokens and loads the user, so a deactivated account is
// rejected before its token expires.
func RequireUser(iss *auth.Issuer, users store.Users) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := claims(c, iss, auth.TypeUser)
		if !ok {
			return
		}
		id, err := primitive.ObjectIDFromHex(cl.ID)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		u, err := users.FindByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				abort(c, http.StatusUnauthorized, "account no longer exists")
				return
			}
			logger.WithRequest(c).WithError(err).Error("failed to load user")
			abort(c, http.StatusInternalServerError, "internal error")
			return
		}
		if !u.IsActive {
			abort(c, http.StatusForbidden, "account is deactivated")
			return
		}
		c.Set(logger.UserIDKey, cl.ID)
		c.Next()
	}
}

// RequireAdmin accepts admin tokens and loads the admin, so deactivation takes effect at once.
func RequireAdmin(iss *auth.Issuer, admins store.Admins) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := claims(c, iss, auth.TypeAdmin)
		if !ok {
			return
		}
		id, err := primitive.ObjectIDFromHex(cl.ID)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		a, err := admins.FindByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				abort(c, http.StatusUnauthorized, "admin no longer exists")
				return
			}
			logger.WithRequest(c).WithError(err).Error("failed to load admin")
			abort(c, http.StatusInternalServerError, "internal error")
			return
		}
		if !a.IsActive {
			abort(c, http.StatusForbidden, "account is deactivated")
			return
		}
		c.Set(logger.AdminIDKey, cl.ID)
		c.Set(adminKey, a)
		c.Next()
	}
}

// RequirePermission must run after RequireAdmin.
func RequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		a := CurrentAdmin(c)
		if a == nil {
			abort(c, http.StatusUnauthorized, "admin authentication required")
			return
		}
		if !a.HasPermission(perm) {
			abort(c, http.StatusForbidden, "missing permission "+perm)
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(c.GetString(logger.UserIDKey))
	return id
}

func CurrentAdmin(c *gin.Context) *models.Admin {
	v, ok := c.Get(adminKey)
	if !ok {
		return nil
	}
	a, _ := v.(*models.Admin)
	return a
}
