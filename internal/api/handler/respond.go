// Package handler adapts HTTP requests to the service layer.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"crackers-backend/internal/api/middleware"
	"crackers-backend/internal/logger"
	"crackers-backend/internal/service"
	"crackers-backend/internal/store"
	"crackers-backend/internal/upload"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Handler carries the services every route group needs.
type Handler struct {
	accounts *service.Accounts
	catalog  *service.Catalog
	cart     *service.Cart
	orders   *service.Orders
	admins   *service.Admins
	store    *store.Store
}

func New(st *store.Store, accounts *service.Accounts, catalog *service.Catalog, cart *service.Cart, orders *service.Orders, admins *service.Admins) *Handler {
	return &Handler{
		accounts: accounts,
		catalog:  catalog,
		cart:     cart,
		orders:   orders,
		admins:   admins,
		store:    st,
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, upload.ErrTooLarge),
		errors.Is(err, upload.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict), errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, service.ErrLocked):
		return http.StatusLocked
	}
	return http.StatusInternalServerError
}

// fail writes the error body. Internal errors are logged and never echoed.
func fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.WithRequest(c).WithError(err).Error("request failed")
		c.JSON(status, gin.H{"message": "internal server error", "error": http.StatusText(status)})
		return
	}
	body := gin.H{"message": err.Error(), "error": http.StatusText(status)}
	var se *service.StockError
	if errors.As(err, &se) {
		body["details"] = se.Details
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": message, "error": http.StatusText(http.StatusBadRequest)})
}

// bind decodes the JSON body and answers 400 when it is malformed.
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "invalid request body")
		return false
	}
	return true
}

// pathID parses an ObjectID route parameter and answers 400 when it is malformed.
func pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}

func queryFloat(c *gin.Context, name string) float64 {
	v, _ := strconv.ParseFloat(c.Query(name), 64)
	return v
}

func adminID(c *gin.Context) primitive.ObjectID {
	if a := middleware.CurrentAdmin(c); a != nil {
		return a.ID
	}
	return primitive.NilObjectID
}
