package handler

import (
	"net/http"

	"crackers-backend/internal/api/middleware"
	"crackers-backend/internal/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type cartAdd struct {
	ID       string `json:"id" binding:"required"`
	Quantity int    `json:"quantity"`
}

type cartQuantity struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *Handler) GetCart(c *gin.Context) {
	view, err := h.cart.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddToCart handles the product, bundle and gift box add routes.
func (h *Handler) AddToCart(t models.ItemType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cartAdd
		if !bind(c, &req) {
			return
		}
		id, err := primitive.ObjectIDFromHex(req.ID)
		if err != nil {
			badRequest(c, "invalid id")
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}
		uid := middleware.UserID(c)
		if t == models.ItemProduct {
			view, err := h.cart.AddProduct(c.Request.Context(), uid, id, req.Quantity)
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, view)
			return
		}
		view, err := h.cart.AddBundle(c.Request.Context(), uid, t, id, req.Quantity)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func (h *Handler) UpdateCartLine(c *gin.Context) {
	lineID, ok := pathID(c, "lineId")
	if !ok {
		return
	}
	var req cartQuantity
	if !bind(c, &req) {
		return
	}
	view, err := h.cart.UpdateQuantity(c.Request.Context(), middleware.UserID(c), lineID, *req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) RemoveCartLine(c *gin.Context) {
	lineID, ok := pathID(c, "lineId")
	if !ok {
		return
	}
	view, err := h.cart.Remove(c.Request.Context(), middleware.UserID(c), lineID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) ClearCart(c *gin.Context) {
	view, err := h.cart.Clear(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
