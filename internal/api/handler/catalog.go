package handler

import (
	"net/http"

	"crackers-backend/internal/api/middleware"
	"crackers-backend/internal/service"

	"github.com/gin-gonic/gin"
)

func productQuery(c *gin.Context) service.ProductQuery {
	return service.ProductQuery{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		MinPrice: queryFloat(c, "minPrice"),
		MaxPrice: queryFloat(c, "maxPrice"),
		Featured: c.Query("featured") == "true",
		Sort:     c.Query("sort"),
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 20),
	}
}

func (h *Handler) listProducts(c *gin.Context, includeInactive bool) {
	page, err := h.catalog.ListProducts(c.Request.Context(), productQuery(c), includeInactive)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) ListProducts(c *gin.Context) { h.listProducts(c, false) }

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.catalog.Product(c.Request.Context(), id, false)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) AddReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ReviewInput
	if !bind(c, &req) {
		return
	}
	u, err := h.accounts.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	p, err := h.catalog.AddReview(c.Request.Context(), id, u, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListCategories(c *gin.Context) {
	list, err := h.catalog.Categories(c.Request.Context(), false)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetCategory(c *gin.Context) {
	cat, err := h.catalog.CategoryBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// ListBundles and GetBundle serve both the bundle and gift box catalogues.
func (h *Handler) ListBundles(kind service.BundleKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.catalog.Bundles(c.Request.Context(), kind, false)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func (h *Handler) GetBundle(kind service.BundleKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		b, err := h.catalog.Bundle(c.Request.Context(), kind, id, false)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}
