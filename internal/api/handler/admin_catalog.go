package handler

import (
	"net/http"

	"crackers-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type activeToggle struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

func (h *Handler) AdminListProducts(c *gin.Context) { h.listProducts(c, true) }

func (h *Handler) AdminCreateProduct(c *gin.Context) {
	var req service.ProductInput
	if !bind(c, &req) {
		return
	}
	p, err := h.catalog.CreateProduct(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) AdminUpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ProductInput
	if !bind(c, &req) {
		return
	}
	p, err := h.catalog.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) AdminSetProductActive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req activeToggle
	if !bind(c, &req) {
		return
	}
	p, err := h.catalog.SetProductActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) AdminDeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

func (h *Handler) AdminUploadProductImages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "expected multipart form with images")
		return
	}
	p, err := h.catalog.AddProductImages(c.Request.Context(), id, form.File["images"])
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ----- Categories -----

func (h *Handler) AdminListCategories(c *gin.Context) {
	list, err := h.catalog.Categories(c.Request.Context(), true)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) AdminCreateCategory(c *gin.Context) {
	var req service.CategoryInput
	if !bind(c, &req) {
		return
	}
	cat, err := h.catalog.CreateCategory(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *Handler) AdminUpdateCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.CategoryInput
	if !bind(c, &req) {
		return
	}
	cat, err := h.catalog.UpdateCategory(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *Handler) AdminDeleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	detached, err := h.catalog.DeleteCategory(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category deleted", "productsUpdated": detached})
}

func (h *Handler) AdminAddSubCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.SubCategoryInput
	if !bind(c, &req) {
		return
	}
	cat, err := h.catalog.AddSubCategory(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *Handler) AdminRemoveSubCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	subID, ok := pathID(c, "subId")
	if !ok {
		return
	}
	cat, err := h.catalog.RemoveSubCategory(c.Request.Context(), id, subID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// ----- Bundles and gift boxes -----

func (h *Handler) AdminListBundles(kind service.BundleKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.catalog.Bundles(c.Request.Context(), kind, true)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func (h *Handler) AdminCreateBundle(kind service.BundleKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.BundleInput
		if !bind(c, &req) {
			return
		}
		b, err := h.catalog.CreateBundle(c.Request.Context(), kind, req)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, b)
	}
}

func (h *Handler) AdminUpdateBundle(kind service.BundleKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req service.BundleInput
		if !bind(c, &req) {
			return
		}
		b, err := h.catalog.UpdateBundle(c.Request.Context(), kind, id, req)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

func (h *Handler) AdminDeleteBundle(kind service.BundleKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := h.catalog.DeleteBundle(c.Request.Context(), kind, id); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": string(kind) + " deleted"})
	}
}
