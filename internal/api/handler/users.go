package handler

import (
	"net/http"

	"crackers-backend/internal/api/middleware"
	"crackers-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type passwordChange struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterInput
	if !bind(c, &req) {
		return
	}
	u, token, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": u})
}

func (h *Handler) Login(c *gin.Context) {
	var req credentials
	if !bind(c, &req) {
		return
	}
	u, token, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": u})
}

func (h *Handler) Profile(c *gin.Context) {
	u, err := h.accounts.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req service.ProfileInput
	if !bind(c, &req) {
		return
	}
	u, err := h.accounts.UpdateProfile(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req passwordChange
	if !bind(c, &req) {
		return
	}
	if err := h.accounts.ChangePassword(c.Request.Context(), middleware.UserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// ----- Addresses -----

func (h *Handler) Addresses(c *gin.Context) {
	list, err := h.accounts.Addresses(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) AddAddress(c *gin.Context) {
	var req service.AddressInput
	if !bind(c, &req) {
		return
	}
	list, err := h.accounts.AddAddress(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (h *Handler) UpdateAddress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.AddressInput
	if !bind(c, &req) {
		return
	}
	list, err := h.accounts.UpdateAddress(c.Request.Context(), middleware.UserID(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) DeleteAddress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.accounts.DeleteAddress(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) SetDefaultAddress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.accounts.SetDefaultAddress(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
