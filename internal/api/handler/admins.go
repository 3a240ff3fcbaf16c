package handler

import (
	"net/http"

	"crackers-backend/internal/api/middleware"
	"crackers-backend/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AdminLogin(c *gin.Context) {
	var req credentials
	if !bind(c, &req) {
		return
	}
	a, token, err := h.admins.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "admin": a})
}

func (h *Handler) AdminMe(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentAdmin(c))
}

func (h *Handler) AdminChangePassword(c *gin.Context) {
	var req passwordChange
	if !bind(c, &req) {
		return
	}
	if err := h.admins.ChangePassword(c.Request.Context(), adminID(c), req.CurrentPassword, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

func (h *Handler) ListAdmins(c *gin.Context) {
	list, err := h.admins.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateAdmin(c *gin.Context) {
	var req service.AdminInput
	if !bind(c, &req) {
		return
	}
	a, err := h.admins.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) UpdateAdmin(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.AdminUpdate
	if !bind(c, &req) {
		return
	}
	a, err := h.admins.Update(c.Request.Context(), adminID(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAdmin(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.admins.Delete(c.Request.Context(), adminID(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "admin deleted"})
}

// Health reports liveness and whether the store answers a ping.
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "ok", "database": "up"}
	if h.store != nil && h.store.Ping != nil {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			body["status"] = "degraded"
			body["database"] = "down"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}
