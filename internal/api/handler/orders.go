package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"crackers-backend/internal/api/middleware"
	"crackers-backend/internal/models"
	"crackers-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type cancelRequest struct {
	Reason string `json:"reason"`
}

type statusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note"`
}

type paymentRequest struct {
	Action string `json:"action" binding:"required,oneof=approve reject"`
	Note   string `json:"note"`
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderInput
	if !bind(c, &req) {
		return
	}
	o, err := h.orders.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *Handler) ListOrders(c *gin.Context) {
	page, err := h.orders.ListForUser(c.Request.Context(), middleware.UserID(c), queryInt(c, "page", 1), queryInt(c, "limit", 10))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.GetForUser(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req cancelRequest
	// body is optional
	_ = c.ShouldBindJSON(&req)
	o, err := h.orders.Cancel(c.Request.Context(), middleware.UserID(c), id, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) UploadPaymentProof(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("screenshot")
	if err != nil {
		badRequest(c, "screenshot file is required")
		return
	}
	o, err := h.orders.AttachPaymentProof(c.Request.Context(), middleware.UserID(c), id, fh, c.PostForm("transactionId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// ----- Admin -----

func orderQuery(c *gin.Context) service.OrderQuery {
	return service.OrderQuery{
		Status:        c.Query("status"),
		PaymentStatus: c.Query("paymentStatus"),
		PaymentMethod: c.Query("paymentMethod"),
		Search:        c.Query("search"),
		From:          c.Query("from"),
		To:            c.Query("to"),
		Page:          queryInt(c, "page", 1),
		Limit:         queryInt(c, "limit", 20),
	}
}

func (h *Handler) AdminListOrders(c *gin.Context) {
	page, err := h.orders.List(c.Request.Context(), orderQuery(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) AdminGetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) AdminOrderStats(c *gin.Context) {
	stats, err := h.orders.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AdminExportOrders returns the filtered orders as a CSV attachment. Paging parameters are ignored.
func (h *Handler) AdminExportOrders(c *gin.Context) {
	q := orderQuery(c)
	q.Page, q.Limit = 0, 0
	var buf bytes.Buffer
	if err := h.orders.ExportCSV(c.Request.Context(), q, &buf); err != nil {
		fail(c, err)
		return
	}
	name := fmt.Sprintf("orders-%s.csv", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) AdminUpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !bind(c, &req) {
		return
	}
	o, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status, req.Note, adminID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) AdminVerifyPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if !bind(c, &req) {
		return
	}
	o, err := h.orders.VerifyPayment(c.Request.Context(), id, req.Action == "approve", req.Note, adminID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
