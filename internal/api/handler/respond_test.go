package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"crackers-backend/internal/service"
	"crackers-backend/internal/store"
	"crackers-backend/internal/upload"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: name is required", service.ErrValidation), http.StatusBadRequest},
		{&service.StockError{Details: []string{"Rockets: only 1 left"}}, http.StatusBadRequest},
		{fmt.Errorf("%w: payment is already completed", service.ErrInvalidState), http.StatusBadRequest},
		{fmt.Errorf("%w: 9MB", upload.ErrTooLarge), http.StatusBadRequest},
		{upload.ErrUnsupported, http.StatusBadRequest},
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("order %w", service.ErrNotFound), http.StatusNotFound},
		{store.ErrNotFound, http.StatusNotFound},
		{store.ErrDuplicate, http.StatusConflict},
		{fmt.Errorf("%w until tomorrow", service.ErrLocked), http.StatusLocked},
		{errors.New("socket closed"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), tc.err.Error())
	}
}

func TestFailHidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	fail(c, errors.New("mongo: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "mongo")

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fail(c, &service.StockError{Details: []string{"Rockets: only 1 left"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"details":["Rockets: only 1 left"]`)
}
