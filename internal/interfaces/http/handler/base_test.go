package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/condo/backend/internal/domain/shared"
	"github.com/condo/backend/internal/interfaces/http/dto"
	"github.com/condo/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.NewNotFoundError("bill %d not found", 9), http.StatusNotFound, dto.ErrCodeNotFound},
		{"conflict", shared.NewConflictError("bills already exist"), http.StatusConflict, dto.ErrCodeConflict},
		{"invalid state", shared.NewInvalidStateError("bill is paid"), http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
		{"validation", shared.NewValidationError("amount must be positive"), http.StatusBadRequest, dto.ErrCodeValidation},
		{"wrapped domain error", fmt.Errorf("generate: %w", shared.NewConflictError("taken")), http.StatusConflict, dto.ErrCodeConflict},
		{"store failure", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			router := gin.New()
			router.Use(middleware.RequestID())
			router.GET("/test", func(c *gin.Context) { h.HandleError(c, tt.err) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decode(t, w, nil)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, w.Header().Get(middleware.RequestIDHeader), resp.Error.RequestID)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "connection reset")
			}
		})
	}
}

func TestBaseHandler_HandleNilError(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

	h.HandleError(c, nil)
	assert.False(t, c.Writer.Written())
}
