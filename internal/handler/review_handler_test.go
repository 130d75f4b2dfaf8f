package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func reviewTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewReviewHandler(nil) // input validation rejects before the service is touched
	r := gin.New()
	r.POST("/reviews", h.Submit)
	r.GET("/reviews/:id", h.GetByID)
	return r
}

func TestSubmitRejectsMalformedBody(t *testing.T) {
	r := reviewTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_BODY")
}

func TestSubmitRequiresElementsAndClauses(t *testing.T) {
	r := reviewTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(`{"template_id":"irr_main"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetByIDRejectsBadUUID(t *testing.T) {
	r := reviewTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/reviews/not-a-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_ID")
}
