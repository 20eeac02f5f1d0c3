package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(), AdminOnly())
	r.POST("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": GetUserID(c)})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	router := newAuthRouter()

	t.Run("missing user header is a 401", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/protected", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("malformed user id is a 401", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/protected", nil)
		req.Header.Set("X-User-ID", "12345")
		req.Header.Set("X-User-Role", AdminRole)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("non admin role is a 403", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/protected", nil)
		req.Header.Set("X-User-ID", uuid.NewString())
		req.Header.Set("X-User-Role", "customer")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})

	t.Run("admin passes through", func(t *testing.T) {
		userID := uuid.NewString()
		req, _ := http.NewRequest(http.MethodPost, "/protected", nil)
		req.Header.Set("X-User-ID", userID)
		req.Header.Set("X-User-Role", AdminRole)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), userID)
	})
}
