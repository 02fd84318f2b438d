package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newAuthRouter(token string, disabled bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	router := gin.New()
	router.Use(APITokenAuth(token, disabled, logger))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func request(router *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestAuthRejectsMissingToken(t *testing.T) {
	router := newAuthRouter("secret", false)
	assert.Equal(t, http.StatusUnauthorized, request(router, nil).Code)
}

func TestAuthRejectsWrongToken(t *testing.T) {
	router := newAuthRouter("secret", false)
	assert.Equal(t, http.StatusUnauthorized, request(router, map[string]string{"X-Api-Key": "nope"}).Code)
	assert.Equal(t, http.StatusUnauthorized, request(router, map[string]string{"Authorization": "Bearer nope"}).Code)
}

func TestAuthAcceptsApiKeyHeader(t *testing.T) {
	router := newAuthRouter("secret", false)
	assert.Equal(t, http.StatusOK, request(router, map[string]string{"X-Api-Key": "secret"}).Code)
}

func TestAuthAcceptsBearerToken(t *testing.T) {
	router := newAuthRouter("secret", false)
	assert.Equal(t, http.StatusOK, request(router, map[string]string{"Authorization": "Bearer secret"}).Code)
}

func TestAuthEmptyConfiguredTokenRejectsAll(t *testing.T) {
	router := newAuthRouter("", false)
	assert.Equal(t, http.StatusUnauthorized, request(router, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, request(router, map[string]string{"X-Api-Key": ""}).Code)
}

func TestAuthDisabledAllowsEverything(t *testing.T) {
	router := newAuthRouter("secret", true)
	assert.Equal(t, http.StatusOK, request(router, nil).Code)
}
