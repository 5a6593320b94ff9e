package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/pkg/logger"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, v *TokenVerifier, claims *Claims) string {
	t.Helper()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}
	token, err := v.Sign(claims)
	require.NoError(t, err)
	return token
}

func protectedRouter(v *TokenVerifier, roles ...domain.Role) *gin.Engine {
	router := gin.New()
	router.Use(JWTAuth(v))
	if len(roles) > 0 {
		router.Use(RequireRole(roles...))
	}
	router.GET("/protected", func(c *gin.Context) {
		actor := GetActor(c)
		c.JSON(http.StatusOK, gin.H{"user_id": actor.UserID, "role": actor.Role, "category": actor.Category})
	})
	return router
}

func get(router *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestJWTAuth_ValidToken(t *testing.T) {
	v := NewTokenVerifier(testSecret, "shelf-booking")
	token := signToken(t, v, &Claims{UserID: "u-1", Role: "CATEGORY_MANAGER", Category: "Dairy", Status: "ACTIVE"})

	w := get(protectedRouter(v), token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"u-1"`)
	assert.Contains(t, w.Body.String(), `"category":"Dairy"`)
}

func TestJWTAuth_Rejects(t *testing.T) {
	v := NewTokenVerifier(testSecret, "shelf-booking")
	other := NewTokenVerifier("other-secret", "shelf-booking")

	tests := []struct {
		name     string
		token    string
		wantCode string
	}{
		{name: "no token", token: "", wantCode: "UNAUTHORIZED"},
		{name: "garbage", token: "not-a-jwt", wantCode: "INVALID_TOKEN"},
		{name: "wrong secret", token: signToken(t, other, &Claims{UserID: "u-1", Role: "SUPPLIER"}), wantCode: "INVALID_TOKEN"},
		{name: "unknown role", token: signToken(t, v, &Claims{UserID: "u-1", Role: "ADMIN"}), wantCode: "INVALID_TOKEN"},
		{name: "missing user", token: signToken(t, v, &Claims{Role: "SUPPLIER"}), wantCode: "INVALID_TOKEN"},
		{
			name: "expired",
			token: signToken(t, v, &Claims{UserID: "u-1", Role: "SUPPLIER", RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			}}),
			wantCode: "TOKEN_EXPIRED",
		},
		{
			name: "wrong issuer",
			token: signToken(t, v, &Claims{UserID: "u-1", Role: "SUPPLIER", RegisteredClaims: jwt.RegisteredClaims{
				Issuer: "someone-else",
			}}),
			wantCode: "INVALID_TOKEN",
		},
	}

	router := protectedRouter(v)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(router, tt.token)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}

func TestRequireRole(t *testing.T) {
	v := NewTokenVerifier(testSecret, "")
	router := protectedRouter(v, domain.RoleDMPManager)

	dmp := signToken(t, v, &Claims{UserID: "u-1", Role: "DMP_MANAGER"})
	assert.Equal(t, http.StatusOK, get(router, dmp).Code)

	supplier := signToken(t, v, &Claims{UserID: "u-2", Role: "SUPPLIER"})
	w := get(router, supplier)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")

	pending := signToken(t, v, &Claims{UserID: "u-3", Role: "DMP_MANAGER", Status: "PENDING"})
	assert.Equal(t, http.StatusForbidden, get(router, pending).Code)
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok = bearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = bearerToken("Bearer ")
	assert.False(t, ok)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextKeyRequestID))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-42", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestLogger_LevelByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	router := gin.New()
	router.Use(RequestID(), Logger(logger.New(zap.New(core))))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/missing", "/boom"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "/boom", entries[2].ContextMap()["route"])
}
