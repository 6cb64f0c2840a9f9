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
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "middleware-test-secret"

func signToken(t *testing.T, secret string, claims JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(uid string, roles ...string) JWTClaims {
	return JWTClaims{
		UserID: uid,
		Name:   "tester",
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func newRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/", JWTAuth(testSecret))
	handlers := []gin.HandlerFunc{}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": c.GetString("user_id")})
	})
	g.GET("/ping", handlers...)
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := newRouter()

	w := get(r, "/ping", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "/ping", signToken(t, "other-secret", validClaims("7")))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired := validClaims("7")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	w = get(r, "/ping", signToken(t, testSecret, expired))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "/ping", signToken(t, testSecret, validClaims("7")))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"7"}`, w.Body.String())

	// SSE 通过 query 传递令牌
	w = get(r, "/ping?token="+signToken(t, testSecret, validClaims("8")), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"8"}`, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	r := newRouter("Maintenance", "Supervisor")

	w := get(r, "/ping", signToken(t, testSecret, validClaims("201", "Operator")))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = get(r, "/ping", signToken(t, testSecret, validClaims("101", "Maintenance")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/ping", signToken(t, testSecret, validClaims("1", AdminRole)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/ping", signToken(t, testSecret, validClaims("9")))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestIDAndLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := get(r, "/ok", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req, _ := http.NewRequest("GET", "/missing", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Request", entries[0].Message)
	assert.Equal(t, "Client error", entries[1].Message)
	assert.Equal(t, "req-123", entries[1].ContextMap()["request_id"])
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS())
	r.OPTIONS("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req, _ := http.NewRequest("OPTIONS", "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Request-ID", w.Header().Get("Access-Control-Expose-Headers"))
}

func TestLoggerServerErrorAndUser(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/boom", func(c *gin.Context) {
		c.Set(KeyUserID, "101")
		c.Status(http.StatusInternalServerError)
	})

	w := get(r, "/boom?x=1", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Server error", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "101", fields[KeyUserID])
	assert.Equal(t, "x=1", fields["query"])
	assert.Equal(t, w.Header().Get("X-Request-ID"), fields[KeyRequestID])
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", RequireRole("Supervisor"), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := get(r, "/ping", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"code":40310,"message":"No roles found"}`, w.Body.String())
}

func TestJWTAuthTokenSource(t *testing.T) {
	r := newRouter()

	// 非 Bearer 方案不识别
	req, _ := http.NewRequest("GET", "/ping", nil)
	req.Header.Set("Authorization", "Basic "+signToken(t, testSecret, validClaims("7")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40100")

	// 请求头优先于 query
	req, _ = http.NewRequest("GET", "/ping?token="+signToken(t, testSecret, validClaims("8")), nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims("7")))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"7"}`, w.Body.String())

	none := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims("7"))
	s, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	w = get(r, "/ping", s)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
