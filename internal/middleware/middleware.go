package middleware

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AdminRole 拥有所有角色权限
const AdminRole = "Admin"

// 上下文键
const (
	KeyRequestID = "request_id"
	KeyUserID    = "user_id"
	KeyUserName  = "user_name"
	KeyRoles     = "roles"
)

const headerRequestID = "X-Request-ID"

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	"Access-Control-Allow-Headers": strings.Join([]string{
		"Authorization", "Content-Type", "Accept", "Cache-Control", "X-Requested-With", headerRequestID,
	}, ", "),
	"Access-Control-Expose-Headers": headerRequestID,
}

// Logger 访问日志，4xx 记 Warn，5xx 记 Error
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level, msg := zapcore.InfoLevel, "Request"
		switch {
		case status >= http.StatusInternalServerError:
			level, msg = zapcore.ErrorLevel, "Server error"
		case status >= http.StatusBadRequest:
			level, msg = zapcore.WarnLevel, "Client error"
		}
		ce := logger.Check(level, msg)
		if ce == nil {
			return
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String(KeyRequestID, c.GetString(KeyRequestID)),
		}
		if uid := c.GetString(KeyUserID); uid != "" {
			fields = append(fields, zap.String(KeyUserID, uid))
		}
		ce.Write(fields...)
	}
}

// CORS 跨域，预检请求直接返回 204
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range corsHeaders {
			h.Set(k, v)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestID 沿用客户端传入的请求ID，缺省时生成
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(KeyRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// JWTClaims JWT claims，uid 为用户表的数字ID
type JWTClaims struct {
	UserID string   `json:"uid"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

func deny(c *gin.Context, status, code int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "message": msg})
}

// bearerToken 优先取 Authorization 头，SSE 连接无法设置请求头时取 query 中的 token
func bearerToken(c *gin.Context) string {
	if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}

// JWTAuth 校验 HS256 令牌并把用户信息写入上下文
func JWTAuth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			deny(c, http.StatusUnauthorized, 40100, "Authorization is required")
			return
		}
		claims := &JWTClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return key, nil }); err != nil {
			deny(c, http.StatusUnauthorized, 40102, "Invalid or expired token")
			return
		}
		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyUserName, claims.Name)
		c.Set(KeyRoles, claims.Roles)
		c.Next()
	}
}

// RequireRole 满足任一角色即可，Admin 直接放行
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := append([]string{AdminRole}, roles...)
	return func(c *gin.Context) {
		held, _ := c.Get(KeyRoles)
		userRoles, ok := held.([]string)
		if !ok {
			deny(c, http.StatusForbidden, 40310, "No roles found")
			return
		}
		if slices.ContainsFunc(userRoles, func(r string) bool { return slices.Contains(allowed, r) }) {
			c.Next()
			return
		}
		deny(c, http.StatusForbidden, 40312, "Role required: "+strings.Join(roles, "/"))
	}
}
