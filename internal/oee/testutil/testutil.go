package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-oee/internal/config"
	"github.com/bitfantasy/nimo-oee/internal/middleware"
	"github.com/bitfantasy/nimo-oee/internal/oee/generator"
	"github.com/bitfantasy/nimo-oee/internal/oee/repository"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "nimo-oee-test-secret"

var loadEnvOnce sync.Once

// projectRoot returns the project root directory by looking for go.mod
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// loadEnv loads .env from the project root
func loadEnv() {
	loadEnvOnce.Do(func() {
		if root := projectRoot(); root != "" {
			godotenv.Load(filepath.Join(root, ".env"))
		}
	})
}

// JWTSecret 测试签名密钥，可由 .env 中的 JWT_SECRET 覆盖
func JWTSecret() string {
	loadEnv()
	return config.GetEnvOrDefault("JWT_SECRET", defaultJWTSecret)
}

// Config 固定参考日期与随机种子的测试配置
func Config() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Driver: "memory", SeedStart: "2025-10-20", SeedEnd: "2025-10-26", RandomSeed: 7},
		Redis: config.RedisConfig{CacheTTL: time.Minute},
		JWT:   config.JWTConfig{Secret: JWTSecret(), Issuer: "nimo-oee"},
		Dashboard: config.DashboardConfig{
			ReferenceDate:         "2025-10-30",
			DefaultDate:           "2025-10-26",
			AssumedOperatingHours: 160,
		},
	}
}

// SeededStore 写入固定主数据与 2025-10-20 ~ 2025-10-26 的模拟记录
func SeededStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	snap, err := generator.Seed(generator.New(rand.New(rand.NewSource(2025))), "2025-10-20", "2025-10-26")
	if err != nil {
		t.Fatalf("Failed to generate seed data: %v", err)
	}
	store := repository.NewMemoryStore()
	if err := store.Seed(context.Background(), snap); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}
	return store
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret()))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID int, name string, roles []string) string {
	if roles == nil {
		roles = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   fmt.Sprintf("%d", userID),
		"uid":   fmt.Sprintf("%d", userID),
		"name":  name,
		"roles": roles,
		"iss":   "nimo-oee",
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
		"jti":   fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret()))
	return tokenString
}

// DefaultTestToken returns a token for the seeded admin user
func DefaultTestToken() string {
	return GenerateTestToken(1, "Admin", []string{"Admin"})
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a handler.Response-like map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}
