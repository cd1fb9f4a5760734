package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/rangovai/internal/config"
	"github.com/iliyamo/rangovai/internal/utils"
)

const secret = "test-secret"

func whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user_id": UserID(c), "role": Role(c)})
}

func doRequest(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, sub, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, sub, role, time.Hour)
	require.NoError(t, err)
	return tok.Token
}

func TestJWTAuthAndRoles(t *testing.T) {
	e := echo.New()
	g := e.Group("/v1", JWTAuth(secret))
	g.GET("/me", whoami)
	g.GET("/org", whoami, RequireRole("ORGANIZER"))

	rec := doRequest(e, http.MethodGet, "/v1/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(e, http.MethodGet, "/v1/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(e, http.MethodGet, "/v1/me", token(t, "vol-1", "volunteer"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"vol-1","role":"VOLUNTEER"}`, rec.Body.String())

	rec = doRequest(e, http.MethodGet, "/v1/org", token(t, "vol-1", "VOLUNTEER"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(e, http.MethodGet, "/v1/org", token(t, "org-1", "ORGANIZER"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuthRejectsWrongSecretAndMissingExp(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	other, err := utils.NewAccessToken("other", "vol-1", "VOLUNTEER", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, doRequest(e, http.MethodGet, "/me", other.Token).Code)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "vol-1", "role": "VOLUNTEER"}).
		SignedString([]byte(secret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, doRequest(e, http.MethodGet, "/me", noExp).Code)

	numeric, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 42, "role": "VOLUNTEER", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	rec := doRequest(e, http.MethodGet, "/me", numeric)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"42"`)
}

func TestRequireRoleWithoutIdentity(t *testing.T) {
	e := echo.New()
	e.GET("/x", whoami, RequireRole("ORGANIZER"))
	assert.Equal(t, http.StatusUnauthorized, doRequest(e, http.MethodGet, "/x", "").Code)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestResponseCacheHitAndInvalidate(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewResponseCache(config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache",
	}, rdb)

	calls := 0
	e := echo.New()
	e.GET("/v1/events", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, rc.Middleware())

	first := doRequest(e, http.MethodGet, "/v1/events?q=a", "")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := doRequest(e, http.MethodGet, "/v1/events?q=a", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	other := doRequest(e, http.MethodGet, "/v1/events?q=b", "")
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))

	require.NoError(t, rc.Invalidate(context.Background()))
	third := doRequest(e, http.MethodGet, "/v1/events?q=a", "")
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
}

func TestResponseCacheSkipsErrors(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, Prefix: "c"}, rdb)
	calls := 0
	e := echo.New()
	e.GET("/boom", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "x"})
	}, rc.Middleware())

	doRequest(e, http.MethodGet, "/boom", "")
	doRequest(e, http.MethodGet, "/boom", "")
	assert.Equal(t, 2, calls)
}

func TestResponseCacheDisabledWithoutRedis(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Enabled: true}, nil)
	assert.NoError(t, rc.Invalidate(context.Background()))
	e := echo.New()
	e.GET("/x", whoami, rc.Middleware())
	rec := doRequest(e, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour,
		KeyStrategy: "user_route", Prefix: "rl",
	}
	e := echo.New()
	e.POST("/apply", whoami, JWTAuth(secret), NewTokenBucket(cfg, rdb))

	alice := token(t, "alice", "VOLUNTEER")
	assert.Equal(t, http.StatusOK, doRequest(e, http.MethodPost, "/apply", alice).Code)
	assert.Equal(t, http.StatusOK, doRequest(e, http.MethodPost, "/apply", alice).Code)
	blocked := doRequest(e, http.MethodPost, "/apply", alice)
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

	// buckets are per user
	bob := token(t, "bob", "VOLUNTEER")
	assert.Equal(t, http.StatusOK, doRequest(e, http.MethodPost, "/apply", bob).Code)
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour}
	e := echo.New()
	e.POST("/apply", whoami, NewTokenBucket(cfg, rdb))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doRequest(e, http.MethodPost, "/apply", "").Code)
	}
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", whoami)
	e.GET("/missing", func(c echo.Context) error { return echo.ErrNotFound })

	doRequest(e, http.MethodGet, "/ok", "")
	rec := doRequest(e, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
	assert.Equal(t, int64(http.StatusNotFound), entries[1].ContextMap()["status"])
}

func TestLoggerCarriesRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(echomw.RequestID())
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/x", func(c echo.Context) error {
		Logger(c).Info("inside")
		return c.NoContent(http.StatusNoContent)
	})
	rec := doRequest(e, http.MethodGet, "/x", "")

	inside := logs.FilterMessage("inside").All()
	require.Len(t, inside, 1)
	assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), inside[0].ContextMap()["request_id"])

	// without RequestLogger the global logger is used
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Same(t, zap.L(), Logger(c))
}

func TestTimeoutSetsDeadline(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error {
		_, ok := c.Request().Context().Deadline()
		return c.JSON(http.StatusOK, echo.Map{"deadline": ok})
	}, Timeout(time.Second))
	rec := doRequest(e, http.MethodGet, "/x", "")
	assert.JSONEq(t, `{"deadline":true}`, rec.Body.String())
}
