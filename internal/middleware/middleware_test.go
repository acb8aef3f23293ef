package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/user-service/internal/apperr"
	"github.com/iliyamo/user-service/internal/auth"
	"github.com/iliyamo/user-service/internal/config"
)

type stubValidator struct {
	want string
	got  []string
}

func (s *stubValidator) Validate(raw string) (auth.Identity, error) {
	s.got = append(s.got, raw)
	if raw != s.want {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	return auth.Identity{UserName: "alice"}, nil
}

func runBearer(t *testing.T, v TokenValidator, header string) (bool, string, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	called := false
	var name string
	err := BearerAuth(v)(func(c echo.Context) error {
		called = true
		name, _ = UserName(c)
		return nil
	})(c)
	return called, name, err
}

func TestBearerAuth_Valid(t *testing.T) {
	v := &stubValidator{want: "good"}
	called, name, err := runBearer(t, v, "Bearer good")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "alice", name)
}

func TestBearerAuth_ExtraSpacesAfterScheme(t *testing.T) {
	called, _, err := runBearer(t, &stubValidator{want: "good"}, "Bearer   good")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestBearerAuth_MissingOrMalformedHeader(t *testing.T) {
	for _, h := range []string{"", "good", "Basic abc", "Bearer ", "Bearer", "bearer good", "BEARER good", " Bearer good"} {
		v := &stubValidator{want: "good"}
		called, _, err := runBearer(t, v, h)
		assert.False(t, called, "header %q", h)
		assert.Empty(t, v.got, "validator must not run for %q", h)
		var ae *apperr.Error
		require.True(t, errors.As(err, &ae), "header %q", h)
		assert.Equal(t, apperr.KindAuth, ae.Kind)
		assert.Equal(t, MsgMissingHeader, ae.Message)
	}
}

func TestBearerAuth_InvalidToken(t *testing.T) {
	called, _, err := runBearer(t, &stubValidator{want: "good"}, "Bearer bad")
	assert.False(t, called)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, http.StatusUnauthorized, ae.Kind.Status())
	assert.Equal(t, MsgInvalidToken, ae.Message)
}

func TestBearerAuth_RealTokenService(t *testing.T) {
	svc := auth.NewTokenService("secret", "user-service", time.Hour)
	tok, err := svc.Issue("bob")
	require.NoError(t, err)

	called, name, err := runBearer(t, svc, "Bearer "+tok.Value)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "bob", name)
}

func TestUserName_Unauthenticated(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, ok := UserName(c)
	assert.False(t, ok)
}

func newLimited(t *testing.T, cfg config.RateLimitConfig) (*echo.Echo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RateLimit(cfg, rdb, nil))
	return e, mr
}

func limitCfg() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
}

func TestRateLimit_BlocksAfterCapacity(t *testing.T) {
	e, mr := newLimited(t, limitCfg())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if i == 2 {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
			assert.Contains(t, rec.Body.String(), "message")
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.True(t, mr.Exists("rl:ip:10.0.0.1:route:POST /login"))
}

func TestRateLimit_SeparateBucketsPerIP(t *testing.T) {
	e, _ := newLimited(t, limitCfg())
	for _, ip := range []string{"10.0.0.1:1", "10.0.0.1:2", "10.0.0.2:1"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, ip)
	}
}

func TestRateLimit_FailsOpenWhenRedisDown(t *testing.T) {
	e, mr := newLimited(t, limitCfg())
	mr.Close()
	for i := 0; i < 4; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_DisabledIsPassThrough(t *testing.T) {
	cfg := limitCfg()
	cfg.Enabled = false
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RateLimit(cfg, nil, nil))
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateKey_Strategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.RemoteAddr = "1.2.3.4:5"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/x")
	c.Set(ctxUserName, "alice")

	cfg := config.RateLimitConfig{Prefix: "rl"}
	for strategy, want := range map[string]string{
		"ip":       "rl:ip:1.2.3.4",
		"route":    "rl:route:POST /x",
		"ip_route": "rl:ip:1.2.3.4:route:POST /x",
		"":         "rl:ip:1.2.3.4:route:POST /x",
		"user":     "rl:ip:1.2.3.4:route:POST /x",
	} {
		cfg.KeyStrategy = strategy
		assert.Equal(t, want, rateKey(cfg, c), strategy)
	}
}
