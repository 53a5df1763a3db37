package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/carbidz-backend/pkg/auth"
	"github.com/angelmondragon/carbidz-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/carbidz-backend/pkg/errors"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/carbidz-backend/pkg/redis"
	"github.com/angelmondragon/carbidz-backend/pkg/types"
)

var jwtCfg = config.JWTConfig{Secret: "secret", Issuer: "carbidz-identity", ExpirationMinutes: 10}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func statusHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
}

func TestAuth(t *testing.T) {
	valid, err := auth.MintAccessToken(jwtCfg, time.Now(), "alice")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	expired, err := auth.MintAccessToken(jwtCfg, time.Now().Add(-time.Hour), "alice")
	if err != nil {
		t.Fatalf("mint expired: %v", err)
	}

	cases := map[string]struct {
		header   string
		status   int
		identity string
	}{
		"missing header": {status: http.StatusUnauthorized},
		"garbage token":  {header: "Bearer invalid", status: http.StatusUnauthorized},
		"expired token":  {header: "Bearer " + expired, status: http.StatusUnauthorized},
		"valid token":    {header: "Bearer " + valid, status: http.StatusOK, identity: "alice"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var identity string
			handler := Auth(jwtCfg, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				identity = IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)

			if resp.Code != tc.status || identity != tc.identity {
				t.Fatalf("got status %d identity %q, want %d %q", resp.Code, identity, tc.status, tc.identity)
			}
			if tc.status == http.StatusUnauthorized {
				var body types.ErrorEnvelope
				if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body.Error.Code != string(pkgerrors.CodeUnauthorized) {
					t.Fatalf("unexpected error code %q", body.Error.Code)
				}
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		want   string
		ok     bool
	}{
		"bearer":    {header: "Bearer abc", want: "abc", ok: true},
		"lowercase": {header: "bearer  abc ", want: "abc", ok: true},
		"bare":      {header: "abc", want: "abc", ok: true},
		"empty":     {header: "", ok: false},
		"no token":  {header: "Bearer ", ok: false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tc.header)
			got, ok := bearerToken(req)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("bearerToken(%q) = %q, %v", tc.header, got, ok)
			}
		})
	}
}

func TestRequestIDEchoesOrMints(t *testing.T) {
	handler := RequestID(nil)(statusHandler(http.StatusOK))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get(requestIDHeader); got != "req-1" {
		t.Fatalf("expected echoed id, got %q", got)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected a minted request id")
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", resp.Code)
	}
}

func TestLoggingRecordsCompletion(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := Logging(logger.New(logger.Options{ServiceName: "test", Output: buf}))(statusHandler(http.StatusCreated))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/bids", nil))
	if !strings.Contains(buf.String(), `"status":201`) {
		t.Fatalf("status missing from log: %s", buf.String())
	}
}

// bidRoute counts handler runs behind the idempotency middleware, backed by
// an in-memory redis.
type bidRoute struct {
	http.Handler
	calls int
	redis *miniredis.Miniredis
}

func newBidRoute(t *testing.T, status int) *bidRoute {
	t.Helper()
	mr := miniredis.RunT(t)
	store := pkgredis.NewFromRedis(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	route := &bidRoute{redis: mr}

	r := chi.NewRouter()
	r.With(Idempotency(store, quietLogger())).Post("/api/bids", func(w http.ResponseWriter, _ *http.Request) {
		route.calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"data":{"call":%d}}`, route.calls)
	})
	route.Handler = r
	return route
}

func (b *bidRoute) post(key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/bids", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	resp := httptest.NewRecorder()
	b.ServeHTTP(resp, req)
	return resp
}

func (b *bidRoute) expectCalls(t *testing.T, want int) {
	t.Helper()
	if b.calls != want {
		t.Fatalf("handler ran %d times, want %d", b.calls, want)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	route := newBidRoute(t, http.StatusCreated)

	first := route.post("key-1", `{"amount":10}`)
	second := route.post("key-1", `{"amount":10}`)

	if route.calls != 1 {
		t.Fatalf("handler ran %d times", route.calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Fatalf("replay %d %s, want %d %s", second.Code, second.Body.String(), first.Code, first.Body.String())
	}
	if second.Header().Get(ReplayHeader) != "true" || second.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected replay headers %v", second.Header())
	}
}

func TestIdempotencyKeyExpires(t *testing.T) {
	route := newBidRoute(t, http.StatusCreated)
	route.post("key-1", `{"amount":10}`)

	route.redis.FastForward(IdempotencyTTL + time.Second)
	route.post("key-1", `{"amount":10}`)
	route.expectCalls(t, 2)
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	route := newBidRoute(t, http.StatusCreated)
	route.post("key-1", `{"amount":10}`)

	resp := route.post("key-1", `{"amount":20}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	route.expectCalls(t, 1)
}

func TestIdempotencyPassesThroughWithoutKey(t *testing.T) {
	route := newBidRoute(t, http.StatusCreated)
	route.post("", `{}`)
	route.post("", `{}`)
	route.expectCalls(t, 2)
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	route := newBidRoute(t, http.StatusServiceUnavailable)
	route.post("key-2", `{}`)
	route.post("key-2", `{}`)
	route.expectCalls(t, 2)
}
