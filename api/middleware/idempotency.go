package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/carbidz-backend/api/responses"
	pkgerrors "github.com/angelmondragon/carbidz-backend/pkg/errors"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/carbidz-backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayHeader      = "Idempotent-Replay"
	IdempotencyTTL    = 24 * time.Hour
)

// savedResponse is what a key maps to in Redis. Body is base64 in JSON.
type savedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	BodyHash    string `json:"body_hash"`
}

// Idempotency replays the first response stored for a caller's
// Idempotency-Key on the wrapped route. Requests without the header pass
// straight through, and 5xx responses are never stored so the caller may retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			bodyHash := hex.EncodeToString(sum[:])
			key := store.IdempotencyKey(scopeOf(r), clientKey)

			saved, found, err := lookup(r, store, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if found {
				if saved.BodyHash != bodyHash {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotency key reused with different request body"))
					return
				}
				replay(w, saved)
				return
			}

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				return
			}
			payload, err := json.Marshal(savedResponse{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
				BodyHash:    bodyHash,
			})
			if err == nil {
				_, err = store.SetNX(ctx, key, string(payload), IdempotencyTTL)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

// scopeOf keeps keys from colliding across callers and routes.
func scopeOf(r *http.Request) string {
	return IdentityFromContext(r.Context()) + "|" + r.Method + "|" + r.URL.Path
}

func lookup(r *http.Request, store pkgredis.IdempotencyStore, key string) (savedResponse, bool, error) {
	var saved savedResponse
	raw, err := store.Get(r.Context(), key)
	switch {
	case errors.Is(err, redis.Nil), err == nil && raw == "":
		return saved, false, nil
	case err != nil:
		return saved, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return saved, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return saved, true, nil
}

func replay(w http.ResponseWriter, saved savedResponse) {
	if saved.ContentType != "" {
		w.Header().Set("Content-Type", saved.ContentType)
	}
	w.Header().Set(ReplayHeader, "true")
	w.WriteHeader(saved.Status)
	_, _ = w.Write(saved.Body)
}
