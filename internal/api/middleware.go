package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/codewithboateng/drulift/internal/storage"
)

type ctxKey int

const userKey ctxKey = 1

func withAuth(s *Server, next http.HandlerFunc, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, err := readSessionCookie(r)
		if err != nil {
			s.err(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		u, err := s.UserStore.GetSession(tok)
		if err != nil {
			s.err(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		_ = s.UserStore.LogAudit(u.Username, action, r.URL.Path, map[string]any{"method": r.Method})
		ctx := context.WithValue(r.Context(), userKey, u)
		next(w, r.WithContext(ctx))
	}
}

// withAdmin is withAuth restricted to the admin role.
func withAdmin(s *Server, next http.HandlerFunc, action string) http.HandlerFunc {
	return withAuth(s, func(w http.ResponseWriter, r *http.Request) {
		u, ok := userFromCtx(r.Context())
		if !ok || u.Role != storage.RoleAdmin {
			s.err(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r)
	}, action)
}

func userFromCtx(ctx context.Context) (storage.User, bool) {
	u, ok := ctx.Value(userKey).(storage.User)
	return u, ok
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
