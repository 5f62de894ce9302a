package mockapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
	"github.com/dmitrijs2005/incidentdesk/internal/common"
)

// StructuredLogger logs every request with zap and echoes the request id.
func StructuredLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := chimw.GetReqID(r.Context())
			if reqID != "" {
				w.Header().Set(common.RequestIDHeaderName, reqID)
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("HTTP Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", reqID),
			)
		})
	}
}

type ctxKey string

const userKey ctxKey = "user"

func userFrom(ctx context.Context) models.UserProfile {
	p, _ := ctx.Value(userKey).(models.UserProfile)
	return p
}

// requireAuth accepts a bearer access token of the current generation and
// stores the caller's profile in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			s.respondDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		claims, err := ParseToken(strings.TrimPrefix(header, common.BearerPrefix), TokenAccess, s.secret)
		if err != nil || claims.Generation < s.accessGen.Load() {
			s.respondTokenInvalid(w)
			return
		}

		user, ok := s.store.User(claims.UserID)
		if !ok {
			s.respondTokenInvalid(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}
