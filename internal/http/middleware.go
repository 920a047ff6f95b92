package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/hackutd/harp-sub001/internal/auth"
	"github.com/hackutd/harp-sub001/internal/model"
)

const sessionCookie = "sAccessToken"

type userKey struct{}

func userFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userKey{}).(*model.User)
	return user
}

func withUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// sessionMiddleware verifies the identity provider token and loads, or
// creates, the portal user behind it.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		claims, err := s.verifier.Parse(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		user, created, err := auth.SyncUser(r.Context(), s.users, claims, s.log)
		if err != nil {
			var mismatch *auth.MethodMismatchError
			if errors.As(err, &mismatch) {
				writeJSON(w, http.StatusConflict, map[string]string{
					"error":           "auth_method_mismatch",
					"expected_method": string(mismatch.Expected),
				})
				return
			}
			s.serverError(w, r, err)
			return
		}
		if created {
			s.log.WithFields(logrus.Fields{"user_id": user.ID, "auth_method": user.AuthMethod}).Info("user created")
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func requireRole(min model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := userFromContext(r.Context())
			if user == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !user.Role.AtLeast(min) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if user := userFromContext(r.Context()); user != nil {
			key = user.ID
		}
		decision := s.limiter.Allow(r.Context(), key)
		if !decision.Allowed {
			if s.metrics != nil {
				s.metrics.RateLimited.Inc()
			}
			seconds := int(decision.RetryAfter.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeError(w, http.StatusTooManyRequests, "rate_limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}

func sessionToken(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
