package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	authdomain "eportfolio/backend/internal/domain/auth"
	authusecase "eportfolio/backend/internal/usecase/auth"
)

type ctxKeyClaims struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r.Header.Get("Authorization"))

		claims, err := s.authService.VerifyToken(r.Context(), token)
		if err != nil {
			s.rejectToken(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyClaims{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) rejectToken(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authdomain.ErrMissingToken):
		s.metrics.guardRejections.WithLabelValues(rejectMissingToken).Inc()
		writeError(w, http.StatusUnauthorized, "Access denied. No token provided.")
	case errors.Is(err, authdomain.ErrTokenExpired):
		s.metrics.guardRejections.WithLabelValues(rejectExpiredToken).Inc()
		s.logger.InfoContext(r.Context(), "expired token rejected", "path", r.URL.Path)
		writeError(w, http.StatusForbidden, "Invalid token.")
	case errors.Is(err, authdomain.ErrTokenInvalid):
		s.metrics.guardRejections.WithLabelValues(rejectInvalidToken).Inc()
		s.logger.WarnContext(r.Context(), "invalid token rejected", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusForbidden, "Invalid token.")
	default:
		s.serverError(w, r, "verify token", err)
	}
}

// requireRole must run after authMiddleware.
func (s *Server) requireRole(role authdomain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFromContext(r.Context())
			if !ok {
				s.metrics.guardRejections.WithLabelValues(rejectMissingToken).Inc()
				writeError(w, http.StatusUnauthorized, "Access denied. No token provided.")
				return
			}
			if err := authusecase.Authorize(claims, role); err != nil {
				s.denyRole(w, r, claims, role)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) denyRole(w http.ResponseWriter, r *http.Request, claims authdomain.Claims, required authdomain.Role) {
	s.metrics.guardRejections.WithLabelValues(rejectRole).Inc()
	s.logger.InfoContext(r.Context(), "role denied",
		"path", r.URL.Path,
		"role", string(claims.Role),
		"required", string(required),
	)
	writeError(w, http.StatusForbidden, "Insufficient role.")
}

func claimsFromContext(ctx context.Context) (authdomain.Claims, bool) {
	claims, ok := ctx.Value(ctxKeyClaims{}).(authdomain.Claims)
	if !ok || claims.SubjectID == "" {
		return authdomain.Claims{}, false
	}
	return claims, true
}

func extractBearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
