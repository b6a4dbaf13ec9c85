package httpserver

import (
	"errors"
	"net/http"

	authdomain "eportfolio/backend/internal/domain/auth"
	userusecase "eportfolio/backend/internal/usecase/user"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	s.mountAuthRoutes(s.router)
	s.router.Route("/api", func(r chi.Router) {
		s.mountAuthRoutes(r)

		r.With(s.authMiddleware).Get("/dashboards/{role}", s.handleDashboard)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authMiddleware, s.requireRole(authdomain.RoleAdmin))
			r.Get("/users", s.handleListUsers)
			r.Post("/users", s.handleCreateUser)
			r.Get("/users/{userID}", s.handleGetUser)
		})
	})
}

func (s *Server) mountAuthRoutes(r chi.Router) {
	r.Post("/login", s.handleLogin)
	r.With(s.authMiddleware).Get("/profile", s.handleProfile)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    *authdomain.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		s.metrics.logins.WithLabelValues(loginBadRequest).Inc()
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	token, user, err := s.authService.Login(r.Context(), authdomain.Credentials{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrInvalidCredentials):
			s.metrics.logins.WithLabelValues(loginInvalid).Inc()
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, authdomain.ErrLoginRateLimited):
			s.metrics.logins.WithLabelValues(loginRateLimited).Inc()
			writeError(w, http.StatusTooManyRequests, "Too many login attempts.")
		default:
			s.metrics.logins.WithLabelValues(loginError).Inc()
			s.serverError(w, r, "login", err)
		}
		return
	}

	s.metrics.logins.WithLabelValues(loginSuccess).Inc()
	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful",
		Token:   token,
		User:    user,
	})
}

type profileClaims struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IssuedAt int64  `json:"iat"`
	Expires  int64  `json:"exp"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access denied. No token provided.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": profileClaims{
			ID:       claims.SubjectID,
			Email:    claims.Email,
			Role:     string(claims.Role),
			IssuedAt: claims.IssuedAt.Unix(),
			Expires:  claims.ExpiresAt.Unix(),
		},
	})
}

type dashboardResponse struct {
	Role        authdomain.Role       `json:"role"`
	DefaultPath string                `json:"defaultPath"`
	Navigation  []authdomain.NavEntry `json:"navigation"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access denied. No token provided.")
		return
	}

	role := authdomain.Role(chi.URLParam(r, "role"))
	if !role.Valid() {
		writeError(w, http.StatusNotFound, "Unknown dashboard.")
		return
	}
	if claims.Role != role {
		s.denyRole(w, r, claims, role)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Role:        role,
		DefaultPath: authdomain.DefaultPath(role),
		Navigation:  authdomain.Navigation(role),
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userService.List(r.Context(), userusecase.Filter{
		Role: r.URL.Query().Get("role"),
	})
	if err != nil {
		if errors.Is(err, authdomain.ErrInvalidRole) {
			writeError(w, http.StatusBadRequest, "Unknown role.")
			return
		}
		s.serverError(w, r, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

type createUserRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatarUrl"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var payload createUserRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := s.userService.Create(r.Context(), userusecase.CreateInput{
		Email:     payload.Email,
		Name:      payload.Name,
		Password:  payload.Password,
		Role:      payload.Role,
		AvatarURL: payload.AvatarURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrEmailExists):
			writeError(w, http.StatusConflict, "Email already registered.")
		case errors.Is(err, authdomain.ErrInvalidRole):
			writeError(w, http.StatusBadRequest, "Unknown role.")
		case errors.Is(err, userusecase.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.serverError(w, r, "create user", err)
		}
		return
	}

	s.logger.InfoContext(r.Context(), "user created", "user_id", user.ID, "role", string(user.Role))
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.userService.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found.")
		case errors.Is(err, userusecase.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.serverError(w, r, "get user", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.ErrorContext(r.Context(), "request failed", "op", op, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "Server error")
}
