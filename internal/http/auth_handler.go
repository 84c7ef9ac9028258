package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/campus-pingpong/internal/application"
)

type authService interface {
	Register(ctx context.Context, params application.RegisterParams) (application.User, error)
	Authenticate(ctx context.Context, params application.AuthenticateParams) (application.User, error)
}

type sessionIssuer interface {
	Issue(principal application.Principal) string
}

type AuthHandler struct {
	service   authService
	sessions  sessionIssuer
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, sessions sessionIssuer, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, sessions: sessions, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// Register creates an account and immediately opens a session for it.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Register", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode register request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Register", "student_id", req.StudentID)

	user, err := h.service.Register(r.Context(), application.RegisterParams{
		Name:            req.Name,
		StudentID:       req.StudentID,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		if errors.Is(err, application.ErrAlreadyExists) {
			logger.ErrorContext(r.Context(), "registration rejected", "error", err, "error_kind", application.ErrorKind(err))
			h.responder.writeFailure(r.Context(), w, http.StatusBadRequest, "this student id is already registered")
			return
		}
		logger.ErrorContext(r.Context(), "registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	token := h.sessions.Issue(principalFor(user))
	logger.With("user_id", user.ID).InfoContext(r.Context(), "user registered and logged in")

	h.responder.writeSuccess(r.Context(), w, "registration successful", envelope{
		"sessionId": token,
		"user":      toSessionUserDTO(user),
	})
}

// Login verifies credentials and opens a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Login", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode login request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Login", "student_id", req.StudentID)

	user, err := h.service.Authenticate(r.Context(), application.AuthenticateParams{
		StudentID: req.StudentID,
		Password:  req.Password,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "authentication failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	token := h.sessions.Issue(principalFor(user))
	logger.With("user_id", user.ID).InfoContext(r.Context(), "user authenticated")

	h.responder.writeSuccess(r.Context(), w, "login successful", envelope{
		"sessionId": token,
		"user":      toSessionUserDTO(user),
	})
}

// CurrentUser reports the principal bound to the presented session.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	h.responder.writeSuccess(r.Context(), w, "", envelope{
		"user": currentUserDTO{
			UserID:    principal.UserID,
			StudentID: principal.StudentID,
			Name:      principal.Name,
			IsAdmin:   principal.IsAdmin,
		},
	})
}

func principalFor(user application.User) application.Principal {
	return application.Principal{
		UserID:    user.ID,
		StudentID: user.StudentID,
		Name:      user.Name,
		IsAdmin:   user.IsAdmin,
	}
}

type registerRequest struct {
	Name            string `json:"name"`
	StudentID       string `json:"studentId"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	StudentID string `json:"studentId"`
	Password  string `json:"password"`
}

type sessionUserDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
	IsAdmin   bool   `json:"isAdmin"`
}

func toSessionUserDTO(user application.User) sessionUserDTO {
	return sessionUserDTO{
		ID:        user.ID,
		Name:      user.Name,
		StudentID: user.StudentID,
		IsAdmin:   user.IsAdmin,
	}
}

type currentUserDTO struct {
	UserID    int64  `json:"userId"`
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	IsAdmin   bool   `json:"isAdmin"`
}
