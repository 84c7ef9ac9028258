package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/campus-pingpong/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	return logging.OrDefault(logger)
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = logging.OrDefault(base)
	}

	pairs := append([]any{"service", serviceName, "operation", operation}, attrs...)
	return logger.With(pairs...)
}

// ErrorKind maps sentinel, validation, and business rule errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return "authentication_required"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	var bErr *BusinessRuleError
	if errors.As(err, &bErr) {
		return "business_rule"
	}

	return "unexpected"
}
