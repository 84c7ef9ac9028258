package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/campus-pingpong/internal/clock"
)

// ClockService exposes the virtual-time controls to administrators so that
// window and sweep behavior can be exercised without waiting for wall time.
type ClockService struct {
	clock  *clock.Clock
	logger *slog.Logger
}

// NewClockService wires dependencies for the clock service.
func NewClockService(c *clock.Clock, logger *slog.Logger) *ClockService {
	return &ClockService{clock: c, logger: defaultLogger(logger)}
}

// Status reports the current clock configuration for administrators.
func (s *ClockService) Status(ctx context.Context, principal Principal) (ClockStatus, error) {
	if s == nil || s.clock == nil {
		return ClockStatus{}, fmt.Errorf("clock service not configured")
	}
	if !principal.Authenticated() {
		return ClockStatus{}, ErrAuthenticationRequired
	}
	if !principal.IsAdmin {
		return ClockStatus{}, ErrUnauthorized
	}

	testMode, virtual := s.clock.State()
	return ClockStatus{
		TestMode:    testMode,
		VirtualTime: virtual,
		CurrentTime: s.clock.Now(),
		RealTime:    s.clock.Real(),
	}, nil
}

// Configure toggles test mode and pins the virtual instant.
func (s *ClockService) Configure(ctx context.Context, params ConfigureClockParams) (ClockStatus, error) {
	if s == nil || s.clock == nil {
		return ClockStatus{}, fmt.Errorf("clock service not configured")
	}
	if !params.Principal.Authenticated() {
		return ClockStatus{}, ErrAuthenticationRequired
	}
	if !params.Principal.IsAdmin {
		return ClockStatus{}, ErrUnauthorized
	}

	if params.Enabled != nil {
		s.clock.SetTestMode(*params.Enabled)
	}
	if params.VirtualTime != nil {
		s.clock.SetVirtual(*params.VirtualTime)
	}

	testMode, virtual := s.clock.State()
	serviceLogger(ctx, s.logger, "ClockService", "Configure", "actor_id", params.Principal.StudentID).
		InfoContext(ctx, "clock configured", "test_mode", testMode, "virtual_time", virtual)

	return ClockStatus{
		TestMode:    testMode,
		VirtualTime: virtual,
		CurrentTime: s.clock.Now(),
		RealTime:    s.clock.Real(),
	}, nil
}
