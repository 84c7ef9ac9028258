// Command pingpong runs the campus table-tennis booking API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/example/campus-pingpong/internal/application"
	"github.com/example/campus-pingpong/internal/clock"
	"github.com/example/campus-pingpong/internal/config"
	httptransport "github.com/example/campus-pingpong/internal/http"
	"github.com/example/campus-pingpong/internal/persistence"
	"github.com/example/campus-pingpong/internal/persistence/memory"
	"github.com/example/campus-pingpong/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gateway, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			logger.Error("failed to close snapshot store", "error", err)
		}
	}()

	snapshot, err := gateway.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	store := memory.NewStore()
	store.Restore(snapshot)
	logger.Info("state restored",
		"users", len(snapshot.Users),
		"bookings", len(snapshot.Bookings),
		"ratings", len(snapshot.Ratings))

	clk := clock.New()
	checkpointer := &snapshotCheckpointer{store: store, gateway: gateway}

	var mu sync.Mutex
	userRepo := &userRepositoryAdapter{store: store}
	bookingRepo := &bookingRepositoryAdapter{store: store}
	ratingRepo := &ratingRepositoryAdapter{store: store}

	userService := application.NewUserService(userRepo, cfg.AdminStudentIDs, &mu, checkpointer, clk.NowFunc(), logger)
	bookingService := application.NewBookingService(bookingRepo, &mu, checkpointer, clk.NowFunc(), logger)
	ratingService := application.NewRatingService(ratingRepo, bookingRepo, &mu, checkpointer, clk.NowFunc(), logger)
	clockService := application.NewClockService(clk, logger)
	sessions := application.NewSessionRegistry()

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:     httptransport.NewAuthHandler(userService, sessions, logger),
		Bookings: httptransport.NewBookingHandler(bookingService, logger),
		Users:    httptransport.NewUserHandler(userService, ratingService, logger),
		Ratings:  httptransport.NewRatingHandler(ratingService, logger),
		Clock:    httptransport.NewClockHandler(clockService, logger),

		RequireSession: httptransport.RequireSession(sessions, logger),
		AuthRateLimit:  httptransport.RateLimit(rate.Limit(cfg.AuthRateLimit), cfg.AuthRateBurst, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down", "timeout", cfg.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// snapshotCheckpointer writes the store's full state through the SQLite
// gateway after each mutation.
type snapshotCheckpointer struct {
	store   *memory.Store
	gateway *sqlite.Gateway
}

func (c *snapshotCheckpointer) Checkpoint(ctx context.Context) error {
	return c.gateway.Save(ctx, c.store.Snapshot())
}

type userRepositoryAdapter struct {
	store *memory.Store
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User) (application.User, error) {
	created, err := a.store.CreateUser(ctx, toPersistenceUser(user))
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(created), nil
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id int64) (application.User, error) {
	found, err := a.store.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(found), nil
}

func (a *userRepositoryAdapter) GetUserByStudentID(ctx context.Context, studentID string) (application.User, error) {
	found, err := a.store.GetUserByStudentID(ctx, studentID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(found), nil
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, user application.User) (application.User, error) {
	updated, err := a.store.UpdateUser(ctx, toPersistenceUser(user))
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(updated), nil
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	users, err := a.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]application.User, 0, len(users))
	for _, u := range users {
		result = append(result, toApplicationUser(u))
	}
	return result, nil
}

type bookingRepositoryAdapter struct {
	store *memory.Store
}

func (a *bookingRepositoryAdapter) CreateBooking(ctx context.Context, b application.Booking) (application.Booking, error) {
	created, err := a.store.CreateBooking(ctx, toPersistenceBooking(b))
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(created), nil
}

func (a *bookingRepositoryAdapter) GetBooking(ctx context.Context, id int64) (application.Booking, error) {
	found, err := a.store.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(found), nil
}

func (a *bookingRepositoryAdapter) UpdateBooking(ctx context.Context, b application.Booking) (application.Booking, error) {
	updated, err := a.store.UpdateBooking(ctx, toPersistenceBooking(b))
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(updated), nil
}

func (a *bookingRepositoryAdapter) DeleteBooking(ctx context.Context, id int64) error {
	return a.store.DeleteBooking(ctx, id)
}

func (a *bookingRepositoryAdapter) ListBookings(ctx context.Context) ([]application.Booking, error) {
	bookings, err := a.store.ListBookings(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]application.Booking, 0, len(bookings))
	for _, b := range bookings {
		result = append(result, toApplicationBooking(b))
	}
	return result, nil
}

type ratingRepositoryAdapter struct {
	store *memory.Store
}

func (a *ratingRepositoryAdapter) CreateRating(ctx context.Context, r application.Rating) (application.Rating, error) {
	created, err := a.store.CreateRating(ctx, toPersistenceRating(r))
	if err != nil {
		return application.Rating{}, err
	}
	return toApplicationRating(created), nil
}

func (a *ratingRepositoryAdapter) ListRatingsForBooking(ctx context.Context, bookingID int64) ([]application.Rating, error) {
	ratings, err := a.store.ListRatingsForBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return toApplicationRatings(ratings), nil
}

func (a *ratingRepositoryAdapter) ListRatingsForRated(ctx context.Context, ratedStudentID string) ([]application.Rating, error) {
	ratings, err := a.store.ListRatingsForRated(ctx, ratedStudentID)
	if err != nil {
		return nil, err
	}
	return toApplicationRatings(ratings), nil
}

func (a *ratingRepositoryAdapter) ListRatingsByRater(ctx context.Context, raterStudentID string) ([]application.Rating, error) {
	ratings, err := a.store.ListRatingsByRater(ctx, raterStudentID)
	if err != nil {
		return nil, err
	}
	return toApplicationRatings(ratings), nil
}

func toPersistenceUser(u application.User) persistence.User {
	return persistence.User{
		ID:           u.ID,
		Name:         u.Name,
		StudentID:    u.StudentID,
		PasswordHash: u.PasswordHash,
		Bio:          u.Bio,
		Level:        u.Level,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
	}
}

func toApplicationUser(u persistence.User) application.User {
	return application.User{
		ID:           u.ID,
		Name:         u.Name,
		StudentID:    u.StudentID,
		PasswordHash: u.PasswordHash,
		Bio:          u.Bio,
		Level:        u.Level,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
	}
}

func toPersistenceBooking(b application.Booking) persistence.Booking {
	participants := make([]persistence.Participant, 0, len(b.Participants))
	for _, p := range b.Participants {
		participants = append(participants, persistence.Participant{Name: p.Name, StudentID: p.StudentID})
	}
	return persistence.Booking{
		ID:             b.ID,
		Name:           b.Name,
		StudentID:      b.StudentID,
		Day:            b.Day,
		Date:           b.Date,
		Time:           b.Time,
		Table:          b.Table,
		MaxPlayers:     b.MaxPlayers,
		CurrentPlayers: b.CurrentPlayers,
		Participants:   participants,
		Status:         string(b.Status),
		CreatedAt:      b.CreatedAt,
	}
}

func toApplicationBooking(b persistence.Booking) application.Booking {
	participants := make([]application.Participant, 0, len(b.Participants))
	for _, p := range b.Participants {
		participants = append(participants, application.Participant{Name: p.Name, StudentID: p.StudentID})
	}
	return application.Booking{
		ID:             b.ID,
		Name:           b.Name,
		StudentID:      b.StudentID,
		Day:            b.Day,
		Date:           b.Date,
		Time:           b.Time,
		Table:          b.Table,
		MaxPlayers:     b.MaxPlayers,
		CurrentPlayers: b.CurrentPlayers,
		Participants:   participants,
		Status:         application.BookingStatus(b.Status),
		CreatedAt:      b.CreatedAt,
	}
}

func toPersistenceRating(r application.Rating) persistence.Rating {
	return persistence.Rating{
		ID:             r.ID,
		BookingID:      r.BookingID,
		RaterStudentID: r.RaterStudentID,
		RatedStudentID: r.RatedStudentID,
		Skill:          r.Skill,
		Pleasure:       r.Pleasure,
		CreatedAt:      r.CreatedAt,
	}
}

func toApplicationRating(r persistence.Rating) application.Rating {
	return application.Rating{
		ID:             r.ID,
		BookingID:      r.BookingID,
		RaterStudentID: r.RaterStudentID,
		RatedStudentID: r.RatedStudentID,
		Skill:          r.Skill,
		Pleasure:       r.Pleasure,
		CreatedAt:      r.CreatedAt,
	}
}

func toApplicationRatings(ratings []persistence.Rating) []application.Rating {
	result := make([]application.Rating, 0, len(ratings))
	for _, r := range ratings {
		result = append(result, toApplicationRating(r))
	}
	return result
}
