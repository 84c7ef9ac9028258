package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/campus-pingpong/internal/application"
)

type stubAuthService struct {
	registerUser application.User
	registerErr  error
	authUser     application.User
	authErr      error
}

func (s *stubAuthService) Register(ctx context.Context, params application.RegisterParams) (application.User, error) {
	return s.registerUser, s.registerErr
}

func (s *stubAuthService) Authenticate(ctx context.Context, params application.AuthenticateParams) (application.User, error) {
	return s.authUser, s.authErr
}

type stubBookingService struct {
	booking     application.Booking
	bookings    []application.Booking
	err         error
	gotBooking  int64
	gotJoin     application.JoinBookingParams
	deleteCalls int
}

func (s *stubBookingService) Create(ctx context.Context, params application.CreateBookingParams) (application.Booking, error) {
	return s.booking, s.err
}

func (s *stubBookingService) Join(ctx context.Context, params application.JoinBookingParams) (application.Booking, error) {
	s.gotJoin = params
	return s.booking, s.err
}

func (s *stubBookingService) Leave(ctx context.Context, principal application.Principal, bookingID int64) (application.Booking, error) {
	s.gotBooking = bookingID
	return s.booking, s.err
}

func (s *stubBookingService) Cancel(ctx context.Context, principal application.Principal, bookingID int64) (application.Booking, error) {
	s.gotBooking = bookingID
	return s.booking, s.err
}

func (s *stubBookingService) AdminDelete(ctx context.Context, principal application.Principal, bookingID int64) error {
	s.gotBooking = bookingID
	s.deleteCalls++
	return s.err
}

func (s *stubBookingService) List(ctx context.Context) ([]application.Booking, error) {
	return s.bookings, s.err
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func sampleBooking() application.Booking {
	return application.Booking{
		ID:             7,
		Name:           "Alice",
		StudentID:      "1001",
		Day:            "today",
		Date:           "2024-06-10",
		Time:           "18:00",
		Table:          "T1",
		MaxPlayers:     4,
		CurrentPlayers: 1,
		Participants:   []application.Participant{{Name: "Alice", StudentID: "1001"}},
		Status:         application.StatusActive,
		CreatedAt:      time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestAuthHandler_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates the account and opens a session", func(t *testing.T) {
		t.Parallel()
		service := &stubAuthService{registerUser: application.User{ID: 1, Name: "Alice", StudentID: "1001"}}
		handler := NewAuthHandler(service, application.NewSessionRegistry(), nil)

		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(
			`{"name":"Alice","studentId":"1001","password":"pw","confirmPassword":"pw"}`))
		rec := httptest.NewRecorder()
		handler.Register(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeEnvelope(t, rec)
		if body["success"] != true {
			t.Fatalf("expected success envelope, got %v", body)
		}
		if token, _ := body["sessionId"].(string); token == "" {
			t.Fatalf("expected session token, got %v", body)
		}
		user, _ := body["user"].(map[string]any)
		if user["studentId"] != "1001" {
			t.Fatalf("expected user payload, got %v", body)
		}
	})

	t.Run("maps duplicate registration to 400", func(t *testing.T) {
		t.Parallel()
		service := &stubAuthService{registerErr: application.ErrAlreadyExists}
		handler := NewAuthHandler(service, application.NewSessionRegistry(), nil)

		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(
			`{"name":"Alice","studentId":"1001","password":"pw","confirmPassword":"pw"}`))
		rec := httptest.NewRecorder()
		handler.Register(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		body := decodeEnvelope(t, rec)
		if body["success"] != false || body["message"] != "this student id is already registered" {
			t.Fatalf("unexpected body %v", body)
		}
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		t.Parallel()
		handler := NewAuthHandler(&stubAuthService{}, application.NewSessionRegistry(), nil)

		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		handler.Register(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("surfaces validation details", func(t *testing.T) {
		t.Parallel()
		vErr := &application.ValidationError{FieldErrors: map[string]string{"confirmPassword": "passwords do not match"}}
		handler := NewAuthHandler(&stubAuthService{registerErr: vErr}, application.NewSessionRegistry(), nil)

		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		handler.Register(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		body := decodeEnvelope(t, rec)
		if body["message"] != "passwords do not match" {
			t.Fatalf("expected field message surfaced, got %v", body)
		}
		if _, ok := body["errors"].(map[string]any); !ok {
			t.Fatalf("expected errors object, got %v", body)
		}
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Parallel()

	t.Run("issues a session on valid credentials", func(t *testing.T) {
		t.Parallel()
		registry := application.NewSessionRegistry()
		service := &stubAuthService{authUser: application.User{ID: 2, Name: "Bob", StudentID: "1002", IsAdmin: true}}
		handler := NewAuthHandler(service, registry, nil)

		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"studentId":"1002","password":"pw"}`))
		rec := httptest.NewRecorder()
		handler.Login(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeEnvelope(t, rec)
		token, _ := body["sessionId"].(string)
		principal, err := registry.Resolve(token)
		if err != nil {
			t.Fatalf("expected issued token to resolve, got %v", err)
		}
		if principal.UserID != 2 || !principal.IsAdmin {
			t.Fatalf("unexpected principal %+v", principal)
		}
	})

	t.Run("maps bad credentials to 401", func(t *testing.T) {
		t.Parallel()
		handler := NewAuthHandler(&stubAuthService{authErr: application.ErrInvalidCredentials}, application.NewSessionRegistry(), nil)

		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"studentId":"1002","password":"pw"}`))
		rec := httptest.NewRecorder()
		handler.Login(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		body := decodeEnvelope(t, rec)
		if body["message"] != "incorrect student id or password" {
			t.Fatalf("unexpected message %v", body)
		}
	})
}

func TestAuthHandler_CurrentUser(t *testing.T) {
	t.Parallel()

	handler := NewAuthHandler(&stubAuthService{}, application.NewSessionRegistry(), nil)

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	principal := application.Principal{UserID: 3, StudentID: "1003", Name: "Cara"}
	req = req.WithContext(ContextWithPrincipal(req.Context(), principal))
	rec := httptest.NewRecorder()
	handler.CurrentUser(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	user, _ := body["user"].(map[string]any)
	if user["userId"] != float64(3) || user["studentId"] != "1003" {
		t.Fatalf("unexpected user payload %v", body)
	}
}

func TestBookingHandler_ErrorMapping(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err        error
		wantStatus int
		wantMsg    string
	}{
		"business rule is 400": {
			err:        application.ErrBookingFull,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "this booking is already full",
		},
		"authorization is 403 with specific message": {
			err:        application.ErrNotOrganizer,
			wantStatus: http.StatusForbidden,
			wantMsg:    "only the organizer can cancel this booking",
		},
		"missing booking is 404": {
			err:        application.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantMsg:    "the requested resource was not found",
		},
		"unexpected failure is 500": {
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "server error: disk on fire",
		},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			handler := NewBookingHandler(&stubBookingService{err: tc.err}, nil)

			req := httptest.NewRequest(http.MethodPut, "/bookings/7/cancel", nil)
			req = req.WithContext(ContextWithBookingID(req.Context(), 7))
			rec := httptest.NewRecorder()
			handler.Cancel(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			body := decodeEnvelope(t, rec)
			if body["success"] != false || body["message"] != tc.wantMsg {
				t.Fatalf("unexpected body %v", body)
			}
		})
	}
}

func TestBookingHandler_Create(t *testing.T) {
	t.Parallel()

	service := &stubBookingService{booking: sampleBooking()}
	handler := NewBookingHandler(service, nil)

	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(
		`{"name":"Alice","studentId":"1001","day":"today","time":"18","table":"T1","maxPlayers":4}`))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	booking, _ := body["booking"].(map[string]any)
	if booking["actualDate"] != "2024-06-10" || booking["time"] != "18:00" {
		t.Fatalf("unexpected booking payload %v", body)
	}
	participants, _ := booking["participants"].([]any)
	if len(participants) != 1 {
		t.Fatalf("expected roster in payload, got %v", booking)
	}
}

func TestRouter_BookingRoutes(t *testing.T) {
	t.Parallel()

	t.Run("join resolves the path identifier", func(t *testing.T) {
		t.Parallel()
		service := &stubBookingService{booking: sampleBooking()}
		router := NewRouter(RouterConfig{Bookings: NewBookingHandler(service, nil)})

		req := httptest.NewRequest(http.MethodPut, "/bookings/7/join", strings.NewReader(
			`{"name":"Bob","studentId":"1002"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if service.gotJoin.BookingID != 7 || service.gotJoin.StudentID != "1002" {
			t.Fatalf("expected join params from path and body, got %+v", service.gotJoin)
		}
	})

	t.Run("rejects non-numeric booking identifiers", func(t *testing.T) {
		t.Parallel()
		router := NewRouter(RouterConfig{Bookings: NewBookingHandler(&stubBookingService{}, nil)})

		req := httptest.NewRequest(http.MethodPut, "/bookings/abc/join", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("delete requires a session when configured", func(t *testing.T) {
		t.Parallel()
		service := &stubBookingService{}
		registry := application.NewSessionRegistry()
		router := NewRouter(RouterConfig{
			Bookings:       NewBookingHandler(service, nil),
			RequireSession: RequireSession(registry, nil),
		})

		req := httptest.NewRequest(http.MethodDelete, "/bookings/7", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if service.deleteCalls != 0 {
			t.Fatalf("expected handler untouched, got %d calls", service.deleteCalls)
		}

		token := registry.Issue(application.Principal{UserID: 99, StudentID: "9001", IsAdmin: true})
		req = httptest.NewRequest(http.MethodDelete, "/bookings/7", nil)
		req.Header.Set("Authorization", token)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if service.gotBooking != 7 || service.deleteCalls != 1 {
			t.Fatalf("expected delete for booking 7, got %+v", service)
		}
	})

	t.Run("list stays open", func(t *testing.T) {
		t.Parallel()
		service := &stubBookingService{bookings: []application.Booking{sampleBooking()}}
		router := NewRouter(RouterConfig{
			Bookings:       NewBookingHandler(service, nil),
			RequireSession: RequireSession(application.NewSessionRegistry(), nil),
		})

		req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeEnvelope(t, rec)
		bookings, _ := body["bookings"].([]any)
		if len(bookings) != 1 {
			t.Fatalf("expected one booking, got %v", body)
		}
	})
}

type stubProfileService struct {
	user  application.User
	users []application.User
	err   error
}

func (s *stubProfileService) GetProfile(ctx context.Context, studentID string) (application.User, error) {
	return s.user, s.err
}

func (s *stubProfileService) UpdateProfile(ctx context.Context, params application.UpdateProfileParams) (application.User, error) {
	return s.user, s.err
}

func (s *stubProfileService) ListUsers(ctx context.Context, principal application.Principal) ([]application.User, error) {
	return s.users, s.err
}

type stubHistoryService struct {
	pending []application.Booking
	stats   application.RatingStats
	err     error
}

func (s *stubHistoryService) PendingForUser(ctx context.Context, studentID string) ([]application.Booking, error) {
	return s.pending, s.err
}

func (s *stubHistoryService) Stats(ctx context.Context, studentID string) (application.RatingStats, error) {
	return s.stats, s.err
}

func TestRouter_UserRoutes(t *testing.T) {
	t.Parallel()

	profile := application.User{
		ID: 1, Name: "Alice", StudentID: "1001", Bio: "spin heavy", Level: 3,
		CreatedAt: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("profile update routes before the student id pattern", func(t *testing.T) {
		t.Parallel()
		registry := application.NewSessionRegistry()
		token := registry.Issue(application.Principal{UserID: 1, StudentID: "1001"})
		router := NewRouter(RouterConfig{
			Users:          NewUserHandler(&stubProfileService{user: profile}, &stubHistoryService{}, nil),
			RequireSession: RequireSession(registry, nil),
		})

		req := httptest.NewRequest(http.MethodPut, "/users/profile", strings.NewReader(`{"bio":"new"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeEnvelope(t, rec)
		user, _ := body["user"].(map[string]any)
		if _, hasCreatedAt := user["createdAt"]; hasCreatedAt {
			t.Fatalf("expected update payload to omit createdAt, got %v", user)
		}
	})

	t.Run("public profile lookup needs no session", func(t *testing.T) {
		t.Parallel()
		router := NewRouter(RouterConfig{
			Users:          NewUserHandler(&stubProfileService{user: profile}, &stubHistoryService{}, nil),
			RequireSession: RequireSession(application.NewSessionRegistry(), nil),
		})

		req := httptest.NewRequest(http.MethodGet, "/users/1001", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeEnvelope(t, rec)
		user, _ := body["user"].(map[string]any)
		if user["studentId"] != "1001" || user["createdAt"] == "" {
			t.Fatalf("unexpected profile payload %v", body)
		}
	})

	t.Run("history combines profile, pending bookings, and stats", func(t *testing.T) {
		t.Parallel()
		stats := application.RatingStats{
			SkillCount: 1, PleasureCount: 1,
			SkillDistribution:    map[int]int{1: 0, 2: 0, 3: 0, 4: 1, 5: 0},
			PleasureDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 1},
			AvgSkill:             4, AvgPleasure: 5,
		}
		router := NewRouter(RouterConfig{
			Users: NewUserHandler(
				&stubProfileService{user: profile},
				&stubHistoryService{pending: []application.Booking{sampleBooking()}, stats: stats},
				nil,
			),
		})

		req := httptest.NewRequest(http.MethodGet, "/users/1001/history", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeEnvelope(t, rec)
		history, _ := body["historyBookings"].([]any)
		if len(history) != 1 {
			t.Fatalf("expected one pending booking, got %v", body)
		}
		ratingStats, _ := body["ratingStats"].(map[string]any)
		if ratingStats["avgSkill"] != float64(4) {
			t.Fatalf("unexpected stats payload %v", body)
		}
	})

	t.Run("missing student maps to 404", func(t *testing.T) {
		t.Parallel()
		router := NewRouter(RouterConfig{
			Users: NewUserHandler(&stubProfileService{err: application.ErrNotFound}, &stubHistoryService{}, nil),
		})

		req := httptest.NewRequest(http.MethodGet, "/users/4040", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

type stubClockService struct {
	status application.ClockStatus
	got    application.ConfigureClockParams
	err    error
}

func (s *stubClockService) Status(ctx context.Context, principal application.Principal) (application.ClockStatus, error) {
	return s.status, s.err
}

func (s *stubClockService) Configure(ctx context.Context, params application.ConfigureClockParams) (application.ClockStatus, error) {
	s.got = params
	return s.status, s.err
}

func TestClockHandler_Configure(t *testing.T) {
	t.Parallel()

	t.Run("parses the virtual instant", func(t *testing.T) {
		t.Parallel()
		virtual := time.Date(2024, time.June, 10, 19, 30, 0, 0, time.UTC)
		service := &stubClockService{status: application.ClockStatus{
			TestMode: true, VirtualTime: virtual, CurrentTime: virtual, RealTime: virtual.Add(-time.Hour),
		}}
		handler := NewClockHandler(service, nil)

		req := httptest.NewRequest(http.MethodPost, "/test-mode", strings.NewReader(
			`{"enabled":true,"virtualTime":"2024-06-10T19:30:00Z"}`))
		req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: 99, StudentID: "9001", IsAdmin: true}))
		rec := httptest.NewRecorder()
		handler.Configure(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if service.got.Enabled == nil || !*service.got.Enabled {
			t.Fatalf("expected enabled flag forwarded, got %+v", service.got)
		}
		if service.got.VirtualTime == nil || !service.got.VirtualTime.Equal(virtual) {
			t.Fatalf("expected parsed virtual time, got %+v", service.got)
		}
		body := decodeEnvelope(t, rec)
		if body["testMode"] != true || body["virtualTime"] != "2024-06-10T19:30:00Z" {
			t.Fatalf("unexpected body %v", body)
		}
	})

	t.Run("rejects a malformed timestamp", func(t *testing.T) {
		t.Parallel()
		handler := NewClockHandler(&stubClockService{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/test-mode", strings.NewReader(
			`{"enabled":true,"virtualTime":"next tuesday"}`))
		rec := httptest.NewRecorder()
		handler.Configure(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("maps the admin check to 403", func(t *testing.T) {
		t.Parallel()
		handler := NewClockHandler(&stubClockService{err: application.ErrUnauthorized}, nil)

		req := httptest.NewRequest(http.MethodPost, "/test-mode", strings.NewReader(`{"enabled":true}`))
		rec := httptest.NewRecorder()
		handler.Configure(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}
