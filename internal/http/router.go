package http

import (
	"net/http"
	"strconv"
	"strings"
)

// RouterConfig wires handlers and the per-route middleware. RequireSession
// guards routes acting on behalf of a logged in student; AuthRateLimit
// throttles the credential endpoints. Administrator checks live in the
// application services.
type RouterConfig struct {
	Auth     *AuthHandler
	Bookings *BookingHandler
	Users    *UserHandler
	Ratings  *RatingHandler
	Clock    *ClockHandler

	RequireSession func(http.Handler) http.Handler
	AuthRateLimit  func(http.Handler) http.Handler
	Middleware     []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	guarded := func(h http.HandlerFunc) http.Handler {
		if cfg.RequireSession == nil {
			return h
		}
		return cfg.RequireSession(h)
	}
	throttled := func(h http.HandlerFunc) http.Handler {
		if cfg.AuthRateLimit == nil {
			return h
		}
		return cfg.AuthRateLimit(h)
	}

	if cfg.Auth != nil {
		register := throttled(cfg.Auth.Register)
		mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			register.ServeHTTP(w, r)
		})
		login := throttled(cfg.Auth.Login)
		mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			login.ServeHTTP(w, r)
		})
		currentUser := guarded(cfg.Auth.CurrentUser)
		mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			currentUser.ServeHTTP(w, r)
		})
	}

	if cfg.Bookings != nil {
		mux.HandleFunc("/bookings", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Bookings.List(w, r)
			case http.MethodPost:
				cfg.Bookings.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		cancel := guarded(cfg.Bookings.Cancel)
		leave := guarded(cfg.Bookings.Leave)
		remove := guarded(cfg.Bookings.Delete)
		mux.HandleFunc("/bookings/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/bookings/")
			idPart, action, _ := strings.Cut(rest, "/")
			bookingID, err := strconv.ParseInt(idPart, 10, 64)
			if err != nil || bookingID <= 0 {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithBookingID(r.Context(), bookingID))

			switch {
			case action == "join" && r.Method == http.MethodPut:
				cfg.Bookings.Join(w, r)
			case action == "cancel" && r.Method == http.MethodPut:
				cancel.ServeHTTP(w, r)
			case action == "leave" && r.Method == http.MethodPut:
				leave.ServeHTTP(w, r)
			case action == "" && r.Method == http.MethodDelete:
				remove.ServeHTTP(w, r)
			case action == "":
				methodNotAllowed(w, http.MethodDelete)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Users != nil {
		list := guarded(cfg.Users.List)
		mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			list.ServeHTTP(w, r)
		})
		updateProfile := guarded(cfg.Users.UpdateProfile)
		mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/users/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}
			if rest == "profile" {
				if r.Method != http.MethodPut {
					methodNotAllowed(w, http.MethodPut)
					return
				}
				updateProfile.ServeHTTP(w, r)
				return
			}

			studentID, action, _ := strings.Cut(rest, "/")
			if studentID == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithStudentID(r.Context(), studentID))

			switch {
			case action == "" && r.Method == http.MethodGet:
				cfg.Users.GetProfile(w, r)
			case action == "history" && r.Method == http.MethodGet:
				cfg.Users.History(w, r)
			case action == "" || action == "history":
				methodNotAllowed(w, http.MethodGet)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Ratings != nil {
		submit := guarded(cfg.Ratings.Submit)
		list := guarded(cfg.Ratings.List)
		mux.HandleFunc("/ratings", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost:
				submit.ServeHTTP(w, r)
			case http.MethodGet:
				list.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
	}

	if cfg.Clock != nil {
		status := guarded(cfg.Clock.Status)
		configure := guarded(cfg.Clock.Configure)
		mux.HandleFunc("/test-mode", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				status.ServeHTTP(w, r)
			case http.MethodPost:
				configure.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
