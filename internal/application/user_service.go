package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByStudentID(ctx context.Context, studentID string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// UserService orchestrates registration, credential checks, and profile
// management. The admin flag is derived at registration from a
// configuration-supplied allow-list of student identifiers.
type UserService struct {
	users           UserRepository
	adminStudentIDs map[string]bool
	mu              *sync.Mutex
	checkpointer    Checkpointer
	now             func() time.Time
	logger          *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, adminStudentIDs []string, mu *sync.Mutex, checkpointer Checkpointer, now func() time.Time, logger *slog.Logger) *UserService {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	if now == nil {
		now = time.Now
	}
	allowList := make(map[string]bool, len(adminStudentIDs))
	for _, id := range adminStudentIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			allowList[trimmed] = true
		}
	}
	return &UserService{
		users:           users,
		adminStudentIDs: allowList,
		mu:              mu,
		checkpointer:    checkpointer,
		now:             now,
		logger:          defaultLogger(logger),
	}
}

func (s *UserService) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if s == nil {
		return slog.Default()
	}
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// Register validates input and creates a new user with a hashed credential.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("user service not configured")
	}

	name := strings.TrimSpace(params.Name)
	studentID := strings.TrimSpace(params.StudentID)

	vErr := &ValidationError{}
	if name == "" {
		vErr.add("name", "name is required")
	}
	if studentID == "" {
		vErr.add("studentId", "student id is required")
	}
	if params.Password == "" {
		vErr.add("password", "password is required")
	}
	if params.ConfirmPassword == "" {
		vErr.add("confirmPassword", "password confirmation is required")
	} else if params.Password != params.ConfirmPassword {
		vErr.add("confirmPassword", "passwords do not match")
	}
	if vErr.HasErrors() {
		return User{}, vErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.users.GetUserByStudentID(ctx, studentID); err == nil {
		return User{}, fmt.Errorf("student id %s: %w", studentID, ErrAlreadyExists)
	} else if !errors.Is(mapRepoError(err), ErrNotFound) {
		return User{}, err
	}

	hash, err := hashPassword(params.Password, defaultArgon2Params)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		Name:         name,
		StudentID:    studentID,
		PasswordHash: hash,
		Bio:          "",
		Level:        0,
		IsAdmin:      s.adminStudentIDs[studentID],
		CreatedAt:    s.now(),
	}

	persisted, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return User{}, mapRepoError(err)
	}

	logger := s.log(ctx, "Register", "user_id", persisted.ID, "student_id", persisted.StudentID)
	logger.InfoContext(ctx, "user registered", "is_admin", persisted.IsAdmin)
	checkpointState(ctx, s.checkpointer, logger)

	return persisted, nil
}

// Authenticate verifies a student's credential and returns the account.
func (s *UserService) Authenticate(ctx context.Context, params AuthenticateParams) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("user service not configured")
	}

	studentID := strings.TrimSpace(params.StudentID)

	vErr := &ValidationError{}
	if studentID == "" {
		vErr.add("studentId", "student id is required")
	}
	if params.Password == "" {
		vErr.add("password", "password is required")
	}
	if vErr.HasErrors() {
		return User{}, vErr
	}

	user, err := s.users.GetUserByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := verifyPassword(user.PasswordHash, params.Password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	s.log(ctx, "Authenticate", "user_id", user.ID, "student_id", user.StudentID).InfoContext(ctx, "user authenticated")
	return user, nil
}

// GetProfile returns the public profile for a student identifier.
func (s *UserService) GetProfile(ctx context.Context, studentID string) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("user service not configured")
	}

	user, err := s.users.GetUserByStudentID(ctx, strings.TrimSpace(studentID))
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return user.Profile(), nil
}

// UpdateProfile patches the caller's own bio and skill level.
func (s *UserService) UpdateProfile(ctx context.Context, params UpdateProfileParams) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("user service not configured")
	}
	if !params.Principal.Authenticated() {
		return User{}, ErrAuthenticationRequired
	}

	if params.Level != nil && (*params.Level < 0 || *params.Level > 5) {
		vErr := &ValidationError{}
		vErr.add("level", "level must be between 0 and 5")
		return User{}, vErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.GetUser(ctx, params.Principal.UserID)
	if err != nil {
		return User{}, mapRepoError(err)
	}

	if params.Bio != nil {
		user.Bio = *params.Bio
	}
	if params.Level != nil {
		user.Level = *params.Level
	}

	persisted, err := s.users.UpdateUser(ctx, user)
	if err != nil {
		return User{}, mapRepoError(err)
	}

	logger := s.log(ctx, "UpdateProfile", "user_id", persisted.ID)
	logger.InfoContext(ctx, "profile updated")
	checkpointState(ctx, s.checkpointer, logger)

	return persisted.Profile(), nil
}

// ListUsers returns every registered user for administrators.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil || s.users == nil {
		return nil, fmt.Errorf("user service not configured")
	}
	if !principal.Authenticated() {
		return nil, ErrAuthenticationRequired
	}
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]User, 0, len(users))
	for _, user := range users {
		out = append(out, user.Profile())
	}
	return out, nil
}
