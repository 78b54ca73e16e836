// Package identity resolves the current user from a session token.
//
// There is no credential check: logging in with a known email opens a session.
package identity

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/victornm/scholarway/internal/domain"
	"github.com/victornm/scholarway/internal/errors"
	"github.com/victornm/scholarway/internal/storage"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	Store storage.Store
	// Users seeds the directory. Defaults to SampleUsers.
	Users []domain.User
}

type Session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type RegisterRequest struct {
	Email string      `json:"email" validate:"required,email"`
	Name  string      `json:"name" validate:"required"`
	Role  domain.Role `json:"role" validate:"oneof=student teacher admin"`
}

type Service struct {
	store storage.Store

	mu     sync.RWMutex
	users  map[string]domain.User // by lower-cased email
	nextID int
}

func NewService(c Config) *Service {
	users := c.Users
	if users == nil {
		users = SampleUsers()
	}

	s := &Service{
		store:  c.Store,
		users:  make(map[string]domain.User, len(users)),
		nextID: len(users) + 1,
	}

	for _, u := range users {
		s.users[normalizeEmail(u.Email)] = u
	}

	return s
}

// Login opens a session for the user with the given email.
func (s *Service) Login(ctx context.Context, email string) (*Session, error) {
	s.mu.RLock()
	u, ok := s.users[normalizeEmail(email)]
	s.mu.RUnlock()

	if !ok {
		return nil, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("invalid email or password"))
	}

	return s.open(ctx, u)
}

// Register adds a user to the directory and opens a session for them.
// Students start at the junior scholar level.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	if err := validate.Struct(req); err != nil {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid registration: %s", err),
			errors.WithCause(err),
		)
	}

	key := normalizeEmail(req.Email)

	s.mu.Lock()
	if _, exists := s.users[key]; exists {
		s.mu.Unlock()
		return nil, errors.New(errors.CodeAlreadyExists, errors.WithMessagef("email already in use"))
	}

	u := domain.User{
		ID:    strconv.Itoa(s.nextID),
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	}
	if u.Role == domain.RoleStudent {
		u.ScholarLevel = domain.ScholarLevelJunior
	}

	s.nextID++
	s.users[key] = u
	s.mu.Unlock()

	slog.InfoContext(ctx, "identity: user registered", "user_id", u.ID, "role", u.Role)

	return s.open(ctx, u)
}

// Logout ends the session. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.store.Delete(ctx, sessionKey(token)); err != nil && !stderrors.Is(err, storage.ErrNotFound) {
		return errors.Internal(fmt.Errorf("delete session: %w", err))
	}

	return nil
}

// Current returns the user of the session token.
func (s *Service) Current(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, errors.New(errors.CodeUnauthenticated)
	}

	var u domain.User
	if err := storage.GetJSON(ctx, s.store, sessionKey(token), &u); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) || stderrors.Is(err, storage.ErrMalformed) {
			return nil, errors.New(errors.CodeUnauthenticated, errors.WithCause(err))
		}
		return nil, errors.Internal(fmt.Errorf("load session: %w", err))
	}

	return &u, nil
}

func (s *Service) open(ctx context.Context, u domain.User) (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("generate token: %w", err))
	}

	sess := &Session{Token: id.String(), User: u}
	if err := storage.SetJSON(ctx, s.store, sessionKey(sess.Token), u); err != nil {
		return nil, errors.Internal(fmt.Errorf("store session: %w", err))
	}

	return sess, nil
}

func sessionKey(token string) string {
	return "user:" + token
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SampleUsers are the demo accounts.
func SampleUsers() []domain.User {
	return []domain.User{
		{ID: "1", Name: "John Student", Email: "student@example.com", Role: domain.RoleStudent, AvatarURL: "https://i.pravatar.cc/150?img=1", ScholarLevel: domain.ScholarLevelJunior, InstituteID: "1"},
		{ID: "2", Name: "Jane Teacher", Email: "teacher@example.com", Role: domain.RoleTeacher, AvatarURL: "https://i.pravatar.cc/150?img=5", Department: "Mathematics", InstituteID: "1"},
		{ID: "3", Name: "Admin User", Email: "admin@example.com", Role: domain.RoleAdmin, AvatarURL: "https://i.pravatar.cc/150?img=8", InstituteID: "1"},
		{ID: "4", Name: "Alice Student", Email: "alice@example.com", Role: domain.RoleStudent, AvatarURL: "https://i.pravatar.cc/150?img=9", ScholarLevel: domain.ScholarLevelRising, InstituteID: "2"},
		{ID: "5", Name: "Bob Student", Email: "bob@example.com", Role: domain.RoleStudent, AvatarURL: "https://i.pravatar.cc/150?img=4", ScholarLevel: domain.ScholarLevelElite, InstituteID: "3"},
		{ID: "6", Name: "Super Admin", Email: "superadmin@example.com", Role: domain.RoleSuperadmin, AvatarURL: "https://i.pravatar.cc/150?img=12"},
	}
}
