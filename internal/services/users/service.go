package users

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BearBump/ShipTrack/internal/auth/credentials"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Store interface {
	Users(ctx context.Context) ([]*models.User, error)
	SaveUsers(ctx context.Context, users []*models.User) error
	Session(ctx context.Context) (*models.Session, error)
	SetSession(ctx context.Context, sess *models.Session) error
	Settings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, st models.Settings) error
	DeleteShipments(ctx context.Context, ownerID string) error
}

type Service struct {
	store  Store
	hasher credentials.Hasher
	now    func() time.Time

	onDeleted func(userID string)

	mu sync.Mutex
}

func New(store Store, hasher credentials.Hasher) *Service {
	if hasher == nil {
		hasher = credentials.Bcrypt{}
	}
	return &Service{
		store:  store,
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// OnUserDeleted registers fn to run after an account was removed.
func (s *Service) OnUserDeleted(fn func(userID string)) *Service {
	s.onDeleted = fn
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user account and signs it in.
func (s *Service) Register(ctx context.Context, email, password string) (*models.User, *models.Session, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, errors.WithMessage(ErrInvalidInput, "a valid email is required")
	}
	if err := validatePassword(password); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.store.Settings(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !st.RegistrationOpen() {
		return nil, nil, ErrRegistrationDisabled
	}

	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, nil, err
	}
	if findByEmail(users, email) != nil {
		return nil, nil, ErrEmailExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, err
	}
	u := models.NewUser(email, hash, models.RoleUser, s.now())
	if err := s.store.SaveUsers(ctx, append(users, u)); err != nil {
		return nil, nil, err
	}

	sess, err := s.startSession(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("user registered", "user_id", u.ID, "email", u.Email)
	return u, sess, nil
}

// Login signs in the single account matching both email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, *models.Session, error) {
	email = normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, nil, err
	}

	var match *models.User
	n := 0
	for _, u := range users {
		if u.Email == email && credentials.Verify(u.PasswordHash, password) {
			match = u
			n++
		}
	}
	if n != 1 {
		slog.Warn("login rejected", "email", email)
		return nil, nil, ErrInvalidCredentials
	}

	sess, err := s.startSession(ctx, match)
	if err != nil {
		return nil, nil, err
	}
	return match, sess, nil
}

func (s *Service) startSession(ctx context.Context, u *models.User) (*models.Session, error) {
	sess := &models.Session{ID: uuid.NewString(), UserID: u.ID, StartedAt: s.now()}
	if err := s.store.SetSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Logout clears the stored session whoever holds it.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.SetSession(ctx, nil)
}

// LogoutUser clears the stored session only when it belongs to userID.
func (s *Service) LogoutUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearSessionOf(ctx, userID)
}

func (s *Service) clearSessionOf(ctx context.Context, userID string) error {
	sess, err := s.store.Session(ctx)
	if err != nil {
		return err
	}
	if sess == nil || sess.UserID != userID {
		return nil
	}
	return s.store.SetSession(ctx, nil)
}

// Current resolves the stored session to its account. A session whose account is
// gone is cleared.
func (s *Service) Current(ctx context.Context) (*models.User, *models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.store.Session(ctx)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, ErrUnauthenticated
	}
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, nil, err
	}
	u := findByID(users, sess.UserID)
	if u == nil {
		if err := s.store.SetSession(ctx, nil); err != nil {
			return nil, nil, err
		}
		return nil, nil, ErrUnauthenticated
	}
	return u, sess, nil
}

// Authenticate returns the account behind an already verified identity, failing
// when it has been deleted since.
func (s *Service) Authenticate(ctx context.Context, userID string) (*models.User, error) {
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	u := findByID(users, userID)
	if u == nil {
		return nil, ErrUnauthenticated
	}
	return u, nil
}

func (s *Service) RegistrationOpen(ctx context.Context) (bool, error) {
	st, err := s.store.Settings(ctx)
	if err != nil {
		return false, err
	}
	return st.RegistrationOpen(), nil
}

// EnsureSeedAdmin creates an admin account when there are no accounts at all.
func (s *Service) EnsureSeedAdmin(ctx context.Context, email, password string) (*models.User, bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, false, errors.WithMessage(ErrInvalidInput, "seed admin email and password are required")
	}
	if err := validatePassword(password); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(users) > 0 {
		return nil, false, nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, false, err
	}
	u := models.NewUser(email, hash, models.RoleAdmin, s.now())
	if err := s.store.SaveUsers(ctx, []*models.User{u}); err != nil {
		return nil, false, err
	}
	slog.Info("seed admin created", "user_id", u.ID, "email", u.Email)
	return u, true, nil
}

func validatePassword(password string) error {
	if password == "" {
		return errors.WithMessage(ErrInvalidInput, "password is required")
	}
	if len(password) > credentials.MaxPasswordBytes {
		return errors.WithMessage(ErrInvalidInput, credentials.ErrPasswordTooLong.Error())
	}
	return nil
}

func findByEmail(users []*models.User, email string) *models.User {
	for _, u := range users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func findByID(users []*models.User, id string) *models.User {
	for _, u := range users {
		if u.ID == id {
			return u
		}
	}
	return nil
}
