package service

import (
	"context"
	"errors"

	"delive/storefront/internal/domain"

	"github.com/sirupsen/logrus"
)

type AuthService struct {
	users  UserRepository
	logger logrus.FieldLogger
}

func NewAuthService(users UserRepository, logger logrus.FieldLogger) *AuthService {
	return &AuthService{
		users:  users,
		logger: logger.WithField("component", "auth_service"),
	}
}

// Register creates a buyer account. Emails are compared exactly as stored.
func (s *AuthService) Register(ctx context.Context, form RegistrationForm) (*domain.User, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	_, err := s.users.GetUserByEmail(ctx, form.Email)
	switch {
	case err == nil:
		return nil, domain.ErrDuplicateUser
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	user := &domain.User{Email: form.Email, Role: domain.RoleBuyer}
	if err := user.SetPassword(form.Password); err != nil {
		return nil, err
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// Login answers domain.ErrInvalidCredentials both for an unknown email and
// for a wrong password.
func (s *AuthService) Login(ctx context.Context, form LoginForm) (*domain.User, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByEmail(ctx, form.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.PasswordValid(form.Password) {
		s.logger.WithField("user_id", user.ID).Debug("password mismatch")
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int, form PasswordForm) error {
	if err := form.Validate(); err != nil {
		return err
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.SetPassword(form.Password); err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, user.PasswordHash); err != nil {
		return err
	}
	s.logger.WithField("user_id", user.ID).Info("password changed")
	return nil
}

func (s *AuthService) Account(ctx context.Context, userID int) (*domain.User, error) {
	return s.users.GetUser(ctx, userID)
}

// EnsureAdmin creates the administrator account when no user holds the
// email yet. It reports whether a user was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if validate.Var(email, "required,email,max=100") != nil || password == "" {
		return false, &ValidationError{Fields: map[string]string{"admin": "admin email and password must be configured"}}
	}
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		if !existing.IsAdmin() {
			s.logger.WithField("email", email).Warn("bootstrap admin email belongs to a buyer")
		}
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	admin := &domain.User{Email: email, Role: domain.RoleAdmin}
	if err := admin.SetPassword(password); err != nil {
		return false, err
	}
	if err := s.users.CreateUser(ctx, admin); err != nil {
		return false, err
	}
	s.logger.WithField("user_id", admin.ID).Info("administrator account created")
	return true, nil
}

var _ AuthServiceInterface = (*AuthService)(nil)
