package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/auth"
	"storefront-backend/internal/models"
	"storefront-backend/internal/repository"
)

const (
	minPasswordLen = 6
	// bcrypt ignores everything past 72 bytes
	maxPasswordLen = 72
)

var errInvalidCredentials = apperr.New(apperr.InvalidCredentials, "Invalid credentials")

type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenIssuer
	log    *slog.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenIssuer, log *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log}
}

// Session is a user together with a freshly issued bearer token.
type Session struct {
	User  *models.User
	Token string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLen || len(pw) > maxPasswordLen {
		return apperr.New(apperr.InvalidRequest, "Password must be between 6 and 72 characters")
	}
	return nil
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, apperr.New(apperr.InvalidRequest, "Name, email and password are required")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperr.New(apperr.Conflict, "User already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, internalErr(err, "Registration failed")
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, internalErr(err, "Registration failed")
	}
	user := &models.User{Name: name, Email: email, Password: hashed, Role: models.RoleCustomer}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.New(apperr.Conflict, "User already exists")
		}
		return nil, internalErr(err, "Registration failed")
	}

	return s.session(user, "Registration failed")
}

// Login fails with the same error for an unknown email and a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.New(apperr.InvalidRequest, "Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, internalErr(err, "Login failed")
	}
	if !auth.CheckPassword(user.Password, password) {
		return nil, errInvalidCredentials
	}

	return s.session(user, "Login failed")
}

// Authenticate resolves an Authorization header value to the live user
// record. It backs every protected and conditionally protected route.
func (s *AuthService) Authenticate(ctx context.Context, header string) (*models.User, error) {
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	tokenStr = strings.TrimSpace(tokenStr)
	if !ok || tokenStr == "" {
		return nil, apperr.New(apperr.Unauthorized, "Not authorized, no token")
	}

	userID, err := s.tokens.Verify(tokenStr)
	if err != nil {
		s.log.Debug("token rejected", "error", err)
		return nil, apperr.Wrap(apperr.Unauthorized, err, "Token invalid or expired")
	}
	id, err := parseID(userID, "user")
	if err != nil {
		return nil, apperr.New(apperr.Unauthorized, "Token invalid or expired")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.Unauthorized, "Not authorized, user no longer exists")
		}
		return nil, internalErr(err, "Authentication failed")
	}
	user.Password = ""
	return user, nil
}

func (s *AuthService) session(user *models.User, failMsg string) (*Session, error) {
	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, internalErr(err, failMsg)
	}
	user.Password = ""
	return &Session{User: user, Token: token}, nil
}
