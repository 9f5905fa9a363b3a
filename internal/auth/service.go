// internal/auth/service.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"quiz-api/internal/models"
)

const DefaultTokenExpiry = 30 * time.Minute

type Service struct {
	repo      *Repository
	jwtSecret []byte
	expiry    time.Duration
	now       func() time.Time
}

func NewService(repo *Repository, jwtSecret string, expiry time.Duration) *Service {
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}
	return &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		expiry:    expiry,
		now:       time.Now,
	}
}

// HashPassword returns the bcrypt hash stored in User.HashedPassword.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Authenticate checks the password. Unknown users and wrong passwords are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("incorrect username or password: %w", models.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, fmt.Errorf("incorrect username or password: %w", models.ErrUnauthorized)
	}
	return user, nil
}

func (s *Service) IssueToken(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.Username,
		"is_admin": user.IsAdmin,
		"exp":      s.now().Add(s.expiry).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

// ResolveToken verifies the token and reloads its user. A token whose is_admin claim
// no longer matches the stored user is rejected.
func (s *Service) ResolveToken(ctx context.Context, tokenString string) (*models.User, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("missing token: %w", models.ErrUnauthorized)
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", models.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims: %w", models.ErrUnauthorized)
	}
	username, _ := claims["sub"].(string)
	isAdmin, ok := claims["is_admin"].(bool)
	if username == "" || !ok {
		return nil, fmt.Errorf("invalid token claims: %w", models.ErrUnauthorized)
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("token user %q no longer exists: %w", username, models.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if user.IsAdmin != isAdmin {
		return nil, fmt.Errorf("stale token for %q: %w", username, models.ErrUnauthorized)
	}
	return user, nil
}

// RequireAdmin fails with ErrForbidden for regular users and ErrUnauthorized for anonymous callers.
func RequireAdmin(user *models.User) error {
	if user == nil {
		return models.ErrUnauthorized
	}
	if !user.IsAdmin {
		return fmt.Errorf("admin role required: %w", models.ErrForbidden)
	}
	return nil
}

// EnsureUser creates the account or refreshes its password hash and role.
func (s *Service) EnsureUser(ctx context.Context, username, password string, isAdmin bool) (*models.User, error) {
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, models.ErrNotFound):
		user = &models.User{Username: username, HashedPassword: hashed, IsAdmin: isAdmin}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("create user %q: %w", username, err)
		}
		log.Printf("created user %s (admin=%v)", username, isAdmin)
	case err != nil:
		return nil, err
	default:
		user.HashedPassword = hashed
		user.IsAdmin = isAdmin
		if err := s.repo.SaveUser(ctx, user); err != nil {
			return nil, fmt.Errorf("update user %q: %w", username, err)
		}
		log.Printf("refreshed user %s (admin=%v)", username, isAdmin)
	}
	return user, nil
}
