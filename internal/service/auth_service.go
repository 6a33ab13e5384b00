package service

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/hokieplan/schedule-api/pkg/errors"
)

// AuthConfig defines the single operator account and token settings.
type AuthConfig struct {
	AdminEmail        string
	AdminPasswordHash string
	Secret            string
	Expiration        time.Duration
	Issuer            string
}

// AuthService authenticates the admin operator for the status and cost
// endpoints. There is one configured account, no user store.
type AuthService struct {
	config AuthConfig
	logger *zap.Logger
}

func NewAuthService(config AuthConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Expiration <= 0 {
		config.Expiration = 24 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "schedule-api"
	}
	return &AuthService{config: config, logger: logger}
}

// Login verifies the operator credentials and issues a signed token.
func (s *AuthService) Login(email, password string) (string, time.Time, error) {
	if !strings.EqualFold(strings.TrimSpace(email), s.config.AdminEmail) {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	if s.config.AdminPasswordHash == "" {
		s.logger.Warn("admin login attempted without a configured password hash")
		return "", time.Time{}, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminPasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	expiresAt := time.Now().Add(s.config.Expiration)
	claims := jwt.RegisteredClaims{
		Subject:   s.config.AdminEmail,
		Issuer:    s.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	return token, expiresAt, nil
}

// Verify parses and validates an admin token, returning the subject.
func (s *AuthService) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unexpected signing method")
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil || !token.Valid {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims.Subject, nil
}
