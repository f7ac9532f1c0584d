package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-sync-go/internal/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

type AuthServiceImpl struct {
	username     string
	passwordHash []byte
	jwt.Service
}

// NewAuthService guards the API with a single principal. password may be given as a bcrypt
// hash ("$2a$", "$2b$" or "$2y$" prefix) or in plain text, which is hashed here.
func NewAuthService(username, password string, jwtService jwt.Service) (auth.AuthService, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash API password: %w", err)
	}
	return &AuthServiceImpl{
		username:     username,
		passwordHash: hash,
		Service:      jwtService,
	}, nil
}

func hashPassword(password string) ([]byte, error) {
	if isBcryptHash(password) {
		if _, err := bcrypt.Cost([]byte(password)); err != nil {
			return nil, err
		}
		return []byte(password), nil
	}
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// Authenticate implements auth.AuthService.
func (a *AuthServiceImpl) Authenticate(ctx context.Context, creds auth.Credentials) error {
	if creds.Username == "" || creds.Password == "" {
		return auth.ErrMissingCredentials
	}

	userOK := subtle.ConstantTimeCompare([]byte(creds.Username), []byte(a.username)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(creds.Password))
	if !userOK || passErr != nil {
		return auth.ErrInvalidCredentials
	}
	return nil
}

// IssueToken implements auth.AuthService.
func (a *AuthServiceImpl) IssueToken(ctx context.Context, creds auth.Credentials) (auth.TokenResponse, error) {
	if err := a.Authenticate(ctx, creds); err != nil {
		return auth.TokenResponse{}, err
	}

	token, expiresAt, err := a.Service.GenerateAccessToken(creds.Username)
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	return auth.TokenResponse{
		AccessToken:          token,
		TokenType:            "Bearer",
		AccessTokenExpiresIn: expiresAt,
	}, nil
}
