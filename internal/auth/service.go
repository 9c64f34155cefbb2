package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/agrovate/farmcore/internal/config"
	"github.com/agrovate/farmcore/internal/storage"
	"github.com/google/uuid"
)

type Service struct {
	storage        *storage.PostgresClient
	jwtHandler     *JWTHandler
	passwordHasher *PasswordHasher
}

func NewService(store *storage.PostgresClient, cfg config.AuthConfig) *Service {
	return &Service{
		storage:        store,
		jwtHandler:     NewJWTHandler(cfg.GetJWTSecret(), cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		passwordHasher: NewPasswordHasher(),
	}
}

// Login authenticates a user and returns an access/refresh token pair.
func (a *Service) Login(ctx context.Context, username, password string) (accessToken, refreshToken string, err error) {
	user, err := a.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return "", "", fmt.Errorf("invalid credentials")
	}

	valid, err := a.passwordHasher.VerifyPassword(password, user.PasswordHash)
	if err != nil || !valid {
		return "", "", fmt.Errorf("invalid credentials")
	}

	accessToken, err = a.jwtHandler.GenerateAccessToken(user.ID, user.Username, user.Email, user.Role)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err = a.jwtHandler.GenerateRefreshToken()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	tokenHash := a.hashRefreshToken(refreshToken)
	expiresAt := time.Now().Add(a.jwtHandler.refreshTokenTTL)
	if err := a.storage.StoreRefreshToken(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	a.storage.UpdateLastLogin(ctx, user.ID)

	return accessToken, refreshToken, nil
}

// Refresh rotates a refresh token and issues a new access token.
func (a *Service) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	tokenHash := a.hashRefreshToken(refreshToken)

	userID, err := a.storage.GetRefreshToken(ctx, tokenHash)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", err)
	}

	user, err := a.storage.GetUserByID(ctx, *userID)
	if err != nil {
		return "", "", fmt.Errorf("user not found: %w", err)
	}

	a.storage.RevokeRefreshToken(ctx, tokenHash)

	accessToken, err := a.jwtHandler.GenerateAccessToken(user.ID, user.Username, user.Email, user.Role)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	newRefreshToken, err := a.jwtHandler.GenerateRefreshToken()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	newHash := a.hashRefreshToken(newRefreshToken)
	expiresAt := time.Now().Add(a.jwtHandler.refreshTokenTTL)
	if err := a.storage.StoreRefreshToken(ctx, user.ID, newHash, expiresAt); err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return accessToken, newRefreshToken, nil
}

// Revoke invalidates a refresh token on logout.
func (a *Service) Revoke(ctx context.Context, refreshToken string) error {
	return a.storage.RevokeRefreshToken(ctx, a.hashRefreshToken(refreshToken))
}

// ValidateAccessToken exposes token validation to the websocket layer.
func (a *Service) ValidateAccessToken(token string) (*Claims, error) {
	return a.jwtHandler.ValidateAccessToken(token)
}

func (a *Service) GetUserByID(ctx context.Context, userID uuid.UUID) (*storage.User, error) {
	return a.storage.GetUserByID(ctx, userID)
}

func (a *Service) hashRefreshToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
