package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chitra-ai/chitra-api/internal/domain/user"
	"github.com/chitra-ai/chitra-api/internal/pkg/jwt"
)

// Service handles authentication business logic
type Service struct {
	userRepo   user.Repository
	jwtService *jwt.Service
}

// NewService creates auth service
func NewService(userRepo user.Repository, jwtService *jwt.Service) *Service {
	return &Service{userRepo: userRepo, jwtService: jwtService}
}

// Login signs a user in with a social identity, creating the account on
// first use.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	u, created, err := s.userRepo.UpsertSocial(ctx, &user.SocialLogin{
		Email:      normalizeEmail(req.Email),
		SocialID:   req.SocialID,
		LoginType:  user.LoginType(req.LoginType),
		DeviceType: user.DeviceType(req.DeviceType),
		DeviceID:   req.DeviceID,
		FCMToken:   req.FCMToken,
	})
	if err != nil {
		if errors.Is(err, user.ErrUserDeleted) {
			return nil, ErrAccountDeleted
		}
		return nil, err
	}

	resp, err := s.issue(ctx, u.ID, "")
	if err != nil {
		return nil, err
	}
	view := user.ResponseFrom(u)
	resp.User = &view
	resp.IsNewUser = created

	log.Info().Str("user_id", u.ID.String()).Bool("new_user", created).Str("login_type", req.LoginType).Msg("User signed in")
	return resp, nil
}

// Refresh rotates the token pair. The presented refresh token must be the
// last one issued to the user.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	u, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	presented := jwt.HashRefreshToken(refreshToken)
	if u.IsDeleted || !u.RefreshTokenHash.Valid || u.RefreshTokenHash.String != presented {
		return nil, ErrInvalidRefreshToken
	}

	return s.issue(ctx, u.ID, presented)
}

// Logout clears the push token and invalidates the refresh token.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.ClearSession(ctx, userID); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// issue mints a token pair. A non-empty previous hash is swapped out
// atomically; losing that race invalidates the presented token.
func (s *Service) issue(ctx context.Context, userID uuid.UUID, previous string) (*AuthResponse, error) {
	pair, err := s.jwtService.IssuePair(userID)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	next := jwt.HashRefreshToken(pair.RefreshToken)
	if previous == "" {
		err = s.userRepo.SetRefreshTokenHash(ctx, userID, next)
	} else {
		err = s.userRepo.RotateRefreshTokenHash(ctx, userID, previous, next)
	}
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	return &AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}, nil
}
