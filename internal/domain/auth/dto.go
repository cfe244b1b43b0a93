package auth

import (
	"time"

	"github.com/chitra-ai/chitra-api/internal/domain/user"
)

// LoginRequest is the POST /auth body.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	SocialID   string `json:"socialId" validate:"required,max=255"`
	LoginType  string `json:"loginType" validate:"required,login_type"`
	DeviceType string `json:"deviceType" validate:"required,device_type"`
	DeviceID   string `json:"deviceId" validate:"required,max=255"`
	FCMToken   string `json:"fcmToken" validate:"max=4096"`
}

// RefreshRequest is the POST /auth/refresh body.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// AuthResponse returns a token pair and the signed-in user.
type AuthResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	ExpiresAt    time.Time      `json:"expiresAt"`
	User         *user.Response `json:"user,omitempty"`
	IsNewUser    bool           `json:"isNewUser"`
}
