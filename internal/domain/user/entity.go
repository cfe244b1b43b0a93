package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// LoginType is the social identity provider.
type LoginType string

const (
	LoginGoogle LoginType = "Google"
	LoginApple  LoginType = "Apple"
)

// DeviceType is the client platform.
type DeviceType string

const (
	DeviceIOS     DeviceType = "ios"
	DeviceAndroid DeviceType = "android"
)

// User represents a user account (matches users table)
type User struct {
	ID           uuid.UUID      `db:"id"`
	Email        string         `db:"email"`
	SocialID     string         `db:"social_id"`
	LoginType    LoginType      `db:"login_type"`
	DeviceType   DeviceType     `db:"device_type"`
	DeviceID     string         `db:"device_id"`
	FCMToken     sql.NullString `db:"fcm_token"`
	Credits      int            `db:"credits"`
	NoOfAdsWatch int            `db:"no_of_ads_watch"`
	IsDeleted    bool           `db:"is_deleted"`

	RefreshTokenHash sql.NullString `db:"refresh_token_hash"`

	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
	DeletedAt sql.NullTime `db:"deleted_at"`
}

// SocialLogin is what a client presents on sign-in.
type SocialLogin struct {
	Email      string
	SocialID   string
	LoginType  LoginType
	DeviceType DeviceType
	DeviceID   string
	FCMToken   string
}
