package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/chitra-ai/chitra-api/internal/domain/credit"
)

// Response is the public view of a user.
type Response struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	SocialID     string     `json:"socialId"`
	LoginType    LoginType  `json:"loginType"`
	DeviceType   DeviceType `json:"deviceType"`
	DeviceID     string     `json:"deviceId"`
	FCMToken     *string    `json:"fcmToken"`
	Credits      int        `json:"credits"`
	NoOfAdsWatch int        `json:"noOfAdsWatch"`
	IsDeleted    bool       `json:"isDeleted"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// ResponseFrom converts a User to its public view.
func ResponseFrom(u *User) Response {
	resp := Response{
		ID:           u.ID,
		Email:        u.Email,
		SocialID:     u.SocialID,
		LoginType:    u.LoginType,
		DeviceType:   u.DeviceType,
		DeviceID:     u.DeviceID,
		Credits:      u.Credits,
		NoOfAdsWatch: u.NoOfAdsWatch,
		IsDeleted:    u.IsDeleted,
		CreatedAt:    u.CreatedAt,
	}
	if u.FCMToken.Valid {
		resp.FCMToken = &u.FCMToken.String
	}
	return resp
}

// ProfileResponse is the GET /user payload.
type ProfileResponse struct {
	Response
	credit.TotalsResponse
}
