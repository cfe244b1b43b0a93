package auth

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chitra-ai/chitra-api/internal/domain/user"
	"github.com/chitra-ai/chitra-api/internal/middleware"
	"github.com/chitra-ai/chitra-api/internal/pkg/jwt"
)

type fakeUserRepo struct {
	byEmail map[string]*user.User
	byID    map[uuid.UUID]*user.User
	// afterGet runs once GetByID has taken its snapshot.
	afterGet func()
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*user.User{}, byID: map[uuid.UUID]*user.User{}}
}

func (f *fakeUserRepo) UpsertSocial(_ context.Context, l *user.SocialLogin) (*user.User, bool, error) {
	if u, ok := f.byEmail[l.Email]; ok {
		if u.IsDeleted {
			return nil, false, user.ErrUserDeleted
		}
		u.DeviceID = l.DeviceID
		return u, false, nil
	}
	u := &user.User{ID: uuid.New(), Email: l.Email, LoginType: l.LoginType, DeviceType: l.DeviceType, DeviceID: l.DeviceID, Credits: 5}
	f.byEmail[l.Email] = u
	f.byID[u.ID] = u
	return u, true, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	snapshot := *u
	if f.afterGet != nil {
		f.afterGet()
	}
	return &snapshot, nil
}

func (f *fakeUserRepo) SetRefreshTokenHash(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := f.byID[id]
	if !ok || u.IsDeleted {
		return user.ErrUserNotFound
	}
	u.RefreshTokenHash = sql.NullString{String: hash, Valid: true}
	return nil
}

func (f *fakeUserRepo) RotateRefreshTokenHash(_ context.Context, id uuid.UUID, oldHash, newHash string) error {
	u, ok := f.byID[id]
	if !ok || u.IsDeleted || u.RefreshTokenHash.String != oldHash {
		return user.ErrUserNotFound
	}
	u.RefreshTokenHash = sql.NullString{String: newHash, Valid: true}
	return nil
}

func (f *fakeUserRepo) ClearSession(_ context.Context, id uuid.UUID) error {
	u, ok := f.byID[id]
	if !ok || u.IsDeleted {
		return user.ErrUserNotFound
	}
	u.RefreshTokenHash = sql.NullString{}
	u.FCMToken = sql.NullString{}
	return nil
}

func (f *fakeUserRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	u, ok := f.byID[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.IsDeleted = true
	return nil
}

func newTestService() (*Service, *fakeUserRepo, *jwt.Service) {
	repo := newFakeUserRepo()
	jwtSvc := jwt.NewService("secret", time.Minute, time.Hour)
	return NewService(repo, jwtSvc), repo, jwtSvc
}

func loginReq(email string) *LoginRequest {
	return &LoginRequest{Email: email, SocialID: "sid", LoginType: "Google", DeviceType: "android", DeviceID: "d1"}
}

func TestLoginCreatesThenReuses(t *testing.T) {
	svc, repo, jwtSvc := newTestService()

	first, err := svc.Login(context.Background(), loginReq(" A@B.co "))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !first.IsNewUser || first.User.Credits != 5 || first.User.Email != "a@b.co" {
		t.Fatalf("unexpected first login: %+v", first)
	}
	claims, err := jwtSvc.ValidateAccessToken(first.AccessToken)
	if err != nil || claims.UserID != first.User.ID {
		t.Fatalf("access token invalid: %v", err)
	}

	second, err := svc.Login(context.Background(), loginReq("a@b.co"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if second.IsNewUser || second.User.ID != first.User.ID {
		t.Fatal("second login should reuse the account")
	}
	if len(repo.byID) != 1 {
		t.Fatalf("users = %d, want 1", len(repo.byID))
	}
}

func TestLoginDeletedAccount(t *testing.T) {
	svc, repo, _ := newTestService()
	res, _ := svc.Login(context.Background(), loginReq("a@b.co"))
	repo.byID[res.User.ID].IsDeleted = true

	if _, err := svc.Login(context.Background(), loginReq("a@b.co")); !errors.Is(err, ErrAccountDeleted) {
		t.Fatalf("err = %v, want ErrAccountDeleted", err)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc, _, _ := newTestService()
	login, _ := svc.Login(context.Background(), loginReq("a@b.co"))

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatal("refresh token not rotated")
	}

	if _, err := svc.Refresh(context.Background(), login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("replayed token: err = %v", err)
	}
	if _, err := svc.Refresh(context.Background(), login.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("access token as refresh: err = %v", err)
	}
}

func TestRefreshConcurrentReuseLosesRace(t *testing.T) {
	svc, repo, _ := newTestService()
	login, _ := svc.Login(context.Background(), loginReq("a@b.co"))

	// A second request with the same token rotates between our read and write.
	var winner *AuthResponse
	repo.afterGet = func() {
		repo.afterGet = nil
		var err error
		winner, err = svc.Refresh(context.Background(), login.RefreshToken)
		if err != nil {
			t.Fatalf("concurrent Refresh: %v", err)
		}
	}

	if _, err := svc.Refresh(context.Background(), login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("err = %v, want ErrInvalidRefreshToken", err)
	}
	stored := repo.byID[login.User.ID].RefreshTokenHash.String
	if stored != jwt.HashRefreshToken(winner.RefreshToken) {
		t.Fatal("losing refresh overwrote the winner's token")
	}
	if _, err := svc.Refresh(context.Background(), winner.RefreshToken); err != nil {
		t.Fatalf("winner token should still refresh: %v", err)
	}
}

func TestLogoutInvalidatesRefresh(t *testing.T) {
	svc, _, _ := newTestService()
	login, _ := svc.Login(context.Background(), loginReq("a@b.co"))

	if err := svc.Logout(context.Background(), login.User.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestHandlerRoutes(t *testing.T) {
	svc, _, jwtSvc := newTestService()
	r := chi.NewRouter()
	r.Mount("/auth", NewHandler(svc).Routes(middleware.Auth(jwtSvc)))

	post := func(path, body string) int {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := post("/auth", `{"email":"a@b.co","socialId":"s","loginType":"Google","deviceType":"ios","deviceId":"d"}`); code != http.StatusOK {
		t.Fatalf("login = %d", code)
	}
	if code := post("/auth", `{"email":"a@b.co","loginType":"Facebook"}`); code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid login = %d", code)
	}
	if code := post("/auth/refresh", `{"refreshToken":"garbage"}`); code != http.StatusUnauthorized {
		t.Fatalf("bad refresh = %d", code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/auth", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("logout without token = %d", w.Code)
	}
}
