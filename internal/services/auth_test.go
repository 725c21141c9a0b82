package services

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/yungbote/housedesk-backend/internal/data/repos/testutil"
	"github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/platform/apierr"
	"github.com/yungbote/housedesk-backend/internal/platform/ctxutil"
)

func newTestAuth(t *testing.T, cfg AuthConfig) (AuthService, testEnv) {
	t.Helper()
	env := newTestEnv(t)
	if cfg.JWTSecretKey == "" {
		cfg.JWTSecretKey = "test-secret"
	}
	return NewAuthService(env.db, env.log, env.repos.Users, env.repos.Tokens, cfg), env
}

func wantAPIStatus(t *testing.T, err error, status int, code string) {
	t.Helper()
	ae, ok := apierr.As(err)
	if !ok {
		t.Fatalf("expected api error %d/%s, got %v", status, code, err)
	}
	if ae.Status != status || ae.Code != code {
		t.Fatalf("api error: want=%d/%s got=%d/%s", status, code, ae.Status, ae.Code)
	}
}

func TestDemoLoginOnlyInDebug(t *testing.T) {
	svc, _ := newTestAuth(t, AuthConfig{})
	_, err := svc.LoginDemo(context.Background(), 0)
	wantAPIStatus(t, err, http.StatusNotFound, "not_found")

	svc, _ = newTestAuth(t, AuthConfig{Debug: true})
	first, err := svc.LoginDemo(context.Background(), 0)
	if err != nil {
		t.Fatalf("LoginDemo: %v", err)
	}
	if first.User.TelegramID != 123456789 || first.User.Role != requests.RoleResident {
		t.Fatalf("unexpected demo user: %+v", first.User)
	}
	second, err := svc.LoginDemo(context.Background(), 0)
	if err != nil {
		t.Fatalf("LoginDemo again: %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Fatalf("demo login should reuse the user")
	}
	if second.AccessToken == first.AccessToken {
		t.Fatalf("each login should issue a distinct access token")
	}
}

func TestTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth(t, AuthConfig{Debug: true, AccessTTL: time.Minute})

	tok, err := svc.LoginDemo(ctx, 555)
	if err != nil {
		t.Fatalf("LoginDemo: %v", err)
	}
	if tok.ExpiresIn != 60 {
		t.Fatalf("expires_in: got %d", tok.ExpiresIn)
	}

	authed, err := svc.SetContextFromToken(ctx, tok.AccessToken)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(authed)
	if rd == nil || rd.UserID != tok.User.ID || rd.Role != string(requests.RoleResident) {
		t.Fatalf("unexpected request data: %+v", rd)
	}

	if _, err := svc.SetContextFromToken(ctx, tok.AccessToken+"x"); err == nil {
		t.Fatalf("expected tampered token to fail")
	}

	rotated, err := svc.RefreshUser(ctx, tok.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshUser: %v", err)
	}
	if rotated.RefreshToken == tok.RefreshToken {
		t.Fatalf("refresh token should rotate")
	}
	if _, err := svc.RefreshUser(ctx, tok.RefreshToken); err == nil {
		t.Fatalf("old refresh token must not be reusable")
	}
	if _, err := svc.SetContextFromToken(ctx, tok.AccessToken); err == nil {
		t.Fatalf("old access token's session should be gone after rotation")
	}

	authed, err = svc.SetContextFromToken(ctx, rotated.AccessToken)
	if err != nil {
		t.Fatalf("SetContextFromToken rotated: %v", err)
	}
	if err := svc.LogoutUser(authed); err != nil {
		t.Fatalf("LogoutUser: %v", err)
	}
	if _, err := svc.SetContextFromToken(ctx, rotated.AccessToken); err == nil {
		t.Fatalf("token should be rejected after logout")
	}
}

func TestRoleIsReadFromUserRow(t *testing.T) {
	ctx := context.Background()
	svc, env := newTestAuth(t, AuthConfig{Debug: true})
	tok, err := svc.LoginDemo(ctx, 42)
	if err != nil {
		t.Fatalf("LoginDemo: %v", err)
	}
	if err := env.repos.Users.UpdateFields(dbcFor(ctx), tok.User.ID, map[string]interface{}{"role": requests.RoleDispatcher}); err != nil {
		t.Fatalf("promote: %v", err)
	}
	authed, err := svc.SetContextFromToken(ctx, tok.AccessToken)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	if rd := ctxutil.GetRequestData(authed); rd.Role != string(requests.RoleDispatcher) {
		t.Fatalf("role should come from the user row, got %q", rd.Role)
	}
}

func TestAdminLogin(t *testing.T) {
	ctx := context.Background()
	svc, env := newTestAuth(t, AuthConfig{})
	dbc := dbcFor(ctx)

	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	company := testutil.SeedCompany(t, ctx, env.db, "УК Север")
	staff := testutil.SeedUser(t, ctx, env.db, requests.RoleAdmin, &company.ID, nil)
	if err := env.repos.Users.UpdateFields(dbc, staff.ID, map[string]interface{}{"password_hash": hash}); err != nil {
		t.Fatalf("set password: %v", err)
	}
	resident := testutil.SeedUser(t, ctx, env.db, requests.RoleResident, nil, nil)
	nopass := testutil.SeedUser(t, ctx, env.db, requests.RoleDispatcher, &company.ID, nil)

	if _, err := svc.LoginAdmin(ctx, staff.TelegramID, "s3cret"); err != nil {
		t.Fatalf("LoginAdmin: %v", err)
	}
	_, err = svc.LoginAdmin(ctx, staff.TelegramID, "wrong")
	wantAPIStatus(t, err, http.StatusUnauthorized, "invalid_credentials")
	_, err = svc.LoginAdmin(ctx, resident.TelegramID, "")
	wantAPIStatus(t, err, http.StatusForbidden, "staff_only")
	_, err = svc.LoginAdmin(ctx, nopass.TelegramID, "")
	wantAPIStatus(t, err, http.StatusUnauthorized, "password_not_set")
	_, err = svc.LoginAdmin(ctx, 987654321, "")
	wantAPIStatus(t, err, http.StatusNotFound, "user_not_found")
}

func TestLoginTelegramUpsertsUser(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	const bot = "1:bot"
	svc, env := newTestAuth(t, AuthConfig{TelegramBotToken: bot, InitDataMaxAge: 24 * time.Hour, Now: func() time.Time { return now }})

	initData := func(first string) string {
		v := url.Values{}
		v.Set("auth_date", strconv.FormatInt(now.Unix(), 10))
		v.Set("user", `{"id":31337,"first_name":"`+first+`","username":"petr"}`)
		v.Set("hash", SignTelegramInitData(v, bot))
		return v.Encode()
	}

	tok, err := svc.LoginTelegram(ctx, initData("Пётр"))
	if err != nil {
		t.Fatalf("LoginTelegram: %v", err)
	}
	if tok.User.TelegramID != 31337 || tok.User.FirstName != "Пётр" {
		t.Fatalf("unexpected user: %+v", tok.User)
	}
	again, err := svc.LoginTelegram(ctx, initData("Петя"))
	if err != nil {
		t.Fatalf("LoginTelegram again: %v", err)
	}
	if again.User.ID != tok.User.ID {
		t.Fatalf("second login should reuse the user row")
	}
	found, _ := env.repos.Users.GetByTelegramIDs(dbcFor(ctx), []int64{31337})
	if len(found) != 1 || found[0].FirstName != "Петя" {
		t.Fatalf("profile not refreshed from init data")
	}

	_, err = svc.LoginTelegram(ctx, "user=%7B%7D&hash=00")
	wantAPIStatus(t, err, http.StatusUnauthorized, "invalid_init_data")
}

func TestSessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	svc, env := newTestAuth(t, AuthConfig{Debug: true})
	phone, err := svc.LoginDemo(ctx, 7)
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	laptop, err := svc.LoginDemo(ctx, 7)
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if n, _ := env.repos.Tokens.CountForUser(dbcFor(ctx), phone.User.ID); n != 2 {
		t.Fatalf("want two live sessions, got %d", n)
	}

	authed, err := svc.SetContextFromToken(ctx, phone.AccessToken)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	if err := svc.LogoutUser(authed); err != nil {
		t.Fatalf("LogoutUser: %v", err)
	}
	if _, err := svc.SetContextFromToken(ctx, laptop.AccessToken); err != nil {
		t.Fatalf("other session should survive logout: %v", err)
	}
}
