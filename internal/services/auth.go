package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/housedesk-backend/internal/data/repos"
	"github.com/yungbote/housedesk-backend/internal/domain/auth"
	"github.com/yungbote/housedesk-backend/internal/domain/directory"
	"github.com/yungbote/housedesk-backend/internal/platform/apierr"
	"github.com/yungbote/housedesk-backend/internal/platform/ctxutil"
	"github.com/yungbote/housedesk-backend/internal/platform/dbctx"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

type AuthConfig struct {
	JWTSecretKey     string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	TelegramBotToken string
	InitDataMaxAge   time.Duration
	// Debug enables demo login and password-less staff login.
	Debug bool
	Now   func() time.Time
}

// Tokens is a freshly issued session.
type Tokens struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    int             `json:"expires_in"`
	User         *directory.User `json:"user"`
}

type AuthService interface {
	LoginTelegram(ctx context.Context, initData string) (*Tokens, error)
	LoginDemo(ctx context.Context, telegramID int64) (*Tokens, error)
	LoginAdmin(ctx context.Context, telegramID int64, password string) (*Tokens, error)
	RefreshUser(ctx context.Context, refreshToken string) (*Tokens, error)
	LogoutUser(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

// JWTClaims carries role and company for clients; the server re-reads both
// from the user row on every request.
type JWTClaims struct {
	Role      string `json:"role,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	cfg           AuthConfig
}

func NewAuthService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, userTokenRepo repos.UserTokenRepo, cfg AuthConfig) AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &authService{
		db:            db,
		log:           log.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		cfg:           cfg,
	}
}

func (as *authService) GetAccessTTL() time.Duration { return as.cfg.AccessTTL }

func (as *authService) LoginTelegram(ctx context.Context, initData string) (*Tokens, error) {
	if strings.TrimSpace(as.cfg.TelegramBotToken) == "" {
		return nil, apierr.Unavailable("telegram_not_configured", "telegram login is not configured")
	}
	tu, err := VerifyTelegramInitData(initData, as.cfg.TelegramBotToken, as.cfg.InitDataMaxAge, as.cfg.Now())
	if err != nil {
		as.log.Warn("telegram init data rejected", "error", err)
		return nil, apierr.Unauthorized("invalid_init_data", "telegram init data rejected").WithCause(err)
	}

	var out *Tokens
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		user, err := as.upsertTelegramUser(dbc, tu)
		if err != nil {
			return err
		}
		out, err = as.issue(dbc, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (as *authService) upsertTelegramUser(dbc dbctx.Context, tu *TelegramUser) (*directory.User, error) {
	found, err := as.userRepo.GetByTelegramIDs(dbc, []int64{tu.ID})
	if err != nil {
		return nil, fmt.Errorf("lookup telegram user: %w", err)
	}
	if len(found) == 0 {
		created, err := as.userRepo.Create(dbc, []*directory.User{{
			TelegramID: tu.ID,
			Username:   tu.Username,
			FirstName:  tu.FirstName,
			LastName:   tu.LastName,
		}})
		if err != nil {
			return nil, fmt.Errorf("create telegram user: %w", err)
		}
		as.log.Info("telegram user registered", "user_id", created[0].ID)
		return created[0], nil
	}

	user := found[0]
	updates := map[string]interface{}{}
	if tu.Username != "" && tu.Username != user.Username {
		updates["username"] = tu.Username
		user.Username = tu.Username
	}
	if tu.FirstName != "" && tu.FirstName != user.FirstName {
		updates["first_name"] = tu.FirstName
		user.FirstName = tu.FirstName
	}
	if tu.LastName != "" && tu.LastName != user.LastName {
		updates["last_name"] = tu.LastName
		user.LastName = tu.LastName
	}
	if len(updates) > 0 {
		if err := as.userRepo.UpdateFields(dbc, user.ID, updates); err != nil {
			return nil, fmt.Errorf("refresh telegram profile: %w", err)
		}
	}
	return user, nil
}

func (as *authService) LoginDemo(ctx context.Context, telegramID int64) (*Tokens, error) {
	if !as.cfg.Debug {
		return nil, apierr.NotFound("not_found", "demo login disabled")
	}
	if telegramID == 0 {
		telegramID = 123456789
	}
	var out *Tokens
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		found, err := as.userRepo.GetByTelegramIDs(dbc, []int64{telegramID})
		if err != nil {
			return fmt.Errorf("lookup demo user: %w", err)
		}
		var user *directory.User
		if len(found) > 0 {
			user = found[0]
		} else {
			created, err := as.userRepo.Create(dbc, []*directory.User{{
				TelegramID: telegramID,
				Username:   "demo_user",
				FirstName:  "Демо",
				LastName:   "Пользователь",
			}})
			if err != nil {
				return fmt.Errorf("create demo user: %w", err)
			}
			user = created[0]
		}
		out, err = as.issue(dbc, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (as *authService) LoginAdmin(ctx context.Context, telegramID int64, password string) (*Tokens, error) {
	var out *Tokens
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		found, err := as.userRepo.GetByTelegramIDs(dbc, []int64{telegramID})
		if err != nil {
			return fmt.Errorf("lookup staff user: %w", err)
		}
		if len(found) == 0 {
			return apierr.NotFound("user_not_found", "user not found")
		}
		user := found[0]
		if !user.Role.IsStaff() {
			return apierr.Forbidden("staff_only", "staff login is not available for role %s", user.Role)
		}
		switch {
		case user.PasswordHash != "":
			if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
				return apierr.Unauthorized("invalid_credentials", "invalid credentials")
			}
		case !as.cfg.Debug:
			return apierr.Unauthorized("password_not_set", "no password set for this account")
		}
		out, err = as.issue(dbc, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (as *authService) RefreshUser(ctx context.Context, refreshToken string) (*Tokens, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apierr.BadRequest("missing_refresh_token", "refresh token required")
	}
	var out *Tokens
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		existing, err := as.userTokenRepo.FindByRefreshToken(dbc, refreshToken)
		if err != nil {
			return fmt.Errorf("lookup refresh token: %w", err)
		}
		if existing == nil {
			return apierr.Unauthorized("invalid_refresh_token", "unknown refresh token")
		}
		if existing.ExpiresAt.Before(as.cfg.Now()) {
			if err := as.userTokenRepo.Revoke(dbc, existing.ID); err != nil {
				return fmt.Errorf("delete expired token: %w", err)
			}
			return apierr.Unauthorized("refresh_token_expired", "refresh token expired")
		}
		users, err := as.userRepo.GetByIDs(dbc, []uuid.UUID{existing.UserID})
		if err != nil {
			return fmt.Errorf("load user for refresh: %w", err)
		}
		if len(users) == 0 {
			return apierr.Unauthorized("user_not_found", "no user for refresh token")
		}
		out, err = as.issue(dbc, users[0])
		if err != nil {
			return err
		}
		if err := as.userTokenRepo.Revoke(dbc, existing.ID); err != nil {
			return fmt.Errorf("remove old token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.TokenString == "" {
		return apierr.Unauthorized("unauthorized", "no session in context")
	}
	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		session, err := as.userTokenRepo.FindByAccessToken(dbc, rd.TokenString)
		if err != nil {
			return fmt.Errorf("lookup session: %w", err)
		}
		if session == nil {
			return nil
		}
		return as.userTokenRepo.Revoke(dbc, session.ID)
	})
}

// SetContextFromToken verifies the access token, checks the session still
// exists and attaches the caller's current role and company to ctx.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.cfg.JWTSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.cfg.Now))
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, fmt.Errorf("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", err)
	}

	dbc := dbctx.Context{Ctx: ctx}
	session, err := as.userTokenRepo.FindByAccessToken(dbc, tokenString)
	if err != nil {
		return ctx, fmt.Errorf("lookup session: %w", err)
	}
	if session == nil || session.UserID != userID {
		return ctx, fmt.Errorf("session ended")
	}
	users, err := as.userRepo.GetByIDs(dbc, []uuid.UUID{userID})
	if err != nil {
		return ctx, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return ctx, fmt.Errorf("user not found")
	}
	user := users[0]
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      user.ID,
		Role:        string(user.Role),
		CompanyID:   user.CompanyID,
	}), nil
}

func (as *authService) issue(dbc dbctx.Context, user *directory.User) (*Tokens, error) {
	now := as.cfg.Now()
	access, err := as.generateAccessToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	if _, err := as.userTokenRepo.PurgeExpired(dbc, now); err != nil {
		as.log.Warn("expired token cleanup failed", "error", err)
	}
	token := &auth.UserToken{
		UserID:       user.ID,
		AccessToken:  access,
		RefreshToken: uuid.New().String(),
		ExpiresAt:    now.Add(as.cfg.RefreshTTL),
	}
	if err := as.userTokenRepo.Create(dbc, token); err != nil {
		return nil, fmt.Errorf("store user token: %w", err)
	}
	return &Tokens{
		AccessToken:  access,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    int(as.cfg.AccessTTL.Seconds()),
		User:         user,
	}, nil
}

func (as *authService) generateAccessToken(user *directory.User, now time.Time) (string, error) {
	claims := JWTClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.cfg.AccessTTL)),
		},
	}
	if user.CompanyID != nil {
		claims.CompanyID = user.CompanyID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.cfg.JWTSecretKey))
}

// HashPassword returns the bcrypt hash stored for staff logins.
func HashPassword(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errors.New("empty password")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
