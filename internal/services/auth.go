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

	"github.com/yungbote/nepq-coach-backend/internal/data/repos"
	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/platform/apierr"
	"github.com/yungbote/nepq-coach-backend/internal/platform/ctxutil"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

type JWTClaims struct {
	Role  string `json:"role,omitempty"`
	OrgID string `json:"org,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	LoginUser(ctx context.Context, email, password string) (string, string, error)
	RefreshUser(ctx context.Context, refreshToken string) (string, string, error)
	LogoutUser(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// HashPassword is used by seeding and user provisioning.
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", fmt.Errorf("%w: password required", apierr.ErrInvalidArgument)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", "", apierr.Invalid("missing_credentials", "email and password required")
	}

	var accessToken string
	var refreshToken string
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		users, err := as.userRepo.GetByEmails(dbc, []string{email})
		if err != nil {
			return fmt.Errorf("error retrieving user by email: %w", err)
		}
		if len(users) == 0 || users[0] == nil {
			return apierr.Unauthorized("invalid_credentials", "invalid email or password")
		}
		user := users[0]
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
			return apierr.Unauthorized("invalid_credentials", "invalid email or password")
		}

		if n, err := as.userTokenRepo.FullDeleteExpired(dbc, as.now()); err != nil {
			return fmt.Errorf("failed to purge expired tokens: %w", err)
		} else if n > 0 {
			as.log.Debug("Purged expired user tokens", "count", n)
		}

		tok, err := as.issueToken(dbc, user)
		if err != nil {
			return err
		}
		accessToken = tok.AccessToken
		refreshToken = tok.RefreshToken

		if err := as.userRepo.TouchLastActive(dbc, user.ID, as.now()); err != nil {
			as.log.Warn("Failed to touch last active", "user_id", user.ID, "error", err)
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (as *authService) RefreshUser(ctx context.Context, refreshToken string) (string, string, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return "", "", apierr.Unauthorized("missing_refresh_token", "refresh token required")
	}

	var accessToken string
	var newRefreshToken string
	expired := false
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		found, err := as.userTokenRepo.GetByRefreshTokens(dbc, []string{refreshToken})
		if err != nil {
			return fmt.Errorf("error fetching refresh token: %w", err)
		}
		if len(found) == 0 || found[0] == nil {
			return apierr.Unauthorized("invalid_refresh_token", "unknown refresh token")
		}
		existing := found[0]
		if existing.ExpiresAt.Before(as.now()) {
			if err := as.userTokenRepo.FullDeleteByIDs(dbc, []uuid.UUID{existing.ID}); err != nil {
				return fmt.Errorf("refresh token expired, error deleting: %w", err)
			}
			expired = true
			return nil
		}

		users, err := as.userRepo.GetByIDs(dbc, []uuid.UUID{existing.UserID})
		if err != nil {
			return fmt.Errorf("failed to load user for refresh: %w", err)
		}
		if len(users) == 0 || users[0] == nil {
			return apierr.Unauthorized("invalid_refresh_token", "no user for refresh token")
		}

		tok, err := as.issueToken(dbc, users[0])
		if err != nil {
			return err
		}
		if err := as.userTokenRepo.FullDeleteByIDs(dbc, []uuid.UUID{existing.ID}); err != nil {
			return fmt.Errorf("failed to remove old refresh token: %w", err)
		}
		accessToken = tok.AccessToken
		newRefreshToken = tok.RefreshToken
		return nil
	})
	if err != nil {
		as.log.Warn("Refresh failed", "error", err)
		return "", "", err
	}
	// The delete of an expired row must commit, so the error is raised
	// outside the transaction.
	if expired {
		return "", "", apierr.Unauthorized("refresh_token_expired", "refresh token expired")
	}
	return accessToken, newRefreshToken, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.TokenString == "" {
		return apierr.Unauthorized("unauthorized", "no session in context")
	}
	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		found, err := as.userTokenRepo.GetByAccessTokens(dbc, []string{rd.TokenString})
		if err != nil {
			return fmt.Errorf("error finding user token: %w", err)
		}
		if len(found) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(found))
		for _, t := range found {
			ids = append(ids, t.ID)
		}
		if err := as.userTokenRepo.FullDeleteByIDs(dbc, ids); err != nil {
			return fmt.Errorf("error deleting user token: %w", err)
		}
		return nil
	})
}

// issueToken signs an access token and stores it with a fresh refresh token.
// The row id doubles as the JWT id, so two logins never share a token.
func (as *authService) issueToken(dbc dbctx.Context, user *types.User) (*types.UserToken, error) {
	row := &types.UserToken{
		ID:           uuid.New(),
		UserID:       user.ID,
		RefreshToken: uuid.New().String(),
		ExpiresAt:    as.now().Add(as.refreshTTL),
	}
	access, err := as.generateAccessToken(user, row.ID)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	row.AccessToken = access
	if _, err := as.userTokenRepo.Create(dbc, []*types.UserToken{row}); err != nil {
		as.log.Warn("Create user token error", "error", err)
		return nil, fmt.Errorf("create user token: %w", err)
	}
	return row, nil
}

func (as *authService) generateAccessToken(user *types.User, tokenID uuid.UUID) (string, error) {
	now := as.now()
	claims := JWTClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID.String(),
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if user.OrganizationID != nil {
		claims.OrgID = user.OrganizationID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ctx, apierr.Unauthorized("token_expired", "access token expired")
		}
		return ctx, apierr.Unauthorized("invalid_token", "failed to parse token: %v", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, apierr.Unauthorized("invalid_token", "invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apierr.Unauthorized("invalid_token", "invalid user id in token")
	}

	found, err := as.userTokenRepo.GetByAccessTokens(dbctx.Context{Ctx: ctx}, []string{tokenString})
	if err != nil {
		as.log.Warn("Error fetching user token by access token", "error", err)
		return ctx, fmt.Errorf("failed to fetch user token by access token: %w", err)
	}
	if len(found) == 0 || found[0] == nil {
		return ctx, apierr.Unauthorized("session_revoked", "session no longer active")
	}

	rd := &ctxutil.RequestData{
		TokenString:  tokenString,
		RefreshToken: found[0].RefreshToken,
		UserID:       userID,
		SessionID:    found[0].ID,
		Role:         claims.Role,
	}
	if claims.OrgID != "" {
		if orgID, err := uuid.Parse(claims.OrgID); err == nil {
			rd.OrganizationID = orgID
		}
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
