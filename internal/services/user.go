package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/nepq-coach-backend/internal/data/repos"
	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/platform/apierr"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
	"github.com/yungbote/nepq-coach-backend/internal/realtime"
)

type UserService interface {
	GetMe(dbc dbctx.Context) (*types.User, error)
	UpdateName(ctx context.Context, firstName, lastName string) (*types.User, error)
	UpdateAvatarColor(ctx context.Context, avatarColor string) (*types.User, error)
	RenderAvatar(ctx context.Context, userID uuid.UUID) (bytes.Buffer, error)
}

type userService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	avatarService AvatarService
	emit          SSEEmitter
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, avatarService AvatarService, emit SSEEmitter) UserService {
	serviceLog := log.With("service", "UserService")
	return &userService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		avatarService: avatarService,
		emit:          emit,
	}
}

func (us *userService) GetMe(dbc dbctx.Context) (*types.User, error) {
	rd, err := requireRequestData(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	found, err := us.userRepo.GetByIDsWithTeam(dbc, []uuid.UUID{rd.UserID})
	if err != nil {
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	if len(found) == 0 || found[0] == nil {
		return nil, apierr.NotFound("user_not_found", "user %s", rd.UserID)
	}
	u := found[0]
	if us.avatarService != nil && us.avatarService.EnsureColor(u) {
		if err := us.userRepo.UpdateAvatarColor(dbc, u.ID, u.AvatarColor); err != nil {
			us.log.Warn("Failed to persist avatar color", "user_id", u.ID, "error", err)
		}
	}
	return u, nil
}

func (us *userService) UpdateName(ctx context.Context, firstName, lastName string) (*types.User, error) {
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}

	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return nil, apierr.Invalid("invalid_name", "firstName and lastName required")
	}

	var out *types.User
	if err := us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := us.userRepo.UpdateName(dbc, rd.UserID, firstName, lastName); err != nil {
			return err
		}
		found, err := us.userRepo.GetByIDsWithTeam(dbc, []uuid.UUID{rd.UserID})
		if err != nil || len(found) == 0 || found[0] == nil {
			return apierr.NotFound("user_not_found", "user %s", rd.UserID)
		}
		out = found[0]
		return nil
	}); err != nil {
		return nil, err
	}

	if us.emit != nil {
		us.emit.Emit(ctx, realtime.SSEMessage{
			Channel: realtime.UserChannel(rd.UserID.String()),
			Event:   realtime.SSEEventUserNameChanged,
			Data: map[string]any{
				"userId":    rd.UserID,
				"firstName": firstName,
				"lastName":  lastName,
			},
		})
	}
	return out, nil
}

func (us *userService) UpdateAvatarColor(ctx context.Context, avatarColor string) (*types.User, error) {
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}
	normalized := normalizeHex(avatarColor)
	if normalized == "" || !containsString(us.avatarService.Palette(), normalized) {
		return nil, apierr.Invalid("invalid_avatar_color", "avatar color %q not in palette", avatarColor)
	}

	var out *types.User
	if err := us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := us.userRepo.UpdateAvatarColor(dbc, rd.UserID, normalized); err != nil {
			return err
		}
		found, err := us.userRepo.GetByIDs(dbc, []uuid.UUID{rd.UserID})
		if err != nil || len(found) == 0 || found[0] == nil {
			return apierr.NotFound("user_not_found", "user %s", rd.UserID)
		}
		out = found[0]
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (us *userService) RenderAvatar(ctx context.Context, userID uuid.UUID) (bytes.Buffer, error) {
	if _, err := requireRequestData(ctx); err != nil {
		return bytes.Buffer{}, err
	}
	found, err := us.userRepo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{userID})
	if err != nil {
		return bytes.Buffer{}, fmt.Errorf("error fetching user: %w", err)
	}
	if len(found) == 0 || found[0] == nil {
		return bytes.Buffer{}, apierr.NotFound("user_not_found", "user %s", userID)
	}
	return us.avatarService.GenerateUserAvatar(found[0])
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
