package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/nepq-coach-backend/internal/data/repos"
	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/platform/apierr"
	"github.com/yungbote/nepq-coach-backend/internal/platform/ctxutil"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
)

func requireRequestData(ctx context.Context) (*ctxutil.RequestData, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("unauthorized", "request data not set in context")
	}
	return rd, nil
}

func canManageTraining(rd *ctxutil.RequestData) bool {
	return rd != nil && types.Role(rd.Role).CanManageTraining()
}

// canViewUserData lets coaches and admins review members of their own
// organization; agents only see their own rows.
func canViewUserData(dbc dbctx.Context, users repos.UserRepo, rd *ctxutil.RequestData, ownerID uuid.UUID) (bool, error) {
	if rd == nil {
		return false, nil
	}
	if rd.UserID == ownerID {
		return true, nil
	}
	if !canManageTraining(rd) || rd.OrganizationID == uuid.Nil {
		return false, nil
	}
	return sameOrganization(dbc, users, rd.OrganizationID, ownerID)
}

func sameOrganization(dbc dbctx.Context, users repos.UserRepo, orgID, userID uuid.UUID) (bool, error) {
	rows, err := users.GetByIDs(dbc, []uuid.UUID{userID})
	if err != nil {
		return false, fmt.Errorf("get user: %w", err)
	}
	if len(rows) == 0 || rows[0].OrganizationID == nil {
		return false, nil
	}
	return *rows[0].OrganizationID == orgID, nil
}
