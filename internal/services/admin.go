package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/nepq-coach-backend/internal/data/repos"
	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/platform/apierr"
	"github.com/yungbote/nepq-coach-backend/internal/platform/ctxutil"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

// ActiveWindow is how recently a user must have logged in to count as active.
const ActiveWindow = 30 * 24 * time.Hour

// RetentionForever keeps recordings indefinitely.
const RetentionForever = 0

var retentionChoices = map[int]bool{RetentionForever: true, 30: true, 90: true, 365: true}

type AdminUser struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Role           types.Role `json:"role"`
	TeamID         *uuid.UUID `json:"teamId,omitempty"`
	TeamName       string     `json:"teamName,omitempty"`
	LastActive     *time.Time `json:"lastActive,omitempty"`
	RecordingCount int64      `json:"recordingCount"`
	AverageScore   *float64   `json:"averageScore,omitempty"`
	IsActive       bool       `json:"isActive"`
}

type AdminTeam struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	CoachID         *uuid.UUID `json:"coachId,omitempty"`
	CoachName       string     `json:"coachName,omitempty"`
	MemberCount     int        `json:"memberCount"`
	AverageScore    *float64   `json:"averageScore,omitempty"`
	TotalRecordings int64      `json:"totalRecordings"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// AdminOverview is the organization summary: head counts, recordings and
// the mean of per-user averages.
type AdminOverview struct {
	TotalUsers      int      `json:"totalUsers"`
	ActiveUsers     int      `json:"activeUsers"`
	Teams           int      `json:"teams"`
	TotalRecordings int64    `json:"totalRecordings"`
	AverageScore    *float64 `json:"averageScore,omitempty"`
}

type AdminOrganization struct {
	ID        uuid.UUID                  `json:"id"`
	Name      string                     `json:"name"`
	Plan      types.Plan                 `json:"plan"`
	Seats     int                        `json:"seats"`
	UsedSeats int                        `json:"usedSeats"`
	Settings  types.OrganizationSettings `json:"settings"`
}

// UpdateSettingsInput patches organization settings; nil fields are kept.
type UpdateSettingsInput struct {
	RetentionDays          *int  `json:"retentionDays"`
	AllowRecordingDownload *bool `json:"allowRecordingDownload"`
	EnableRealTimeCoaching *bool `json:"enableRealTimeCoaching"`
}

// AdminService backs the organization admin panel. Every method is limited
// to admins and to the caller's own organization.
type AdminService interface {
	Overview(dbc dbctx.Context) (*AdminOverview, error)
	ListUsers(dbc dbctx.Context) ([]*AdminUser, error)
	ListTeams(dbc dbctx.Context) ([]*AdminTeam, error)
	Organization(dbc dbctx.Context) (*AdminOrganization, error)
	UpdateSettings(ctx context.Context, in UpdateSettingsInput) (*AdminOrganization, error)
}

type adminService struct {
	db            *gorm.DB
	log           *logger.Logger
	orgRepo       repos.OrganizationRepo
	teamRepo      repos.TeamRepo
	userRepo      repos.UserRepo
	recordingRepo repos.RecordingRepo
	now           func() time.Time
}

func NewAdminService(
	db *gorm.DB,
	log *logger.Logger,
	orgRepo repos.OrganizationRepo,
	teamRepo repos.TeamRepo,
	userRepo repos.UserRepo,
	recordingRepo repos.RecordingRepo,
) AdminService {
	return &adminService{
		db:            db,
		log:           log.With("service", "AdminService"),
		orgRepo:       orgRepo,
		teamRepo:      teamRepo,
		userRepo:      userRepo,
		recordingRepo: recordingRepo,
		now:           time.Now,
	}
}

func (as *adminService) Overview(dbc dbctx.Context) (*AdminOverview, error) {
	users, err := as.ListUsers(dbc)
	if err != nil {
		return nil, err
	}
	rd := ctxutil.GetRequestData(dbc.Ctx)
	teams, err := as.teamRepo.GetByOrganizationID(dbc, rd.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	out := &AdminOverview{TotalUsers: len(users), Teams: len(teams)}
	var sum float64
	var scored int
	for _, u := range users {
		if u.IsActive {
			out.ActiveUsers++
		}
		out.TotalRecordings += u.RecordingCount
		if u.AverageScore != nil {
			sum += *u.AverageScore
			scored++
		}
	}
	if scored > 0 {
		avg := math.Round(sum / float64(scored))
		out.AverageScore = &avg
	}
	return out, nil
}

func (as *adminService) ListUsers(dbc dbctx.Context) ([]*AdminUser, error) {
	rd, err := requireAdmin(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	members, err := as.userRepo.GetByOrganizationID(dbc, rd.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	stats, err := as.userStats(dbc, members)
	if err != nil {
		return nil, err
	}

	cutoff := as.now().Add(-ActiveWindow)
	out := make([]*AdminUser, 0, len(members))
	for _, m := range members {
		u := &AdminUser{
			ID:         m.ID,
			Email:      m.Email,
			FirstName:  m.FirstName,
			LastName:   m.LastName,
			Role:       m.Role,
			TeamID:     m.TeamID,
			LastActive: m.LastActiveAt,
			IsActive:   m.LastActiveAt != nil && m.LastActiveAt.After(cutoff),
		}
		if m.Team != nil {
			u.TeamName = m.Team.Name
		}
		if st, ok := stats[m.ID]; ok && st.RecordingCount > 0 {
			u.RecordingCount = st.RecordingCount
			avg := roundScore(st.AverageScore)
			u.AverageScore = &avg
		}
		out = append(out, u)
	}
	return out, nil
}

func (as *adminService) ListTeams(dbc dbctx.Context) ([]*AdminTeam, error) {
	rd, err := requireAdmin(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	teams, err := as.teamRepo.GetByOrganizationID(dbc, rd.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	members, err := as.userRepo.GetByOrganizationID(dbc, rd.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	stats, err := as.userStats(dbc, members)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*types.User, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	out := make([]*AdminTeam, 0, len(teams))
	for _, t := range teams {
		team := &AdminTeam{ID: t.ID, Name: t.Name, CoachID: t.CoachID, CreatedAt: t.CreatedAt}
		if t.CoachID != nil {
			if coach, ok := byID[*t.CoachID]; ok {
				team.CoachName = coach.DisplayName()
			}
		}
		// Team average weights each member by their recording count.
		var weighted float64
		for _, m := range members {
			if m.TeamID == nil || *m.TeamID != t.ID {
				continue
			}
			team.MemberCount++
			st := stats[m.ID]
			team.TotalRecordings += st.RecordingCount
			weighted += st.AverageScore * float64(st.RecordingCount)
		}
		if team.TotalRecordings > 0 {
			avg := roundScore(weighted / float64(team.TotalRecordings))
			team.AverageScore = &avg
		}
		out = append(out, team)
	}
	return out, nil
}

func (as *adminService) Organization(dbc dbctx.Context) (*AdminOrganization, error) {
	rd, err := requireAdmin(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	org, err := as.loadOrganization(dbc, rd.OrganizationID)
	if err != nil {
		return nil, err
	}
	return as.organizationView(dbc, org)
}

func (as *adminService) UpdateSettings(ctx context.Context, in UpdateSettingsInput) (*AdminOrganization, error) {
	rd, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if in.RetentionDays != nil && !retentionChoices[*in.RetentionDays] {
		return nil, apierr.Invalid("invalid_retention", "retentionDays must be 0 (forever), 30, 90 or 365; got %d", *in.RetentionDays)
	}

	var out *AdminOrganization
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		org, err := as.loadOrganization(dbc, rd.OrganizationID)
		if err != nil {
			return err
		}
		settings, err := decodeSettings(org)
		if err != nil {
			return err
		}
		if in.RetentionDays != nil {
			settings.RetentionDays = *in.RetentionDays
		}
		if in.AllowRecordingDownload != nil {
			settings.AllowRecordingDownload = *in.AllowRecordingDownload
		}
		if in.EnableRealTimeCoaching != nil {
			settings.EnableRealTimeCoaching = *in.EnableRealTimeCoaching
		}
		raw, err := json.Marshal(settings)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		if err := as.orgRepo.UpdateSettings(dbc, org.ID, datatypes.JSON(raw)); err != nil {
			return fmt.Errorf("update settings: %w", err)
		}
		org.Settings = datatypes.JSON(raw)
		out, err = as.organizationView(dbc, org)
		return err
	})
	if err != nil {
		return nil, err
	}
	as.log.Info("Organization settings updated", "organization_id", out.ID, "user_id", rd.UserID, "retention_days", out.Settings.RetentionDays)
	return out, nil
}

func (as *adminService) loadOrganization(dbc dbctx.Context, orgID uuid.UUID) (*types.Organization, error) {
	rows, err := as.orgRepo.GetByIDs(dbc, []uuid.UUID{orgID})
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	if len(rows) == 0 {
		return nil, apierr.NotFound("organization_not_found", "organization %s", orgID)
	}
	return rows[0], nil
}

func (as *adminService) organizationView(dbc dbctx.Context, org *types.Organization) (*AdminOrganization, error) {
	settings, err := decodeSettings(org)
	if err != nil {
		return nil, err
	}
	members, err := as.userRepo.GetByOrganizationID(dbc, org.ID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	used := org.UsedSeats
	if len(members) > used {
		used = len(members)
	}
	return &AdminOrganization{
		ID:        org.ID,
		Name:      org.Name,
		Plan:      org.Plan,
		Seats:     org.Seats,
		UsedSeats: used,
		Settings:  settings,
	}, nil
}

func (as *adminService) userStats(dbc dbctx.Context, members []*types.User) (map[uuid.UUID]repos.UserStat, error) {
	out := make(map[uuid.UUID]repos.UserStat, len(members))
	if len(members) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	rows, err := as.recordingRepo.UserStats(dbc, ids, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	for _, r := range rows {
		out[r.UserID] = r
	}
	return out, nil
}

func requireAdmin(ctx context.Context) (*ctxutil.RequestData, error) {
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}
	if types.Role(rd.Role) != types.RoleAdmin || rd.OrganizationID == uuid.Nil {
		return nil, apierr.Forbidden("forbidden", "admin access required")
	}
	return rd, nil
}

func decodeSettings(org *types.Organization) (types.OrganizationSettings, error) {
	var settings types.OrganizationSettings
	if len(org.Settings) == 0 || string(org.Settings) == "null" {
		return settings, nil
	}
	if err := json.Unmarshal(org.Settings, &settings); err != nil {
		return settings, fmt.Errorf("decode organization %s settings: %w", org.ID, err)
	}
	return settings, nil
}

func roundScore(v float64) float64 {
	return math.Round(v*10) / 10
}
