package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/nepq-coach-backend/internal/data/repos"
	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/platform/apierr"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

type LeaderboardPeriod string

const (
	PeriodWeek  LeaderboardPeriod = "week"
	PeriodMonth LeaderboardPeriod = "month"
	PeriodAll   LeaderboardPeriod = "all"
)

type LeaderboardQuery struct {
	TeamID uuid.UUID
	Period string
	Limit  int
}

type LeaderboardEntry struct {
	Rank           int            `json:"rank"`
	UserID         uuid.UUID      `json:"userId"`
	Name           string         `json:"name"`
	AvatarColor    string         `json:"avatarColor,omitempty"`
	TeamID         *uuid.UUID     `json:"teamId,omitempty"`
	TeamName       string         `json:"teamName,omitempty"`
	AverageScore   float64        `json:"averageScore"`
	BestScore      int            `json:"bestScore"`
	RecordingCount int64          `json:"recordingCount"`
	Tier           nepq.ScoreTier `json:"tier"`
}

type Leaderboard struct {
	Period  LeaderboardPeriod   `json:"period"`
	TeamID  *uuid.UUID          `json:"teamId,omitempty"`
	Entries []*LeaderboardEntry `json:"entries"`
}

type LeaderboardService interface {
	Get(dbc dbctx.Context, q LeaderboardQuery) (*Leaderboard, error)
}

type leaderboardService struct {
	log           *logger.Logger
	recordingRepo repos.RecordingRepo
	userRepo      repos.UserRepo
	teamRepo      repos.TeamRepo
	now           func() time.Time
}

func NewLeaderboardService(log *logger.Logger, recordingRepo repos.RecordingRepo, userRepo repos.UserRepo, teamRepo repos.TeamRepo) LeaderboardService {
	return &leaderboardService{
		log:           log.With("service", "LeaderboardService"),
		recordingRepo: recordingRepo,
		userRepo:      userRepo,
		teamRepo:      teamRepo,
		now:           time.Now,
	}
}

func (ls *leaderboardService) Get(dbc dbctx.Context, q LeaderboardQuery) (*Leaderboard, error) {
	rd, err := requireRequestData(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	period := LeaderboardPeriod(strings.ToLower(strings.TrimSpace(q.Period)))
	var since time.Time
	switch period {
	case "", PeriodAll:
		period = PeriodAll
	case PeriodWeek:
		since = ls.now().AddDate(0, 0, -7)
	case PeriodMonth:
		since = ls.now().AddDate(0, -1, 0)
	default:
		return nil, apierr.Invalid("invalid_period", "unknown period %q", q.Period)
	}

	var userIDs []uuid.UUID
	board := &Leaderboard{Period: period, Entries: []*LeaderboardEntry{}}
	if q.TeamID != uuid.Nil {
		teams, err := ls.teamRepo.GetByIDs(dbc, []uuid.UUID{q.TeamID})
		if err != nil {
			return nil, fmt.Errorf("load team: %w", err)
		}
		if len(teams) == 0 || (rd.OrganizationID != uuid.Nil && teams[0].OrganizationID != rd.OrganizationID) {
			return nil, apierr.NotFound("team_not_found", "team %s", q.TeamID)
		}
		members, err := ls.userRepo.GetByTeamIDs(dbc, []uuid.UUID{q.TeamID})
		if err != nil {
			return nil, fmt.Errorf("load team members: %w", err)
		}
		if len(members) == 0 {
			return board, nil
		}
		for _, m := range members {
			userIDs = append(userIDs, m.ID)
		}
		teamID := q.TeamID
		board.TeamID = &teamID
	}

	stats, err := ls.recordingRepo.UserStats(dbc, userIDs, since)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	if len(stats) == 0 {
		return board, nil
	}
	ids := make([]uuid.UUID, 0, len(stats))
	for _, s := range stats {
		ids = append(ids, s.UserID)
	}
	users, err := ls.userRepo.GetByIDsWithTeam(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	byID := make(map[uuid.UUID]int, len(users))
	for i, u := range users {
		byID[u.ID] = i
	}

	for _, s := range stats {
		i, ok := byID[s.UserID]
		if !ok {
			continue
		}
		u := users[i]
		if rd.OrganizationID != uuid.Nil && (u.OrganizationID == nil || *u.OrganizationID != rd.OrganizationID) {
			continue
		}
		avg := math.Round(s.AverageScore*10) / 10
		entry := &LeaderboardEntry{
			UserID:         u.ID,
			Name:           u.DisplayName(),
			AvatarColor:    u.AvatarColor,
			TeamID:         u.TeamID,
			AverageScore:   avg,
			BestScore:      s.BestScore,
			RecordingCount: s.RecordingCount,
			Tier:           nepq.TierOf(int(math.Round(s.AverageScore))),
		}
		if u.Team != nil {
			entry.TeamName = u.Team.Name
		}
		board.Entries = append(board.Entries, entry)
		if q.Limit > 0 && len(board.Entries) == q.Limit {
			break
		}
	}
	assignRanks(board.Entries)
	return board, nil
}

// assignRanks uses competition ranking: equal averages share a rank and
// the next distinct average skips ahead.
func assignRanks(entries []*LeaderboardEntry) {
	for i, e := range entries {
		if i > 0 && e.AverageScore == entries[i-1].AverageScore {
			e.Rank = entries[i-1].Rank
			continue
		}
		e.Rank = i + 1
	}
}
