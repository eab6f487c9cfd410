package recording

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

// RecordingFilter narrows List. Superseded versions are excluded unless
// IncludeHistory is set.
type RecordingFilter struct {
	UserIDs        []uuid.UUID
	ScenarioID     uuid.UUID
	Bookmarked     *bool
	IncludeHistory bool
	Limit          int
	Offset         int
}

// ScenarioStat aggregates the latest recordings of one scenario.
type ScenarioStat struct {
	ScenarioID     uuid.UUID
	RecordingCount int64
	AverageScore   float64
}

// UserStat aggregates the latest recordings of one user.
type UserStat struct {
	UserID         uuid.UUID
	RecordingCount int64
	AverageScore   float64
	BestScore      int
}

type RecordingRepo interface {
	Create(dbc dbctx.Context, recordings []*types.Recording) ([]*types.Recording, error)
	GetByIDs(dbc dbctx.Context, recordingIDs []uuid.UUID) ([]*types.Recording, error)
	List(dbc dbctx.Context, filter RecordingFilter) ([]*types.Recording, int64, error)
	ListLatest(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.Recording, error)
	MarkSuperseded(dbc dbctx.Context, recordingID, supersededByID uuid.UUID) (bool, error)
	SetBookmarked(dbc dbctx.Context, recordingID uuid.UUID, bookmarked bool) error
	ScenarioStats(dbc dbctx.Context, scenarioIDs []uuid.UUID) (map[uuid.UUID]ScenarioStat, error)
	UserStats(dbc dbctx.Context, userIDs []uuid.UUID, since time.Time) ([]UserStat, error)
}

type recordingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordingRepo(db *gorm.DB, baseLog *logger.Logger) RecordingRepo {
	repoLog := baseLog.With("repo", "RecordingRepo")
	return &recordingRepo{db: db, log: repoLog}
}

func (rr *recordingRepo) Create(dbc dbctx.Context, recordings []*types.Recording) ([]*types.Recording, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = rr.db
	}
	if len(recordings) == 0 {
		return []*types.Recording{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&recordings).Error; err != nil {
		return nil, err
	}
	return recordings, nil
}

func (rr *recordingRepo) GetByIDs(dbc dbctx.Context, recordingIDs []uuid.UUID) ([]*types.Recording, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []*types.Recording
	if len(recordingIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", recordingIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *recordingRepo) List(dbc dbctx.Context, filter RecordingFilter) ([]*types.Recording, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = rr.db
	}

	q := transaction.WithContext(dbc.Ctx).Model(&types.Recording{})
	if len(filter.UserIDs) > 0 {
		q = q.Where("user_id IN ?", filter.UserIDs)
	}
	if filter.ScenarioID != uuid.Nil {
		q = q.Where("scenario_id = ?", filter.ScenarioID)
	}
	if filter.Bookmarked != nil {
		q = q.Where("is_bookmarked = ?", *filter.Bookmarked)
	}
	if !filter.IncludeHistory {
		q = q.Where("superseded_by_id IS NULL")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*types.Recording
	page := q.Order("created_at DESC").Order("id ASC")
	if filter.Limit > 0 {
		page = page.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		page = page.Offset(filter.Offset)
	}
	if err := page.Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// ListLatest pages through every current recording in id order.
func (rr *recordingRepo) ListLatest(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.Recording, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = rr.db
	}

	q := transaction.WithContext(dbc.Ctx).
		Where("superseded_by_id IS NULL")
	if afterID != uuid.Nil {
		q = q.Where("id > ?", afterID)
	}
	if limit <= 0 {
		limit = 100
	}

	var results []*types.Recording
	if err := q.Order("id ASC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// MarkSuperseded links an older version to its successor. It reports false
// when the row was already superseded by someone else.
func (rr *recordingRepo) MarkSuperseded(dbc dbctx.Context, recordingID, supersededByID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = rr.db
	}

	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Recording{}).
		Where("id = ? AND superseded_by_id IS NULL", recordingID).
		Update("superseded_by_id", supersededByID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (rr *recordingRepo) SetBookmarked(dbc dbctx.Context, recordingID uuid.UUID, bookmarked bool) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Recording{}).
		Where("id = ?", recordingID).
		Update("is_bookmarked", bookmarked).Error
}

func (rr *recordingRepo) ScenarioStats(dbc dbctx.Context, scenarioIDs []uuid.UUID) (map[uuid.UUID]ScenarioStat, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = rr.db
	}

	out := make(map[uuid.UUID]ScenarioStat, len(scenarioIDs))
	if len(scenarioIDs) == 0 {
		return out, nil
	}

	var rows []ScenarioStat
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Recording{}).
		Select("scenario_id AS scenario_id, COUNT(*) AS recording_count, AVG(overall_score) AS average_score").
		Where("scenario_id IN ? AND superseded_by_id IS NULL", scenarioIDs).
		Group("scenario_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ScenarioID] = row
	}
	return out, nil
}

// UserStats aggregates per user, best average first. Empty userIDs means
// every user; a zero since means all time.
func (rr *recordingRepo) UserStats(dbc dbctx.Context, userIDs []uuid.UUID, since time.Time) ([]UserStat, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = rr.db
	}

	q := transaction.WithContext(dbc.Ctx).
		Model(&types.Recording{}).
		Select("user_id AS user_id, COUNT(*) AS recording_count, AVG(overall_score) AS average_score, MAX(overall_score) AS best_score").
		Where("superseded_by_id IS NULL")
	if len(userIDs) > 0 {
		q = q.Where("user_id IN ?", userIDs)
	}
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}

	var rows []UserStat
	if err := q.Group("user_id").
		Order("average_score DESC").
		Order("recording_count DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
