package recording

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

type CommentRepo interface {
	Create(dbc dbctx.Context, comments []*types.Comment) ([]*types.Comment, error)
	GetByIDs(dbc dbctx.Context, commentIDs []uuid.UUID) ([]*types.Comment, error)
	GetByRecordingIDs(dbc dbctx.Context, recordingIDs []uuid.UUID) ([]*types.Comment, error)
	UpdateReactions(dbc dbctx.Context, commentID uuid.UUID, reactions datatypes.JSON) error
}

type commentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	repoLog := baseLog.With("repo", "CommentRepo")
	return &commentRepo{db: db, log: repoLog}
}

func (cr *commentRepo) Create(dbc dbctx.Context, comments []*types.Comment) ([]*types.Comment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = cr.db
	}
	if len(comments) == 0 {
		return []*types.Comment{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (cr *commentRepo) GetByIDs(dbc dbctx.Context, commentIDs []uuid.UUID) ([]*types.Comment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.Comment
	if len(commentIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", commentIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetByRecordingIDs returns comments oldest first so replies follow parents.
func (cr *commentRepo) GetByRecordingIDs(dbc dbctx.Context, recordingIDs []uuid.UUID) ([]*types.Comment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.Comment
	if len(recordingIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("recording_id IN ?", recordingIDs).
		Order("created_at ASC").
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *commentRepo) UpdateReactions(dbc dbctx.Context, commentID uuid.UUID, reactions datatypes.JSON) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Comment{}).
		Where("id = ?", commentID).
		Update("reactions", reactions).Error
}
