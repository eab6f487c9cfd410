package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/nepq-coach-backend/internal/data/repos"
	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/platform/apierr"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

const maxCommentLength = 4000

type CommentAuthor struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Role        types.Role `json:"role"`
	AvatarColor string     `json:"avatarColor,omitempty"`
}

// CommentThread is a comment with its author and direct replies.
type CommentThread struct {
	*types.Comment
	Author  *CommentAuthor   `json:"author,omitempty"`
	Replies []*CommentThread `json:"replies"`
}

type AddCommentInput struct {
	Content   string   `json:"content"`
	Timestamp *float64 `json:"timestamp"`
	Type      string   `json:"type"`
	ParentID  string   `json:"parentId"`
}

type CommentService interface {
	List(dbc dbctx.Context, recordingID uuid.UUID) ([]*CommentThread, error)
	Add(ctx context.Context, recordingID uuid.UUID, in AddCommentInput) (*types.Comment, error)
	React(ctx context.Context, commentID uuid.UUID, emoji string) (map[string][]uuid.UUID, error)
}

type commentService struct {
	db            *gorm.DB
	log           *logger.Logger
	commentRepo   repos.CommentRepo
	recordingRepo repos.RecordingRepo
	userRepo      repos.UserRepo
	notifier      RecordingNotifier
}

func NewCommentService(db *gorm.DB, log *logger.Logger, commentRepo repos.CommentRepo, recordingRepo repos.RecordingRepo, userRepo repos.UserRepo, notifier RecordingNotifier) CommentService {
	return &commentService{
		db:            db,
		log:           log.With("service", "CommentService"),
		commentRepo:   commentRepo,
		recordingRepo: recordingRepo,
		userRepo:      userRepo,
		notifier:      notifier,
	}
}

func (cs *commentService) List(dbc dbctx.Context, recordingID uuid.UUID) ([]*CommentThread, error) {
	if _, err := cs.visibleRecording(dbc, recordingID); err != nil {
		return nil, err
	}
	rows, err := cs.commentRepo.GetByRecordingIDs(dbc, []uuid.UUID{recordingID})
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	authorIDs := make([]uuid.UUID, 0, len(rows))
	seen := map[uuid.UUID]bool{}
	for _, c := range rows {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			authorIDs = append(authorIDs, c.UserID)
		}
	}
	authors := map[uuid.UUID]*CommentAuthor{}
	if len(authorIDs) > 0 {
		users, err := cs.userRepo.GetByIDs(dbc, authorIDs)
		if err != nil {
			return nil, fmt.Errorf("load comment authors: %w", err)
		}
		for _, u := range users {
			authors[u.ID] = &CommentAuthor{ID: u.ID, Name: u.DisplayName(), Role: u.Role, AvatarColor: u.AvatarColor}
		}
	}
	return threadComments(rows, authors), nil
}

// threadComments nests replies under their parents, keeping the repository
// order. Replies whose parent is missing are promoted to the top level.
func threadComments(rows []*types.Comment, authors map[uuid.UUID]*CommentAuthor) []*CommentThread {
	byID := make(map[uuid.UUID]*CommentThread, len(rows))
	ordered := make([]*CommentThread, 0, len(rows))
	for _, c := range rows {
		t := &CommentThread{Comment: c, Author: authors[c.UserID], Replies: []*CommentThread{}}
		byID[c.ID] = t
		ordered = append(ordered, t)
	}
	roots := make([]*CommentThread, 0, len(rows))
	for _, t := range ordered {
		if t.ParentID != nil {
			if parent, ok := byID[*t.ParentID]; ok && parent != t {
				parent.Replies = append(parent.Replies, t)
				continue
			}
		}
		roots = append(roots, t)
	}
	return roots
}

func (cs *commentService) Add(ctx context.Context, recordingID uuid.UUID, in AddCommentInput) (*types.Comment, error) {
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apierr.Invalid("invalid_comment", "content required")
	}
	if len(content) > maxCommentLength {
		return nil, apierr.Invalid("invalid_comment", "content longer than %d characters", maxCommentLength)
	}
	ctype := types.CommentCoaching
	if t := strings.TrimSpace(in.Type); t != "" {
		ctype = types.CommentType(t)
		if !ctype.Valid() {
			return nil, apierr.Invalid("invalid_comment_type", "unknown comment type %q", in.Type)
		}
	}

	var (
		out   *types.Comment
		owner uuid.UUID
	)
	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		rec, err := cs.visibleRecording(dbc, recordingID)
		if err != nil {
			return err
		}
		owner = rec.UserID
		if in.Timestamp != nil {
			ts := *in.Timestamp
			if math.IsNaN(ts) || ts < 0 || ts > rec.Duration {
				return apierr.Invalid("invalid_timestamp", "timestamp %v outside recording [0,%v]", ts, rec.Duration)
			}
		}
		var parentID *uuid.UUID
		if p := strings.TrimSpace(in.ParentID); p != "" {
			pid, err := uuid.Parse(p)
			if err != nil {
				return apierr.Invalid("invalid_parent", "parentId %q", in.ParentID)
			}
			parents, err := cs.commentRepo.GetByIDs(dbc, []uuid.UUID{pid})
			if err != nil {
				return fmt.Errorf("load parent comment: %w", err)
			}
			if len(parents) == 0 || parents[0].RecordingID != recordingID {
				return apierr.NotFound("comment_not_found", "parent comment %s", pid)
			}
			parentID = &pid
		}
		created, err := cs.commentRepo.Create(dbc, []*types.Comment{{
			RecordingID: recordingID,
			UserID:      rd.UserID,
			ParentID:    parentID,
			Content:     content,
			Timestamp:   in.Timestamp,
			Type:        ctype,
			Reactions:   datatypes.JSON([]byte(`{}`)),
		}})
		if err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		out = created[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cs.notifier != nil {
		cs.notifier.CommentAdded(owner, out)
	}
	return out, nil
}

// React toggles the caller's reaction with emoji on a comment.
func (cs *commentService) React(ctx context.Context, commentID uuid.UUID, emoji string) (map[string][]uuid.UUID, error) {
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || len(emoji) > 32 {
		return nil, apierr.Invalid("invalid_reaction", "reaction required")
	}

	var reactions map[string][]uuid.UUID
	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		rows, err := cs.commentRepo.GetByIDs(dbc, []uuid.UUID{commentID})
		if err != nil {
			return fmt.Errorf("load comment: %w", err)
		}
		if len(rows) == 0 {
			return apierr.NotFound("comment_not_found", "comment %s", commentID)
		}
		if _, err := cs.visibleRecording(dbc, rows[0].RecordingID); err != nil {
			return err
		}
		reactions = map[string][]uuid.UUID{}
		if len(rows[0].Reactions) > 0 {
			if err := json.Unmarshal(rows[0].Reactions, &reactions); err != nil {
				return fmt.Errorf("decode reactions: %w", err)
			}
		}
		reactions[emoji] = toggleID(reactions[emoji], rd.UserID)
		if len(reactions[emoji]) == 0 {
			delete(reactions, emoji)
		}
		raw, err := json.Marshal(reactions)
		if err != nil {
			return err
		}
		return cs.commentRepo.UpdateReactions(dbc, commentID, datatypes.JSON(raw))
	})
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

func (cs *commentService) visibleRecording(dbc dbctx.Context, recordingID uuid.UUID) (*types.Recording, error) {
	rd, err := requireRequestData(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	rows, err := cs.recordingRepo.GetByIDs(dbc, []uuid.UUID{recordingID})
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	if len(rows) == 0 {
		return nil, apierr.NotFound("recording_not_found", "recording %s", recordingID)
	}
	ok, err := canViewUserData(dbc, cs.userRepo, rd, rows[0].UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.NotFound("recording_not_found", "recording %s", recordingID)
	}
	return rows[0], nil
}

func toggleID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids)+1)
	found := false
	for _, x := range ids {
		if x == id {
			found = true
			continue
		}
		out = append(out, x)
	}
	if !found {
		out = append(out, id)
	}
	return out
}
