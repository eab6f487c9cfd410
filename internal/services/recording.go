package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/nepq-coach-backend/internal/data/dberr"
	"github.com/yungbote/nepq-coach-backend/internal/data/repos"
	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/nepq/analytics"
	"github.com/yungbote/nepq-coach-backend/internal/observability"
	"github.com/yungbote/nepq-coach-backend/internal/platform/apierr"
	"github.com/yungbote/nepq-coach-backend/internal/platform/ctxutil"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

const (
	DefaultRecordingPageSize = 10
	MaxRecordingPageSize     = 100
)

// Recording sources, used for metrics and logs.
const (
	SourceUpload   = "upload"
	SourceLive     = "live"
	SourceRevision = "revision"
	SourceRescore  = "rescore"
)

// RecordingView is the API shape of a stored recording with its JSON
// columns decoded.
type RecordingView struct {
	ID                uuid.UUID                `json:"id"`
	UserID            uuid.UUID                `json:"userId"`
	ScenarioID        uuid.UUID                `json:"scenarioId"`
	Duration          float64                  `json:"duration"`
	AudioURL          string                   `json:"audioUrl,omitempty"`
	Transcript        nepq.Transcript          `json:"transcript"`
	Score             nepq.Score               `json:"score"`
	Tier              nepq.ScoreTier           `json:"tier"`
	Analytics         nepq.Analytics           `json:"analytics"`
	Violations        []nepq.Violation         `json:"violations"`
	Metadata          *types.RecordingMetadata `json:"metadata,omitempty"`
	Tags              []string                 `json:"tags"`
	IsBookmarked      bool                     `json:"isBookmarked"`
	Version           int                      `json:"version"`
	PreviousVersionID *uuid.UUID               `json:"previousVersionId,omitempty"`
	SupersededByID    *uuid.UUID               `json:"supersededById,omitempty"`
	CreatedAt         time.Time                `json:"createdAt"`
	UpdatedAt         time.Time                `json:"updatedAt"`
}

// Session rebuilds the domain session from the view.
func (v *RecordingView) Session() nepq.Session {
	return nepq.Session{
		ID:         v.ID.String(),
		UserID:     v.UserID.String(),
		ScenarioID: v.ScenarioID.String(),
		Duration:   v.Duration,
		Transcript: v.Transcript,
		Score:      v.Score,
		Analytics:  v.Analytics,
		Violations: v.Violations,
		Tags:       v.Tags,
	}
}

type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

type RecordingPage struct {
	Recordings []*RecordingView `json:"recordings"`
	Pagination Pagination       `json:"pagination"`
}

type RecordingListFilter struct {
	UserID     uuid.UUID
	ScenarioID uuid.UUID
	Bookmarked *bool
	Limit      int
	Offset     int
}

// CreateRecordingInput is an uploaded, already-finished session. Analytics
// and the measured breakdown fields are derived from the transcript when
// left empty.
type CreateRecordingInput struct {
	ScenarioID string                   `json:"scenarioId"`
	Duration   float64                  `json:"duration"`
	AudioURL   string                   `json:"audioUrl"`
	Transcript nepq.Transcript          `json:"transcript"`
	Breakdown  nepq.ScoreBreakdown      `json:"breakdown"`
	Analytics  *nepq.Analytics          `json:"analytics"`
	Violations []nepq.Violation         `json:"violations"`
	Metadata   *types.RecordingMetadata `json:"metadata"`
	Tags       []string                 `json:"tags"`
}

// ReviseRecordingInput replaces the given parts of a recording in a new
// version. Nil fields carry over from the revised version.
type ReviseRecordingInput struct {
	Breakdown  *nepq.ScoreBreakdown `json:"breakdown"`
	Transcript *nepq.Transcript     `json:"transcript"`
	Violations *[]nepq.Violation    `json:"violations"`
	Tags       *[]string            `json:"tags"`
}

type RescoreReport struct {
	Scanned  int `json:"scanned"`
	Rescored int `json:"rescored"`
	Failed   int `json:"failed"`
}

type RecordingService interface {
	List(dbc dbctx.Context, filter RecordingListFilter) (*RecordingPage, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*RecordingView, error)
	Create(ctx context.Context, in CreateRecordingInput) (*RecordingView, error)
	CreateFromSession(ctx context.Context, session nepq.Session, metadata *types.RecordingMetadata) (*RecordingView, error)
	Revise(ctx context.Context, id uuid.UUID, in ReviseRecordingInput) (*RecordingView, error)
	ToggleBookmark(ctx context.Context, id uuid.UUID) (bool, error)
	Rescore(ctx context.Context, id uuid.UUID) (*RecordingView, bool, error)
	RescoreAll(ctx context.Context, batchSize int, dryRun bool) (RescoreReport, error)
}

type recordingService struct {
	db            *gorm.DB
	log           *logger.Logger
	recordingRepo repos.RecordingRepo
	scenarioRepo  repos.ScenarioRepo
	userRepo      repos.UserRepo
	notifier      RecordingNotifier
	scorer        nepq.Scorer
}

func NewRecordingService(
	db *gorm.DB,
	log *logger.Logger,
	recordingRepo repos.RecordingRepo,
	scenarioRepo repos.ScenarioRepo,
	userRepo repos.UserRepo,
	notifier RecordingNotifier,
	scorer nepq.Scorer,
) RecordingService {
	return &recordingService{
		db:            db,
		log:           log.With("service", "RecordingService"),
		recordingRepo: recordingRepo,
		scenarioRepo:  scenarioRepo,
		userRepo:      userRepo,
		notifier:      notifier,
		scorer:        scorer,
	}
}

func (rs *recordingService) List(dbc dbctx.Context, filter RecordingListFilter) (*RecordingPage, error) {
	rd, err := requireRequestData(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	userID := filter.UserID
	if userID == uuid.Nil {
		userID = rd.UserID
	}
	if userID != rd.UserID {
		if !canManageTraining(rd) {
			return nil, apierr.Forbidden("forbidden", "cannot list recordings of another user")
		}
		ok, err := canViewUserData(dbc, rs.userRepo, rd, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apierr.NotFound("user_not_found", "user %s", userID)
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultRecordingPageSize
	}
	if limit > MaxRecordingPageSize {
		limit = MaxRecordingPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	rows, total, err := rs.recordingRepo.List(dbc, repos.RecordingFilter{
		UserIDs:    []uuid.UUID{userID},
		ScenarioID: filter.ScenarioID,
		Bookmarked: filter.Bookmarked,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	views := make([]*RecordingView, 0, len(rows))
	for _, row := range rows {
		v, err := recordingToView(row)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return &RecordingPage{
		Recordings: views,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: int64(offset+len(views)) < total,
		},
	}, nil
}

func (rs *recordingService) Get(dbc dbctx.Context, id uuid.UUID) (*RecordingView, error) {
	rd, err := requireRequestData(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	row, err := rs.load(dbc, id)
	if err != nil {
		return nil, err
	}
	if err := rs.requireVisible(dbc, rd, row); err != nil {
		return nil, err
	}
	return recordingToView(row)
}

func (rs *recordingService) Create(ctx context.Context, in CreateRecordingInput) (*RecordingView, error) {
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}
	scenarioID, err := uuid.Parse(strings.TrimSpace(in.ScenarioID))
	if err != nil {
		return nil, apierr.Invalid("invalid_scenario", "scenarioId %q", in.ScenarioID)
	}
	if err := rs.requireScenario(dbctx.Context{Ctx: ctx}, scenarioID, rd.OrganizationID); err != nil {
		return nil, err
	}

	turns := in.Transcript.Turns
	breakdown := in.Breakdown
	var measured nepq.Analytics
	if in.Analytics == nil || !hasTechnical(breakdown) {
		state, err := analytics.Analyze(ctx, turns)
		if err != nil {
			return nil, err
		}
		measured = state.Analytics()
		if !hasTechnical(breakdown) {
			state.ApplyTechnical(&breakdown)
		}
	}
	if in.Analytics != nil {
		measured = *in.Analytics
	}
	tags := in.Tags
	if len(tags) == 0 {
		tags = nepq.StageTags(turns)
	}

	id := uuid.New()
	session, err := rs.scorer.Finalize(nepq.FinalizeInput{
		ID:         id.String(),
		UserID:     rd.UserID.String(),
		ScenarioID: scenarioID.String(),
		Duration:   in.Duration,
		Turns:      turns,
		Breakdown:  breakdown,
		Analytics:  measured,
		Violations: in.Violations,
		Tags:       tags,
	})
	if err != nil {
		return nil, err
	}

	row, err := sessionToRecording(session, in.Metadata)
	if err != nil {
		return nil, err
	}
	row.AudioURL = strings.TrimSpace(in.AudioURL)
	return rs.store(ctx, row, SourceUpload)
}

// CreateFromSession stores a session finalized elsewhere, keeping its id.
func (rs *recordingService) CreateFromSession(ctx context.Context, session nepq.Session, metadata *types.RecordingMetadata) (*RecordingView, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	row, err := sessionToRecording(session, metadata)
	if err != nil {
		return nil, err
	}
	return rs.store(ctx, row, SourceLive)
}

func (rs *recordingService) store(ctx context.Context, row *types.Recording, source string) (_ *RecordingView, err error) {
	ctx, span := observability.StartRecordingSpan(ctx, "store", source, row.ID)
	defer func() { observability.EndSpan(span, err) }()

	created, err := rs.recordingRepo.Create(dbctx.Context{Ctx: ctx}, []*types.Recording{row})
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	view, err := recordingToView(created[0])
	if err != nil {
		return nil, err
	}
	observability.RecordingStored(span, view.ID, view.UserID, view.ScenarioID, view.Version, view.Score.Overall, string(view.Tier))
	observability.Current().ObserveRecording(source, string(view.Tier), view.Score.Overall, view.Duration)
	rs.log.Info("Recording stored", "recording_id", view.ID, "user_id", view.UserID, "overall", view.Score.Overall, "source", source)
	if rs.notifier != nil {
		rs.notifier.RecordingCreated(view.UserID, view)
	}
	return view, nil
}

func (rs *recordingService) Revise(ctx context.Context, id uuid.UUID, in ReviseRecordingInput) (_ *RecordingView, err error) {
	ctx, span := observability.StartRecordingSpan(ctx, "revise", SourceRevision, id)
	defer func() { observability.EndSpan(span, err) }()

	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}

	var out *RecordingView
	err = rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		prev, err := rs.load(dbc, id)
		if err != nil {
			return err
		}
		if err := rs.requireVisible(dbc, rd, prev); err != nil {
			return err
		}
		view, err := recordingToView(prev)
		if err != nil {
			return err
		}
		session := view.Session()

		turns := session.Transcript.Turns
		if in.Transcript != nil {
			turns = in.Transcript.Turns
		}
		breakdown := session.Score.Breakdown
		if in.Breakdown != nil {
			breakdown = *in.Breakdown
		}
		analyticsOut := session.Analytics
		if in.Transcript != nil {
			state, err := analytics.Analyze(ctx, turns)
			if err != nil {
				return err
			}
			analyticsOut = state.Analytics()
			state.ApplyTechnical(&breakdown)
		}
		violations := session.Violations
		if in.Violations != nil {
			violations = *in.Violations
		}
		tags := session.Tags
		if in.Tags != nil {
			tags = *in.Tags
		}

		next, err := rs.scorer.Finalize(nepq.FinalizeInput{
			ID:         uuid.New().String(),
			UserID:     session.UserID,
			ScenarioID: session.ScenarioID,
			Duration:   session.Duration,
			Turns:      turns,
			Breakdown:  breakdown,
			Analytics:  analyticsOut,
			Violations: violations,
			Tags:       tags,
		})
		if err != nil {
			return err
		}
		created, err := rs.supersede(dbc, prev, next)
		if err != nil {
			return err
		}
		out, err = recordingToView(created)
		return err
	})
	if err != nil {
		return nil, err
	}
	observability.RecordingStored(span, out.ID, out.UserID, out.ScenarioID, out.Version, out.Score.Overall, string(out.Tier))
	observability.Current().ObserveRecording(SourceRevision, string(out.Tier), out.Score.Overall, out.Duration)
	if rs.notifier != nil && out.PreviousVersionID != nil {
		rs.notifier.RecordingRevised(out.UserID, *out.PreviousVersionID, out)
	}
	return out, nil
}

// supersede writes next as the version after prev and links the two. It
// fails with a conflict when prev was superseded concurrently.
func (rs *recordingService) supersede(dbc dbctx.Context, prev *types.Recording, next nepq.Session) (*types.Recording, error) {
	if !prev.IsLatest() {
		return nil, apierr.Conflict("recording_superseded", "recording %s already has a newer version", prev.ID)
	}
	row, err := sessionToRecording(next, nil)
	if err != nil {
		return nil, err
	}
	row.Metadata = prev.Metadata
	row.AudioURL = prev.AudioURL
	row.IsBookmarked = prev.IsBookmarked
	row.Version = prev.Version + 1
	prevID := prev.ID
	row.PreviousVersionID = &prevID
	row.CreatedAt = prev.CreatedAt

	created, err := rs.recordingRepo.Create(dbc, []*types.Recording{row})
	if err != nil {
		return nil, fmt.Errorf("create recording version: %w", err)
	}
	ok, err := rs.recordingRepo.MarkSuperseded(dbc, prev.ID, created[0].ID)
	if err != nil {
		return nil, fmt.Errorf("mark superseded: %w", err)
	}
	if !ok {
		return nil, apierr.Conflict("recording_superseded", "recording %s already has a newer version", prev.ID)
	}
	return created[0], nil
}

func (rs *recordingService) ToggleBookmark(ctx context.Context, id uuid.UUID) (bool, error) {
	rd, err := requireRequestData(ctx)
	if err != nil {
		return false, err
	}
	var bookmarked bool
	err = rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		row, err := rs.load(dbc, id)
		if err != nil {
			return err
		}
		if row.UserID != rd.UserID {
			return apierr.NotFound("recording_not_found", "recording %s", id)
		}
		bookmarked = !row.IsBookmarked
		return rs.recordingRepo.SetBookmarked(dbc, id, bookmarked)
	})
	return bookmarked, err
}

// Rescore recomputes the overall score of the latest version of a recording
// with the current scorer. A new version is written only when the score
// changes. Only coaches and admins of the owner's organization may rescore.
func (rs *recordingService) Rescore(ctx context.Context, id uuid.UUID) (*RecordingView, bool, error) {
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, false, err
	}
	var (
		out     *RecordingView
		changed bool
	)
	err = rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		row, err := rs.load(dbc, id)
		if err != nil {
			return err
		}
		if err := rs.requireVisible(dbc, rd, row); err != nil {
			return err
		}
		if !canManageTraining(rd) {
			return apierr.Forbidden("forbidden", "cannot rescore recording %s", id)
		}
		view, ch, err := rs.rescoreRow(dbc, row, false)
		out, changed = view, ch
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if changed {
		observability.Current().ObserveRecording(SourceRescore, string(out.Tier), out.Score.Overall, out.Duration)
	}
	return out, changed, nil
}

func (rs *recordingService) rescoreRow(dbc dbctx.Context, row *types.Recording, dryRun bool) (*RecordingView, bool, error) {
	view, err := recordingToView(row)
	if err != nil {
		return nil, false, err
	}
	if !row.IsLatest() {
		return view, false, apierr.Conflict("recording_superseded", "recording %s already has a newer version", row.ID)
	}
	overall, err := rs.scorer.OverallForTurns(view.Score.Breakdown, len(view.Transcript.Turns))
	if err != nil {
		return view, false, err
	}
	if overall == view.Score.Overall && overall == row.OverallScore {
		return view, false, nil
	}
	if dryRun {
		view.Score.Overall = overall
		view.Tier = nepq.TierOf(overall)
		return view, true, nil
	}
	session := view.Session()
	session.ID = uuid.New().String()
	session.Score.Overall = overall
	if err := session.Validate(); err != nil {
		return view, false, err
	}
	created, err := rs.supersede(dbc, row, session)
	if err != nil {
		return view, false, err
	}
	next, err := recordingToView(created)
	return next, err == nil, err
}

// rescoreAttempts bounds retries of a row that hit a serialization failure
// or deadlock.
const rescoreAttempts = 3

// RescoreAll walks every latest recording in id order. Failures are logged
// and counted; the walk continues. Versions written by the walk itself are
// not visited again.
func (rs *recordingService) RescoreAll(ctx context.Context, batchSize int, dryRun bool) (RescoreReport, error) {
	if batchSize <= 0 {
		batchSize = 200
	}
	var report RescoreReport
	written := map[uuid.UUID]bool{}
	after := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rows, err := rs.recordingRepo.ListLatest(dbctx.Context{Ctx: ctx}, after, batchSize)
		if err != nil {
			return report, fmt.Errorf("list recordings: %w", err)
		}
		if len(rows) == 0 {
			return report, nil
		}
		for _, row := range rows {
			if written[row.ID] {
				continue
			}
			report.Scanned++
			var next *RecordingView
			var changed bool
			var err error
			for attempt := 0; attempt < rescoreAttempts; attempt++ {
				err = rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
					view, ch, err := rs.rescoreRow(dbctx.Context{Ctx: ctx, Tx: tx}, row, dryRun)
					next, changed = view, ch
					return err
				})
				if !dberr.IsRetryable(err) {
					break
				}
			}
			switch {
			case err != nil:
				report.Failed++
				rs.log.Warn("Rescore failed", "recording_id", row.ID, "error", err)
			case changed:
				report.Rescored++
				if !dryRun && next != nil {
					written[next.ID] = true
				}
			}
		}
		after = rows[len(rows)-1].ID
		if len(rows) < batchSize {
			return report, nil
		}
	}
}

func (rs *recordingService) load(dbc dbctx.Context, id uuid.UUID) (*types.Recording, error) {
	rows, err := rs.recordingRepo.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, apierr.NotFound("recording_not_found", "recording %s", id)
	}
	return rows[0], nil
}

func (rs *recordingService) requireScenario(dbc dbctx.Context, scenarioID, orgID uuid.UUID) error {
	rows, err := rs.scenarioRepo.GetByIDs(dbc, []uuid.UUID{scenarioID})
	if err != nil {
		return fmt.Errorf("get scenario: %w", err)
	}
	if len(rows) == 0 || (orgID != uuid.Nil && rows[0].OrganizationID != orgID) {
		return apierr.NotFound("scenario_not_found", "scenario %s", scenarioID)
	}
	return nil
}

// requireVisible reports recordings the caller may not see as missing.
func (rs *recordingService) requireVisible(dbc dbctx.Context, rd *ctxutil.RequestData, row *types.Recording) error {
	ok, err := canViewUserData(dbc, rs.userRepo, rd, row.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.NotFound("recording_not_found", "recording %s", row.ID)
	}
	return nil
}

func hasTechnical(b nepq.ScoreBreakdown) bool {
	return b.TalkRatio != 0 || b.FillerWords != 0 || b.QuestionRatio != 0
}

// ---------------- row <-> view ----------------

func sessionToRecording(s nepq.Session, metadata *types.RecordingMetadata) (*types.Recording, error) {
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	userID, err := uuid.Parse(s.UserID)
	if err != nil {
		return nil, fmt.Errorf("session user id: %w", err)
	}
	scenarioID, err := uuid.Parse(s.ScenarioID)
	if err != nil {
		return nil, fmt.Errorf("session scenario id: %w", err)
	}
	violations := s.Violations
	if violations == nil {
		violations = []nepq.Violation{}
	}
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}

	row := &types.Recording{
		ID:           id,
		UserID:       userID,
		ScenarioID:   scenarioID,
		Duration:     s.Duration,
		OverallScore: s.Score.Overall,
	}
	fields := []struct {
		dst *datatypes.JSON
		v   any
	}{
		{&row.Transcript, s.Transcript},
		{&row.Score, s.Score},
		{&row.Analytics, s.Analytics},
		{&row.Violations, violations},
		{&row.Tags, tags},
	}
	if metadata != nil {
		fields = append(fields, struct {
			dst *datatypes.JSON
			v   any
		}{&row.Metadata, metadata})
	}
	for _, f := range fields {
		raw, err := json.Marshal(f.v)
		if err != nil {
			return nil, fmt.Errorf("encode recording: %w", err)
		}
		*f.dst = datatypes.JSON(raw)
	}
	return row, nil
}

func recordingToView(row *types.Recording) (*RecordingView, error) {
	v := &RecordingView{
		ID:                row.ID,
		UserID:            row.UserID,
		ScenarioID:        row.ScenarioID,
		Duration:          row.Duration,
		AudioURL:          row.AudioURL,
		IsBookmarked:      row.IsBookmarked,
		Version:           row.Version,
		PreviousVersionID: row.PreviousVersionID,
		SupersededByID:    row.SupersededByID,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	decode := func(raw datatypes.JSON, dst any, name string) error {
		if len(raw) == 0 || string(raw) == "null" {
			return nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("decode recording %s %s: %w", row.ID, name, err)
		}
		return nil
	}
	if err := errors.Join(
		decode(row.Transcript, &v.Transcript, "transcript"),
		decode(row.Score, &v.Score, "score"),
		decode(row.Analytics, &v.Analytics, "analytics"),
		decode(row.Violations, &v.Violations, "violations"),
		decode(row.Tags, &v.Tags, "tags"),
	); err != nil {
		return nil, err
	}
	if len(row.Metadata) > 0 && string(row.Metadata) != "null" {
		v.Metadata = &types.RecordingMetadata{}
		if err := decode(row.Metadata, v.Metadata, "metadata"); err != nil {
			return nil, err
		}
	}
	if v.Transcript.Turns == nil {
		v.Transcript.Turns = []nepq.TranscriptTurn{}
	}
	if v.Violations == nil {
		v.Violations = []nepq.Violation{}
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	v.Tier = nepq.TierOf(v.Score.Overall)
	return v, nil
}
