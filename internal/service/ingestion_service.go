package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"zeroai/internal/cache"
	"zeroai/internal/classifier"
	"zeroai/internal/config"
	"zeroai/internal/mediahost"
	"zeroai/internal/middleware"
	"zeroai/internal/models"
	"zeroai/internal/notifications"
	"zeroai/internal/observability"
	"zeroai/internal/repository"
	"zeroai/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultImageMaxUploadSizeMB = 10
	DefaultExternalCallTimeout  = 30 * time.Second
)

// IngestInput is one post submission.
type IngestInput struct {
	Image       io.Reader
	ContentType string
	Filename    string
	Caption     string
	AuthorID    string
}

// IngestResult is the persisted post and its hosted image URL.
type IngestResult struct {
	Post     *models.Post `json:"post"`
	MediaURL string       `json:"mediaUrl"`
}

// IngestionOptions tune the pipeline.
type IngestionOptions struct {
	TmpDir             string
	MaxUploadBytes     int64
	ClassifierTimeout  time.Duration
	MediaHostTimeout   time.Duration
	FailOpenClassifier bool
}

// IngestionOptionsFromConfig maps configuration onto IngestionOptions.
func IngestionOptionsFromConfig(cfg *config.Config) IngestionOptions {
	return IngestionOptions{
		TmpDir:             cfg.UploadTmpDir,
		MaxUploadBytes:     cfg.MaxUploadBytes(),
		ClassifierTimeout:  cfg.ClassifierTimeout,
		MediaHostTimeout:   cfg.MediaHostTimeout,
		FailOpenClassifier: cfg.ClassifierPolicy == config.ClassifierFailOpen,
	}
}

// IngestionService runs the verification pipeline: spool, classify, gate, host, persist.
type IngestionService struct {
	posts      repository.PostRepository
	users      repository.UserRepository
	classifier classifier.Classifier
	host       mediahost.Host
	timeline   *cache.Timeline
	events     notifications.Publisher
	opts       IngestionOptions
	now        func() time.Time
}

// NewIngestionService wires the pipeline. timeline and events may be nil.
func NewIngestionService(
	posts repository.PostRepository,
	users repository.UserRepository,
	cls classifier.Classifier,
	host mediahost.Host,
	timeline *cache.Timeline,
	events notifications.Publisher,
	opts IngestionOptions,
) *IngestionService {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultImageMaxUploadSizeMB << 20
	}
	if opts.ClassifierTimeout <= 0 {
		opts.ClassifierTimeout = DefaultExternalCallTimeout
	}
	if opts.MediaHostTimeout <= 0 {
		opts.MediaHostTimeout = DefaultExternalCallTimeout
	}
	return &IngestionService{
		posts:      posts,
		users:      users,
		classifier: cls,
		host:       host,
		timeline:   timeline,
		events:     events,
		opts:       opts,
		now:        time.Now,
	}
}

// Ingest accepts or rejects one upload. At most one classifier call, one media upload and one insert
// happen per call, in that order, and the spool file is removed on every path.
func (s *IngestionService) Ingest(ctx context.Context, in IngestInput) (result *IngestResult, err error) {
	ctx, span := observability.StartSpan(ctx, "IngestionService.Ingest",
		attribute.String("author.id", in.AuthorID),
	)
	outcome := observability.OutcomeInvalid
	defer func() {
		observability.IngestionTotal.WithLabelValues(outcome).Inc()
		span.SetAttributes(attribute.String("ingestion.outcome", outcome))
		observability.EndSpan(span, err)
	}()

	authorID := strings.TrimSpace(in.AuthorID)
	if authorID == "" {
		return nil, models.NewValidationError("authorId is required")
	}
	caption := strings.TrimSpace(in.Caption)
	if err := validation.Caption(caption); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	spool, err := spoolImage(s.opts.TmpDir, in.Image, s.opts.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := spool.Release(); releaseErr != nil {
			middleware.Logger.WarnContext(ctx, "failed to remove spooled upload",
				slog.String("path", spool.Path()), slog.String("error", releaseErr.Error()))
		}
	}()

	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		outcome = observability.OutcomeAuthor
		return nil, err
	}

	scores, err := s.classify(ctx, spool)
	if err != nil {
		outcome = observability.OutcomeClassifier
		return nil, err
	}
	observability.ClassifierScores.Observe(scores.AI)

	if scores.IsAI() {
		outcome = observability.OutcomeRejected
		middleware.Logger.InfoContext(ctx, "upload rejected as AI-generated",
			slog.Float64("ai_score", scores.AI), slog.Float64("human_score", scores.Human))
		return nil, models.NewAIContentDetectedError(scores.AI, scores.Human)
	}

	upload, err := s.upload(ctx, spool, in.Filename)
	if err != nil {
		outcome = observability.OutcomeMediaHost
		return nil, err
	}

	post := &models.Post{
		AuthorID:   authorID,
		Caption:    caption,
		MediaURL:   upload.URL,
		AIScore:    scores.AI,
		HumanScore: scores.Human,
		LikedBy:    []string{},
		CreatedAt:  s.now().UTC(),
	}
	if err := s.persist(ctx, post); err != nil {
		outcome = observability.OutcomeStore
		return nil, err
	}
	post.Author = author.Summary()
	outcome = observability.OutcomeAccepted

	if s.timeline != nil {
		s.timeline.Invalidate(ctx)
	}
	publishEvent(ctx, s.events, models.TimelineEvent{
		Type:      models.EventPostCreated,
		PostID:    post.ID,
		UserID:    authorID,
		Post:      post,
		Timestamp: post.CreatedAt,
	})

	return &IngestResult{Post: post, MediaURL: post.MediaURL}, nil
}

func (s *IngestionService) classify(ctx context.Context, spool *spooledImage) (scores classifier.Scores, err error) {
	defer observability.TrackStage("classify")()
	ctx, span := observability.StartSpan(ctx, "ingest.classify")
	defer func() { observability.EndSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.opts.ClassifierTimeout)
	defer cancel()

	scores, err = s.classifier.Classify(ctx, spool.Reader(), spool.contentType)
	if err == nil {
		return scores, nil
	}
	if errors.Is(err, classifier.ErrMalformedResponse) && s.opts.FailOpenClassifier {
		middleware.Logger.WarnContext(ctx, "classifier response unreadable, treating upload as human",
			slog.String("error", err.Error()))
		return classifier.Scores{AI: 0, Human: 1}, nil
	}
	return classifier.Scores{}, models.NewClassifierFailure(err)
}

func (s *IngestionService) upload(ctx context.Context, spool *spooledImage, filename string) (up mediahost.Upload, err error) {
	defer observability.TrackStage("host")()
	ctx, span := observability.StartSpan(ctx, "ingest.host")
	defer func() { observability.EndSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.opts.MediaHostTimeout)
	defer cancel()

	up, err = s.host.Upload(ctx, spool.Reader(), uploadFilename(filename, spool.Extension()))
	if err != nil {
		return mediahost.Upload{}, models.NewMediaHostFailure(err)
	}
	if up.URL == "" {
		return mediahost.Upload{}, models.NewMediaHostFailure(mediahost.ErrMissingURL)
	}
	return up, nil
}

func (s *IngestionService) persist(ctx context.Context, post *models.Post) (err error) {
	defer observability.TrackStage("persist")()
	ctx, span := observability.StartSpan(ctx, "ingest.persist")
	defer func() { observability.EndSpan(span, err) }()

	return s.posts.Create(ctx, post)
}

// uploadFilename keeps the client's base name and falls back to upload<ext>.
func uploadFilename(name, ext string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "upload" + ext
	}
	return base
}

// publishEvent delivers event without failing the caller and outlives request cancellation.
func publishEvent(ctx context.Context, events notifications.Publisher, event models.TimelineEvent) {
	if events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if err := events.PublishTimelineEvent(pubCtx, event); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish timeline event",
			slog.String("type", event.Type),
			slog.String("post_id", event.PostID),
			slog.String("error", err.Error()),
		)
	}
}
