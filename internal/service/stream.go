package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/muzerhq/muzer/internal/apperror"
	"github.com/muzerhq/muzer/internal/model"
	"github.com/muzerhq/muzer/internal/repository"
	"github.com/muzerhq/muzer/internal/track"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
)

// StreamService handles business logic for the track queue: submitting
// streams, listing them, and the vote toggle.
type StreamService struct {
	repo   repository.StreamRepository
	logger *slog.Logger
}

// NewStreamService creates a new StreamService.
func NewStreamService(repo repository.StreamRepository, logger *slog.Logger) *StreamService {
	return &StreamService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates and queues a new stream for the calling user.
//
// callerID comes from the session, never from the request body — the
// creator of a stream cannot be spoofed. Order of checks: classify the
// URL against the claimed type, then insert; the streams.url UNIQUE
// constraint turns a duplicate submission into ErrConflict regardless of
// differing title or description.
func (s *StreamService) Create(ctx context.Context, callerID string, streamType model.StreamType, url, title, description string) (*model.Stream, error) {
	if callerID == "" {
		return nil, apperror.Unauthorized()
	}

	url = strings.TrimSpace(url)
	if url == "" {
		return nil, apperror.ValidationFailed("url", "url is required")
	}
	title = strings.TrimSpace(title)
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	description = strings.TrimSpace(description)
	if len(description) > MaxDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}

	platform, extractedID, err := track.Classify(url, streamType)
	if err != nil {
		return nil, err
	}

	stream := &model.Stream{
		UserID:      callerID,
		Type:        platform,
		URL:         url,
		ExtractedID: extractedID,
		Title:       title,
		Description: description,
		Active:      true,
	}

	if err := s.repo.CreateStream(ctx, stream); err != nil {
		if apperrorIsDomain(err) {
			return nil, err
		}
		s.logger.Error("failed to create stream",
			slog.String("userID", callerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating stream: %w", err)
	}

	s.logger.Info("stream created",
		slog.String("id", stream.ID),
		slog.String("type", string(stream.Type)),
		slog.String("extractedID", stream.ExtractedID),
	)

	return stream, nil
}

// List returns streams for the queue UI.
//
// Two views, per the privacy rule:
//   - requestedUserID == "": the caller's own queue. Requires a caller
//     identity and includes inactive streams.
//   - requestedUserID != "": someone else's public queue. No auth needed
//     and only active streams are returned, even when the caller happens
//     to be the owner asking through the public path.
func (s *StreamService) List(ctx context.Context, callerID, requestedUserID string) ([]model.StreamWithMeta, error) {
	if requestedUserID == "" {
		if callerID == "" {
			return nil, apperror.Unauthorized()
		}
		return s.list(ctx, callerID, false)
	}
	return s.list(ctx, requestedUserID, true)
}

func (s *StreamService) list(ctx context.Context, ownerID string, activeOnly bool) ([]model.StreamWithMeta, error) {
	streams, err := s.repo.ListByOwner(ctx, ownerID, activeOnly)
	if err != nil {
		s.logger.Error("failed to list streams",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing streams: %w", err)
	}
	return streams, nil
}

// Upvote records the caller's vote on a stream.
//
// The (stream, user) pair is a two-state machine: NoVote and Voted.
// Upvote is the NoVote → Voted transition; repeating it is rejected with
// AlreadyVoted rather than silently accepted, so clients must track vote
// state or handle the rejection. The repository's uniqueness constraint
// makes the transition atomic under concurrent requests.
func (s *StreamService) Upvote(ctx context.Context, callerID, streamID string) error {
	if callerID == "" {
		return apperror.Unauthorized()
	}
	if streamID = strings.TrimSpace(streamID); streamID == "" {
		return apperror.ValidationFailed("streamId", "streamId is required")
	}

	// 404 before 400: a vote on a nonexistent stream is reported as
	// StreamNotFound, not as a vote-state problem.
	if _, err := s.repo.GetStreamByID(ctx, streamID); err != nil {
		return err
	}

	vote := &model.Vote{StreamID: streamID, UserID: callerID}
	if err := s.repo.CreateVote(ctx, vote); err != nil {
		if apperrorIsDomain(err) {
			return err
		}
		s.logger.Error("failed to record vote",
			slog.String("streamID", streamID),
			slog.String("userID", callerID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("recording vote: %w", err)
	}

	s.logger.Info("stream upvoted",
		slog.String("streamID", streamID),
		slog.String("userID", callerID),
	)
	return nil
}

// Downvote retracts the caller's existing upvote — the Voted → NoVote
// transition. It is not a negative signal: with no vote to remove it
// fails with NotYetUpvoted.
func (s *StreamService) Downvote(ctx context.Context, callerID, streamID string) error {
	if callerID == "" {
		return apperror.Unauthorized()
	}
	if streamID = strings.TrimSpace(streamID); streamID == "" {
		return apperror.ValidationFailed("streamId", "streamId is required")
	}

	if _, err := s.repo.GetStreamByID(ctx, streamID); err != nil {
		return err
	}

	if err := s.repo.DeleteVote(ctx, streamID, callerID); err != nil {
		if apperrorIsDomain(err) {
			return err
		}
		s.logger.Error("failed to retract vote",
			slog.String("streamID", streamID),
			slog.String("userID", callerID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("retracting vote: %w", err)
	}

	s.logger.Info("stream vote retracted",
		slog.String("streamID", streamID),
		slog.String("userID", callerID),
	)
	return nil
}

// apperrorIsDomain reports whether err is already a classified domain
// error that should pass through to the handler untouched (conflicts,
// not-found), as opposed to an unexpected store failure worth logging.
func apperrorIsDomain(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr)
}
