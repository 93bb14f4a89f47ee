// Package repository defines the data-access interfaces consumed by the
// service layer. The sqlite subpackage provides the concrete
// implementation; services only ever see these interfaces, which is what
// lets the tests swap in in-memory mocks.
package repository

import (
	"context"

	"github.com/muzerhq/muzer/internal/model"
)

// UserRepository persists user identities.
type UserRepository interface {
	// Upsert creates or updates a user keyed by email: a new row on
	// first sign-in, otherwise name and provider are refreshed on the
	// existing row. After the call user.ID holds the canonical internal
	// ID either way.
	Upsert(ctx context.Context, user *model.User) error

	// GetUserByID returns apperror.ErrNotFound if no user exists.
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// StreamRepository persists streams and their votes.
type StreamRepository interface {
	// CreateStream inserts a new stream, generating its ID and
	// timestamps. A URL already present in the table fails with
	// apperror.ErrConflict (duplicate stream).
	CreateStream(ctx context.Context, stream *model.Stream) error

	// GetStreamByID returns apperror.ErrNotFound if no stream exists.
	GetStreamByID(ctx context.Context, id string) (*model.Stream, error)

	// ListByOwner returns the streams created by userID, newest first,
	// enriched with creator name/email and voter IDs. With activeOnly
	// set, inactive streams are excluded (the public view).
	ListByOwner(ctx context.Context, userID string, activeOnly bool) ([]model.StreamWithMeta, error)

	// CreateVote records an upvote. The votes table's
	// UNIQUE(stream_id, user_id) constraint is the authoritative guard:
	// a second vote for the same pair fails with apperror.ErrConflict
	// even when two requests race past any prior existence check.
	CreateVote(ctx context.Context, vote *model.Vote) error

	// DeleteVote removes the caller's upvote. If no vote exists for the
	// pair it fails with apperror.ErrConflict (not yet upvoted).
	DeleteVote(ctx context.Context, streamID, userID string) error
}
