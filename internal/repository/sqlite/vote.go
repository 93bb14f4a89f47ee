package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/muzerhq/muzer/internal/apperror"
	"github.com/muzerhq/muzer/internal/model"
)

// CreateVote records an upvote for a (stream, user) pair.
//
// CONSTRAINT, NOT CHECK-THEN-ACT:
// The service layer does not pre-check whether a vote exists; it inserts
// and lets UNIQUE(stream_id, user_id) arbitrate. Two concurrent upvotes
// from the same user both reach the INSERT, exactly one commits, and the
// loser gets the same AlreadyVoted error a sequential duplicate would.
func (db *DB) CreateVote(ctx context.Context, vote *model.Vote) error {
	vote.ID = xid.New().String()
	vote.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO votes (id, stream_id, user_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		vote.ID,
		vote.StreamID,
		vote.UserID,
		vote.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.AlreadyVoted(vote.StreamID)
		}
		return fmt.Errorf("sqlite: inserting vote: %w", err)
	}

	return nil
}

// DeleteVote removes the user's upvote on a stream. A single DELETE is
// atomic: RowsAffected tells us whether a vote existed, so there is no
// separate existence query to race against.
func (db *DB) DeleteVote(ctx context.Context, streamID, userID string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM votes WHERE stream_id = ? AND user_id = ?`,
		streamID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting vote: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking deleted vote: %w", err)
	}
	if affected == 0 {
		return apperror.NotYetUpvoted(streamID)
	}

	return nil
}
