package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/muzerhq/muzer/internal/apperror"
	"github.com/muzerhq/muzer/internal/model"
	"github.com/muzerhq/muzer/internal/repository"
)

// compile-time check that *DB implements repository.StreamRepository
var _ repository.StreamRepository = (*DB)(nil)

// CreateStream inserts a new stream, generating its ID and timestamps.
//
// The streams.url UNIQUE constraint is the duplicate check: two
// concurrent submissions of the same URL settle here, and the loser
// gets apperror.ErrConflict.
func (db *DB) CreateStream(ctx context.Context, stream *model.Stream) error {
	now := time.Now()
	stream.ID = xid.New().String()
	stream.CreatedAt = now
	stream.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO streams (id, user_id, type, url, extracted_id, title, description, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stream.ID,
		stream.UserID,
		stream.Type,
		stream.URL,
		stream.ExtractedID,
		stream.Title,
		stream.Description,
		stream.Active,
		stream.CreatedAt,
		stream.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateStream(stream.URL)
		}
		return fmt.Errorf("sqlite: inserting stream: %w", err)
	}

	return nil
}

// GetStreamByID retrieves a stream by ID.
// Returns apperror.ErrNotFound if no stream exists with that ID.
func (db *DB) GetStreamByID(ctx context.Context, id string) (*model.Stream, error) {
	var s model.Stream

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, type, url, extracted_id, title, description, active, created_at, updated_at
		 FROM streams WHERE id = ?`,
		id,
	).Scan(
		&s.ID,
		&s.UserID,
		&s.Type,
		&s.URL,
		&s.ExtractedID,
		&s.Title,
		&s.Description,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("stream", id)
		}
		return nil, fmt.Errorf("sqlite: getting stream %s: %w", id, err)
	}

	return &s, nil
}

// ListByOwner returns the streams created by userID, newest first, each
// enriched with the creator's name/email and the IDs of everyone who has
// upvoted it. With activeOnly set, inactive streams are excluded — that
// is the public view; owners listing their own queue see everything.
func (db *DB) ListByOwner(ctx context.Context, userID string, activeOnly bool) ([]model.StreamWithMeta, error) {
	query := `
		SELECT s.id, s.user_id, s.type, s.url, s.extracted_id, s.title, s.description,
		       s.active, s.created_at, s.updated_at, u.name, u.email
		FROM streams s
		JOIN users u ON u.id = s.user_id
		WHERE s.user_id = ?`
	if activeOnly {
		query += ` AND s.active = 1`
	}
	query += ` ORDER BY s.created_at DESC, s.id DESC`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing streams for user %s: %w", userID, err)
	}
	defer rows.Close()

	streams := []model.StreamWithMeta{}
	index := map[string]int{}
	for rows.Next() {
		var s model.StreamWithMeta
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.Type,
			&s.URL,
			&s.ExtractedID,
			&s.Title,
			&s.Description,
			&s.Active,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.CreatorName,
			&s.CreatorEmail,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning stream row: %w", err)
		}
		// Non-nil so the JSON list renders as [] rather than null.
		s.VoterIDs = []string{}
		index[s.ID] = len(streams)
		streams = append(streams, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating stream rows: %w", err)
	}

	if len(streams) == 0 {
		return streams, nil
	}

	// One pass over this owner's votes instead of N per-stream queries.
	voteRows, err := db.conn.QueryContext(ctx,
		`SELECT v.stream_id, v.user_id
		 FROM votes v
		 JOIN streams s ON s.id = v.stream_id
		 WHERE s.user_id = ?
		 ORDER BY v.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing votes for user %s: %w", userID, err)
	}
	defer voteRows.Close()

	for voteRows.Next() {
		var streamID, voterID string
		if err := voteRows.Scan(&streamID, &voterID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning vote row: %w", err)
		}
		if i, ok := index[streamID]; ok {
			streams[i].VoterIDs = append(streams[i].VoterIDs, voterID)
		}
	}
	if err := voteRows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating vote rows: %w", err)
	}

	return streams, nil
}
