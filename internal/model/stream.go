package model

import "time"

// StreamType identifies which platform a submitted track lives on.
type StreamType string

const (
	StreamTypeYouTube StreamType = "YouTube"
	StreamTypeSpotify StreamType = "Spotify"
)

// Stream is a user-submitted reference to a YouTube or Spotify track,
// queued up for voting.
//
// URL is UNIQUE across all streams — submitting the same link twice is
// rejected no matter who submits it or what title they attach.
// ExtractedID is the provider-native track identifier parsed out of the
// URL at creation time (the 11-char YouTube video ID or the 22-char
// Spotify track ID), so playback integrations never re-parse URLs.
//
// Active gates visibility: owners always see their own streams, everyone
// else only sees streams with Active = true.
type Stream struct {
	ID          string     `json:"id"          db:"id"`
	UserID      string     `json:"userId"      db:"user_id"` // owning creator
	Type        StreamType `json:"type"        db:"type"`
	URL         string     `json:"url"         db:"url"`
	ExtractedID string     `json:"extractedId" db:"extracted_id"`
	Title       string     `json:"title"       db:"title"`
	Description string     `json:"description" db:"description"`
	Active      bool       `json:"active"      db:"active"`
	CreatedAt   time.Time  `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt"   db:"updated_at"`
}

// Vote records that a user has upvoted a stream.
//
// A row's existence IS the vote — there is no value column. The votes
// table enforces UNIQUE(stream_id, user_id), so the "at most one vote per
// (stream, user)" invariant holds even when two requests race; see
// internal/repository/sqlite/vote.go.
type Vote struct {
	ID        string    `json:"id"        db:"id"`
	StreamID  string    `json:"streamId"  db:"stream_id"`
	UserID    string    `json:"userId"    db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// StreamWithMeta is the list-endpoint view of a stream: the stream itself
// enriched with who created it and who has voted for it. VoterIDs lets a
// client render the vote count and "did I vote" state without extra calls.
type StreamWithMeta struct {
	Stream
	CreatorName  string   `json:"creatorName"`
	CreatorEmail string   `json:"creatorEmail"`
	VoterIDs     []string `json:"voterIds"`
}
