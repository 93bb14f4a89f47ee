package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/muzerhq/muzer/internal/apperror"
	"github.com/muzerhq/muzer/internal/auth"
	"github.com/muzerhq/muzer/internal/model"
	"github.com/muzerhq/muzer/internal/service"
)

// StreamHandler owns the queue endpoints: submit, list, upvote, downvote.
type StreamHandler struct {
	streams *service.StreamService
	logger  *slog.Logger
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(streams *service.StreamService, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		streams: streams,
		logger:  logger,
	}
}

// createStreamRequest is the body of POST /streams. The creator is NOT a
// field here — it always comes from the session, so it cannot be spoofed.
type createStreamRequest struct {
	Type        string `json:"type" validate:"required,oneof=YouTube Spotify"`
	URL         string `json:"url" validate:"required"`
	Title       string `json:"title" validate:"omitempty,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

// voteRequest is the body of both vote endpoints.
type voteRequest struct {
	StreamID string `json:"streamId" validate:"required"`
}

// HandleCreate queues a new stream.
//
// HTTP: POST /streams
// Auth: required
// Success: 201 {"stream": {...}}
func (h *StreamHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized())
		return
	}

	var req createStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldErrors(w, []FieldError{{Field: "body", Message: "request body must be valid JSON"}})
		return
	}
	if fields := checkStruct(&req); fields != nil {
		writeFieldErrors(w, fields)
		return
	}

	stream, err := h.streams.Create(r.Context(), userID,
		model.StreamType(req.Type), req.URL, req.Title, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"stream": stream})
}

// HandleList returns the queue.
//
// HTTP: GET /streams?userId=...
// Auth: optional — required only when userId is omitted
//
// Without userId the caller gets their own streams, active and inactive.
// With userId anyone (even anonymous) gets that user's active streams.
// The asymmetry is the privacy rule: owners see their unpublished queue,
// outsiders never do.
func (h *StreamHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())
	requestedUserID := r.URL.Query().Get("userId")

	streams, err := h.streams.List(r.Context(), callerID, requestedUserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"streams": streams})
}

// HandleUpvote records the caller's vote.
//
// HTTP: POST /streams/upvote
// Auth: required
// Success: 200 {"message": "upvote successful"}
func (h *StreamHandler) HandleUpvote(w http.ResponseWriter, r *http.Request) {
	h.handleVote(w, r, h.streams.Upvote, "upvote successful")
}

// HandleDownvote retracts the caller's vote.
//
// HTTP: POST /streams/downvote
// Auth: required
// Success: 200 {"message": "downvote successful"}
func (h *StreamHandler) HandleDownvote(w http.ResponseWriter, r *http.Request) {
	h.handleVote(w, r, h.streams.Downvote, "downvote successful")
}

// handleVote is the shared parse/validate/dispatch path for the two vote
// endpoints — they differ only in the service call and success message.
func (h *StreamHandler) handleVote(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, callerID, streamID string) error,
	message string,
) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized())
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldErrors(w, []FieldError{{Field: "body", Message: "request body must be valid JSON"}})
		return
	}
	if fields := checkStruct(&req); fields != nil {
		writeFieldErrors(w, fields)
		return
	}

	if err := op(r.Context(), userID, req.StreamID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}
