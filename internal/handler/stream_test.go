package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muzerhq/muzer/internal/auth"
	"github.com/muzerhq/muzer/internal/handler"
	"github.com/muzerhq/muzer/internal/model"
	"github.com/muzerhq/muzer/internal/repository/sqlite"
	"github.com/muzerhq/muzer/internal/service"
)

// testEnv wires a real service over an in-memory database — handler tests
// exercise the full stack below HTTP, with auth supplied via context.
type testEnv struct {
	handler *handler.StreamHandler
	db      *sqlite.DB
	userID  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	user := &model.User{
		Email:    "creator@example.com",
		Name:     "Creator",
		Provider: model.ProviderGoogle,
	}
	require.NoError(t, db.Upsert(context.Background(), user))

	svc := service.NewStreamService(db, logger)
	return &testEnv{
		handler: handler.NewStreamHandler(svc, logger),
		db:      db,
		userID:  user.ID,
	}
}

// authedRequest builds a request that looks like it passed RequireAuth.
func authedRequest(t *testing.T, userID, method, target, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func TestStreamHandler_HandleCreate(t *testing.T) {
	const ytURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

	t.Run("creates a stream", func(t *testing.T) {
		env := newTestEnv(t)

		body := fmt.Sprintf(`{"type":"YouTube","url":%q,"title":"Never Gonna Give You Up"}`, ytURL)
		rr := httptest.NewRecorder()
		env.handler.HandleCreate(rr, authedRequest(t, env.userID, http.MethodPost, "/streams", body))

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp struct {
			Stream model.Stream `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Stream.ID)
		assert.Equal(t, env.userID, resp.Stream.UserID)
		assert.Equal(t, model.StreamTypeYouTube, resp.Stream.Type)
		assert.Equal(t, "dQw4w9WgXcQ", resp.Stream.ExtractedID)
		assert.True(t, resp.Stream.Active)
	})

	t.Run("rejects anonymous callers", func(t *testing.T) {
		env := newTestEnv(t)

		body := fmt.Sprintf(`{"type":"YouTube","url":%q}`, ytURL)
		req := httptest.NewRequest(http.MethodPost, "/streams", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		env.handler.HandleCreate(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "unauthorized", decodeError(t, rr).Error)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		env := newTestEnv(t)

		rr := httptest.NewRecorder()
		env.handler.HandleCreate(rr, authedRequest(t, env.userID, http.MethodPost, "/streams", `{"type":`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("reports every missing field", func(t *testing.T) {
		env := newTestEnv(t)

		rr := httptest.NewRecorder()
		env.handler.HandleCreate(rr, authedRequest(t, env.userID, http.MethodPost, "/streams", `{}`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decodeError(t, rr)
		assert.Equal(t, "validation_error", resp.Error)

		fields := make([]string, 0, len(resp.Details))
		for _, d := range resp.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"type", "url"}, fields)
	})

	t.Run("rejects an unclassifiable url", func(t *testing.T) {
		env := newTestEnv(t)

		body := `{"type":"YouTube","url":"https://example.com/watch?v=nope"}`
		rr := httptest.NewRecorder()
		env.handler.HandleCreate(rr, authedRequest(t, env.userID, http.MethodPost, "/streams", body))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "validation_error", decodeError(t, rr).Error)
	})

	t.Run("rejects a type mismatch", func(t *testing.T) {
		env := newTestEnv(t)

		body := fmt.Sprintf(`{"type":"Spotify","url":%q}`, ytURL)
		rr := httptest.NewRecorder()
		env.handler.HandleCreate(rr, authedRequest(t, env.userID, http.MethodPost, "/streams", body))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decodeError(t, rr)
		assert.Equal(t, "validation_error", resp.Error)
		require.Len(t, resp.Details, 1)
		assert.Equal(t, "type", resp.Details[0].Field)
	})

	t.Run("rejects a duplicate url", func(t *testing.T) {
		env := newTestEnv(t)

		body := fmt.Sprintf(`{"type":"YouTube","url":%q}`, ytURL)
		rr := httptest.NewRecorder()
		env.handler.HandleCreate(rr, authedRequest(t, env.userID, http.MethodPost, "/streams", body))
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = httptest.NewRecorder()
		env.handler.HandleCreate(rr, authedRequest(t, env.userID, http.MethodPost, "/streams", body))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "conflict", decodeError(t, rr).Error)
	})
}

func TestStreamHandler_HandleList(t *testing.T) {
	const ytURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

	t.Run("own view requires authentication", func(t *testing.T) {
		env := newTestEnv(t)

		req := httptest.NewRequest(http.MethodGet, "/streams", nil)
		rr := httptest.NewRecorder()
		env.handler.HandleList(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("own view returns the caller's streams", func(t *testing.T) {
		env := newTestEnv(t)

		body := fmt.Sprintf(`{"type":"YouTube","url":%q,"title":"first"}`, ytURL)
		rr := httptest.NewRecorder()
		env.handler.HandleCreate(rr, authedRequest(t, env.userID, http.MethodPost, "/streams", body))
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = httptest.NewRecorder()
		env.handler.HandleList(rr, authedRequest(t, env.userID, http.MethodGet, "/streams", ""))

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Streams []model.StreamWithMeta `json:"streams"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		require.Len(t, resp.Streams, 1)
		assert.Equal(t, "first", resp.Streams[0].Title)
		assert.Equal(t, "Creator", resp.Streams[0].CreatorName)
		assert.NotNil(t, resp.Streams[0].VoterIDs)
	})

	t.Run("public view works without a session", func(t *testing.T) {
		env := newTestEnv(t)

		body := fmt.Sprintf(`{"type":"YouTube","url":%q}`, ytURL)
		rr := httptest.NewRecorder()
		env.handler.HandleCreate(rr, authedRequest(t, env.userID, http.MethodPost, "/streams", body))
		require.Equal(t, http.StatusCreated, rr.Code)

		req := httptest.NewRequest(http.MethodGet, "/streams?userId="+env.userID, nil)
		rr = httptest.NewRecorder()
		env.handler.HandleList(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Streams []model.StreamWithMeta `json:"streams"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Len(t, resp.Streams, 1)
	})

	t.Run("empty queue serializes as an empty array", func(t *testing.T) {
		env := newTestEnv(t)

		rr := httptest.NewRecorder()
		env.handler.HandleList(rr, authedRequest(t, env.userID, http.MethodGet, "/streams", ""))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"streams":[]}`, rr.Body.String())
	})
}

func TestStreamHandler_Votes(t *testing.T) {
	const ytURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

	// createStream submits a stream and returns its ID.
	createStream := func(t *testing.T, env *testEnv) string {
		t.Helper()
		body := fmt.Sprintf(`{"type":"YouTube","url":%q}`, ytURL)
		rr := httptest.NewRecorder()
		env.handler.HandleCreate(rr, authedRequest(t, env.userID, http.MethodPost, "/streams", body))
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp struct {
			Stream model.Stream `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		return resp.Stream.ID
	}

	voteBody := func(streamID string) string {
		return fmt.Sprintf(`{"streamId":%q}`, streamID)
	}

	t.Run("upvote then downvote round trip", func(t *testing.T) {
		env := newTestEnv(t)
		streamID := createStream(t, env)

		rr := httptest.NewRecorder()
		env.handler.HandleUpvote(rr, authedRequest(t, env.userID, http.MethodPost, "/streams/upvote", voteBody(streamID)))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"message":"upvote successful"}`, rr.Body.String())

		rr = httptest.NewRecorder()
		env.handler.HandleDownvote(rr, authedRequest(t, env.userID, http.MethodPost, "/streams/downvote", voteBody(streamID)))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"message":"downvote successful"}`, rr.Body.String())
	})

	t.Run("double upvote is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		streamID := createStream(t, env)

		rr := httptest.NewRecorder()
		env.handler.HandleUpvote(rr, authedRequest(t, env.userID, http.MethodPost, "/streams/upvote", voteBody(streamID)))
		require.Equal(t, http.StatusOK, rr.Code)

		rr = httptest.NewRecorder()
		env.handler.HandleUpvote(rr, authedRequest(t, env.userID, http.MethodPost, "/streams/upvote", voteBody(streamID)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "conflict", decodeError(t, rr).Error)
	})

	t.Run("downvote without an upvote is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		streamID := createStream(t, env)

		rr := httptest.NewRecorder()
		env.handler.HandleDownvote(rr, authedRequest(t, env.userID, http.MethodPost, "/streams/downvote", voteBody(streamID)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "conflict", decodeError(t, rr).Error)
	})

	t.Run("voting on a missing stream is a 404", func(t *testing.T) {
		env := newTestEnv(t)

		rr := httptest.NewRecorder()
		env.handler.HandleUpvote(rr, authedRequest(t, env.userID, http.MethodPost, "/streams/upvote", voteBody("no-such-stream")))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("missing streamId fails validation", func(t *testing.T) {
		env := newTestEnv(t)

		rr := httptest.NewRecorder()
		env.handler.HandleUpvote(rr, authedRequest(t, env.userID, http.MethodPost, "/streams/upvote", `{}`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decodeError(t, rr)
		assert.Equal(t, "validation_error", resp.Error)
		require.Len(t, resp.Details, 1)
		assert.Equal(t, "streamId", resp.Details[0].Field)
	})

	t.Run("anonymous votes are rejected", func(t *testing.T) {
		env := newTestEnv(t)
		streamID := createStream(t, env)

		req := httptest.NewRequest(http.MethodPost, "/streams/upvote", bytes.NewBufferString(voteBody(streamID)))
		rr := httptest.NewRecorder()
		env.handler.HandleUpvote(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
