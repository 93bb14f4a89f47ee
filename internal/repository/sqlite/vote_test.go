package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/muzerhq/muzer/internal/apperror"
	"github.com/muzerhq/muzer/internal/model"
)

func TestCreateVote(t *testing.T) {
	db := newTestDB(t)
	creator := createTestUser(t, db, "creator@example.com")
	voter := createTestUser(t, db, "voter@example.com")
	stream := createTestStream(t, db, creator.ID, "https://youtu.be/eeeeeeeeeee", true)

	vote := &model.Vote{StreamID: stream.ID, UserID: voter.ID}
	if err := db.CreateVote(context.Background(), vote); err != nil {
		t.Fatalf("CreateVote() error = %v", err)
	}
	if vote.ID == "" {
		t.Error("CreateVote() did not set vote.ID")
	}
}

func TestCreateVote_DuplicateRejectedByConstraint(t *testing.T) {
	db := newTestDB(t)
	creator := createTestUser(t, db, "creator@example.com")
	voter := createTestUser(t, db, "voter@example.com")
	stream := createTestStream(t, db, creator.ID, "https://youtu.be/fffffffffff", true)

	first := &model.Vote{StreamID: stream.ID, UserID: voter.ID}
	if err := db.CreateVote(context.Background(), first); err != nil {
		t.Fatalf("first CreateVote() error = %v", err)
	}

	// This goes straight at the repository — no service-level existence
	// check in front of it — proving the UNIQUE constraint itself holds
	// the one-vote invariant.
	second := &model.Vote{StreamID: stream.ID, UserID: voter.ID}
	err := db.CreateVote(context.Background(), second)
	if err == nil {
		t.Fatal("CreateVote() should reject a second vote for the same (stream, user)")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestCreateVote_ConcurrentSameUser(t *testing.T) {
	db := newTestDB(t)
	creator := createTestUser(t, db, "creator@example.com")
	voter := createTestUser(t, db, "voter@example.com")
	stream := createTestStream(t, db, creator.ID, "https://youtu.be/ggggggggggg", true)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vote := &model.Vote{StreamID: stream.ID, UserID: voter.ID}
			errs[i] = db.CreateVote(context.Background(), vote)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperror.ErrConflict):
			// expected for every attempt after the winner
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d concurrent upvotes succeeded, want exactly 1", succeeded)
	}

	// And exactly one row persisted.
	streams, err := db.ListByOwner(context.Background(), creator.ID, false)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	for _, s := range streams {
		if s.ID == stream.ID && len(s.VoterIDs) != 1 {
			t.Errorf("stream has %d vote rows, want 1", len(s.VoterIDs))
		}
	}
}

func TestCreateVote_DifferentUsersMayBothVote(t *testing.T) {
	db := newTestDB(t)
	creator := createTestUser(t, db, "creator@example.com")
	voterA := createTestUser(t, db, "a@example.com")
	voterB := createTestUser(t, db, "b@example.com")
	stream := createTestStream(t, db, creator.ID, "https://youtu.be/hhhhhhhhhhh", true)

	for _, v := range []*model.User{voterA, voterB} {
		vote := &model.Vote{StreamID: stream.ID, UserID: v.ID}
		if err := db.CreateVote(context.Background(), vote); err != nil {
			t.Fatalf("CreateVote() for %s error = %v", v.Email, err)
		}
	}
}

func TestDeleteVote(t *testing.T) {
	db := newTestDB(t)
	creator := createTestUser(t, db, "creator@example.com")
	voter := createTestUser(t, db, "voter@example.com")
	stream := createTestStream(t, db, creator.ID, "https://youtu.be/iiiiiiiiiii", true)

	vote := &model.Vote{StreamID: stream.ID, UserID: voter.ID}
	if err := db.CreateVote(context.Background(), vote); err != nil {
		t.Fatalf("CreateVote() error = %v", err)
	}

	if err := db.DeleteVote(context.Background(), stream.ID, voter.ID); err != nil {
		t.Fatalf("DeleteVote() error = %v", err)
	}

	// Upvote → downvote → upvote again is a legal cycle.
	again := &model.Vote{StreamID: stream.ID, UserID: voter.ID}
	if err := db.CreateVote(context.Background(), again); err != nil {
		t.Fatalf("re-upvote after retraction error = %v", err)
	}
}

func TestDeleteVote_NotYetUpvoted(t *testing.T) {
	db := newTestDB(t)
	creator := createTestUser(t, db, "creator@example.com")
	voter := createTestUser(t, db, "voter@example.com")
	stream := createTestStream(t, db, creator.ID, "https://youtu.be/jjjjjjjjjjj", true)

	err := db.DeleteVote(context.Background(), stream.ID, voter.ID)
	if err == nil {
		t.Fatal("DeleteVote() should fail when no vote exists")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}
