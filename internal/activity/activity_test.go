package activity

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/ayush/feedback-app/internal/models"
)

type fakeStore struct {
	recorded []models.Activity
	err      error
	purged   []string
}

func (f *fakeStore) Record(_ context.Context, a *models.Activity) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, *a)
	return nil
}

func (f *fakeStore) ListByUser(_ context.Context, username string, limit int64) ([]models.Activity, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Activity
	for i := len(f.recorded) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if f.recorded[i].Username == username {
			out = append(out, f.recorded[i])
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteByUser(_ context.Context, username string) error {
	f.purged = append(f.purged, username)
	return f.err
}

func newLog(store Store) (*Log, *bytes.Buffer) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	return NewLog(store, log), &buf
}

func TestRecordAndRecent(t *testing.T) {
	store := &fakeStore{}
	l, _ := newLog(store)
	ctx := context.Background()

	l.Record(ctx, "alice", models.ActionRegister, 0)
	l.Record(ctx, "bob", models.ActionLogin, 0)
	l.Record(ctx, "alice", models.ActionFeedbackCreate, 3)

	recent := l.Recent(ctx, "alice")
	if assert.Len(t, recent, 2) {
		assert.Equal(t, models.ActionFeedbackCreate, recent[0].Action)
		assert.Equal(t, int64(3), recent[0].FeedbackID)
		assert.Equal(t, models.ActionRegister, recent[1].Action)
	}
}

func TestFailuresAreLoggedNotReturned(t *testing.T) {
	store := &fakeStore{err: errors.New("mongo down")}
	l, buf := newLog(store)
	ctx := context.Background()

	l.Record(ctx, "alice", models.ActionLogin, 0)
	assert.Nil(t, l.Recent(ctx, "alice"))
	l.Purge(ctx, "alice")

	assert.Contains(t, buf.String(), "activity record failed")
	assert.Contains(t, buf.String(), "activity list failed")
	assert.Contains(t, buf.String(), "activity purge failed")
	assert.Equal(t, []string{"alice"}, store.purged)
}
