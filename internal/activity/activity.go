// Package activity records what users do. Recording is best effort: a failing
// store is logged and never fails the request that triggered it.
package activity

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ayush/feedback-app/internal/models"
)

// RecentLimit is how many entries the user page shows.
const RecentLimit = 10

// Store defines the interface for activity persistence.
type Store interface {
	Record(ctx context.Context, a *models.Activity) error
	ListByUser(ctx context.Context, username string, limit int64) ([]models.Activity, error)
	DeleteByUser(ctx context.Context, username string) error
}

type Log struct {
	store Store
	log   *logrus.Logger
}

func NewLog(store Store, log *logrus.Logger) *Log {
	return &Log{store: store, log: log}
}

func (l *Log) Record(ctx context.Context, username, action string, feedbackID int64) {
	err := l.store.Record(ctx, &models.Activity{Username: username, Action: action, FeedbackID: feedbackID})
	if err != nil {
		l.log.WithError(err).WithFields(logrus.Fields{
			"username": username,
			"action":   action,
		}).Warn("activity record failed")
	}
}

// Recent returns the newest entries, or nil if the store is unavailable.
func (l *Log) Recent(ctx context.Context, username string) []models.Activity {
	items, err := l.store.ListByUser(ctx, username, RecentLimit)
	if err != nil {
		l.log.WithError(err).WithField("username", username).Warn("activity list failed")
		return nil
	}
	return items
}

func (l *Log) Purge(ctx context.Context, username string) {
	if err := l.store.DeleteByUser(ctx, username); err != nil {
		l.log.WithError(err).WithField("username", username).Warn("activity purge failed")
	}
}
