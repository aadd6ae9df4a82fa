package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity actions.
const (
	ActionRegister       = "register"
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionFeedbackCreate = "feedback.create"
	ActionFeedbackUpdate = "feedback.update"
	ActionFeedbackDelete = "feedback.delete"
	ActionExport         = "export"
)

// Activity is a single entry of a user's activity log stored in MongoDB.
type Activity struct {
	ID         primitive.ObjectID `json:"id"                    bson:"_id,omitempty"`
	Username   string             `json:"username"              bson:"username"`
	Action     string             `json:"action"                bson:"action"`
	FeedbackID int64              `json:"feedback_id,omitempty" bson:"feedback_id,omitempty"`
	CreatedAt  time.Time          `json:"created_at"            bson:"created_at"`
}
