package models

import "time"

type NotificationKind string

const (
	NotificationPatientAdded  NotificationKind = "patient_added"
	NotificationReviewDone    NotificationKind = "review_recorded"
	NotificationSyncFailed    NotificationKind = "sync_failed"
	NotificationSessionClosed NotificationKind = "session_closed"
)

// Notification is a user-facing event message. The feed holding these is
// in-memory only and never written to the remote store.
type Notification struct {
	ID      string           `json:"id"`
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
	At      time.Time        `json:"at"`
}
