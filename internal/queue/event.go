// Package queue carries user lifecycle events over RabbitMQ: a publisher
// used by the HTTP handlers and an audit consumer that appends each event
// to a log file.
package queue

import "time"

// EventType names a lifecycle transition.
type EventType string

const (
	UserRegistered      EventType = "user.registered"
	UserPasswordChanged EventType = "user.password_changed"
	UserUpdated         EventType = "user.updated"
	UserDeleted         EventType = "user.deleted"
)

// UserEvent is published after a mutation succeeded at the backend. It never
// carries credential material.
type UserEvent struct {
	Type       EventType `json:"type"`
	UserName   string    `json:"user_name,omitempty"`
	UserID     int64     `json:"user_id,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
