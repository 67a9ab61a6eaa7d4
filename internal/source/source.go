// Package source fetches raw chat activity for a run. Connectors hide the
// transport (Kafka topic, HTTP bridge); the pipeline only sees Activity
// records.
package source

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable means the connector could not reach its backend at all.
// A run that hits this before producing any work fails outright.
var ErrUnavailable = errors.New("source: connector unavailable")

// Activity is one observed message from a monitored chat.
type Activity struct {
	ChatID      string    `json:"chat_id"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Bio         string    `json:"bio,omitempty"`
	MessageText string    `json:"message_text"`
	SentAt      time.Time `json:"sent_at"`
}

// Connector fetches recent activity from a set of chats. Implementations
// return at most limit records with SentAt >= since; ordering is not
// guaranteed.
type Connector interface {
	Fetch(ctx context.Context, chatIDs []string, since time.Time, limit int) ([]Activity, error)
}
