// Package extract turns raw chat activity into qualification candidates.
// The transform is pure: same activity in, same candidates out.
package extract

import (
	"sort"
	"time"

	"github.com/leadscout/leadscout/internal/source"
)

// Freshness buckets candidates by recency of their last activity.
const (
	FreshnessHot   = "hot"   // active within a day
	FreshnessWarm  = "warm"  // active within three days
	FreshnessCold  = "cold"  // active within the freshness window
	FreshnessStale = "stale" // outside the window, excluded
)

// Candidate is one distinct user aggregated from the fetched activity.
type Candidate struct {
	UserID       string
	Username     string
	Bio          string
	Messages     []string
	ChatIDs      []string
	MessageCount int
	LastActive   time.Time
	Freshness    string
}

// Options bound which candidates survive extraction.
type Options struct {
	// FreshnessWindow drops users whose last activity is older than this.
	FreshnessWindow time.Duration
	// ActivityFloor drops users with fewer messages in the batch.
	ActivityFloor int
	// Now anchors freshness; zero means time.Now.
	Now time.Time
}

// Candidates aggregates activity into one candidate per user. Records with
// an empty user id are dropped. When a user appears multiple times the
// latest activity wins for username and bio, and all message texts are kept
// in arrival order.
func Candidates(activities []source.Activity, opts Options) []Candidate {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	byUser := make(map[string]*Candidate)
	var order []string
	for _, a := range activities {
		if a.UserID == "" {
			continue
		}
		c, ok := byUser[a.UserID]
		if !ok {
			c = &Candidate{UserID: a.UserID}
			byUser[a.UserID] = c
			order = append(order, a.UserID)
		}
		if a.MessageText != "" {
			c.Messages = append(c.Messages, a.MessageText)
			c.MessageCount++
		}
		if !containsString(c.ChatIDs, a.ChatID) {
			c.ChatIDs = append(c.ChatIDs, a.ChatID)
		}
		if !a.SentAt.Before(c.LastActive) {
			c.LastActive = a.SentAt
			if a.Username != "" {
				c.Username = a.Username
			}
			if a.Bio != "" {
				c.Bio = a.Bio
			}
		}
	}

	out := make([]Candidate, 0, len(order))
	for _, uid := range order {
		c := byUser[uid]
		c.Freshness = freshness(now.Sub(c.LastActive), opts.FreshnessWindow)
		if c.Freshness == FreshnessStale {
			continue
		}
		if opts.ActivityFloor > 0 && c.MessageCount < opts.ActivityFloor {
			continue
		}
		out = append(out, *c)
	}

	// Most recently active first, ties broken by user id for stable output.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastActive.Equal(out[j].LastActive) {
			return out[i].LastActive.After(out[j].LastActive)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func freshness(age, window time.Duration) string {
	if window > 0 && age > window {
		return FreshnessStale
	}
	switch {
	case age <= 24*time.Hour:
		return FreshnessHot
	case age <= 72*time.Hour:
		return FreshnessWarm
	default:
		return FreshnessCold
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
