package models

import "time"

// Promotion is a marketing offer shown on the marketing panel.
type Promotion struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	StartsAt  time.Time `json:"startsAt"`
	EndsAt    time.Time `json:"endsAt"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Automation is a recurring marketing action (e.g. a weekly post).
type Automation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Trigger   string    `json:"trigger"`
	Action    string    `json:"action"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
}

// SocialPost is a drafted or published social media post.
type SocialPost struct {
	ID          string    `json:"id"`
	Channel     string    `json:"channel"`
	Body        string    `json:"body"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"createdAt"`
}
