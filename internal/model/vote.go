package model

import "time"

// Vote is a helpfulness vote on a review.
type Vote struct {
	ID        string    `json:"id"`
	ReviewID  string    `json:"review_id"`
	UserID    string    `json:"user_id"`
	IsUpvote  bool      `json:"is_upvote"`
	CreatedAt time.Time `json:"created_at"`
}
