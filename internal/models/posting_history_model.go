package models

import "time"

type PostingHistory struct {
	ID           int64     `db:"id" json:"id"`
	Client       string    `db:"client" json:"client"`
	PostID       string    `db:"post_id" json:"post_id"`
	Platform     string    `db:"platform" json:"platform"`
	Status       string    `db:"status" json:"status"`
	ExternalID   string    `db:"external_id" json:"external_id"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
