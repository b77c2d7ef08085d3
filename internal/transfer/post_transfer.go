package transfer

import "github.com/golang-jwt/jwt/v5"

type ScheduleRequest struct {
	PublishAt string   `json:"publish_at"`
	Platforms []string `json:"platforms,omitempty"`
}

type PublishRequest struct {
	PublishAt string `json:"publish_at,omitempty"`
}

type ActionResponse struct {
	Status    string `json:"status"`
	PostID    string `json:"post_id"`
	PublishAt string `json:"publish_at,omitempty"`
}

type MarkPostedResponse struct {
	PostID         string            `json:"post_id"`
	Status         string            `json:"status"`
	PlatformStatus map[string]string `json:"platform_status"`
}

// CustomClaims identifies the operator calling the gateway.
type CustomClaims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

type AutoscheduleResponse struct {
	Status    string   `json:"status"`
	Scheduled []string `json:"scheduled"`
	Count     int      `json:"count"`
}
