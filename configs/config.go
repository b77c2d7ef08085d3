package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

// Meta holds the Graph API credentials shared by Instagram and Facebook.
type Meta struct {
	PageID              string
	PageToken           string
	InstagramBusinessID string
	APIVersion          string
	BaseURL             string
}

type LinkedIn struct {
	AccessToken string
	AuthorURN   string
	BaseURL     string
}

type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
	To       string
}

// AssetSubdirs names the four status folders under a client's root.
type AssetSubdirs struct {
	Preview      string
	Approved     string
	PostingQueue string
	Posted       string
}

type Config struct {
	ClientsDir      string
	StorePath       string
	AssetSubdirs    AssetSubdirs
	StaticPrefix    string
	PublicBaseURL   string
	PollInterval    time.Duration
	ApprovePolicy   string
	DefaultPlatform string
	PlatformsFile   string
	Meta            Meta
	LinkedIn        LinkedIn
	R2              R2
	SMTP            SMTP
	WebhookURL      string
	PostgresURI     string
	RedisURI        string
	SecretKey       string
	CookieName      string
	Port            string
}

func LoadConfig() *Config {
	clientsDir := getEnv("CLIENTS_DIR", "clients")
	return &Config{
		ClientsDir: clientsDir,
		StorePath:  getEnv("POST_STORE_PATH", filepath.Join("runtime", "posts.json")),
		AssetSubdirs: AssetSubdirs{
			Preview:      getEnv("PREVIEW_SUBDIR", filepath.Join("output", "preview")),
			Approved:     getEnv("APPROVED_SUBDIR", filepath.Join("output", "approved")),
			PostingQueue: getEnv("POSTING_QUEUE_SUBDIR", filepath.Join("output", "posting_queue")),
			Posted:       getEnv("POSTED_SUBDIR", filepath.Join("output", "posted")),
		},
		StaticPrefix:    getEnv("STATIC_PREFIX", "/static"),
		PublicBaseURL:   getEnv("PUBLIC_BASE_URL", "http://127.0.0.1:3000"),
		PollInterval:    getDuration("POLL_INTERVAL", 30*time.Second),
		ApprovePolicy:   getEnv("APPROVE_POLICY", "approve-then-schedule"),
		DefaultPlatform: getEnv("DEFAULT_PLATFORM", "instagram"),
		PlatformsFile:   getEnv("PLATFORMS_FILE", ""),
		Meta: Meta{
			PageID:              getEnv("META_PAGE_ID", ""),
			PageToken:           getEnv("META_PAGE_TOKEN", ""),
			InstagramBusinessID: getEnv("INSTAGRAM_BUSINESS_ID", ""),
			APIVersion:          getEnv("META_API_VERSION", "v24.0"),
			BaseURL:             getEnv("META_GRAPH_URL", "https://graph.facebook.com"),
		},
		LinkedIn: LinkedIn{
			AccessToken: getEnv("LINKEDIN_ACCESS_TOKEN", ""),
			AuthorURN:   getEnv("LINKEDIN_AUTHOR_URN", ""),
			BaseURL:     getEnv("LINKEDIN_API_URL", "https://api.linkedin.com"),
		},
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SMTP: SMTP{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getInt("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			To:       getEnv("NOTIFY_EMAIL", ""),
		},
		WebhookURL:  getEnv("NOTIFY_WEBHOOK", ""),
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", ""),
		SecretKey:   getEnv("SECRET_KEY", ""),
		CookieName:  getEnv("COOKIE_NAME", "contentpilot_session"),
		Port:        getEnv("PORT", "3000"),
	}
}

// R2Enabled reports whether every R2 credential is present.
func (c *Config) R2Enabled() bool {
	return c.R2.AccountID != "" && c.R2.AccessKey != "" && c.R2.SecretKey != "" && c.R2.BucketName != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return defaultValue
}
