package models

import (
	"sort"
	"strings"
	"time"
)

type Status string

const (
	PostStatusPreview   Status = "preview"
	PostStatusApproved  Status = "approved"
	PostStatusScheduled Status = "scheduled"
	PostStatusPosted    Status = "posted"    // manual completion, posted/ folder
	PostStatusPublished Status = "published" // orchestrator completion
)

// ParseStatus lower-cases and trims s. Unknown values are returned as-is so
// that a record written by another subsystem is never silently rewritten.
func ParseStatus(s string) Status {
	return Status(strings.ToLower(strings.TrimSpace(s)))
}

// IsTerminal reports whether no further automatic transition happens.
// posted and published are both accepted.
func (s Status) IsTerminal() bool {
	return s == PostStatusPosted || s == PostStatusPublished
}

// IsAdvanced reports whether a record with this status survives pruning even
// when none of its files can be found.
func (s Status) IsAdvanced() bool {
	switch s {
	case PostStatusApproved, PostStatusScheduled, PostStatusPosted, PostStatusPublished:
		return true
	}
	return false
}

const (
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
	PlatformLinkedIn  = "linkedin"
)

const (
	ResultStatusOK    = "ok"
	ResultStatusError = "error"

	PlatformStatusPosted  = "posted"
	PlatformStatusPending = "pending"
)

type PlatformResult struct {
	PreviewURL  string     `json:"preview_url,omitempty"`
	Caption     string     `json:"caption"`
	Status      string     `json:"status,omitempty"`
	Error       string     `json:"error,omitempty"`
	ExternalID  string     `json:"external_id,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

type Post struct {
	ID              string                    `json:"id"`
	Client          string                    `json:"client"`
	Type            string                    `json:"type,omitempty"` // foundation, trust, service, manual
	Source          string                    `json:"source,omitempty"`
	SourceAsset     string                    `json:"source_asset,omitempty"`
	Status          Status                    `json:"status"`
	Category        string                    `json:"category"`
	ImageContext    string                    `json:"image_context,omitempty"`
	ImageCategory   string                    `json:"image_category,omitempty"`
	ContentCategory string                    `json:"content_category,omitempty"`
	Platforms       []string                  `json:"platforms,omitempty"`
	Platform        string                    `json:"platform,omitempty"` // comma separated
	Results         map[string]PlatformResult `json:"results"`
	Preview         string                    `json:"preview"`
	PublishAt       string                    `json:"publish_at,omitempty"`
	PlatformTimes   map[string]*time.Time     `json:"platform_times,omitempty"`
	PlatformStatus  map[string]string         `json:"platform_status,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
	PostedAt        *time.Time                `json:"posted_at,omitempty"`
	PublishedAt     *time.Time                `json:"published_at,omitempty"`
}

// PostPatch is a shallow merge: every non-nil field replaces the stored one.
type PostPatch struct {
	Status         *Status
	Category       *string
	Platforms      []string
	Results        map[string]PlatformResult
	Preview        *string
	PublishAt      *string // empty string clears
	PlatformTimes  map[string]*time.Time
	ClearTimes     bool
	PlatformStatus map[string]string
	UpdatedAt      *time.Time
	PostedAt       *time.Time
	PublishedAt    *time.Time
}

func (pp PostPatch) Apply(p *Post) {
	if pp.Status != nil {
		p.Status = *pp.Status
	}
	if pp.Category != nil {
		p.Category = NormalizeCategory(*pp.Category)
	}
	if pp.Platforms != nil {
		p.Platforms = pp.Platforms
	}
	if pp.Results != nil {
		p.Results = pp.Results
	}
	if pp.Preview != nil {
		p.Preview = *pp.Preview
	}
	if pp.PublishAt != nil {
		p.PublishAt = *pp.PublishAt
	}
	if pp.ClearTimes {
		p.PlatformTimes = nil
	}
	if pp.PlatformTimes != nil {
		p.PlatformTimes = pp.PlatformTimes
	}
	if pp.PlatformStatus != nil {
		p.PlatformStatus = pp.PlatformStatus
	}
	if pp.UpdatedAt != nil && pp.UpdatedAt.After(p.UpdatedAt) {
		p.UpdatedAt = *pp.UpdatedAt
	}
	p.PostedAt = forward(p.PostedAt, pp.PostedAt)
	p.PublishedAt = forward(p.PublishedAt, pp.PublishedAt)
}

// forward keeps lifecycle timestamps monotonic.
func forward(cur, next *time.Time) *time.Time {
	if next == nil {
		return cur
	}
	if cur != nil && !next.After(*cur) {
		return cur
	}
	t := *next
	return &t
}

// PublishAtTime parses publish_at. ok is false when it is missing or
// unparseable.
func (p *Post) PublishAtTime() (time.Time, bool) {
	return ParsePublishAt(p.PublishAt)
}

// ParsePublishAt accepts RFC 3339 and naive ISO timestamps; naive ones are
// read as UTC.
func ParsePublishAt(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Clone returns a deep enough copy for callers that mutate maps.
func (p *Post) Clone() *Post {
	cp := *p
	if p.Results != nil {
		cp.Results = make(map[string]PlatformResult, len(p.Results))
		for k, v := range p.Results {
			cp.Results[k] = v
		}
	}
	if p.PlatformTimes != nil {
		cp.PlatformTimes = make(map[string]*time.Time, len(p.PlatformTimes))
		for k, v := range p.PlatformTimes {
			cp.PlatformTimes[k] = v
		}
	}
	if p.PlatformStatus != nil {
		cp.PlatformStatus = make(map[string]string, len(p.PlatformStatus))
		for k, v := range p.PlatformStatus {
			cp.PlatformStatus[k] = v
		}
	}
	if p.Platforms != nil {
		cp.Platforms = append([]string(nil), p.Platforms...)
	}
	return &cp
}

// ResolvePlatforms returns explicit platforms, else the comma separated
// platform string, else the keys of results, else fallback.
func (p *Post) ResolvePlatforms(fallback string) []string {
	var out []string
	for _, pf := range p.Platforms {
		if pf = strings.ToLower(strings.TrimSpace(pf)); pf != "" {
			out = append(out, pf)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, pf := range strings.Split(p.Platform, ",") {
		if pf = strings.ToLower(strings.TrimSpace(pf)); pf != "" {
			out = append(out, pf)
		}
	}
	if len(out) > 0 {
		return out
	}
	for pf := range p.Results {
		if pf = strings.ToLower(strings.TrimSpace(pf)); pf != "" {
			out = append(out, pf)
		}
	}
	if len(out) > 0 {
		sort.Strings(out)
		return out
	}
	return []string{fallback}
}
