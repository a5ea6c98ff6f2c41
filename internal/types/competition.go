// Package types provides type definitions for structured data used throughout the competition-radar system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"
	"time"
)

// Origin identifies the source adapter that produced a candidate.
type Origin string

// Origin constants, one per adapter variant
const (
	OriginInstagram Origin = "instagram"
	OriginInfoLomba Origin = "infolomba"
	OriginLombaKu   Origin = "lombaku"
	OriginFeed      Origin = "feed"
)

// LifecycleStatus is the persisted lifecycle state of a competition record.
type LifecycleStatus string

// Lifecycle states
const (
	StatusDraft     LifecycleStatus = "draft"
	StatusPublished LifecycleStatus = "published"
)

// DateLayout is the canonical calendar date layout.
const DateLayout = "2006-01-02"

// CandidateItem is one scraped post before persistence.
type CandidateItem struct {
	Title         string `json:"title,omitempty"`
	SourceURL     string `json:"source_url"`
	MediaURL      string `json:"media_url"`
	BodyText      string `json:"body_text"`
	Origin        Origin `json:"origin"`
	OriginAccount string `json:"origin_account,omitempty"`
}

// Competition is the persisted unit of work and the final deliverable.
type Competition struct {
	ID                 int64           `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	PosterURL          string          `json:"poster_url"`
	SourceURL          string          `json:"source_url"`
	RegistrationURL    string          `json:"registration_url,omitempty"`
	Organizer          []string        `json:"organizer,omitempty"`
	Category           []string        `json:"category,omitempty"`
	Level              []string        `json:"level,omitempty"`
	StartDate          *time.Time      `json:"start_date,omitempty"`
	EndDate            *time.Time      `json:"end_date,omitempty"`
	Format             string          `json:"format,omitempty"`
	ParticipationType  []string        `json:"participation_type,omitempty"`
	Pricing            []int64         `json:"pricing,omitempty"`
	Location           string          `json:"location,omitempty"`
	Origin             Origin          `json:"origin"`
	OriginAccount      string          `json:"origin_account,omitempty"`
	Status             LifecycleStatus `json:"status"`
	DeliveredToChannel bool            `json:"delivered_to_channel"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NewDraft converts an admitted candidate into a draft record.
// posterURL is the relocated media reference.
func NewDraft(item CandidateItem, posterURL string) Competition {
	return Competition{
		Title:         strings.TrimSpace(item.Title),
		Description:   strings.TrimSpace(item.BodyText),
		PosterURL:     posterURL,
		SourceURL:     strings.TrimSpace(item.SourceURL),
		Origin:        item.Origin,
		OriginAccount: item.OriginAccount,
		Status:        StatusDraft,
	}
}

// Eligible reports whether the record may be handed to the delivery channels on the given day.
// A record qualifies when it has not been delivered, has a title and a poster,
// and either has no end date or ends today or later.
func (c *Competition) Eligible(today time.Time) bool {
	if c.DeliveredToChannel {
		return false
	}
	if strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.PosterURL) == "" {
		return false
	}
	if c.EndDate == nil {
		return true
	}
	return !truncateDay(*c.EndDate).Before(truncateDay(today))
}

// Apply merges extracted fields into the record. A field is only written when the
// record does not already hold a non-empty value for it. Returns the fields written.
func (c *Competition) Apply(f Fields) []Field {
	var applied []Field

	if c.Title == "" && f.Title != nil {
		c.Title = *f.Title
		applied = append(applied, FieldTitle)
	}
	if len(c.Organizer) == 0 && len(f.Organizer) > 0 {
		c.Organizer = append([]string(nil), f.Organizer...)
		applied = append(applied, FieldOrganizer)
	}
	if len(c.Category) == 0 && len(f.Category) > 0 {
		c.Category = append([]string(nil), f.Category...)
		applied = append(applied, FieldCategory)
	}
	if len(c.Level) == 0 && len(f.Level) > 0 {
		c.Level = append([]string(nil), f.Level...)
		applied = append(applied, FieldLevel)
	}
	if c.StartDate == nil && f.StartDate != nil {
		if d, ok := ParseDate(*f.StartDate); ok {
			c.StartDate = &d
			applied = append(applied, FieldStartDate)
		}
	}
	if c.EndDate == nil && f.EndDate != nil {
		if d, ok := ParseDate(*f.EndDate); ok {
			c.EndDate = &d
			applied = append(applied, FieldEndDate)
		}
	}
	if c.Format == "" && f.Format != nil {
		c.Format = *f.Format
		applied = append(applied, FieldFormat)
	}
	if len(c.ParticipationType) == 0 && len(f.ParticipationType) > 0 {
		c.ParticipationType = append([]string(nil), f.ParticipationType...)
		applied = append(applied, FieldParticipationType)
	}
	if len(c.Pricing) == 0 && len(f.Pricing) > 0 {
		c.Pricing = append([]int64(nil), f.Pricing...)
		applied = append(applied, FieldPricing)
	}
	if c.RegistrationURL == "" && f.URL != nil {
		c.RegistrationURL = *f.URL
		applied = append(applied, FieldURL)
	}
	if c.Location == "" && f.Location != nil {
		c.Location = *f.Location
		applied = append(applied, FieldLocation)
	}

	return applied
}

// ParseDate parses a canonical YYYY-MM-DD date.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
