package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONMap is an arbitrary key/value blob (screening Q/A responses).
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return fmt.Errorf("cannot scan %T into JSONMap", value)
}

// TimelineEntry is one milestone/date pair in an application's plan.
type TimelineEntry struct {
	Milestone string    `json:"milestone"`
	Date      time.Time `json:"date"`
}

// Timeline is the ordered list of milestone/date pairs, stored as JSON.
type Timeline []TimelineEntry

func (t Timeline) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *Timeline) Scan(value interface{}) error {
	if value == nil {
		*t = Timeline{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	}
	return fmt.Errorf("cannot scan %T into Timeline", value)
}

// Grant is an open-ended funding program. Most of its lifecycle is managed
// elsewhere; the application flow here only gates on status/visibility/source
// and the budget bounds.
type Grant struct {
	ID             string      `gorm:"primaryKey;type:uuid" json:"id"`
	Slug           string      `gorm:"uniqueIndex;not null" json:"slug"`
	OrganizationID string      `gorm:"index;not null" json:"organization_id"`
	Title          string      `gorm:"not null" json:"title"`
	Description    string      `gorm:"type:text" json:"description"`
	Status         GrantStatus `gorm:"type:varchar(16);not null;default:'open';index" json:"status"`
	Visibility     Visibility  `gorm:"type:varchar(16);not null;default:'draft';index" json:"visibility"`
	Source         GrantSource `gorm:"type:varchar(16);not null;default:'native'" json:"source"`
	ExternalURL    string      `gorm:"type:text" json:"external_url,omitempty"` // only for source=external
	MinAmount      *float64    `json:"min_amount,omitempty"`
	MaxAmount      *float64    `json:"max_amount,omitempty"`
	Token          string      `gorm:"type:varchar(16)" json:"token"`
	Screening      bool        `gorm:"default:false" json:"screening"`

	ApplicationCount int64 `gorm:"default:0" json:"application_count"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Organization Organization       `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
	Rfps         []Rfp              `json:"rfps,omitempty" gorm:"foreignKey:GrantID"`
	Applications []GrantApplication `json:"applications,omitempty" gorm:"foreignKey:GrantID"`
	Curators     []Curator          `json:"curators,omitempty" gorm:"foreignKey:GrantID"`
}

// Rfp is a specific funding ask nested under a grant.
type Rfp struct {
	ID               string    `gorm:"primaryKey;type:uuid" json:"id"`
	GrantID          string    `gorm:"index;not null" json:"grant_id"`
	Title            string    `gorm:"not null" json:"title"`
	Description      string    `gorm:"type:text" json:"description"`
	ApplicationCount int64     `gorm:"default:0" json:"application_count"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// GrantApplication is one user's funding request against a grant. At most one
// per (grant, user) — backed by a composite unique index.
type GrantApplication struct {
	ID          string            `gorm:"primaryKey;type:uuid" json:"id"`
	GrantID     string            `gorm:"index:idx_application_grant_user,unique;not null" json:"grant_id"`
	RfpID       *string           `gorm:"index" json:"rfp_id,omitempty"`
	UserID      string            `gorm:"index:idx_application_grant_user,unique;not null" json:"user_id"`
	Title       string            `gorm:"not null" json:"title"`
	Summary     string            `gorm:"type:text" json:"summary"`
	Description string            `gorm:"type:text" json:"description"`
	Timeline    Timeline          `gorm:"type:text" json:"timeline"`
	Milestones  string            `gorm:"type:text" json:"milestones"`
	Budget      *float64          `json:"budget,omitempty"`
	Responses   JSONMap           `gorm:"type:text" json:"responses"`
	Status      ApplicationStatus `gorm:"type:varchar(16);not null;default:'submitted';index" json:"status"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Feedback    string            `gorm:"type:text" json:"feedback,omitempty"`
	ReviewedAt  *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"autoUpdateTime"`

	// Denormalized applicant summary for list/detail responses (not stored)
	ApplicantUsername string `json:"applicant_username,omitempty" gorm:"-"`
	ApplicantEmail    string `json:"applicant_email,omitempty" gorm:"-"`
}
