package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PrizeTable maps winner position (1st, 2nd, …) to prize amount. Stored as a
// JSON column; encoding/json round-trips int keys as numeric strings.
type PrizeTable map[int]float64

func (p PrizeTable) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *PrizeTable) Scan(value interface{}) error {
	if value == nil {
		*p = PrizeTable{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	}
	return fmt.Errorf("cannot scan %T into PrizeTable", value)
}

// Total is the sum of all configured prizes.
func (p PrizeTable) Total() float64 {
	var sum float64
	for _, amount := range p {
		sum += amount
	}
	return sum
}

// Bounty is a fixed-prize, multi-winner competition posted by an organization.
type Bounty struct {
	ID             string       `gorm:"primaryKey;type:uuid" json:"id"`
	Slug           string       `gorm:"uniqueIndex;not null" json:"slug"`
	OrganizationID string       `gorm:"index;not null" json:"organization_id"`
	Title          string       `gorm:"not null" json:"title"`
	Description    string       `gorm:"type:text" json:"description"`
	Skills         string       `gorm:"type:text" json:"skills"` // comma-separated
	Amount         *float64     `json:"amount,omitempty"`
	Token          string       `gorm:"type:varchar(16)" json:"token"`
	SplitPolicy    SplitPolicy  `gorm:"type:varchar(16);not null;default:'fixed'" json:"split_policy"`
	Winnings       PrizeTable   `gorm:"type:text" json:"winnings"`
	Deadline       *time.Time   `gorm:"index" json:"deadline,omitempty"`
	Status         BountyStatus `gorm:"type:varchar(16);not null;default:'open';index" json:"status"`
	Visibility     Visibility   `gorm:"type:varchar(16);not null;default:'draft';index" json:"visibility"`

	SubmissionCount          int64      `gorm:"default:0" json:"submission_count"`
	LastWinnerReminderSentAt *time.Time `json:"last_winner_reminder_sent_at,omitempty"`
	WinnersAnnouncedAt       *time.Time `json:"winners_announced_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Organization Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
	Submissions  []Submission `json:"submissions,omitempty" gorm:"foreignKey:BountyID"`
	Curators     []Curator    `json:"curators,omitempty" gorm:"foreignKey:BountyID"`
}

// Submission is one builder's entry into a bounty. One per (bounty, user) —
// backed by a composite unique index, not just the application-level check.
type Submission struct {
	ID            string           `gorm:"primaryKey;type:uuid" json:"id"`
	BountyID      string           `gorm:"index:idx_submission_bounty_user,unique;not null" json:"bounty_id"`
	UserID        string           `gorm:"index:idx_submission_bounty_user,unique;not null" json:"user_id"`
	Title         string           `gorm:"not null" json:"title"`
	Description   string           `gorm:"type:text" json:"description"`
	SubmissionURL string           `gorm:"type:text" json:"submission_url"`
	Status        SubmissionStatus `gorm:"type:varchar(16);not null;default:'submitted'" json:"status"`
	IsWinner      bool             `gorm:"default:false;index" json:"is_winner"`
	Position      *int             `json:"position,omitempty"`
	WinningAmount *float64         `json:"winning_amount,omitempty"`
	SubmittedAt   time.Time        `json:"submitted_at"`
	CreatedAt     time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}
