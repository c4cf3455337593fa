package models

import (
	"time"

	"gorm.io/gorm"
)

// OrgRole — owner and admin can create/review/delete opportunities; plain
// members can't, but membership of any role still disqualifies a user from
// applying to their own org's opportunities (anti-collusion).
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "owner"
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

// CanReview reports whether the role may review/approve/manage opportunities.
func (r OrgRole) CanReview() bool {
	return r == OrgRoleOwner || r == OrgRoleAdmin
}

// Organization is the funder side of the marketplace. Profile editing lives
// in another service; we only keep what the lifecycle core needs.
type Organization struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	LogoURL   string    `gorm:"type:text" json:"logo_url,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Member links a user to an organization with a role.
type Member struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	OrganizationID string    `gorm:"index:idx_member_org_user,unique;not null" json:"organization_id"`
	UserID         string    `gorm:"index:idx_member_org_user,unique;not null" json:"user_id"`
	Role           OrgRole   `gorm:"type:varchar(16);not null;default:'member'" json:"role"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Curator designates a user as reviewer for one bounty or one grant (exactly
// one of the two foreign keys is set).
type Curator struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	BountyID  *string   `gorm:"index" json:"bounty_id,omitempty"`
	GrantID   *string   `gorm:"index" json:"grant_id,omitempty"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// MarketplaceUser is a local snapshot of user contact data needed for curator
// notifications. Owned solely by this service, populated by the member sync
// worker from the profile service.
type MarketplaceUser struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username       string    `gorm:"index;not null" json:"username"`
	Email          string    `json:"email,omitempty"`
	FirstName      *string   `json:"first_name,omitempty"`
	LastName       *string   `json:"last_name,omitempty"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
