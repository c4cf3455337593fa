package services

import (
	"errors"
	"strings"

	"earn-marketplace-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Shared read helpers. Every lookup re-reads the authoritative row — nothing
// is cached across requests.

// findMembership returns the user's membership in orgID, or nil if none.
func findMembership(db *gorm.DB, orgID, userID string) (*models.Member, error) {
	var member models.Member
	err := db.First(&member, "organization_id = ? AND user_id = ?", orgID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, Unknown("failed to load membership", err)
	}
	return &member, nil
}

// findGrantByIDOrSlug resolves a grant by id or case-insensitive slug. The
// id column is a uuid, so anything that doesn't parse as one is a slug.
func findGrantByIDOrSlug(db *gorm.DB, idOrSlug string) (*models.Grant, error) {
	var grant models.Grant
	query := db.Where("LOWER(slug) = ?", strings.ToLower(idOrSlug))
	if _, err := uuid.Parse(idOrSlug); err == nil {
		query = db.Where("id = ?", idOrSlug)
	}
	if err := query.First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("grant not found")
		}
		return nil, Unknown("failed to load grant", err)
	}
	return &grant, nil
}

// findBountyByIDOrSlug resolves a bounty by id or case-insensitive slug.
func findBountyByIDOrSlug(db *gorm.DB, idOrSlug string) (*models.Bounty, error) {
	var bounty models.Bounty
	query := db.Where("LOWER(slug) = ?", strings.ToLower(idOrSlug))
	if _, err := uuid.Parse(idOrSlug); err == nil {
		query = db.Where("id = ?", idOrSlug)
	}
	if err := query.First(&bounty).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("bounty not found")
		}
		return nil, Unknown("failed to load bounty", err)
	}
	return &bounty, nil
}
