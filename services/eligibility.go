package services

import (
	"earn-marketplace-system/models"
)

// Pure eligibility predicates. Every access-control / state decision in the
// service layer goes through these — nothing else re-implements the checks.
// Callers load the entities; these functions never touch the database.

// CanApplyToGrant decides whether userID may file an application against
// grant. existing is the user's prior application (nil if none); membership
// is the user's membership in the grant's owning org (nil if not a member).
//
// Check order is fixed: missing grant, self-dealing (which disqualifies
// regardless of the grant's state), state gates, source gate, duplicate.
func CanApplyToGrant(grant *models.Grant, userID string, existing *models.GrantApplication, membership *models.Member) error {
	if grant == nil {
		return NotFound("grant not found")
	}
	if membership != nil {
		return SelfDealing("members of the funding organization cannot apply to its grants")
	}
	if grant.Visibility != models.VisibilityPublished || grant.Status != models.GrantStatusOpen {
		return InvalidState("grant is not open for applications")
	}
	if grant.Source == models.GrantSourceExternal {
		return UnsupportedSource("grant accepts applications on an external site")
	}
	if existing != nil {
		return Duplicate("user has already applied to this grant")
	}
	return nil
}

// CanSubmitToBounty is the bounty-side twin of CanApplyToGrant. Bounties have
// no external-source concept.
func CanSubmitToBounty(bounty *models.Bounty, userID string, existing *models.Submission, membership *models.Member) error {
	if bounty == nil {
		return NotFound("bounty not found")
	}
	if membership != nil {
		return SelfDealing("members of the funding organization cannot submit to its bounties")
	}
	if bounty.Visibility != models.VisibilityPublished || bounty.Status != models.BountyStatusOpen {
		return InvalidState("bounty is not open for submissions")
	}
	if existing != nil {
		return Duplicate("user has already submitted to this bounty")
	}
	return nil
}

// CanReviewEntity requires an owner/admin membership in the owning org.
func CanReviewEntity(membership *models.Member) error {
	if membership == nil || !membership.Role.CanReview() {
		return Forbidden("only organization owners and admins can review")
	}
	return nil
}

// CanDeleteBounty — owners/admins only, and never once submissions exist.
func CanDeleteBounty(membership *models.Member, submissionCount int64) error {
	if membership == nil || !membership.Role.CanReview() {
		return Forbidden("only organization owners and admins can delete a bounty")
	}
	if submissionCount > 0 {
		return InvalidState("bounty with submissions cannot be deleted")
	}
	return nil
}
