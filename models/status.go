package models

// Visibility is orthogonal to status: a bounty/grant can sit in any status
// while still being a draft nobody outside the org can see.
type Visibility string

const (
	VisibilityDraft     Visibility = "draft"
	VisibilityPublished Visibility = "published"
)

// BountyStatus values for the bounty lifecycle
type BountyStatus string

const (
	BountyStatusOpen      BountyStatus = "open"
	BountyStatusReviewing BountyStatus = "reviewing"
	BountyStatusCompleted BountyStatus = "completed"
	BountyStatusClosed    BountyStatus = "closed"
	BountyStatusCancelled BountyStatus = "cancelled"
)

// bountyTransitions is the canonical transition table. completed, closed and
// cancelled are terminal. open → reviewing is also performed automatically by
// the deadline sweep; every other edge is reviewer-initiated.
var bountyTransitions = map[BountyStatus][]BountyStatus{
	BountyStatusOpen:      {BountyStatusReviewing, BountyStatusCancelled, BountyStatusClosed},
	BountyStatusReviewing: {BountyStatusCompleted, BountyStatusCancelled},
}

// CanTransitionBounty reports whether from → to is a legal status change.
func CanTransitionBounty(from, to BountyStatus) bool {
	for _, next := range bountyTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalBountyStatus reports whether no further transitions exist.
func IsTerminalBountyStatus(s BountyStatus) bool {
	return len(bountyTransitions[s]) == 0
}

// ValidBountyStatus reports whether s is one of the known status values.
func ValidBountyStatus(s BountyStatus) bool {
	switch s {
	case BountyStatusOpen, BountyStatusReviewing, BountyStatusCompleted,
		BountyStatusClosed, BountyStatusCancelled:
		return true
	}
	return false
}

// SubmissionStatus values for bounty submissions
type SubmissionStatus string

const (
	SubmissionStatusSubmitted   SubmissionStatus = "submitted"
	SubmissionStatusUnderReview SubmissionStatus = "under_review"
	SubmissionStatusSelected    SubmissionStatus = "selected"
	SubmissionStatusRejected    SubmissionStatus = "rejected"
	SubmissionStatusSpam        SubmissionStatus = "spam"
)

// GrantStatus values. The core only ever gates on "open"; the rest exist so
// the owning org can pause or retire a program without deleting it.
type GrantStatus string

const (
	GrantStatusOpen   GrantStatus = "open"
	GrantStatusPaused GrantStatus = "paused"
	GrantStatusClosed GrantStatus = "closed"
)

// GrantSource — external grants route applicants to an outside URL, so the
// native application flow refuses them.
type GrantSource string

const (
	GrantSourceNative   GrantSource = "native"
	GrantSourceExternal GrantSource = "external"
)

// ApplicationStatus values for grant applications
type ApplicationStatus string

const (
	ApplicationStatusDraft       ApplicationStatus = "draft"
	ApplicationStatusSubmitted   ApplicationStatus = "submitted"
	ApplicationStatusUnderReview ApplicationStatus = "under_review"
	ApplicationStatusApproved    ApplicationStatus = "approved"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
)

// ValidReviewDecision reports whether s is a decision a reviewer may hand
// down (approve or reject — everything else is an internal state).
func ValidReviewDecision(s ApplicationStatus) bool {
	return s == ApplicationStatusApproved || s == ApplicationStatusRejected
}

// SplitPolicy controls how a bounty's total amount is divided across winners
type SplitPolicy string

const (
	SplitPolicyFixed      SplitPolicy = "fixed"
	SplitPolicyEqualSplit SplitPolicy = "equal_split"
	SplitPolicyVariable   SplitPolicy = "variable"
)
