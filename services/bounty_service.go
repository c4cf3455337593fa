package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"earn-marketplace-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type BountyService struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewBountyService(db *gorm.DB, notifier Notifier) *BountyService {
	return &BountyService{DB: db, Notifier: notifier}
}

// CreateBountyRequest is the org-side payload for posting a bounty.
type CreateBountyRequest struct {
	OrganizationID string             `json:"organization_id" validate:"required,uuid"`
	Title          string             `json:"title" validate:"required,max=200"`
	Description    string             `json:"description" validate:"required"`
	Skills         string             `json:"skills"`
	Amount         *float64           `json:"amount" validate:"omitempty,gt=0"`
	Token          string             `json:"token"`
	SplitPolicy    models.SplitPolicy `json:"split_policy" validate:"omitempty,oneof=fixed equal_split variable"`
	Winnings       models.PrizeTable  `json:"winnings"`
	Deadline       *time.Time         `json:"deadline"`
	Visibility     models.Visibility  `json:"visibility" validate:"omitempty,oneof=draft published"`
}

// CreateBountyForActor posts a new bounty for the actor's organization. The
// prize table is checked against the total amount here (and on update) — it
// is not re-verified at read time.
func (s *BountyService) CreateBountyForActor(actorID string, req *CreateBountyRequest) (*models.Bounty, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	membership, err := findMembership(s.DB, req.OrganizationID, actorID)
	if err != nil {
		return nil, err
	}
	if err := CanReviewEntity(membership); err != nil {
		return nil, err
	}

	for position := range req.Winnings {
		if position < 1 {
			return nil, Invalid("winner positions start at 1")
		}
	}
	if req.Amount != nil && req.Winnings.Total() > *req.Amount {
		return nil, Invalid("sum of prize table exceeds the bounty amount")
	}
	if req.Amount == nil && len(req.Winnings) > 0 {
		return nil, Invalid("a prize table requires a bounty amount")
	}

	splitPolicy := req.SplitPolicy
	if splitPolicy == "" {
		splitPolicy = models.SplitPolicyFixed
	}
	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityDraft
	}

	bounty := &models.Bounty{
		ID:             uuid.NewString(),
		Slug:           s.uniqueSlug(req.Title),
		OrganizationID: req.OrganizationID,
		Title:          req.Title,
		Description:    req.Description,
		Skills:         req.Skills,
		Amount:         req.Amount,
		Token:          req.Token,
		SplitPolicy:    splitPolicy,
		Winnings:       req.Winnings,
		Deadline:       req.Deadline,
		Status:         models.BountyStatusOpen,
		Visibility:     visibility,
	}

	if err := s.DB.Create(bounty).Error; err != nil {
		return nil, Unknown("failed to create bounty", err)
	}
	return bounty, nil
}

// uniqueSlug derives a URL slug from the title, suffixing on collision.
func (s *BountyService) uniqueSlug(title string) string {
	base := slug.Make(title)
	candidate := base
	for i := 0; ; i++ {
		var count int64
		s.DB.Model(&models.Bounty{}).Where("slug = ?", candidate).Count(&count)
		if count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
		if i > 3 {
			return candidate // uuid suffix collision is not a real concern
		}
	}
}

// CreateSubmissionRequest is the builder-side payload for a bounty entry.
type CreateSubmissionRequest struct {
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description" validate:"required"`
	SubmissionURL string `json:"submission_url" validate:"required,url"`
}

// CreateSubmissionForUser mirrors the grant intake: resolve → guard →
// validate → persist + counter (one transaction) → best-effort first-
// submission fan-out.
func (s *BountyService) CreateSubmissionForUser(bountyIDOrSlug, userID string, req *CreateSubmissionRequest) (*models.Submission, error) {
	bounty, err := findBountyByIDOrSlug(s.DB, bountyIDOrSlug)
	if err != nil {
		return nil, err
	}

	var existing *models.Submission
	var prior models.Submission
	err = s.DB.First(&prior, "bounty_id = ? AND user_id = ?", bounty.ID, userID).Error
	if err == nil {
		existing = &prior
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Unknown("failed to check for an existing submission", err)
	}

	membership, err := findMembership(s.DB, bounty.OrganizationID, userID)
	if err != nil {
		return nil, err
	}

	if err := CanSubmitToBounty(bounty, userID, existing, membership); err != nil {
		return nil, err
	}

	if err := validateStruct(req); err != nil {
		return nil, err
	}

	submission := &models.Submission{
		ID:            uuid.NewString(),
		BountyID:      bounty.ID,
		UserID:        userID,
		Title:         req.Title,
		Description:   req.Description,
		SubmissionURL: req.SubmissionURL,
		Status:        models.SubmissionStatusSubmitted,
		SubmittedAt:   time.Now(),
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(submission).Error; err != nil {
			return err
		}
		return tx.Model(&models.Bounty{}).Where("id = ?", bounty.ID).
			UpdateColumn("submission_count", gorm.Expr("submission_count + 1")).Error
	})
	if err != nil {
		return nil, Unknown("failed to create submission", err)
	}

	var updated models.Bounty
	if err := s.DB.Select("submission_count").First(&updated, "id = ?", bounty.ID).Error; err == nil &&
		updated.SubmissionCount == 1 {
		s.notifyFirstSubmission(bounty, updated.SubmissionCount)
	}

	return submission, nil
}

func (s *BountyService) notifyFirstSubmission(bounty *models.Bounty, submissionCount int64) {
	contacts, err := curatorContacts(s.DB, "bounty_id", bounty.ID)
	if err != nil {
		log.Printf("⚠️ [NOTIFY] could not load curators for bounty %s: %v", bounty.ID, err)
		return
	}
	summary := bountySummary(bounty)
	summary.SubmissionCount = submissionCount
	result := dispatchBestEffort("first-submission", contacts, func(contact CuratorContact) error {
		return s.Notifier.SendFirstSubmissionNotice(contact, summary)
	})
	log.Printf("📬 [NOTIFY] first submission on bounty %s: %d/%d curator notices sent",
		bounty.ID, result.Succeeded, result.Attempted)
}

// bountySummary is the single place a bounty is flattened for notification
// payloads (and where a nil amount becomes "0").
func bountySummary(bounty *models.Bounty) BountySummary {
	return BountySummary{
		ID:              bounty.ID,
		Title:           bounty.Title,
		Deadline:        bounty.Deadline,
		SubmissionCount: bounty.SubmissionCount,
		TotalPrize:      PrizeString(bounty.Amount),
		Token:           bounty.Token,
	}
}

// reviewerMembership loads the actor's membership for the bounty's org and
// runs the review guard.
func (s *BountyService) reviewerMembership(bounty *models.Bounty, actorID string) error {
	membership, err := findMembership(s.DB, bounty.OrganizationID, actorID)
	if err != nil {
		return err
	}
	return CanReviewEntity(membership)
}

func (s *BountyService) loadBountyAndSubmission(bountyID, submissionID string) (*models.Bounty, *models.Submission, error) {
	var bounty models.Bounty
	if err := s.DB.First(&bounty, "id = ?", bountyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, NotFound("bounty not found")
		}
		return nil, nil, Unknown("failed to load bounty", err)
	}
	var submission models.Submission
	if err := s.DB.First(&submission, "id = ? AND bounty_id = ?", submissionID, bounty.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, NotFound("submission not found")
		}
		return nil, nil, Unknown("failed to load submission", err)
	}
	return &bounty, &submission, nil
}

// SelectWinnerForActor assigns a winner position. The position must exist in
// the prize table, must not be held by another winning submission of the same
// bounty, and the amount must match the configured prize exactly — a mismatch
// is an error, never silently corrected.
func (s *BountyService) SelectWinnerForActor(bountyID, submissionID, actorID string, position int, amount float64) (*models.Submission, error) {
	bounty, submission, err := s.loadBountyAndSubmission(bountyID, submissionID)
	if err != nil {
		return nil, err
	}
	if err := s.reviewerMembership(bounty, actorID); err != nil {
		return nil, err
	}

	prize, ok := bounty.Winnings[position]
	if !ok {
		return nil, Invalid(fmt.Sprintf("position %d is not in the prize table", position))
	}

	var occupied int64
	if err := s.DB.Model(&models.Submission{}).
		Where("bounty_id = ? AND is_winner = ? AND position = ? AND id <> ?",
			bounty.ID, true, position, submission.ID).
		Count(&occupied).Error; err != nil {
		return nil, Unknown("failed to check winner positions", err)
	}
	if occupied > 0 {
		return nil, Invalid(fmt.Sprintf("position %d is already taken by another submission", position))
	}

	if amount != prize {
		return nil, Invalid(fmt.Sprintf("amount does not match the configured prize for position %d", position))
	}

	if err := s.DB.Model(submission).Updates(map[string]interface{}{
		"is_winner":      true,
		"position":       position,
		"winning_amount": amount,
		"status":         models.SubmissionStatusSelected,
	}).Error; err != nil {
		return nil, Unknown("failed to select winner", err)
	}

	submission.IsWinner = true
	submission.Position = &position
	submission.WinningAmount = &amount
	submission.Status = models.SubmissionStatusSelected
	return submission, nil
}

// RejectSubmissionForActor marks a submission rejected; isWinner stays false.
func (s *BountyService) RejectSubmissionForActor(bountyID, submissionID, actorID string) (*models.Submission, error) {
	bounty, submission, err := s.loadBountyAndSubmission(bountyID, submissionID)
	if err != nil {
		return nil, err
	}
	if err := s.reviewerMembership(bounty, actorID); err != nil {
		return nil, err
	}

	if err := s.DB.Model(submission).
		UpdateColumn("status", models.SubmissionStatusRejected).Error; err != nil {
		return nil, Unknown("failed to reject submission", err)
	}
	submission.Status = models.SubmissionStatusRejected
	return submission, nil
}

// AnnounceWinnersForActor sets winnersAnnouncedAt. Until this runs, no
// submission list leaves the org — the judging confidentiality invariant.
func (s *BountyService) AnnounceWinnersForActor(bountyID, actorID string) (*models.Bounty, error) {
	var bounty models.Bounty
	if err := s.DB.First(&bounty, "id = ?", bountyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("bounty not found")
		}
		return nil, Unknown("failed to load bounty", err)
	}
	if err := s.reviewerMembership(&bounty, actorID); err != nil {
		return nil, err
	}
	if bounty.WinnersAnnouncedAt != nil {
		return nil, InvalidState("winners have already been announced")
	}

	now := time.Now()
	if err := s.DB.Model(&bounty).
		UpdateColumn("winners_announced_at", now).Error; err != nil {
		return nil, Unknown("failed to announce winners", err)
	}
	bounty.WinnersAnnouncedAt = &now
	return &bounty, nil
}

// UpdateBountyStatusForActor moves a bounty along the transition table. The
// automated open → reviewing edge belongs to the deadline sweep; reviewers
// can still take it manually.
func (s *BountyService) UpdateBountyStatusForActor(bountyID, actorID string, next models.BountyStatus) (*models.Bounty, error) {
	var bounty models.Bounty
	if err := s.DB.First(&bounty, "id = ?", bountyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("bounty not found")
		}
		return nil, Unknown("failed to load bounty", err)
	}
	if err := s.reviewerMembership(&bounty, actorID); err != nil {
		return nil, err
	}

	if !models.ValidBountyStatus(next) {
		return nil, Invalid("unknown bounty status")
	}
	if !models.CanTransitionBounty(bounty.Status, next) {
		return nil, InvalidState(fmt.Sprintf("cannot move bounty from %s to %s", bounty.Status, next))
	}

	if err := s.DB.Model(&bounty).UpdateColumn("status", next).Error; err != nil {
		return nil, Unknown("failed to update bounty status", err)
	}
	bounty.Status = next
	return &bounty, nil
}

// DeleteBountyForActor hard-deletes a bounty, which is only legal while it
// has no submissions.
func (s *BountyService) DeleteBountyForActor(bountyID, actorID string) error {
	var bounty models.Bounty
	if err := s.DB.First(&bounty, "id = ?", bountyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFound("bounty not found")
		}
		return Unknown("failed to load bounty", err)
	}

	membership, err := findMembership(s.DB, bounty.OrganizationID, actorID)
	if err != nil {
		return err
	}
	if err := CanDeleteBounty(membership, bounty.SubmissionCount); err != nil {
		return err
	}

	if err := s.DB.Delete(&models.Bounty{}, "id = ?", bounty.ID).Error; err != nil {
		return Unknown("failed to delete bounty", err)
	}
	return nil
}

// --- Fiber handlers ---

// GetBounty returns a bounty by id or slug (public, published only).
func (s *BountyService) GetBounty(c *fiber.Ctx) error {
	bounty, err := findBountyByIDOrSlug(s.DB, c.Params("idOrSlug"))
	if err != nil {
		return respondError(c, err)
	}
	if bounty.Visibility != models.VisibilityPublished {
		return respondError(c, NotFound("bounty not found"))
	}
	return c.JSON(bounty)
}

// CreateBounty handles POST /bounties.
func (s *BountyService) CreateBounty(c *fiber.Ctx) error {
	actorID, err := requireUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req CreateBountyRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, Invalid("invalid JSON body"))
	}
	bounty, err := s.CreateBountyForActor(actorID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(bounty)
}

// CreateSubmission handles POST /bounties/:idOrSlug/submissions.
func (s *BountyService) CreateSubmission(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req CreateSubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, Invalid("invalid JSON body"))
	}
	submission, err := s.CreateSubmissionForUser(c.Params("idOrSlug"), userID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(submission)
}

// ListSubmissions is the public view: nothing is served until winners are
// announced, regardless of individual submission status.
func (s *BountyService) ListSubmissions(c *fiber.Ctx) error {
	bounty, err := findBountyByIDOrSlug(s.DB, c.Params("idOrSlug"))
	if err != nil {
		return respondError(c, err)
	}
	if bounty.Visibility != models.VisibilityPublished {
		return respondError(c, NotFound("bounty not found"))
	}
	if bounty.WinnersAnnouncedAt == nil {
		return respondError(c, InvalidState("submissions are hidden until winners are announced"))
	}

	var submissions []models.Submission
	if err := s.DB.Where("bounty_id = ?", bounty.ID).
		Order("position ASC NULLS LAST, submitted_at ASC").
		Find(&submissions).Error; err != nil {
		return respondError(c, Unknown("failed to list submissions", err))
	}
	return c.JSON(submissions)
}

// ListSubmissionsForReview is the org-side view, available before the
// announcement.
func (s *BountyService) ListSubmissionsForReview(c *fiber.Ctx) error {
	actorID, err := requireUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	bounty, err := findBountyByIDOrSlug(s.DB, c.Params("idOrSlug"))
	if err != nil {
		return respondError(c, err)
	}
	if err := s.reviewerMembership(bounty, actorID); err != nil {
		return respondError(c, err)
	}

	var submissions []models.Submission
	if err := s.DB.Where("bounty_id = ?", bounty.ID).
		Order("submitted_at ASC").Find(&submissions).Error; err != nil {
		return respondError(c, Unknown("failed to list submissions", err))
	}
	return c.JSON(submissions)
}

// SelectWinner handles POST /bounties/:id/submissions/:submission_id/select.
func (s *BountyService) SelectWinner(c *fiber.Ctx) error {
	actorID, err := requireUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Position int     `json:"position" validate:"required,gt=0"`
		Amount   float64 `json:"amount" validate:"required,gt=0"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, Invalid("invalid JSON body"))
	}
	if err := validateStruct(&req); err != nil {
		return respondError(c, err)
	}
	submission, err := s.SelectWinnerForActor(c.Params("id"), c.Params("submission_id"), actorID, req.Position, req.Amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(submission)
}

// RejectSubmission handles POST /bounties/:id/submissions/:submission_id/reject.
func (s *BountyService) RejectSubmission(c *fiber.Ctx) error {
	actorID, err := requireUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	submission, err := s.RejectSubmissionForActor(c.Params("id"), c.Params("submission_id"), actorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(submission)
}

// AnnounceWinners handles POST /bounties/:id/announce-winners.
func (s *BountyService) AnnounceWinners(c *fiber.Ctx) error {
	actorID, err := requireUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	bounty, err := s.AnnounceWinnersForActor(c.Params("id"), actorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(bounty)
}

// UpdateBountyStatus handles PATCH /bounties/:id/status.
func (s *BountyService) UpdateBountyStatus(c *fiber.Ctx) error {
	actorID, err := requireUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Status models.BountyStatus `json:"status" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, Invalid("invalid JSON body"))
	}
	if err := validateStruct(&req); err != nil {
		return respondError(c, err)
	}
	bounty, err := s.UpdateBountyStatusForActor(c.Params("id"), actorID, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(bounty)
}

// DeleteBounty handles DELETE /bounties/:id.
func (s *BountyService) DeleteBounty(c *fiber.Ctx) error {
	actorID, err := requireUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.DeleteBountyForActor(c.Params("id"), actorID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
