package services

import (
	"errors"
	"log"
	"time"

	"earn-marketplace-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GrantService struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewGrantService(db *gorm.DB, notifier Notifier) *GrantService {
	return &GrantService{DB: db, Notifier: notifier}
}

// CreateApplicationRequest is the intake payload for a grant application.
type CreateApplicationRequest struct {
	Title       string                 `json:"title" validate:"required,max=200"`
	Summary     string                 `json:"summary"`
	Description string                 `json:"description" validate:"required"`
	Timeline    models.Timeline        `json:"timeline"`
	Milestones  string                 `json:"milestones"`
	Budget      *float64               `json:"budget" validate:"omitempty,gt=0"`
	Responses   map[string]interface{} `json:"responses"`
	RfpID       *string                `json:"rfp_id" validate:"omitempty,uuid"`
}

// CreateApplicationForUser runs the full intake sequence: resolve → guard →
// validate → persist + counters (one transaction) → best-effort first-
// application fan-out. The application row exists before any notification is
// attempted, and a notification failure never fails the request.
func (s *GrantService) CreateApplicationForUser(grantIDOrSlug, userID string, req *CreateApplicationRequest) (*models.GrantApplication, error) {
	grant, err := findGrantByIDOrSlug(s.DB, grantIDOrSlug)
	if err != nil {
		return nil, err
	}

	var existing *models.GrantApplication
	var prior models.GrantApplication
	err = s.DB.First(&prior, "grant_id = ? AND user_id = ?", grant.ID, userID).Error
	if err == nil {
		existing = &prior
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Unknown("failed to check for an existing application", err)
	}

	membership, err := findMembership(s.DB, grant.OrganizationID, userID)
	if err != nil {
		return nil, err
	}

	if err := CanApplyToGrant(grant, userID, existing, membership); err != nil {
		return nil, err
	}

	if err := validateStruct(req); err != nil {
		return nil, err
	}

	// Budget bounds apply only when the grant declares both of them.
	if req.Budget != nil && grant.MinAmount != nil && grant.MaxAmount != nil {
		if *req.Budget < *grant.MinAmount || *req.Budget > *grant.MaxAmount {
			return nil, Invalid("budget is outside the grant's funding range")
		}
	}

	var rfp *models.Rfp
	if req.RfpID != nil {
		var row models.Rfp
		if err := s.DB.First(&row, "id = ?", *req.RfpID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NotFound("rfp not found")
			}
			return nil, Unknown("failed to load rfp", err)
		}
		if row.GrantID != grant.ID {
			return nil, Invalid("rfp does not belong to this grant")
		}
		rfp = &row
	}

	application := &models.GrantApplication{
		ID:          uuid.NewString(),
		GrantID:     grant.ID,
		RfpID:       req.RfpID,
		UserID:      userID,
		Title:       req.Title,
		Summary:     req.Summary,
		Description: req.Description,
		Timeline:    req.Timeline,
		Milestones:  req.Milestones,
		Budget:      req.Budget,
		Responses:   models.JSONMap(req.Responses),
		Status:      models.ApplicationStatusSubmitted,
		SubmittedAt: time.Now(),
	}

	// Row + counter increments commit or fail together; nothing downstream
	// runs if this fails.
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(application).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Grant{}).Where("id = ?", grant.ID).
			UpdateColumn("application_count", gorm.Expr("application_count + 1")).Error; err != nil {
			return err
		}
		if rfp != nil {
			if err := tx.Model(&models.Rfp{}).Where("id = ?", rfp.ID).
				UpdateColumn("application_count", gorm.Expr("application_count + 1")).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, Unknown("failed to create application", err)
	}

	s.attachApplicantSummary(application)

	// First application ever → tell every curator of the grant. Fire and
	// forget; the application is already durable.
	var updated models.Grant
	if err := s.DB.Select("application_count").First(&updated, "id = ?", grant.ID).Error; err == nil &&
		updated.ApplicationCount == 1 {
		s.notifyFirstApplication(grant, application)
	}

	return application, nil
}

func (s *GrantService) notifyFirstApplication(grant *models.Grant, application *models.GrantApplication) {
	contacts, err := curatorContacts(s.DB, "grant_id", grant.ID)
	if err != nil {
		log.Printf("⚠️ [NOTIFY] could not load curators for grant %s: %v", grant.ID, err)
		return
	}
	result := dispatchBestEffort("first-application", contacts, func(contact CuratorContact) error {
		return s.Notifier.SendFirstApplicationNotice(contact,
			GrantSummary{ID: grant.ID, Title: grant.Title, Token: grant.Token},
			ApplicationSummary{ID: application.ID, Title: application.Title, Applicant: application.ApplicantUsername},
		)
	})
	log.Printf("📬 [NOTIFY] first application on grant %s: %d/%d curator notices sent",
		grant.ID, result.Succeeded, result.Attempted)
}

// attachApplicantSummary fills the denormalized applicant fields from the
// synced profile snapshot; missing snapshots just leave them empty.
func (s *GrantService) attachApplicantSummary(application *models.GrantApplication) {
	var user models.MarketplaceUser
	if err := s.DB.First(&user, "external_user_id = ?", application.UserID).Error; err == nil {
		application.ApplicantUsername = user.Username
		application.ApplicantEmail = user.Email
	}
}

// ReviewApplicationForActor applies an approve/reject decision. Rejection
// requires feedback; review never touches counters.
func (s *GrantService) ReviewApplicationForActor(applicationID, actorID string, decision models.ApplicationStatus, feedback string) (*models.GrantApplication, error) {
	var application models.GrantApplication
	if err := s.DB.First(&application, "id = ?", applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("application not found")
		}
		return nil, Unknown("failed to load application", err)
	}

	var grant models.Grant
	if err := s.DB.First(&grant, "id = ?", application.GrantID).Error; err != nil {
		return nil, Unknown("failed to load grant", err)
	}

	membership, err := findMembership(s.DB, grant.OrganizationID, actorID)
	if err != nil {
		return nil, err
	}
	if err := CanReviewEntity(membership); err != nil {
		return nil, err
	}

	if !models.ValidReviewDecision(decision) {
		return nil, Invalid("decision must be approved or rejected")
	}
	if decision == models.ApplicationStatusRejected && feedback == "" {
		return nil, Invalid("feedback is required when rejecting an application")
	}

	now := time.Now()
	application.Status = decision
	application.Feedback = feedback
	application.ReviewedAt = &now
	if err := s.DB.Model(&application).Updates(map[string]interface{}{
		"status":      decision,
		"feedback":    feedback,
		"reviewed_at": now,
	}).Error; err != nil {
		return nil, Unknown("failed to update application", err)
	}

	s.attachApplicantSummary(&application)
	return &application, nil
}

// --- Fiber handlers ---

// GetGrant returns a grant by id or slug (public, published only).
func (s *GrantService) GetGrant(c *fiber.Ctx) error {
	grant, err := findGrantByIDOrSlug(s.DB, c.Params("idOrSlug"))
	if err != nil {
		return respondError(c, err)
	}
	if grant.Visibility != models.VisibilityPublished {
		return respondError(c, NotFound("grant not found"))
	}
	if err := s.DB.Preload("Rfps").First(grant, "id = ?", grant.ID).Error; err != nil {
		return respondError(c, Unknown("failed to load grant", err))
	}
	return c.JSON(grant)
}

// CreateApplication handles POST /grants/:idOrSlug/applications.
func (s *GrantService) CreateApplication(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req CreateApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, Invalid("invalid JSON body"))
	}

	application, err := s.CreateApplicationForUser(c.Params("idOrSlug"), userID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(application)
}

// GetMyApplication returns the requesting user's application for a grant.
func (s *GrantService) GetMyApplication(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return respondError(c, err)
	}

	grant, err := findGrantByIDOrSlug(s.DB, c.Params("idOrSlug"))
	if err != nil {
		return respondError(c, err)
	}

	var application models.GrantApplication
	if err := s.DB.First(&application, "grant_id = ? AND user_id = ?", grant.ID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, NotFound("no application for this grant"))
		}
		return respondError(c, Unknown("failed to load application", err))
	}
	s.attachApplicantSummary(&application)
	return c.JSON(&application)
}

// ListApplications is the reviewer view of a grant's incoming applications.
func (s *GrantService) ListApplications(c *fiber.Ctx) error {
	actorID, err := requireUserID(c)
	if err != nil {
		return respondError(c, err)
	}

	grant, err := findGrantByIDOrSlug(s.DB, c.Params("idOrSlug"))
	if err != nil {
		return respondError(c, err)
	}

	membership, err := findMembership(s.DB, grant.OrganizationID, actorID)
	if err != nil {
		return respondError(c, err)
	}
	if err := CanReviewEntity(membership); err != nil {
		return respondError(c, err)
	}

	var applications []models.GrantApplication
	if err := s.DB.Where("grant_id = ?", grant.ID).
		Order("submitted_at DESC").Find(&applications).Error; err != nil {
		return respondError(c, Unknown("failed to list applications", err))
	}
	for i := range applications {
		s.attachApplicantSummary(&applications[i])
	}
	return c.JSON(applications)
}

// ReviewApplication handles POST /applications/:id/review.
func (s *GrantService) ReviewApplication(c *fiber.Ctx) error {
	actorID, err := requireUserID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Decision models.ApplicationStatus `json:"decision" validate:"required,oneof=approved rejected"`
		Feedback string                   `json:"feedback"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, Invalid("invalid JSON body"))
	}
	if err := validateStruct(&req); err != nil {
		return respondError(c, err)
	}

	application, err := s.ReviewApplicationForActor(c.Params("id"), actorID, req.Decision, req.Feedback)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(application)
}
