package services

import (
	"log"
	"time"

	"earn-marketplace-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SweepService owns the one automated lifecycle transition: expired OPEN
// bounties move to REVIEWING, and curators of the ones that actually got
// submissions are reminded to pick winners.
type SweepService struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewSweepService(db *gorm.DB, notifier Notifier) *SweepService {
	return &SweepService{DB: db, Notifier: notifier}
}

// SweptBounty is one row of the sweep report.
type SweptBounty struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	SubmissionCount int64      `json:"submission_count"`
}

// SweepSummary is what a sweep run reports. RemindersAttempted counts
// bounties that were eligible for a reminder (submissions > 0);
// NotificationsSent counts individual curator emails that went through —
// the two are deliberately separate counters.
type SweepSummary struct {
	UpdatedCount       int           `json:"updated_count"`
	RemindersAttempted int           `json:"reminders_attempted"`
	NotificationsSent  int           `json:"notifications_sent"`
	Swept              []SweptBounty `json:"swept"`
}

// SweepExpiredBounties finds every published OPEN bounty whose deadline has
// passed, transitions the captured id set to REVIEWING in one batched update,
// then fans out reminders. Safe to invoke on any cadence and from concurrent
// ticks: a bounty swept by an earlier run no longer matches status = open.
func (s *SweepService) SweepExpiredBounties(now time.Time) (*SweepSummary, error) {
	var bounties []models.Bounty
	err := s.DB.
		Where("status = ? AND visibility = ? AND deadline IS NOT NULL AND deadline <= ?",
			models.BountyStatusOpen, models.VisibilityPublished, now).
		Find(&bounties).Error
	if err != nil {
		return nil, Unknown("failed to query expired bounties", err)
	}

	if len(bounties) == 0 {
		return &SweepSummary{UpdatedCount: 0, Swept: []SweptBounty{}}, nil
	}

	ids := make([]string, 0, len(bounties))
	for _, bounty := range bounties {
		ids = append(ids, bounty.ID)
	}

	// One batched update over the id set captured above — no re-query, no
	// time-of-check gap.
	err = s.DB.Model(&models.Bounty{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     models.BountyStatusReviewing,
			"updated_at": now,
		}).Error
	if err != nil {
		return nil, Unknown("failed to transition expired bounties", err)
	}

	summary := &SweepSummary{
		UpdatedCount: len(bounties),
		Swept:        make([]SweptBounty, 0, len(bounties)),
	}

	var notifiedIDs []string
	for i := range bounties {
		bounty := &bounties[i]
		summary.Swept = append(summary.Swept, SweptBounty{
			ID:              bounty.ID,
			Title:           bounty.Title,
			Deadline:        bounty.Deadline,
			SubmissionCount: bounty.SubmissionCount,
		})

		// Nothing to judge → no reminder, no timestamp, not even an attempt.
		if bounty.SubmissionCount == 0 {
			continue
		}

		summary.RemindersAttempted++
		notifiedIDs = append(notifiedIDs, bounty.ID)

		contacts, err := curatorContacts(s.DB, "bounty_id", bounty.ID)
		if err != nil {
			log.Printf("⚠️ [SWEEP] could not load curators for bounty %s: %v", bounty.ID, err)
			continue
		}
		result := dispatchBestEffort("deadline-reminder", contacts, func(contact CuratorContact) error {
			return s.Notifier.SendDeadlineReminderNotice(contact, bountySummary(bounty))
		})
		summary.NotificationsSent += result.Succeeded
	}

	// Only bounties that had submissions get the reminder timestamp, and only
	// after all their notification attempts finished (success or failure).
	if len(notifiedIDs) > 0 {
		err = s.DB.Model(&models.Bounty{}).
			Where("id IN ?", notifiedIDs).
			UpdateColumn("last_winner_reminder_sent_at", now).Error
		if err != nil {
			return nil, Unknown("failed to stamp reminder timestamps", err)
		}
	}

	log.Printf("🧹 [SWEEP] moved %d bounties to reviewing, %d reminder batches, %d emails sent",
		summary.UpdatedCount, summary.RemindersAttempted, summary.NotificationsSent)
	return summary, nil
}

// TriggerSweep handles POST /internal/sweeps/bounty-deadlines — the surface
// the external cron hits. Fiber answers other verbs on this path with 405.
func (s *SweepService) TriggerSweep(c *fiber.Ctx) error {
	summary, err := s.SweepExpiredBounties(time.Now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}
