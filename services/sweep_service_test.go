package services

import (
	"testing"
	"time"

	"earn-marketplace-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepExpiredBountyNotifiesCurators(t *testing.T) {
	db := newTestDB(t)
	notifier := newFakeNotifier()
	svc := NewSweepService(db, notifier)

	org := seedOrg(t, db)
	bounty := seedBounty(t, db, org.ID, func(b *models.Bounty) {
		b.Deadline = pastDeadline()
		b.SubmissionCount = 3
	})
	seedCurator(t, db, &bounty.ID, nil, uuid.NewString(), "curator-one@example.com")
	seedCurator(t, db, &bounty.ID, nil, uuid.NewString(), "curator-two@example.com")

	now := time.Now()
	summary, err := svc.SweepExpiredBounties(now)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.UpdatedCount)
	assert.Equal(t, 1, summary.RemindersAttempted)
	assert.Equal(t, 2, summary.NotificationsSent)
	require.Len(t, summary.Swept, 1)
	assert.Equal(t, bounty.ID, summary.Swept[0].ID)
	assert.Equal(t, int64(3), summary.Swept[0].SubmissionCount)

	reminders := notifier.byKind("deadline-reminder")
	require.Len(t, reminders, 2)
	emails := []string{reminders[0].contact.Email, reminders[1].contact.Email}
	assert.ElementsMatch(t, []string{"curator-one@example.com", "curator-two@example.com"}, emails)
	assert.Equal(t, "1000", reminders[0].bounty.TotalPrize)
	assert.Equal(t, "USDC", reminders[0].bounty.Token)

	var updated models.Bounty
	require.NoError(t, db.First(&updated, "id = ?", bounty.ID).Error)
	assert.Equal(t, models.BountyStatusReviewing, updated.Status)
	require.NotNil(t, updated.LastWinnerReminderSentAt)
	assert.WithinDuration(t, now, *updated.LastWinnerReminderSentAt, time.Second)
}

func TestSweepNilAmountReportsZeroPrize(t *testing.T) {
	db := newTestDB(t)
	notifier := newFakeNotifier()
	svc := NewSweepService(db, notifier)

	org := seedOrg(t, db)
	bounty := seedBounty(t, db, org.ID, func(b *models.Bounty) {
		b.Deadline = pastDeadline()
		b.SubmissionCount = 1
		b.Amount = nil
		b.Winnings = nil
	})
	seedCurator(t, db, &bounty.ID, nil, uuid.NewString(), "curator@example.com")

	summary, err := svc.SweepExpiredBounties(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NotificationsSent)

	reminders := notifier.byKind("deadline-reminder")
	require.Len(t, reminders, 1)
	assert.Equal(t, "0", reminders[0].bounty.TotalPrize)
}

func TestSweepIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewSweepService(db, newFakeNotifier())

	org := seedOrg(t, db)
	seedBounty(t, db, org.ID, func(b *models.Bounty) {
		b.Deadline = pastDeadline()
		b.SubmissionCount = 2
	})

	first, err := svc.SweepExpiredBounties(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, first.UpdatedCount)

	second, err := svc.SweepExpiredBounties(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, second.UpdatedCount)
	assert.Equal(t, 0, second.RemindersAttempted)
	assert.Empty(t, second.Swept)
}

func TestSweepSkipsReminderWithoutSubmissions(t *testing.T) {
	db := newTestDB(t)
	notifier := newFakeNotifier()
	svc := NewSweepService(db, notifier)

	org := seedOrg(t, db)
	bounty := seedBounty(t, db, org.ID, func(b *models.Bounty) {
		b.Deadline = pastDeadline()
		b.SubmissionCount = 0
	})
	seedCurator(t, db, &bounty.ID, nil, uuid.NewString(), "curator@example.com")

	summary, err := svc.SweepExpiredBounties(time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.UpdatedCount)
	assert.Equal(t, 0, summary.RemindersAttempted)
	assert.Equal(t, 0, summary.NotificationsSent)
	assert.Empty(t, notifier.notices)

	var updated models.Bounty
	require.NoError(t, db.First(&updated, "id = ?", bounty.ID).Error)
	assert.Equal(t, models.BountyStatusReviewing, updated.Status)
	assert.Nil(t, updated.LastWinnerReminderSentAt)
}

func TestSweepLeavesNonExpiredBountiesAlone(t *testing.T) {
	db := newTestDB(t)
	svc := NewSweepService(db, newFakeNotifier())

	org := seedOrg(t, db)
	expired := seedBounty(t, db, org.ID, func(b *models.Bounty) {
		b.Deadline = pastDeadline()
	})
	future := seedBounty(t, db, org.ID, func(b *models.Bounty) {
		b.Deadline = futureDeadline()
	})
	noDeadline := seedBounty(t, db, org.ID, func(b *models.Bounty) {
		b.Deadline = nil
	})
	draft := seedBounty(t, db, org.ID, func(b *models.Bounty) {
		b.Deadline = pastDeadline()
		b.Visibility = models.VisibilityDraft
	})
	closed := seedBounty(t, db, org.ID, func(b *models.Bounty) {
		b.Deadline = pastDeadline()
		b.Status = models.BountyStatusClosed
	})

	summary, err := svc.SweepExpiredBounties(time.Now())
	require.NoError(t, err)
	require.Len(t, summary.Swept, 1)
	assert.Equal(t, expired.ID, summary.Swept[0].ID)

	for _, untouched := range []*models.Bounty{future, noDeadline} {
		var row models.Bounty
		require.NoError(t, db.First(&row, "id = ?", untouched.ID).Error)
		assert.Equal(t, models.BountyStatusOpen, row.Status)
	}
	var draftRow models.Bounty
	require.NoError(t, db.First(&draftRow, "id = ?", draft.ID).Error)
	assert.Equal(t, models.BountyStatusOpen, draftRow.Status)

	var closedRow models.Bounty
	require.NoError(t, db.First(&closedRow, "id = ?", closed.ID).Error)
	assert.Equal(t, models.BountyStatusClosed, closedRow.Status)
}

func TestSweepOneCuratorFailureDoesNotBlockOthers(t *testing.T) {
	db := newTestDB(t)
	notifier := newFakeNotifier()
	notifier.failFor["broken@example.com"] = true
	svc := NewSweepService(db, notifier)

	org := seedOrg(t, db)
	bounty := seedBounty(t, db, org.ID, func(b *models.Bounty) {
		b.Deadline = pastDeadline()
		b.SubmissionCount = 5
	})
	seedCurator(t, db, &bounty.ID, nil, uuid.NewString(), "broken@example.com")
	seedCurator(t, db, &bounty.ID, nil, uuid.NewString(), "working@example.com")

	summary, err := svc.SweepExpiredBounties(time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.RemindersAttempted)
	assert.Equal(t, 1, summary.NotificationsSent)
	reminders := notifier.byKind("deadline-reminder")
	require.Len(t, reminders, 1)
	assert.Equal(t, "working@example.com", reminders[0].contact.Email)

	// The timestamp is stamped after the attempts, failures included.
	var updated models.Bounty
	require.NoError(t, db.First(&updated, "id = ?", bounty.ID).Error)
	assert.NotNil(t, updated.LastWinnerReminderSentAt)
}

func TestSweepMixedBatch(t *testing.T) {
	db := newTestDB(t)
	notifier := newFakeNotifier()
	svc := NewSweepService(db, notifier)

	org := seedOrg(t, db)
	withSubs := seedBounty(t, db, org.ID, func(b *models.Bounty) {
		b.Deadline = pastDeadline()
		b.SubmissionCount = 1
	})
	withoutSubs := seedBounty(t, db, org.ID, func(b *models.Bounty) {
		b.Deadline = pastDeadline()
		b.SubmissionCount = 0
	})
	seedCurator(t, db, &withSubs.ID, nil, uuid.NewString(), "curator@example.com")

	summary, err := svc.SweepExpiredBounties(time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.UpdatedCount)
	assert.Equal(t, 1, summary.RemindersAttempted)
	assert.Equal(t, 1, summary.NotificationsSent)

	var silent models.Bounty
	require.NoError(t, db.First(&silent, "id = ?", withoutSubs.ID).Error)
	assert.Equal(t, models.BountyStatusReviewing, silent.Status)
	assert.Nil(t, silent.LastWinnerReminderSentAt)
}
