package services

import (
	"errors"
	"testing"
	"time"

	"earn-marketplace-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory sqlite database with the full schema. One
// connection only — each :memory: connection is its own database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Organization{},
		&models.Member{},
		&models.Curator{},
		&models.MarketplaceUser{},
		&models.Bounty{},
		&models.Submission{},
		&models.Grant{},
		&models.Rfp{},
		&models.GrantApplication{},
	))
	return db
}

func seedOrg(t *testing.T, db *gorm.DB) *models.Organization {
	t.Helper()
	org := &models.Organization{
		ID:   uuid.NewString(),
		Name: "Pixel Foundation",
		Slug: "pixel-foundation-" + uuid.NewString()[:8],
	}
	require.NoError(t, db.Create(org).Error)
	return org
}

func seedMember(t *testing.T, db *gorm.DB, orgID, userID string, role models.OrgRole) {
	t.Helper()
	require.NoError(t, db.Create(&models.Member{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
	}).Error)
}

func seedGrant(t *testing.T, db *gorm.DB, orgID string, mutate func(*models.Grant)) *models.Grant {
	t.Helper()
	grant := &models.Grant{
		ID:             uuid.NewString(),
		Slug:           "builder-grants-" + uuid.NewString()[:8],
		OrganizationID: orgID,
		Title:          "Builder Grants",
		Description:    "Open-ended funding for builders",
		Status:         models.GrantStatusOpen,
		Visibility:     models.VisibilityPublished,
		Source:         models.GrantSourceNative,
		Token:          "USDC",
	}
	if mutate != nil {
		mutate(grant)
	}
	require.NoError(t, db.Create(grant).Error)
	return grant
}

func seedBounty(t *testing.T, db *gorm.DB, orgID string, mutate func(*models.Bounty)) *models.Bounty {
	t.Helper()
	amount := 1000.0
	bounty := &models.Bounty{
		ID:             uuid.NewString(),
		Slug:           "design-sprint-" + uuid.NewString()[:8],
		OrganizationID: orgID,
		Title:          "Design Sprint",
		Description:    "Design a landing page",
		Amount:         &amount,
		Token:          "USDC",
		SplitPolicy:    models.SplitPolicyFixed,
		Winnings:       models.PrizeTable{1: 500, 2: 300, 3: 200},
		Status:         models.BountyStatusOpen,
		Visibility:     models.VisibilityPublished,
	}
	if mutate != nil {
		mutate(bounty)
	}
	require.NoError(t, db.Create(bounty).Error)
	return bounty
}

// seedCurator registers userID as curator of a bounty or grant and creates
// the contact snapshot the notifier joins against.
func seedCurator(t *testing.T, db *gorm.DB, bountyID, grantID *string, userID, email string) {
	t.Helper()
	firstName := "Jamie"
	require.NoError(t, db.Create(&models.MarketplaceUser{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		Username:       "curator-" + userID[:8],
		Email:          email,
		FirstName:      &firstName,
	}).Error)
	require.NoError(t, db.Create(&models.Curator{
		ID:       uuid.NewString(),
		BountyID: bountyID,
		GrantID:  grantID,
		UserID:   userID,
	}).Error)
}

type sentNotice struct {
	kind        string
	contact     CuratorContact
	grant       GrantSummary
	application ApplicationSummary
	bounty      BountySummary
}

// fakeNotifier records every send and can be told to fail for specific
// recipient addresses.
type fakeNotifier struct {
	notices []sentNotice
	failFor map[string]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failFor: map[string]bool{}}
}

func (f *fakeNotifier) SendFirstApplicationNotice(contact CuratorContact, grant GrantSummary, application ApplicationSummary) error {
	if f.failFor[contact.Email] {
		return errors.New("smtp unavailable")
	}
	f.notices = append(f.notices, sentNotice{kind: "first-application", contact: contact, grant: grant, application: application})
	return nil
}

func (f *fakeNotifier) SendFirstSubmissionNotice(contact CuratorContact, bounty BountySummary) error {
	if f.failFor[contact.Email] {
		return errors.New("smtp unavailable")
	}
	f.notices = append(f.notices, sentNotice{kind: "first-submission", contact: contact, bounty: bounty})
	return nil
}

func (f *fakeNotifier) SendDeadlineReminderNotice(contact CuratorContact, bounty BountySummary) error {
	if f.failFor[contact.Email] {
		return errors.New("smtp unavailable")
	}
	f.notices = append(f.notices, sentNotice{kind: "deadline-reminder", contact: contact, bounty: bounty})
	return nil
}

func (f *fakeNotifier) byKind(kind string) []sentNotice {
	var out []sentNotice
	for _, n := range f.notices {
		if n.kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func pastDeadline() *time.Time {
	d := time.Now().Add(-2 * time.Hour)
	return &d
}

func futureDeadline() *time.Time {
	d := time.Now().Add(48 * time.Hour)
	return &d
}
