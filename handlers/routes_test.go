package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"earn-marketplace-system/models"
	"earn-marketplace-system/services"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// noopNotifier satisfies services.Notifier for route-level tests.
type noopNotifier struct{}

func (noopNotifier) SendFirstApplicationNotice(services.CuratorContact, services.GrantSummary, services.ApplicationSummary) error {
	return nil
}
func (noopNotifier) SendFirstSubmissionNotice(services.CuratorContact, services.BountySummary) error {
	return nil
}
func (noopNotifier) SendDeadlineReminderNotice(services.CuratorContact, services.BountySummary) error {
	return nil
}

type routeFixture struct {
	app    *fiber.App
	db     *gorm.DB
	grant  *models.Grant
	bounty *models.Bounty
}

// newRouteFixture builds the app with all three route sets in the same order
// main.go registers them, over an in-memory database with one published
// grant and one published bounty.
func newRouteFixture(t *testing.T) *routeFixture {
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

	org := &models.Organization{
		ID:   uuid.NewString(),
		Name: "Pixel Foundation",
		Slug: "pixel-foundation",
	}
	require.NoError(t, db.Create(org).Error)

	grant := &models.Grant{
		ID:             uuid.NewString(),
		Slug:           "builder-grants",
		OrganizationID: org.ID,
		Title:          "Builder Grants",
		Description:    "Open-ended funding for builders",
		Status:         models.GrantStatusOpen,
		Visibility:     models.VisibilityPublished,
		Source:         models.GrantSourceNative,
		Token:          "USDC",
	}
	require.NoError(t, db.Create(grant).Error)

	amount := 1000.0
	bounty := &models.Bounty{
		ID:             uuid.NewString(),
		Slug:           "design-sprint",
		OrganizationID: org.ID,
		Title:          "Design Sprint",
		Description:    "Design a landing page",
		Amount:         &amount,
		Token:          "USDC",
		SplitPolicy:    models.SplitPolicyFixed,
		Winnings:       models.PrizeTable{1: 500, 2: 300, 3: 200},
		Status:         models.BountyStatusOpen,
		Visibility:     models.VisibilityPublished,
	}
	require.NoError(t, db.Create(bounty).Error)

	notifier := noopNotifier{}
	app := fiber.New()
	SetupBountyRoutes(app, services.NewBountyService(db, notifier))
	SetupGrantRoutes(app, services.NewGrantService(db, notifier))
	SetupSweepRoutes(app, services.NewSweepService(db, notifier))

	return &routeFixture{app: app, db: db, grant: grant, bounty: bounty}
}

func (f *routeFixture) request(t *testing.T, method, path, userID string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestPublicRoutesNeedNoUserHeader(t *testing.T) {
	f := newRouteFixture(t)

	resp := f.request(t, "GET", "/grants/builder-grants", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = f.request(t, "GET", "/bounties/design-sprint", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSweepTriggerNeedsNoUserHeader(t *testing.T) {
	f := newRouteFixture(t)

	resp := f.request(t, "POST", "/internal/sweeps/bounty-deadlines", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var summary services.SweepSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, 0, summary.UpdatedCount)
}

func TestSweepTriggerRejectsOtherVerbs(t *testing.T) {
	f := newRouteFixture(t)

	resp := f.request(t, "GET", "/internal/sweeps/bounty-deadlines", "", nil)
	assert.Equal(t, fiber.StatusMethodNotAllowed, resp.StatusCode)

	resp = f.request(t, "DELETE", "/internal/sweeps/bounty-deadlines", "", nil)
	assert.Equal(t, fiber.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSecuredRoutesRequireUserHeader(t *testing.T) {
	f := newRouteFixture(t)

	paths := []struct{ method, path string }{
		{"POST", "/bounties"},
		{"POST", "/bounties/design-sprint/submissions"},
		{"GET", "/bounties/design-sprint/submissions/review"},
		{"POST", "/grants/builder-grants/applications"},
		{"GET", "/grants/builder-grants/applications"},
		{"GET", "/grants/builder-grants/applications/me"},
	}
	for _, p := range paths {
		resp := f.request(t, p.method, p.path, "", nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "%s %s", p.method, p.path)
	}
}

func TestSecuredRouteAcceptsUserHeader(t *testing.T) {
	f := newRouteFixture(t)

	resp := f.request(t, "POST", "/grants/builder-grants/applications", uuid.NewString(), map[string]interface{}{
		"title":       "Open-source indexer",
		"description": "Index on-chain activity for the ecosystem",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var count int64
	f.db.Model(&models.GrantApplication{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
