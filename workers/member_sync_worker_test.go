package workers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"earn-marketplace-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newWorkerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.MarketplaceUser{}))
	return db
}

func TestSyncBatchUpsertsProfiles(t *testing.T) {
	db := newWorkerDB(t)

	first := "Alex"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-token", r.Header.Get("X-Service-Token"))
		assert.NotEmpty(t, r.URL.Query().Get("since"))
		_ = json.NewEncoder(w).Encode(GetProfileChangesResponse{
			Users: []ProfileSnapshot{
				{
					ID:         uuid.NewString(),
					ExternalID: "ext-1",
					Username:   "alex",
					Email:      "alex@example.com",
					FirstName:  &first,
					CreatedAt:  time.Now().Add(-time.Hour),
					UpdatedAt:  time.Now(),
				},
			},
		})
	}))
	defer server.Close()

	worker := NewMemberSyncWorker(db, server.URL, "/api/v1/public/profiles", "secret-token")
	require.NoError(t, worker.syncBatch(context.Background(), time.Time{}))

	var user models.MarketplaceUser
	require.NoError(t, db.First(&user, "external_user_id = ?", "ext-1").Error)
	assert.Equal(t, "alex", user.Username)
	assert.Equal(t, "alex@example.com", user.Email)
	require.NotNil(t, user.FirstName)
	assert.Equal(t, "Alex", *user.FirstName)
}

func TestSyncBatchUpdatesExistingSnapshot(t *testing.T) {
	db := newWorkerDB(t)
	require.NoError(t, db.Create(&models.MarketplaceUser{
		ID:             uuid.NewString(),
		ExternalUserID: "ext-1",
		Username:       "old-handle",
		Email:          "old@example.com",
	}).Error)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(GetProfileChangesResponse{
			Users: []ProfileSnapshot{
				{
					ID:         uuid.NewString(),
					ExternalID: "ext-1",
					Username:   "new-handle",
					Email:      "new@example.com",
					UpdatedAt:  time.Now(),
				},
			},
		})
	}))
	defer server.Close()

	worker := NewMemberSyncWorker(db, server.URL, "/profiles", "token")
	require.NoError(t, worker.syncBatch(context.Background(), time.Time{}))

	var count int64
	db.Model(&models.MarketplaceUser{}).Where("external_user_id = ?", "ext-1").Count(&count)
	assert.Equal(t, int64(1), count)

	var user models.MarketplaceUser
	require.NoError(t, db.First(&user, "external_user_id = ?", "ext-1").Error)
	assert.Equal(t, "new-handle", user.Username)
	assert.Equal(t, "new@example.com", user.Email)
}

func TestSyncBatchNon200(t *testing.T) {
	db := newWorkerDB(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	worker := NewMemberSyncWorker(db, server.URL, "/profiles", "token")
	err := worker.syncBatch(context.Background(), time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-200")
}
