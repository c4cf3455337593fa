// services/notifier.go — adapter around the external notification service.
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// CuratorContact is the recipient triple every notice needs.
type CuratorContact struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// GrantSummary is the grant-side payload for the first-application notice.
type GrantSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Token string `json:"token"`
}

// ApplicationSummary identifies the application that triggered the notice.
type ApplicationSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Applicant string `json:"applicant"`
}

// BountySummary is the payload for deadline reminders and first-submission
// notices. TotalPrize is stringified exactly once, here — a nil amount
// becomes "0".
type BountySummary struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	SubmissionCount int64      `json:"submission_count"`
	TotalPrize      string     `json:"total_prize"`
	Token           string     `json:"token"`
}

// PrizeString applies the default-to-zero coercion for optional amounts.
func PrizeString(amount *float64) string {
	if amount == nil {
		return "0"
	}
	return strconv.FormatFloat(*amount, 'f', -1, 64)
}

// Notifier is what the services call. Implementations must treat each send
// as a single attempt — no retry, no backoff.
type Notifier interface {
	SendFirstApplicationNotice(contact CuratorContact, grant GrantSummary, application ApplicationSummary) error
	SendFirstSubmissionNotice(contact CuratorContact, bounty BountySummary) error
	SendDeadlineReminderNotice(contact CuratorContact, bounty BountySummary) error
}

// NotificationClient talks to the external email dispatch service through the
// gateway, one HTTP call per (entity, curator) pair.
type NotificationClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewNotificationClient(baseURL, token string) *NotificationClient {
	return &NotificationClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *NotificationClient) SendFirstApplicationNotice(contact CuratorContact, grant GrantSummary, application ApplicationSummary) error {
	return c.post("/notifications/grant-first-application", map[string]interface{}{
		"recipient":   contact,
		"grant":       grant,
		"application": application,
	})
}

func (c *NotificationClient) SendFirstSubmissionNotice(contact CuratorContact, bounty BountySummary) error {
	return c.post("/notifications/bounty-first-submission", map[string]interface{}{
		"recipient": contact,
		"bounty":    bounty,
	})
}

func (c *NotificationClient) SendDeadlineReminderNotice(contact CuratorContact, bounty BountySummary) error {
	return c.post("/notifications/bounty-deadline-reminder", map[string]interface{}{
		"recipient": contact,
		"bounty":    bounty,
	})
}

func (c *NotificationClient) post(path string, payload map[string]interface{}) error {
	url := fmt.Sprintf("%s%s", c.BaseURL, path)

	jsonData, _ := json.Marshal(payload)
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification service returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// DispatchResult summarizes a best-effort fan-out batch.
type DispatchResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
}

// dispatchBestEffort issues one send per contact. Failures are logged per
// recipient and never abort sibling sends or the calling operation.
func dispatchBestEffort(label string, contacts []CuratorContact, send func(CuratorContact) error) DispatchResult {
	result := DispatchResult{}
	for _, contact := range contacts {
		result.Attempted++
		if err := send(contact); err != nil {
			log.Printf("⚠️ [NOTIFY] %s → %s failed: %v", label, contact.Email, err)
			continue
		}
		result.Succeeded++
	}
	return result
}

// curatorContacts loads the contact triples for every curator of one bounty
// or grant. entityColumn must be "bounty_id" or "grant_id" (never caller
// input). Curators without a synced profile row simply have no contact to
// mail and are skipped by the join.
func curatorContacts(db *gorm.DB, entityColumn, entityID string) ([]CuratorContact, error) {
	var contacts []CuratorContact
	err := db.Table("curators").
		Select("marketplace_users.email AS email, COALESCE(marketplace_users.first_name, '') AS first_name, marketplace_users.username AS username").
		Joins("JOIN marketplace_users ON marketplace_users.external_user_id = curators.user_id").
		Where("curators."+entityColumn+" = ?", entityID).
		Scan(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}
