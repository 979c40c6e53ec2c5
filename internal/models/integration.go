package models

import "time"

// Integration represents one exchange connection row. Credentials holds
// the sealed blob, never plaintext.
type Integration struct {
	IntegrationID string    `db:"integration_id"`
	TenantID      string    `db:"tenant_id"`
	Provider      string    `db:"provider"`
	Credentials   []byte    `db:"credentials"`
	IsActive      bool      `db:"is_active"`
	IsHealthy     bool      `db:"is_healthy"`
	LastCheckedAt time.Time `db:"last_checked_at"`
	AuditFields
}
