package domain

import "time"

// Integration holds a tenant's connection to one exchange provider.
// Credentials is the sealed (encrypted) secret blob; it is opened only at
// the exchange adapter boundary and never crosses a query interface.
type Integration struct {
	IntegrationID string    `json:"integrationID"` // Primary Key (UUID)
	TenantID      string    `json:"tenantID"`
	Provider      string    `json:"provider"`
	Credentials   []byte    `json:"-"` // sealed with the platform secrets cipher
	IsActive      bool      `json:"isActive"`
	IsHealthy     bool      `json:"isHealthy"`
	LastCheckedAt time.Time `json:"lastCheckedAt"`
	AuditFields
}

// Usable reports whether new conversions may be routed through this
// integration. Health-check failures block new claims but do not fail
// in-flight transactions.
func (i Integration) Usable() bool {
	return i.IsActive && i.IsHealthy
}
