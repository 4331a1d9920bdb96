package model

import "time"

type Tenant struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Domain            string    `json:"domain"`
	IsActive          bool      `json:"is_active"`
	NeedsReconnection bool      `json:"needs_reconnection"`
	ReconnectReason   string    `json:"reconnect_reason,omitempty"`
	Ctime             time.Time `json:"ctime"`
	Mtime             time.Time `json:"mtime"`
}

type TenantCredential struct {
	TenantID    string
	AccessToken string
	ExpiresAt   time.Time
}

func (c TenantCredential) Valid(now time.Time) bool {
	return c.AccessToken != "" && (c.ExpiresAt.IsZero() || now.Before(c.ExpiresAt))
}
