package models

import "time"

// Session is an authenticated login token bound to one account.
type Session struct {
	Token     string    `json:"token"`
	AccountID string    `json:"accountId"`
	Username  string    `json:"username"` // cached from the account for quick access
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UserAgent string    `json:"userAgent,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
}

// IsExpired returns true if the session has expired.
func (s Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
