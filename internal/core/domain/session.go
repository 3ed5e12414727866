package domain

import "time"

type ScanSession struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Materials []Material `json:"materials"`
}

// ScanResult describes what happened to one detection fed into a session.
type ScanResult struct {
	Accepted bool `json:"accepted"`
	// Reason names the gate rule that dropped a rejected detection.
	Reason       string        `json:"reason,omitempty"`
	Material     *Material     `json:"material,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}
