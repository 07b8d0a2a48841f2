package models

import "time"

// DeviceStatus is the result of a health probe against a device
type DeviceStatus struct {
	Address   string        `json:"address"`
	Online    bool          `json:"online"`
	Latency   time.Duration `json:"latency"`
	CheckedAt time.Time     `json:"checked_at"`
	Error     string        `json:"error,omitempty"`
}

// VariableUpdateResult reports the outcome of one remote variable mutation
type VariableUpdateResult struct {
	Name    string `json:"name"`
	Updated bool   `json:"updated"`
}
