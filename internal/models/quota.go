package models

import "time"

// QuotaState is a read-only snapshot of the oracle quota cooldown machine.
type QuotaState struct {
	ActiveKeyIndex  int        `json:"activeKeyIndex"`
	LastExhaustedAt *time.Time `json:"lastExhaustedAt,omitempty"`
	QuotaErrorCount int        `json:"quotaErrorCount"`
	Cooldown1hDone  bool       `json:"cooldown1hDone"`
	Cooldown24hDone bool       `json:"cooldown24hDone"`
	OnCooldown      bool       `json:"onCooldown"`
}
