package models

import "time"

// RunClaim records that one server instance took a scheduled run. A run is
// identified by its job and run key, e.g. task_reminder / 2026-10-19.
type RunClaim struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Job       string    `gorm:"uniqueIndex:idx_job_run;size:100;not null" json:"job"`
	RunKey    string    `gorm:"uniqueIndex:idx_job_run;size:100;not null" json:"run_key"`
	Holder    string    `gorm:"size:100" json:"holder"`
	ClaimedAt time.Time `json:"claimed_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (RunClaim) TableName() string { return "scheduled_runs" }
