package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// RequestStage tracks the lifecycle of one scheduling request.
type RequestStage string

const (
	StageInitiated         RequestStage = "initiated"
	StageSectionsCollected RequestStage = "sections_collected"
	StageProcessing        RequestStage = "processing"
	StageDone              RequestStage = "done"
	StageFailed            RequestStage = "failed"
)

// ScheduleRequest is one persisted scheduling request. Courses, sections and
// the result are stored as JSON documents.
type ScheduleRequest struct {
	ID          string         `db:"id" json:"id"`
	Email       string         `db:"email" json:"email"`
	Term        string         `db:"term" json:"term"`
	Stage       RequestStage   `db:"stage" json:"stage"`
	Courses     types.JSONText `db:"courses" json:"courses"`
	Preferences types.JSONText `db:"preferences" json:"preferences"`
	Sections    types.JSONText `db:"sections" json:"sections,omitempty"`
	Result      types.JSONText `db:"result" json:"result,omitempty"`
	ErrorCode   string         `db:"error_code" json:"errorCode,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// Preference carries the recognised weighting hints plus free text that only
// the oracle prompt can interpret. Unrecognised keys are dropped upstream.
type Preference struct {
	Morning            bool   `json:"morning,omitempty"`
	Afternoon          bool   `json:"afternoon,omitempty"`
	Evening            bool   `json:"evening,omitempty"`
	LunchBreak         bool   `json:"lunchBreak,omitempty"`
	CompactSchedule    bool   `json:"compactSchedule,omitempty"`
	InstructorAffinity string `json:"instructorAffinity,omitempty"`
	FreeText           string `json:"freeText,omitempty"`
}

// ParsePreference maps recognised hint keys onto a Preference. Unknown keys
// are ignored, not errors.
func ParsePreference(hints map[string]string, freeText string) Preference {
	pref := Preference{FreeText: freeText}
	for key, value := range hints {
		enabled := value != "" && value != "false" && value != "0"
		switch key {
		case "morning":
			pref.Morning = enabled
		case "afternoon":
			pref.Afternoon = enabled
		case "evening":
			pref.Evening = enabled
		case "lunchBreak":
			pref.LunchBreak = enabled
		case "compactSchedule":
			pref.CompactSchedule = enabled
		case "instructorAffinity":
			pref.InstructorAffinity = value
		}
	}
	return pref
}
