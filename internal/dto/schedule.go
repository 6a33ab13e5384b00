package dto

// CourseInput identifies one required course by department and number.
type CourseInput struct {
	Department string `json:"department" validate:"required,max=10"`
	Number     string `json:"number" validate:"required,max=10"`
}

// SubmitScheduleRequest opens a new scheduling request.
type SubmitScheduleRequest struct {
	Email           string            `json:"email" validate:"required,email"`
	Term            string            `json:"term" validate:"required,max=20"`
	Courses         []CourseInput     `json:"courses" validate:"required,min=1,max=10,dive"`
	PreferenceHints map[string]string `json:"preferenceHints"`
	PreferenceText  string            `json:"preferenceText" validate:"omitempty,max=500"`
}

// SectionRowInput is one raw timetable row as collected upstream. Days and
// times may be empty for online or arranged sections.
type SectionRowInput struct {
	CRN          string `json:"crn" validate:"required,max=10"`
	Course       string `json:"course" validate:"required,max=20"`
	Title        string `json:"title" validate:"max=100"`
	ScheduleType string `json:"scheduleType" validate:"max=20"`
	Modality     string `json:"modality" validate:"max=30"`
	Instructor   string `json:"instructor" validate:"max=50"`
	Days         string `json:"days" validate:"max=10"`
	BeginTime    string `json:"beginTime" validate:"max=10"`
	EndTime      string `json:"endTime" validate:"max=10"`
	Location     string `json:"location" validate:"max=50"`
}

// AttachSectionsRequest delivers collected rows keyed by course code.
type AttachSectionsRequest struct {
	Sections map[string][]SectionRowInput `json:"sections" validate:"required,min=1"`
}

// LoginRequest authenticates the admin operator.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}
