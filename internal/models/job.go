package models

import (
	"encoding/json"
	"time"
)

// Job post statuses.
const (
	JobDraft     = "draft"
	JobPublished = "published"
	JobClosed    = "closed"
)

// Application statuses.
const (
	ApplicationApplied     = "applied"
	ApplicationShortlisted = "shortlisted"
	ApplicationRejected    = "rejected"
	ApplicationHired       = "hired"
)

// JobPost advertises annotation work to experts.
type JobPost struct {
	ID           string     `json:"id"`
	AuthorID     string     `json:"authorId"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Compensation string     `json:"compensation,omitempty"`
	Location     string     `json:"location,omitempty"`
	Skills       []string   `json:"skills"`
	SkillsJSON   string     `json:"-"`
	Status       string     `json:"status"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// PrepareForSave marshals the skills for DB storage.
func (j *JobPost) PrepareForSave() {
	if j.Skills == nil {
		j.Skills = []string{}
	}
	b, _ := json.Marshal(j.Skills)
	j.SkillsJSON = string(b)
}

// PrepareForAPI unmarshals the stored skills.
func (j *JobPost) PrepareForAPI() {
	if j.SkillsJSON != "" {
		json.Unmarshal([]byte(j.SkillsJSON), &j.Skills)
	}
	if j.Skills == nil {
		j.Skills = []string{}
	}
}

// JobApplication is an expert's application to a job post.
type JobApplication struct {
	ID          string    `json:"id"`
	JobPostID   string    `json:"jobPostId"`
	ApplicantID string    `json:"applicantId"`
	CoverLetter string    `json:"coverLetter,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ValidApplicationStatus reports whether s is a known application status.
func ValidApplicationStatus(s string) bool {
	switch s {
	case ApplicationApplied, ApplicationShortlisted, ApplicationRejected, ApplicationHired:
		return true
	}
	return false
}
